package chartshot

import (
	"context"

	"github.com/raykavin/chartshot/pkg/chart"
	"github.com/raykavin/chartshot/pkg/notification"
)

// initializeNotifications sets up Telegram and mail when enabled in the settings
func initializeNotifications(c *Chartshot) error {
	if mail := c.settings.Mail; mail.Enabled {
		WithNotifier(notification.NewMail(notification.MailParams{
			SMTPServerPort:    mail.Port,
			SMTPServerAddress: mail.Host,
			From:              mail.From,
			To:                mail.To,
			Password:          mail.Password,
		}))(c)
	}

	if !c.settings.Telegram.Enabled {
		return nil
	}

	options := []notification.Option{notification.WithLogger(c.log)}
	if c.history != nil {
		options = append(options, notification.WithHistory(c.history))
	}

	telegram, err := notification.NewTelegram(c.settings.Telegram, options...)
	if err != nil {
		return err
	}

	c.telegram = telegram
	WithNotifier(telegram)(c)
	return nil
}

// notify sends the chart to every notifier. Failures are logged, the chart
// was already built.
func (c *Chartshot) notify(ctx context.Context, meta chart.Meta, result *chart.Result) {
	caption := notification.Caption(meta, result.Last)
	for _, notifier := range c.notifiers {
		if err := notifier.NotifyChart(ctx, caption, result.Image); err != nil {
			c.log.WithError(err).Error("chart notification failed")
		}
	}
}
