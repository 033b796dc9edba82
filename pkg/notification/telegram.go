// Package notification delivers rendered charts to chat and mail recipients
package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/logger"
	tb "gopkg.in/tucnak/telebot.v2"
)

// historySize is the number of builds listed by /history
const historySize = 5

// History is the part of the build history the bot reads
type History interface {
	Last(limit int, filters ...core.RecordFilter) ([]*core.BuildRecord, error)
}

type telegram struct {
	settings core.TelegramSettings
	client   *tb.Bot
	history  History
	log      logger.Logger
	started  time.Time
}

// Option is a function that configures a telegram instance
type Option func(telegram *telegram)

// WithHistory enables the /history command
func WithHistory(history History) Option {
	return func(t *telegram) {
		t.history = history
	}
}

// WithLogger sets the notifier logger
func WithLogger(log logger.Logger) Option {
	return func(t *telegram) {
		t.log = log
	}
}

// NewTelegram creates a bot that sends charts to the configured users
func NewTelegram(settings core.TelegramSettings, options ...Option) (core.NotifierWithStart, error) {
	if settings.Token == "" {
		return nil, errors.New("telegram token is empty")
	}

	bot := &telegram{
		settings: settings,
		log:      logger.Nop(),
		started:  time.Now(),
	}

	for _, option := range options {
		option(bot)
	}

	poller := &tb.LongPoller{Timeout: 10 * time.Second}
	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    bot.authMiddleware(poller),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	err = client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/status", Description: "Check bot status"},
		{Text: "/history", Description: "Last rendered charts"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot.client = client
	client.Handle("/help", bot.HelpHandle)
	client.Handle("/status", bot.StatusHandle)
	client.Handle("/history", bot.HistoryHandle)

	return bot, nil
}

func (t *telegram) authMiddleware(poller tb.Poller) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			t.log.Warn("telegram update without message or sender")
			return false
		}

		if authorized(t.settings.Users, u.Message.Sender.ID) {
			return true
		}

		t.log.WithField("user", u.Message.Sender.ID).Error("unauthorized telegram user")
		return false
	})
}

func authorized(users []int64, id int64) bool {
	return slices.Contains(users, id)
}

// Start begins polling
func (t *telegram) Start() {
	go t.client.Start()
}

// NotifyChart sends the chart as a photo to every configured user
func (t *telegram) NotifyChart(ctx context.Context, caption string, png []byte) error {
	var errs []error
	for _, user := range t.settings.Users {
		if err := ctx.Err(); err != nil {
			return err
		}

		photo := &tb.Photo{
			File:    tb.FromReader(bytes.NewReader(png)),
			Caption: escapeMarkdown(caption),
		}
		if _, err := t.client.Send(&tb.User{ID: user}, photo, tb.ModeMarkdown); err != nil {
			t.log.WithError(err).WithField("user", user).Error("telegram send failed")
			errs = append(errs, fmt.Errorf("send to %d: %w", user, err))
		}
	}

	return errors.Join(errs...)
}

func (t *telegram) reply(m *tb.Message, text string) {
	if _, err := t.client.Send(m.Sender, text, tb.ModeMarkdown); err != nil {
		t.log.WithError(err).Error("telegram reply failed")
	}
}

// HelpHandle lists the commands
func (t *telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		t.log.WithError(err).Error("failed to get commands")
		return
	}

	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("/%s - %s", strings.TrimPrefix(command.Text, "/"), command.Description))
	}

	t.reply(m, strings.Join(lines, "\n"))
}

// StatusHandle reports the uptime
func (t *telegram) StatusHandle(m *tb.Message) {
	t.reply(m, fmt.Sprintf("Status: `running for %s`", time.Since(t.started).Round(time.Second)))
}

// HistoryHandle lists the last builds
func (t *telegram) HistoryHandle(m *tb.Message) {
	if t.history == nil {
		t.reply(m, "History is disabled.")
		return
	}

	records, err := t.history.Last(historySize)
	if err != nil {
		t.log.WithError(err).Error("failed to read history")
		t.reply(m, "Failed to read history.")
		return
	}

	t.reply(m, formatHistory(records))
}

func formatHistory(records []*core.BuildRecord) string {
	if len(records) == 0 {
		return "No charts rendered yet."
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		status := fmt.Sprintf("%d bars, %s", record.Bars, record.Duration.Round(time.Millisecond))
		if record.Failed() {
			status = "failed: " + escapeMarkdown(record.Error)
		}
		lines = append(lines, fmt.Sprintf("*%s* `%s` %s (%s)",
			escapeMarkdown(record.Symbol), strings.ReplaceAll(record.Timeframe, "`", ""),
			status, record.CreatedAt.Format(time.DateTime)))
	}

	return strings.Join(lines, "\n")
}

// markdown escapes the characters that open an entity in Telegram Markdown
var markdown = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(text string) string {
	return markdown.Replace(text)
}

// Caption builds the photo caption of a chart
func Caption(meta core.Meta, last core.Bar) string {
	return fmt.Sprintf("%s\nO: %g H: %g L: %g C: %g", meta.Title(), last.Open, last.High, last.Low, last.Close)
}
