package notification

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
)

// Mail sends charts as PNG attachments
type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string
	to                string
	from              string
	send              func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// MailParams contains all parameters needed to initialize a Mail instance
type MailParams struct {
	SMTPServerPort    int
	SMTPServerAddress string
	To                string
	From              string
	Password          string
}

// NewMail creates a new Mail instance with the provided parameters
func NewMail(params MailParams) *Mail {
	return &Mail{
		from:              params.From,
		to:                params.To,
		smtpServerPort:    params.SMTPServerPort,
		smtpServerAddress: params.SMTPServerAddress,
		auth: smtp.PlainAuth(
			"",
			params.From,
			params.Password,
			params.SMTPServerAddress,
		),
		send: smtp.SendMail,
	}
}

// NotifyChart mails the chart with the caption as subject and body
func (m *Mail) NotifyChart(ctx context.Context, caption string, png []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message, err := m.message(caption, png)
	if err != nil {
		return err
	}

	serverAddress := fmt.Sprintf("%s:%d", m.smtpServerAddress, m.smtpServerPort)
	if err := m.send(serverAddress, m.auth, m.from, []string{m.to}, message); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

func (m *Mail) message(caption string, png []byte) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	subject, _, _ := strings.Cut(caption, "\n")

	var head bytes.Buffer
	fmt.Fprintf(&head, "To: %s\r\n", m.to)
	fmt.Fprintf(&head, "From: %q <%s>\r\n", "chartshot", m.from)
	fmt.Fprintf(&head, "Subject: %s\r\n", subject)
	fmt.Fprintf(&head, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&head, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	text, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write([]byte(caption)); err != nil {
		return nil, err
	}

	attachment, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"image/png"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {`attachment; filename="chart.png"`},
	})
	if err != nil {
		return nil, err
	}

	encoder := base64.NewEncoder(base64.StdEncoding, attachment)
	if _, err := encoder.Write(png); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return append(head.Bytes(), body.Bytes()...), nil
}
