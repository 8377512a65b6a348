package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
)

// =============================================================================
// SMTP Mailer Implementation
// =============================================================================

// SMTPMailer sends emails through an SMTP relay.
//
// Works with Mailhog (no auth) in development and any authenticated relay
// in production. MIME assembly, the plain-text alternative part and
// attachments are handled by mailyak.
type SMTPMailer struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPMailer creates a new SMTP-based mailer.
func NewSMTPMailer(config SMTPConfig, logger *slog.Logger) *SMTPMailer {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	return &SMTPMailer{
		config: config,
		logger: logger,
	}
}

// Send delivers one message. The SMTP exchange itself is not cancellable,
// so the send runs in a goroutine and the context deadline bounds how long
// the caller waits; a timeout is reported as a retryable provider error.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	mail := mailyak.New(addr, auth)
	mail.From(m.from(msg))
	mail.FromName(m.fromName(msg))
	mail.To(msg.To...)
	if msg.ReplyTo != "" {
		mail.ReplyTo(msg.ReplyTo)
	}
	mail.Subject(msg.Subject)
	mail.HTML().Set(msg.HTMLBody)
	if msg.TextBody != "" {
		mail.Plain().Set(msg.TextBody)
	}
	for _, a := range msg.Attachments {
		mail.AttachWithMimeType(a.Name, bytes.NewReader(a.Data), a.ContentType)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- mail.Send()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			m.logger.Error("smtp send failed",
				"to", msg.To,
				"subject", msg.Subject,
				"error", err,
			)
			return &ProviderError{StatusCode: 0, Message: err.Error()}
		}
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return &ProviderError{StatusCode: http.StatusRequestTimeout, Message: "smtp send timed out"}
		}
		return ctx.Err()
	}

	m.logger.Info("email sent",
		"transport", "smtp",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

func (m *SMTPMailer) from(msg Message) string {
	if msg.From != "" {
		return msg.From
	}
	return m.config.From
}

func (m *SMTPMailer) fromName(msg Message) string {
	if msg.FromName != "" {
		return msg.FromName
	}
	return m.config.FromName
}

// Compile-time interface check
var _ Mailer = (*SMTPMailer)(nil)
