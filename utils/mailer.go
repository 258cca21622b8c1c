package utils

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"encorecrm/config"
	"encorecrm/engine"
)

// Mailer delivers engagement email over SMTP. It implements
// engine.EmailSender.
type Mailer struct {
	dialer    *gomail.Dialer
	fromEmail string
	fromName  string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		dialer:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

// SendEmail sends one message. The context is checked before dialing;
// gomail itself does not support mid-send cancellation.
func (m *Mailer) SendEmail(ctx context.Context, msg engine.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.dialer.Host == "" {
		return fmt.Errorf("mailer: SMTP is not configured")
	}

	message := gomail.NewMessage()
	message.SetAddressHeader("From", m.fromEmail, m.fromName)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/html", toHTML(msg.Content))
	message.AddAlternative("text/plain", msg.Content)

	if err := m.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("mailer: sending to %s: %w", msg.To, err)
	}
	return nil
}

// toHTML wraps plain body text in a minimal HTML shell, turning
// newlines into breaks. Templates are authored as plain text.
func toHTML(body string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(body)
	return "<html><body><p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p></body></html>"
}
