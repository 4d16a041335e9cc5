package mail

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// Mailer sends plain-text reports over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

var _ ports.Mailer = (*Mailer)(nil)

// New returns domain.ErrNotConfigured when host, sender or recipients are missing.
func New(cfg config.MailConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, domain.ErrNotConfigured
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
	}, nil
}

// Send delivers one message to every configured recipient.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.message(subject, body)); err != nil {
		return fmt.Errorf("send mail to %s: %w", strings.Join(m.to, ","), err)
	}
	return nil
}

func (m *Mailer) message(subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}
