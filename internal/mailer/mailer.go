// Package mailer renders and delivers transactional email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	applog "modestwear/internal/log"
	"modestwear/internal/metrics"
)

var ErrNotConfigured = errors.New("mailer: not configured")

// Message is a rendered email ready to send.
type Message struct {
	Template string
	To       string
	ToName   string
	Subject  string
	Text     string
	HTML     string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type Config struct {
	Provider   string        `koanf:"provider" validate:"oneof=log sendgrid"`
	APIKey     string        `koanf:"api_key"`
	From       string        `koanf:"from" validate:"required,email"`
	FromName   string        `koanf:"from_name"`
	AdminEmail string        `koanf:"admin_email" validate:"omitempty,email"`
	BaseURL    string        `koanf:"base_url" validate:"required,url"`
	Attempts   int           `koanf:"attempts" validate:"gte=1"`
	Backoff    time.Duration `koanf:"backoff"`
}

// New builds the mailer selected by cfg.Provider.
func New(cfg Config) (Mailer, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogMailer(), nil
	case "sendgrid":
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewSendGrid(cfg), nil
	default:
		return nil, fmt.Errorf("mailer: unknown provider %q", cfg.Provider)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{log: applog.Component("mailer")}
}

func (l *LogMailer) Send(_ context.Context, m Message) error {
	l.log.Info().
		Str("template", m.Template).
		Str("to", m.To).
		Str("subject", m.Subject).
		Str("text", m.Text).
		Msg("mail.logged")
	metrics.MailSends.WithLabelValues(m.Template, "logged").Inc()
	return nil
}
