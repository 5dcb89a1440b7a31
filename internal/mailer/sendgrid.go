package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	gobreaker "github.com/sony/gobreaker/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/metrics"
)

// permanentError marks a rejection that retrying cannot fix.
type permanentError struct{ status int }

func (e *permanentError) Error() string {
	return fmt.Sprintf("sendgrid rejected message: status %d", e.status)
}

// SendGrid delivers through the SendGrid v3 API behind a circuit breaker.
// Each message gets up to Attempts tries with exponential backoff.
type SendGrid struct {
	cfg      Config
	endpoint string
	cb       *gobreaker.CircuitBreaker[int]
	log      zerolog.Logger
	sleep    func(context.Context, time.Duration) error
}

func NewSendGrid(cfg Config) *SendGrid {
	if cfg.Attempts < 1 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	lg := applog.Component("mailer")
	s := &SendGrid{cfg: cfg, log: lg, sleep: sleepCtx}
	s.cb = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "sendgrid",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var perm *permanentError
			return err == nil || errors.As(err, &perm)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("mail.breaker.state")
		},
	})
	return s
}

func (s *SendGrid) Send(ctx context.Context, m Message) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail(s.cfg.FromName, s.cfg.From),
		m.Subject,
		mail.NewEmail(m.ToName, m.To),
		m.Text,
		m.HTML,
	)

	var err error
	delay := s.cfg.Backoff
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		_, err = s.cb.Execute(func() (int, error) { return s.post(ctx, msg) })
		if err == nil {
			metrics.MailSends.WithLabelValues(m.Template, "sent").Inc()
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) || errors.Is(err, gobreaker.ErrOpenState) || attempt == s.cfg.Attempts {
			break
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Str("template", m.Template).Msg("mail.retry")
		if serr := s.sleep(ctx, delay); serr != nil {
			err = serr
			break
		}
		delay *= 2
	}
	metrics.MailSends.WithLabelValues(m.Template, "failed").Inc()
	return fmt.Errorf("send %s mail: %w", m.Template, err)
}

func (s *SendGrid) post(ctx context.Context, msg *mail.SGMailV3) (int, error) {
	client := sendgrid.NewSendClient(s.cfg.APIKey)
	if s.endpoint != "" {
		client.BaseURL = s.endpoint
	}
	resp, err := client.SendWithContext(ctx, msg)
	if err != nil {
		return 0, err
	}
	switch {
	case resp.StatusCode == 429 || resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("sendgrid status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return resp.StatusCode, &permanentError{status: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
