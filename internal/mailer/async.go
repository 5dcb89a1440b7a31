package mailer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	applog "modestwear/internal/log"
)

// Async hands messages to next in background goroutines so requests do not
// wait on delivery. Send never fails; delivery errors are logged.
type Async struct {
	next Mailer
	wg   sync.WaitGroup
	log  zerolog.Logger
}

func NewAsync(next Mailer) *Async {
	return &Async{next: next, log: applog.Component("mailer")}
}

func (a *Async) Send(ctx context.Context, m Message) error {
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.next.Send(ctx, m); err != nil {
			a.log.Error().Err(err).Str("template", m.Template).Str("to", m.To).Msg("mail.async.failed")
		}
	}()
	return nil
}

// Wait blocks until every queued message has been handled.
func (a *Async) Wait() { a.wg.Wait() }
