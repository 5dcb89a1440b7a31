package supervisor

import (
	"context"
	"fmt"
	"time"
)

// Server is the part of *fiber.App the HTTP service drives.
type Server interface {
	Listen(addr string) error
	ShutdownWithContext(ctx context.Context) error
}

// HTTPService runs a Server as a supervised service.
type HTTPService struct {
	srv     Server
	addr    string
	timeout time.Duration
}

func NewHTTPService(srv Server, addr string, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{srv: srv, addr: addr, timeout: shutdownTimeout}
}

// Serve listens until ctx is cancelled, then drains in-flight requests for
// at most the shutdown timeout.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.srv.Listen(h.addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server on %s: %w", h.addr, err)
		}
		return nil
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		if err := h.srv.ShutdownWithContext(sctx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }
