package supervisor_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modestwear/internal/domain"
	"modestwear/internal/supervisor"
)

type fakeServer struct {
	stop     chan struct{}
	listened atomic.Int32
	shutdown atomic.Int32
	fail     error
}

func newFakeServer() *fakeServer { return &fakeServer{stop: make(chan struct{})} }

func (f *fakeServer) Listen(string) error {
	f.listened.Add(1)
	if f.fail != nil {
		return f.fail
	}
	<-f.stop
	return nil
}

func (f *fakeServer) ShutdownWithContext(context.Context) error {
	f.shutdown.Add(1)
	close(f.stop)
	return nil
}

func TestHTTPServiceShutsDownOnCancel(t *testing.T) {
	srv := newFakeServer()
	svc := supervisor.NewHTTPService(srv, ":0", time.Second)
	assert.Equal(t, "http-server", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool { return srv.listened.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.EqualValues(t, 1, srv.shutdown.Load())
}

func TestHTTPServiceReportsListenFailure(t *testing.T) {
	srv := newFakeServer()
	srv.fail = errors.New("address in use")
	err := supervisor.NewHTTPService(srv, ":8080", 0).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Contains(t, err.Error(), ":8080")
}

type fakeScanner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeScanner) ScanLowStock(context.Context) ([]domain.LowStock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []domain.LowStock{{VariantID: "v-1", Stock: 2}}, nil
}

func (f *fakeScanner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStockMonitorScansOnEveryTick(t *testing.T) {
	scanner := &fakeScanner{}
	var buf bytes.Buffer
	m := supervisor.NewStockMonitor(scanner, 10*time.Millisecond, zerolog.New(&syncWriter{w: &buf}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx) }()

	require.Eventually(t, func() bool { return scanner.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStockMonitorSurvivesScanErrors(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("db locked")}
	out := &syncWriter{w: &bytes.Buffer{}}
	m := supervisor.NewStockMonitor(scanner, 10*time.Millisecond, zerolog.New(out))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx) }()

	require.Eventually(t, func() bool { return scanner.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Contains(t, out.String(), "inventory.scan.fail")
}

// flaky fails a fixed number of times, then runs until cancelled.
type flaky struct {
	failures int32
	starts   atomic.Int32
}

func (f *flaky) Serve(ctx context.Context) error {
	if f.starts.Add(1) <= f.failures {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestTreeRestartsFailedJobs(t *testing.T) {
	out := &syncWriter{w: &bytes.Buffer{}}
	tree := supervisor.NewTree(zerolog.New(out), supervisor.TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	job := &flaky{failures: 2}
	tree.AddJob(job)
	srv := newFakeServer()
	tree.AddAPI(supervisor.NewHTTPService(srv, ":0", time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool { return job.starts.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, srv.listened.Load(), "job failures leave the server alone")
	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	assert.Contains(t, out.String(), "supervisor.event")
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *syncWriter) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.String()
}
