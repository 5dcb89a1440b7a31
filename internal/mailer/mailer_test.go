package mailer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modestwear/internal/domain"
)

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestVerificationGolden(t *testing.T) {
	c, err := NewComposer("http://localhost:8080/")
	require.NoError(t, err)

	m, err := c.Verification(domain.User{Email: "amina@example.com", Username: "Amina"}, "tok123")
	require.NoError(t, err)
	assert.Equal(t, "amina@example.com", m.To)
	assert.Contains(t, m.Text, "token=tok123")
	golden(t).Assert(t, "verification", []byte(m.HTML))
}

func TestOrderConfirmationGolden(t *testing.T) {
	c, err := NewComposer("http://localhost:8080")
	require.NoError(t, err)

	order := domain.Order{
		ID:         "ord-1",
		TotalPrice: decimal.RequireFromString("139.48"),
		Address:    "12 Garden Road, Leeds",
		Items: []domain.OrderItem{
			{ProductName: "Chiffon Hijab", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("24.99")},
			{ProductName: "Linen Abaya", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("89.5")},
		},
	}
	m, err := c.OrderConfirmation(domain.User{Email: "amina@example.com", Username: "Amina"}, order)
	require.NoError(t, err)
	assert.Equal(t, "Your ModestWear order ord-1", m.Subject)
	golden(t).Assert(t, "order_confirmation", []byte(m.HTML))
}

func TestLowStockAndResetRender(t *testing.T) {
	c, err := NewComposer("http://shop.test")
	require.NoError(t, err)

	m, err := c.LowStock("ops@example.com", 5, []domain.LowStock{{ProductName: "Maxi <Dress>", Size: "M", Color: "navy", Stock: 2}})
	require.NoError(t, err)
	assert.Contains(t, m.HTML, "Maxi &lt;Dress&gt; (M/navy): 2 left")
	assert.Equal(t, "Low stock: 1 variant(s)", m.Subject)

	r, err := c.PasswordReset(domain.User{Email: "a@example.com", FirstName: "Aisha", LastName: "Khan"}, "a b")
	require.NoError(t, err)
	assert.Contains(t, r.Text, "http://shop.test/api/v1/auth/password-reset/confirm?token=a+b")
	assert.Equal(t, "Aisha Khan", r.ToName)
}

func TestNewSelectsProvider(t *testing.T) {
	m, err := New(Config{Provider: "log"})
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	_, err = New(Config{Provider: "sendgrid"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)

	require.NoError(t, NewLogMailer().Send(context.Background(), Message{Template: "verification", To: "x@example.com"}))
}

func newTestSendGrid(t *testing.T, statuses ...int) (*SendGrid, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	s := NewSendGrid(Config{APIKey: "key", From: "noreply@example.com", Attempts: 3, Backoff: time.Millisecond})
	s.endpoint = srv.URL + "/v3/mail/send"
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s, &calls
}

func TestSendGridRetriesTransientFailures(t *testing.T) {
	s, calls := newTestSendGrid(t, http.StatusServiceUnavailable, http.StatusAccepted)
	err := s.Send(context.Background(), Message{Template: "verification", To: "a@example.com", Subject: "s", Text: "t", HTML: "<p>t</p>"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSendGridGivesUpAfterAttempts(t *testing.T) {
	s, calls := newTestSendGrid(t, http.StatusInternalServerError)
	err := s.Send(context.Background(), Message{Template: "verification", To: "a@example.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestSendGridDoesNotRetryRejection(t *testing.T) {
	s, calls := newTestSendGrid(t, http.StatusBadRequest)
	err := s.Send(context.Background(), Message{Template: "verification", To: "a@example.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	var perm *permanentError
	assert.ErrorAs(t, err, &perm)
	assert.EqualValues(t, 1, calls.Load())
}

type recorder struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recorder) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return r.err
}

func TestAsyncDeliversInBackground(t *testing.T) {
	rec := &recorder{err: errors.New("smtp down")}
	a := NewAsync(rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Send(ctx, Message{Template: "low_stock"}))
	}
	a.Wait()
	assert.Len(t, rec.sent, 3)
}
