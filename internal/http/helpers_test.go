package handlers_test

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"modestwear/internal/auth"
	"modestwear/internal/config"
	"modestwear/internal/domain"
	"modestwear/internal/http/handlers"
	"modestwear/internal/kv"
	"modestwear/internal/mailer"
	"modestwear/internal/media"
	"modestwear/internal/repos"
	"modestwear/internal/services"
)

const pw = "Sunr1se!Modest"

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Send(_ context.Context, m mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) last(template string) (mailer.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Template == template {
			return o.sent[i], true
		}
	}
	return mailer.Message{}, false
}

type testApp struct {
	t    *testing.T
	ctx  context.Context
	app  *fiber.App
	deps *handlers.Deps
	db   *sqlx.DB
	mail *outbox
}

func newTestApp(t *testing.T, tweak ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Mail.AdminEmail = "ops@modestwear.test"
	cfg.Recommend.CacheTTL = 0
	for _, f := range tweak {
		f(&cfg)
	}

	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := kv.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	tokens, err := auth.NewManager(cfg.Auth, store)
	require.NoError(t, err)
	compose, err := mailer.NewComposer("http://shop.test")
	require.NoError(t, err)

	box := &outbox{}
	deps := handlers.NewDeps(db, store, cfg, tokens, box, compose, media.NewMemoryStore("http://media.test"))
	return &testApp{
		t: t, ctx: context.Background(), db: db, mail: box, deps: deps,
		app: handlers.NewApp(deps, cfg.Server),
	}
}

// call sends a JSON request and decodes a JSON object response.
func (ta *testApp) call(method, path string, body any, token string) (int, map[string]any) {
	ta.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ta.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(ta.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(ta.t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(ta.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// shopper registers and logs in a customer and returns its id and access token.
func (ta *testApp) shopper(email string) (string, string) {
	ta.t.Helper()
	name, _, _ := strings.Cut(email, "@")
	u, err := ta.deps.Auth.Register(ta.ctx, services.RegisterInput{
		Email: email, Username: name, Password: pw, PasswordConfirm: pw,
	})
	require.NoError(ta.t, err)
	_, pair, err := ta.deps.Auth.Login(ta.ctx, email, pw)
	require.NoError(ta.t, err)
	return u.ID, pair.AccessToken
}

func (ta *testApp) admin() string {
	ta.t.Helper()
	_, err := ta.deps.Auth.CreateAdmin(ta.ctx, "boss@modestwear.test", "boss", pw)
	require.NoError(ta.t, err)
	_, pair, err := ta.deps.Auth.Login(ta.ctx, "boss@modestwear.test", pw)
	require.NoError(ta.t, err)
	return pair.AccessToken
}

// product creates an active product with one M/black variant "v-<id>".
func (ta *testApp) product(id, cat, price string, stock int) {
	ta.t.Helper()
	cats := repos.NewCategoryRepo(ta.db)
	if _, err := cats.BySlug(ta.ctx, cat); err != nil {
		require.NoError(ta.t, cats.Create(ta.ctx, &domain.Category{ID: "cat-" + cat, Name: cat, Slug: cat, IsActive: true}))
	}
	prods := repos.NewProductRepo(ta.db)
	p := domain.Product{ID: id, CategoryID: "cat-" + cat, Name: id, Slug: id, Price: decimal.RequireFromString(price), IsActive: true}
	require.NoError(ta.t, prods.Create(ta.ctx, &p))
	v := domain.Variant{ID: "v-" + id, ProductID: id, Size: "M", Color: "black", Stock: stock, IsActive: true}
	require.NoError(ta.t, prods.CreateVariant(ta.ctx, &v))
}
