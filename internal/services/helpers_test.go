package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"modestwear/internal/auth"
	"modestwear/internal/domain"
	"modestwear/internal/kv"
	"modestwear/internal/mailer"
	"modestwear/internal/media"
	"modestwear/internal/repos"
	"modestwear/internal/services"
)

// outbox records mail instead of sending it.
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

func (o *outbox) byTemplate(name string) []mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []mailer.Message
	for _, m := range o.sent {
		if m.Template == name {
			out = append(out, m)
		}
	}
	return out
}

// token pulls the one-time token out of a verification or reset mail.
func token(t *testing.T, m mailer.Message) string {
	t.Helper()
	_, tok, ok := strings.Cut(m.Text, "token=")
	require.True(t, ok, m.Text)
	return tok
}

type env struct {
	t    *testing.T
	ctx  context.Context
	db   *sqlx.DB
	kv   *kv.Store
	mail *outbox
	objs *media.MemoryStore

	tokens    *auth.Manager
	auth      *services.AuthService
	catalog   *services.CatalogService
	cart      *services.CartService
	wishlist  *services.WishlistService
	orders    *services.OrderService
	outfits   *services.OutfitService
	inventory *services.InventoryService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := kv.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := auth.NewManager(auth.Config{Secret: "0123456789abcdef0123456789abcdef", AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour}, store)
	require.NoError(t, err)
	compose, err := mailer.NewComposer("http://shop.test")
	require.NoError(t, err)

	var (
		tx       = repos.NewTxManager(db)
		users    = repos.NewUserRepo(db)
		cats     = repos.NewCategoryRepo(db)
		prods    = repos.NewProductRepo(db)
		carts    = repos.NewCartRepo(db)
		wishlist = repos.NewWishlistRepo(db)
		orders   = repos.NewOrderRepo(db)
		outfits  = repos.NewOutfitRepo(db)
		inv      = repos.NewInventoryRepo(db)
		box      = &outbox{}
		objs     = media.NewMemoryStore("http://media.test")
	)
	return &env{
		t: t, ctx: context.Background(), db: db, kv: store, mail: box, objs: objs, tokens: tokens,
		auth:      services.NewAuthService(users, tokens, store, box, compose, objs),
		catalog:   services.NewCatalogService(tx, cats, prods, objs),
		cart:      services.NewCartService(carts, prods),
		wishlist:  services.NewWishlistService(tx, wishlist, carts, prods),
		orders:    services.NewOrderService(tx, carts, inv, orders, users, box, compose),
		outfits:   services.NewOutfitService(outfits, prods),
		inventory: services.NewInventoryService(inv, box, compose, "ops@modestwear.test", 5),
	}
}

func (e *env) category(slug string) {
	c := domain.Category{ID: "cat-" + slug, Name: slug, Slug: slug, IsActive: true}
	require.NoError(e.t, repos.NewCategoryRepo(e.db).Create(e.ctx, &c))
}

// product creates an active product with one M/black variant "v-<id>".
func (e *env) product(id, cat, price string, stock int) {
	p := domain.Product{ID: id, CategoryID: "cat-" + cat, Name: id, Slug: id, Price: decimal.RequireFromString(price), IsActive: true}
	pr := repos.NewProductRepo(e.db)
	require.NoError(e.t, pr.Create(e.ctx, &p))
	v := domain.Variant{ID: "v-" + id, ProductID: id, Size: "M", Color: "black", Stock: stock, IsActive: true}
	require.NoError(e.t, pr.CreateVariant(e.ctx, &v))
}

func (e *env) user(id string) *domain.User {
	u := &domain.User{ID: id, Email: id + "@example.com", Username: id, Hash: "x", IsActive: true}
	require.NoError(e.t, repos.NewUserRepo(e.db).Create(e.ctx, u))
	return u
}

func (e *env) stock(variantID string) int {
	n, err := repos.NewInventoryRepo(e.db).Stock(e.ctx, variantID)
	require.NoError(e.t, err)
	return n
}
