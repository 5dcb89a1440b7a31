package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"modestwear/internal/domain"
	"modestwear/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fixture builds catalog and interaction rows with short, readable ids.
type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *sqlx.DB
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, ctx: context.Background(), db: memdb(t), now: time.Now().UTC()}
}

func (f *fixture) ago(days int) time.Time { return f.now.Add(-time.Duration(days) * 24 * time.Hour) }

func (f *fixture) category(id string, active bool) {
	c := domain.Category{ID: id, Name: id, Slug: id, IsActive: active}
	require.NoError(f.t, repos.NewCategoryRepo(f.db).Create(f.ctx, &c))
}

// product creates a product with one variant "v-<id>" holding 10 units.
func (f *fixture) product(id, cat, price string, featured bool, added time.Time) {
	p := domain.Product{
		ID: id, CategoryID: cat, Name: id, Slug: id,
		Price: decimal.RequireFromString(price), IsFeatured: featured, IsActive: true,
		DateAdded: domain.Timestamp(added),
	}
	pr := repos.NewProductRepo(f.db)
	require.NoError(f.t, pr.Create(f.ctx, &p))
	v := domain.Variant{ID: "v-" + id, ProductID: id, Size: "M", Color: "black", Stock: 10, IsActive: true}
	require.NoError(f.t, pr.CreateVariant(f.ctx, &v))
}

func (f *fixture) user(id string) {
	u := domain.User{ID: id, Email: id + "@example.com", Username: id, Hash: "x", IsActive: true}
	require.NoError(f.t, repos.NewUserRepo(f.db).Create(f.ctx, &u))
}

func (f *fixture) order(user string, at time.Time, products ...string) *domain.Order {
	o := domain.Order{UserID: user, Address: "here", TotalPrice: decimal.NewFromInt(1), CreatedAt: domain.Timestamp(at)}
	for _, p := range products {
		o.Items = append(o.Items, domain.OrderItem{VariantID: "v-" + p, Quantity: 1, PriceAtPurchase: decimal.NewFromInt(1)})
	}
	require.NoError(f.t, repos.NewOrderRepo(f.db).Create(f.ctx, &o))
	return &o
}

func (f *fixture) outfit(user string, at time.Time, products ...string) {
	r := repos.NewOutfitRepo(f.db)
	o := domain.Outfit{UserID: user, Name: "look"}
	require.NoError(f.t, r.Create(f.ctx, &o))
	for i, p := range products {
		it := domain.OutfitItem{OutfitID: o.ID, ProductID: p, Position: i, CreatedAt: domain.Timestamp(at)}
		require.NoError(f.t, r.AddItem(f.ctx, &it))
	}
}
