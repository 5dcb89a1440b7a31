package repos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"modestwear/internal/domain"
	"modestwear/internal/recommend"
)

var _ recommend.Store = (*RecommendStore)(nil)

// RecommendStore reads the catalog and the interaction log (order lines
// and outfit memberships) for the recommendation engine.
type RecommendStore struct{ db DBTX }

func NewRecommendStore(db DBTX) *RecommendStore { return &RecommendStore{db: db} }

type scoreRow struct {
	ID         string          `db:"id"`
	CategoryID string          `db:"category_id"`
	Price      decimal.Decimal `db:"price"`
	Featured   bool            `db:"is_featured"`
	DateAdded  string          `db:"date_added"`
}

func (r scoreRow) product() (recommend.Product, error) {
	added, err := domain.ParseTimestamp(r.DateAdded)
	if err != nil {
		return recommend.Product{}, fmt.Errorf("product %s date_added: %w", r.ID, err)
	}
	return recommend.Product{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Price:      r.Price,
		Featured:   r.Featured,
		Added:      added,
	}, nil
}

const scoreCols = `p.id, p.category_id, p.price, p.is_featured, p.date_added`

func (s *RecommendStore) Product(ctx context.Context, id string) (recommend.Product, error) {
	var row scoreRow
	err := s.db.GetContext(ctx, &row, `SELECT `+scoreCols+` FROM products p WHERE p.id = ?`, id)
	if err != nil {
		if notFound(err) == ErrNotFound {
			return recommend.Product{}, recommend.ErrNotFound
		}
		return recommend.Product{}, err
	}
	return row.product()
}

func (s *RecommendStore) UserExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE id = ?`, id)
	return n > 0, err
}

func (s *RecommendStore) Products(ctx context.Context, q recommend.ProductQuery) ([]recommend.Product, error) {
	where := []string{"p.is_active = 1", "c.is_active = 1"}
	var args []any
	if q.IDs != nil {
		if len(q.IDs) == 0 {
			return nil, nil
		}
		where = append(where, "p.id IN (?)")
		args = append(args, q.IDs)
	}
	if len(q.CategoryIDs) > 0 {
		where = append(where, "p.category_id IN (?)")
		args = append(args, q.CategoryIDs)
	}
	if q.MinPrice.Valid {
		where = append(where, "p.price >= ?")
		args = append(args, q.MinPrice.Decimal.InexactFloat64())
	}
	if q.MaxPrice.Valid {
		where = append(where, "p.price <= ?")
		args = append(args, q.MaxPrice.Decimal.InexactFloat64())
	}
	if len(q.Exclude) > 0 {
		where = append(where, "p.id NOT IN (?)")
		args = append(args, q.Exclude)
	}
	query := `SELECT ` + scoreCols + `
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE ` + strings.Join(where, " AND ")
	if len(args) > 0 {
		var err error
		if query, args, err = in(s.db, query, args...); err != nil {
			return nil, err
		}
	}
	var rows []scoreRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]recommend.Product, 0, len(rows))
	for _, r := range rows {
		p, err := r.product()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// purchases joins every order line to its order and product.
const purchases = `
	FROM order_items oi
	JOIN orders o   ON o.id = oi.order_id
	JOIN variants v ON v.id = oi.variant_id
	JOIN products p ON p.id = v.product_id`

func (s *RecommendStore) InteractionCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	from := ""
	if !since.IsZero() {
		from = domain.Timestamp(since)
	}
	return s.counts(ctx, `
		SELECT product_id AS k, COUNT(*) AS n FROM (
			SELECT v.product_id `+purchases+` WHERE o.created_at >= ?
			UNION ALL
			SELECT oi.product_id FROM outfit_items oi WHERE oi.created_at >= ?
		) GROUP BY product_id`, from, from)
}

func (s *RecommendStore) PurchasedProducts(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT v.product_id `+purchases+` WHERE o.user_id = ? ORDER BY v.product_id`, userID)
	return ids, err
}

func (s *RecommendStore) Buyers(ctx context.Context, productIDs []string, excludeUser string) (map[string]int, error) {
	if len(productIDs) == 0 {
		return map[string]int{}, nil
	}
	query, args, err := in(s.db, `
		SELECT o.user_id AS k, COUNT(DISTINCT v.product_id) AS n `+purchases+`
		WHERE v.product_id IN (?) AND o.user_id <> ?
		GROUP BY o.user_id`, productIDs, excludeUser)
	if err != nil {
		return nil, err
	}
	return s.counts(ctx, query, args...)
}

func (s *RecommendStore) PurchaseCounts(ctx context.Context, userIDs []string) (map[string]int, error) {
	if len(userIDs) == 0 {
		return map[string]int{}, nil
	}
	query, args, err := in(s.db, `
		SELECT v.product_id AS k, COUNT(*) AS n `+purchases+`
		WHERE o.user_id IN (?)
		GROUP BY v.product_id`, userIDs)
	if err != nil {
		return nil, err
	}
	return s.counts(ctx, query, args...)
}

func (s *RecommendStore) CategoryPurchaseCounts(ctx context.Context, userID string) (map[string]int, error) {
	return s.counts(ctx, `
		SELECT p.category_id AS k, COUNT(*) AS n `+purchases+`
		WHERE o.user_id = ?
		GROUP BY p.category_id`, userID)
}

func (s *RecommendStore) CategoryOutfitCounts(ctx context.Context, userID string) (map[string]int, error) {
	return s.counts(ctx, `
		SELECT p.category_id AS k, COUNT(*) AS n
		FROM outfit_items oi
		JOIN outfits o  ON o.id = oi.outfit_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.user_id = ?
		GROUP BY p.category_id`, userID)
}

func (s *RecommendStore) counts(ctx context.Context, query string, args ...any) (map[string]int, error) {
	var rows []struct {
		K string `db:"k"`
		N int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.K] = r.N
	}
	return out, nil
}
