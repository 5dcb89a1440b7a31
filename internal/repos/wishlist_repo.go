package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"modestwear/internal/domain"
)

type WishlistRepo struct{ db DBTX }

func NewWishlistRepo(db DBTX) *WishlistRepo { return &WishlistRepo{db: db} }

func (r *WishlistRepo) WithTx(tx *sqlx.Tx) *WishlistRepo { return &WishlistRepo{db: tx} }

// Add saves a variant; saving it twice is a no-op.
func (r *WishlistRepo) Add(ctx context.Context, userID, variantID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items(user_id, variant_id, added_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, variant_id) DO NOTHING`,
		userID, variantID, domain.Timestamp(time.Now()))
	return err
}

func (r *WishlistRepo) Remove(ctx context.Context, userID, variantID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist_items WHERE user_id = ? AND variant_id = ?`, userID, variantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns saved variants, newest first.
func (r *WishlistRepo) List(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	var out []domain.WishlistEntry
	err := r.db.SelectContext(ctx, &out, `
		SELECT w.variant_id, p.id AS product_id, p.name AS product_name,
		       v.size, v.color, p.price, w.added_at
		FROM wishlist_items w
		JOIN variants v ON v.id = w.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE w.user_id = ?
		ORDER BY w.added_at DESC, w.variant_id`, userID)
	return out, err
}
