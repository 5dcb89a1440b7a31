package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"modestwear/internal/domain"
)

type CartRepo struct{ db DBTX }

func NewCartRepo(db DBTX) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) WithTx(tx *sqlx.Tx) *CartRepo { return &CartRepo{db: tx} }

// Add puts qty units of a variant in the user's cart, adding to any
// quantity already there.
func (r *CartRepo) Add(ctx context.Context, userID, variantID string, qty int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(id, user_id, variant_id, quantity, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, variant_id) DO UPDATE SET quantity = cart_items.quantity + excluded.quantity`,
		uuid.NewString(), userID, variantID, qty, domain.Timestamp(time.Now()))
	return err
}

// Ensure puts one unit of a variant in the cart unless it is already there.
func (r *CartRepo) Ensure(ctx context.Context, userID, variantID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(id, user_id, variant_id, quantity, created_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(user_id, variant_id) DO NOTHING`,
		uuid.NewString(), userID, variantID, domain.Timestamp(time.Now()))
	return err
}

// SetQty overwrites the quantity of an existing line.
func (r *CartRepo) SetQty(ctx context.Context, userID, itemID string, qty int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`, qty, itemID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CartRepo) Remove(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Lines returns the user's cart with current prices and stock, oldest first.
func (r *CartRepo) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var out []domain.CartLine
	err := r.db.SelectContext(ctx, &out, `
		SELECT ci.id, ci.variant_id, p.id AS product_id, p.name AS product_name,
		       v.size, v.color, ci.quantity, p.price AS unit_price, v.stock, ci.created_at
		FROM cart_items ci
		JOIN variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE ci.user_id = ?
		ORDER BY ci.created_at, ci.id`, userID)
	return out, err
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}
