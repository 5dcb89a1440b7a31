package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"modestwear/internal/domain"
)

// InventoryRepo owns variant stock levels.
type InventoryRepo struct{ db DBTX }

func NewInventoryRepo(db DBTX) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) WithTx(tx *sqlx.Tx) *InventoryRepo { return &InventoryRepo{db: tx} }

// Stock returns the current stock of a variant.
func (r *InventoryRepo) Stock(ctx context.Context, variantID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT stock FROM variants WHERE id = ?`, variantID)
	if err != nil {
		return 0, notFound(err)
	}
	return n, nil
}

// Decrement subtracts qty only if enough stock exists and reports whether
// it did.
func (r *InventoryRepo) Decrement(ctx context.Context, variantID string, qty int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE variants SET stock = stock - ?
		WHERE id = ? AND is_active = 1 AND stock >= ?`, qty, variantID, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Restock adds qty units to a variant.
func (r *InventoryRepo) Restock(ctx context.Context, variantID string, qty int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE variants SET stock = stock + ? WHERE id = ?`, qty, variantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LowStock lists active variants of active products at or below threshold.
func (r *InventoryRepo) LowStock(ctx context.Context, threshold int) ([]domain.LowStock, error) {
	var out []domain.LowStock
	err := r.db.SelectContext(ctx, &out, `
		SELECT v.id AS variant_id, p.name AS product_name, v.size, v.color, v.stock
		FROM variants v JOIN products p ON p.id = v.product_id
		WHERE v.is_active = 1 AND p.is_active = 1 AND v.stock <= ?
		ORDER BY v.stock, p.name, v.size`, threshold)
	return out, err
}
