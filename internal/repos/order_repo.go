package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"modestwear/internal/domain"
)

type OrderRepo struct{ db DBTX }

func NewOrderRepo(db DBTX) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) WithTx(tx *sqlx.Tx) *OrderRepo { return &OrderRepo{db: tx} }

// Create inserts the order and its lines. Ids, status and timestamps are
// filled in when unset.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	if o.CreatedAt == "" {
		o.CreatedAt = domain.Timestamp(time.Now())
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO orders(id, user_id, status, total_price, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Status, o.TotalPrice, o.Address, o.CreatedAt); err != nil {
		return err
	}
	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO order_items(id, order_id, variant_id, quantity, price_at_purchase)
			VALUES (?, ?, ?, ?, ?)`,
			it.ID, it.OrderID, it.VariantID, it.Quantity, it.PriceAtPurchase); err != nil {
			return err
		}
	}
	return nil
}

const orderCols = `id, user_id, status, total_price, address, created_at`

// ByID returns an order with its lines.
func (r *OrderRepo) ByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.GetContext(ctx, &o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ForUser lists a user's orders, newest first, without lines.
func (r *OrderRepo) ForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	return out, err
}

// All lists every order, newest first, optionally narrowed to one status.
func (r *OrderRepo) All(ctx context.Context, status string) ([]domain.Order, error) {
	var out []domain.Order
	if status == "" {
		err := r.db.SelectContext(ctx, &out, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC, id`)
		return out, err
	}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderCols+` FROM orders WHERE status = ? ORDER BY created_at DESC, id`, status)
	return out, err
}

func (r *OrderRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepo) items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	var out []domain.OrderItem
	err := r.db.SelectContext(ctx, &out, `
		SELECT oi.id, oi.order_id, oi.variant_id, v.product_id, p.name AS product_name,
		       oi.quantity, oi.price_at_purchase
		FROM order_items oi
		JOIN variants v ON v.id = oi.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE oi.order_id = ?
		ORDER BY oi.rowid`, orderID)
	return out, err
}
