package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	"modestwear/internal/domain"
)

type OutfitRepo struct{ db DBTX }

func NewOutfitRepo(db DBTX) *OutfitRepo { return &OutfitRepo{db: db} }

const outfitCols = `id, user_id, name, description, is_public, created_at, updated_at`

func (r *OutfitRepo) Create(ctx context.Context, o *domain.Outfit) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := domain.Timestamp(time.Now())
	o.CreatedAt, o.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outfits(id, user_id, name, description, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Name, o.Description, o.IsPublic, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *OutfitRepo) Update(ctx context.Context, o *domain.Outfit) error {
	o.UpdatedAt = domain.Timestamp(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE outfits SET name = ?, description = ?, is_public = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		o.Name, o.Description, o.IsPublic, o.UpdatedAt, o.ID, o.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OutfitRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM outfits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ByID returns an outfit with its items in position order.
func (r *OutfitRepo) ByID(ctx context.Context, id string) (*domain.Outfit, error) {
	var o domain.Outfit
	if err := r.db.GetContext(ctx, &o, `SELECT `+outfitCols+` FROM outfits WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	items, err := r.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ForUser lists a user's outfits, newest first.
func (r *OutfitRepo) ForUser(ctx context.Context, userID string) ([]domain.Outfit, error) {
	var out []domain.Outfit
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+outfitCols+` FROM outfits WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	return out, err
}

// Public lists outfits shared by any user, newest first.
func (r *OutfitRepo) Public(ctx context.Context, limit, offset int) ([]domain.Outfit, error) {
	var out []domain.Outfit
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+outfitCols+` FROM outfits WHERE is_public = 1
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	return out, err
}

// AddItem places a product in an outfit. A product already in the outfit
// yields ErrConflict.
func (r *OutfitRepo) AddItem(ctx context.Context, it *domain.OutfitItem) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt == "" {
		it.CreatedAt = domain.Timestamp(time.Now())
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outfit_items(id, outfit_id, product_id, position, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		it.ID, it.OutfitID, it.ProductID, it.Position, it.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *OutfitRepo) RemoveItem(ctx context.Context, outfitID, productID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM outfit_items WHERE outfit_id = ? AND product_id = ?`, outfitID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextPosition returns the position after the outfit's last item.
func (r *OutfitRepo) NextPosition(ctx context.Context, outfitID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM outfit_items WHERE outfit_id = ?`, outfitID)
	return n, err
}

func (r *OutfitRepo) Items(ctx context.Context, outfitID string) ([]domain.OutfitItem, error) {
	out := []domain.OutfitItem{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT oi.id, oi.outfit_id, oi.product_id, p.name AS product_name, oi.position, oi.created_at
		FROM outfit_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.outfit_id = ?
		ORDER BY oi.position, oi.created_at`, outfitID)
	return out, err
}
