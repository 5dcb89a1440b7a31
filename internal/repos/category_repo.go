package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"modestwear/internal/domain"
)

type CategoryRepo struct{ db DBTX }

func NewCategoryRepo(db DBTX) *CategoryRepo { return &CategoryRepo{db: db} }

// Create inserts c, filling in id and creation time when unset.
func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = domain.Timestamp(time.Now())
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories(id, name, slug, parent_id, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, c.ParentID, c.IsActive, c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// Active lists active categories with their active product counts.
func (r *CategoryRepo) Active(ctx context.Context) ([]domain.CategorySummary, error) {
	var out []domain.CategorySummary
	err := r.db.SelectContext(ctx, &out, `
		SELECT c.id, c.name, c.slug, c.parent_id, c.is_active, c.created_at,
		       COUNT(p.id) AS product_count
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id AND p.is_active = 1
		WHERE c.is_active = 1
		GROUP BY c.id
		ORDER BY c.name`)
	return out, err
}

func (r *CategoryRepo) BySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `
		SELECT id, name, slug, parent_id, is_active, created_at
		FROM categories WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
