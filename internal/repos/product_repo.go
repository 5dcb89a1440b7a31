package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"modestwear/internal/domain"
)

type ProductRepo struct{ db DBTX }

func NewProductRepo(db DBTX) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) WithTx(tx *sqlx.Tx) *ProductRepo { return &ProductRepo{db: tx} }

const productCols = `p.id, p.category_id, p.name, p.slug, p.description, p.price,
	p.is_featured, p.is_active, p.image_key, p.date_added`

// Create inserts p, filling in id and date added when unset.
func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.DateAdded == "" {
		p.DateAdded = domain.Timestamp(time.Now())
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products(id, category_id, name, slug, description, price, is_featured, is_active, image_key, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CategoryID, p.Name, p.Slug, p.Description, p.Price, p.IsFeatured, p.IsActive, p.ImageKey, p.DateAdded)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// Update rewrites the mutable product fields.
func (r *ProductRepo) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, is_featured = ?, is_active = ?, category_id = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Price, p.IsFeatured, p.IsActive, p.CategoryID, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepo) SetImage(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET image_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepo) ByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.one(ctx, `SELECT `+productCols+` FROM products p WHERE p.id = ?`, id)
}

// BySlug returns an active product in an active category.
func (r *ProductRepo) BySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.one(ctx, `
		SELECT `+productCols+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.slug = ? AND p.is_active = 1 AND c.is_active = 1`, slug)
}

// SlugTaken reports whether any product, active or not, uses slug.
func (r *ProductRepo) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE slug = ?`, slug)
	return n > 0, err
}

func (r *ProductRepo) one(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns active products in active categories matching f, featured
// and newest first.
func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var (
		where = []string{"p.is_active = 1", "c.is_active = 1"}
		args  []any
	)
	if f.CategorySlug != "" {
		where = append(where, "c.slug = ?")
		args = append(args, f.CategorySlug)
	}
	if f.Query != "" {
		where = append(where, "(p.name LIKE ? OR p.description LIKE ?)")
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if f.MinPrice.Valid {
		where = append(where, "p.price >= ?")
		args = append(args, f.MinPrice.Decimal.InexactFloat64())
	}
	if f.MaxPrice.Valid {
		where = append(where, "p.price <= ?")
		args = append(args, f.MaxPrice.Decimal.InexactFloat64())
	}
	if f.FeaturedOnly {
		where = append(where, "p.is_featured = 1")
	}
	if f.Size != "" || f.Color != "" {
		sub := "EXISTS (SELECT 1 FROM variants v WHERE v.product_id = p.id AND v.is_active = 1"
		if f.Size != "" {
			sub += " AND v.size = ?"
			args = append(args, f.Size)
		}
		if f.Color != "" {
			sub += " AND LOWER(v.color) = LOWER(?)"
			args = append(args, f.Color)
		}
		where = append(where, sub+")")
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, max(f.Offset, 0))

	var out []domain.Product
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+productCols+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY p.is_featured DESC, p.date_added DESC, p.id
		LIMIT ? OFFSET ?`, args...)
	return out, err
}

// ByIDs returns the products with the given ids, in no particular order.
func (r *ProductRepo) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := in(r.db, `SELECT `+productCols+` FROM products p WHERE p.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []domain.Product
	err = r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

// CreateVariant inserts v, filling in its id when unset.
func (r *ProductRepo) CreateVariant(ctx context.Context, v *domain.Variant) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO variants(id, product_id, size, color, stock, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.ProductID, v.Size, v.Color, v.Stock, v.IsActive)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *ProductRepo) Variants(ctx context.Context, productID string) ([]domain.Variant, error) {
	var out []domain.Variant
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, product_id, size, color, stock, is_active
		FROM variants WHERE product_id = ? AND is_active = 1
		ORDER BY CASE size
		  WHEN 'XS' THEN 0 WHEN 'S' THEN 1 WHEN 'M' THEN 2
		  WHEN 'L' THEN 3 WHEN 'XL' THEN 4 WHEN 'XXL' THEN 5 ELSE 6 END, color`, productID)
	return out, err
}

func (r *ProductRepo) Variant(ctx context.Context, id string) (*domain.Variant, error) {
	var v domain.Variant
	err := r.db.GetContext(ctx, &v, `
		SELECT id, product_id, size, color, stock, is_active FROM variants WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Colors lists the distinct colors of active variants.
func (r *ProductRepo) Colors(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.SelectContext(ctx, &out, `
		SELECT DISTINCT color FROM variants WHERE is_active = 1 ORDER BY color`)
	return out, err
}
