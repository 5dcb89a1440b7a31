package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"modestwear/internal/domain"
	"modestwear/internal/media"
	"modestwear/internal/repos"
	"modestwear/internal/slug"
	"modestwear/internal/validate"
)

type CatalogService struct {
	Tx    *repos.TxManager
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
	Media media.ObjectStore
}

func NewCatalogService(tx *repos.TxManager, cats *repos.CategoryRepo, prods *repos.ProductRepo, objects media.ObjectStore) *CatalogService {
	return &CatalogService{Tx: tx, Cats: cats, Prods: prods, Media: objects}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.CategorySummary, error) {
	return s.Cats.Active(ctx)
}

// ListQuery is the raw storefront query; ParseFilter validates it.
type ListQuery struct {
	Category string `query:"category"`
	Q        string `query:"q"`
	Size     string `query:"size"`
	Color    string `query:"color"`
	MinPrice string `query:"min_price"`
	MaxPrice string `query:"max_price"`
	Featured bool   `query:"featured"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// ParseFilter turns a storefront query into a product filter.
func ParseFilter(q ListQuery) (domain.ProductFilter, error) {
	var f domain.ProductFilter
	if q.Category != "" {
		c, ok := validate.Slug(q.Category)
		if !ok {
			return f, invalid("category is not a valid slug")
		}
		f.CategorySlug = c
	}
	if strings.TrimSpace(q.Q) != "" {
		v, ok := validate.Q(q.Q)
		if !ok {
			return f, invalid("search query contains unsupported characters")
		}
		f.Query = v
	}
	if q.Size != "" {
		v, ok := validate.Size(q.Size)
		if !ok {
			return f, invalid("size must be one of %s", strings.Join(validate.Sizes, ", "))
		}
		f.Size = v
	}
	if q.Color != "" {
		v, ok := validate.Name(q.Color)
		if !ok {
			return f, invalid("color is not valid")
		}
		f.Color = v
	}
	var err error
	if f.MinPrice, err = price(q.MinPrice); err != nil {
		return f, err
	}
	if f.MaxPrice, err = price(q.MaxPrice); err != nil {
		return f, err
	}
	if f.MinPrice.Valid && f.MaxPrice.Valid && f.MinPrice.Decimal.GreaterThan(f.MaxPrice.Decimal) {
		return f, invalid("min_price is above max_price")
	}
	f.FeaturedOnly = q.Featured

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	f.Limit, f.Offset = size, (page-1)*size
	return f, nil
}

func price(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, invalid("price %q is not a non-negative number", s)
	}
	return decimal.NewNullDecimal(d), nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	out, err := s.Prods.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range out {
		s.resolveImage(ctx, &out[i])
	}
	return out, nil
}

// Product returns an active product with its active variants.
func (s *CatalogService) Product(ctx context.Context, productSlug string) (*domain.Product, error) {
	p, err := s.Prods.BySlug(ctx, productSlug)
	if err != nil {
		return nil, err
	}
	if p.Variants, err = s.Prods.Variants(ctx, p.ID); err != nil {
		return nil, err
	}
	s.resolveImage(ctx, p)
	return p, nil
}

// Filters lists the available sizes and colors.
func (s *CatalogService) Filters(ctx context.Context) (domain.Filters, error) {
	colors, err := s.Prods.Colors(ctx)
	if err != nil {
		return domain.Filters{}, err
	}
	if colors == nil {
		colors = []string{}
	}
	return domain.Filters{Sizes: validate.Sizes, Colors: colors}, nil
}

type VariantInput struct {
	Size  string `json:"size" validate:"required,size"`
	Color string `json:"color" validate:"required,max=64"`
	Stock int    `json:"stock" validate:"gte=0"`
}

type ProductInput struct {
	CategorySlug string          `json:"category" validate:"required,slug"`
	Name         string          `json:"name" validate:"required,max=128"`
	Description  string          `json:"description" validate:"max=4000"`
	Price        decimal.Decimal `json:"price"`
	IsFeatured   bool            `json:"is_featured"`
	Variants     []VariantInput  `json:"variants" validate:"dive"`
}

// CreateProduct adds a product with a slug derived from its name, plus
// any variants given.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	base := slug.Make(in.Name)
	if base == "" {
		return nil, invalid("name must contain letters or digits")
	}
	cat, err := s.Cats.BySlug(ctx, in.CategorySlug)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, invalid("unknown category %q", in.CategorySlug)
	}
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		CategoryID: cat.ID, Name: strings.TrimSpace(in.Name), Description: in.Description,
		Price: in.Price, IsFeatured: in.IsFeatured, IsActive: true,
	}
	err = s.Tx.WithTx(ctx, func(t *sqlx.Tx) error {
		prods := s.Prods.WithTx(t)
		unique, err := slug.Unique(base, func(c string) (bool, error) { return prods.SlugTaken(ctx, c) })
		if err != nil {
			return err
		}
		p.Slug = unique
		if err := prods.Create(ctx, p); err != nil {
			return err
		}
		for _, vi := range in.Variants {
			size, _ := validate.Size(vi.Size)
			v := domain.Variant{ProductID: p.ID, Size: size, Color: strings.TrimSpace(vi.Color), Stock: vi.Stock, IsActive: true}
			if err := prods.CreateVariant(ctx, &v); err != nil {
				if errors.Is(err, repos.ErrConflict) {
					return invalid("duplicate variant %s/%s", size, v.Color)
				}
				return err
			}
			p.Variants = append(p.Variants, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetProductImage stores an uploaded product photo.
func (s *CatalogService) SetProductImage(ctx context.Context, productID string, r io.Reader) (*domain.Product, error) {
	if s.Media == nil {
		return nil, errors.New("media storage is not configured")
	}
	if _, err := s.Prods.ByID(ctx, productID); err != nil {
		return nil, err
	}
	img, err := media.ReadImage(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	key, err := media.Save(ctx, s.Media, "products", productID, img)
	if err != nil {
		return nil, err
	}
	if err := s.Prods.SetImage(ctx, productID, key); err != nil {
		return nil, err
	}
	p, err := s.Prods.ByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.resolveImage(ctx, p)
	return p, nil
}

func (s *CatalogService) resolveImage(ctx context.Context, p *domain.Product) {
	if p.ImageKey == "" || s.Media == nil {
		return
	}
	if url, err := s.Media.URL(ctx, p.ImageKey); err == nil {
		p.ImageURL = url
	}
}
