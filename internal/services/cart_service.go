package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"modestwear/internal/domain"
	"modestwear/internal/repos"
)

// MaxLineQty caps the quantity of a single cart line.
const MaxLineQty = 50

type CartService struct {
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

// Add puts qty units of a variant in the cart, on top of what is already
// there. The resulting quantity must be in stock.
func (s *CartService) Add(ctx context.Context, userID, variantID string, qty int) (*domain.Cart, error) {
	if qty < 1 || qty > MaxLineQty {
		return nil, invalid("quantity must be between 1 and %d", MaxLineQty)
	}
	v, err := s.Prods.Variant(ctx, variantID)
	if errors.Is(err, repos.ErrNotFound) || (err == nil && !v.IsActive) {
		return nil, repos.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.Carts.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	want := qty
	for _, l := range lines {
		if l.VariantID == variantID {
			want += l.Quantity
		}
	}
	if want > MaxLineQty {
		return nil, invalid("quantity must be between 1 and %d", MaxLineQty)
	}
	if want > v.Stock {
		p, _ := s.Prods.ByID(ctx, v.ProductID)
		name := v.ProductID
		if p != nil {
			name = p.Name
		}
		return nil, &InsufficientStockError{VariantID: v.ID, ProductName: name, Requested: want, Available: v.Stock}
	}
	if err := s.Carts.Add(ctx, userID, variantID, qty); err != nil {
		return nil, err
	}
	return s.View(ctx, userID)
}

// Update sets a line's quantity; zero removes the line.
func (s *CartService) Update(ctx context.Context, userID, itemID string, qty int) (*domain.Cart, error) {
	if qty < 0 || qty > MaxLineQty {
		return nil, invalid("quantity must be between 0 and %d", MaxLineQty)
	}
	var err error
	if qty == 0 {
		err = s.Carts.Remove(ctx, userID, itemID)
	} else {
		err = s.Carts.SetQty(ctx, userID, itemID, qty)
	}
	if err != nil {
		return nil, err
	}
	return s.View(ctx, userID)
}

func (s *CartService) Remove(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	if err := s.Carts.Remove(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return s.View(ctx, userID)
}

// View returns the cart priced at current product prices.
func (s *CartService) View(ctx context.Context, userID string) (*domain.Cart, error) {
	lines, err := s.Carts.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(lines), nil
}

func summarize(lines []domain.CartLine) *domain.Cart {
	c := &domain.Cart{Lines: lines, Total: decimal.Zero}
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	for _, l := range lines {
		c.Count += l.Quantity
		c.Total = c.Total.Add(l.Subtotal())
	}
	return c
}
