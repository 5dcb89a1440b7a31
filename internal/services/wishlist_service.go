package services

import (
	"context"

	"github.com/jmoiron/sqlx"

	"modestwear/internal/domain"
	"modestwear/internal/repos"
)

type WishlistService struct {
	Tx    *repos.TxManager
	Repo  *repos.WishlistRepo
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
}

func NewWishlistService(tx *repos.TxManager, r *repos.WishlistRepo, carts *repos.CartRepo, prods *repos.ProductRepo) *WishlistService {
	return &WishlistService{Tx: tx, Repo: r, Carts: carts, Prods: prods}
}

func (s *WishlistService) Save(ctx context.Context, userID, variantID string) error {
	v, err := s.Prods.Variant(ctx, variantID)
	if err != nil {
		return err
	}
	if !v.IsActive {
		return repos.ErrNotFound
	}
	return s.Repo.Add(ctx, userID, variantID)
}

func (s *WishlistService) Unsave(ctx context.Context, userID, variantID string) error {
	return s.Repo.Remove(ctx, userID, variantID)
}

func (s *WishlistService) List(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	out, err := s.Repo.List(ctx, userID)
	if out == nil && err == nil {
		out = []domain.WishlistEntry{}
	}
	return out, err
}

// MoveToCart removes a saved variant and puts it in the cart in a single
// transaction. A variant already in the cart keeps its quantity.
func (s *WishlistService) MoveToCart(ctx context.Context, userID, variantID string) error {
	return s.Tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.Repo.WithTx(tx).Remove(ctx, userID, variantID); err != nil {
			return err
		}
		return s.Carts.WithTx(tx).Ensure(ctx, userID, variantID)
	})
}
