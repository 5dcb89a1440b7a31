package services

import (
	"context"
	"errors"
	"strings"

	"modestwear/internal/domain"
	"modestwear/internal/repos"
	"modestwear/internal/validate"
)

type OutfitService struct {
	Outfits *repos.OutfitRepo
	Prods   *repos.ProductRepo
}

func NewOutfitService(outfits *repos.OutfitRepo, prods *repos.ProductRepo) *OutfitService {
	return &OutfitService{Outfits: outfits, Prods: prods}
}

type OutfitInput struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=2000"`
	IsPublic    bool   `json:"is_public"`
}

func (s *OutfitService) Create(ctx context.Context, userID string, in OutfitInput) (*domain.Outfit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	o := &domain.Outfit{UserID: userID, Name: in.Name, Description: in.Description, IsPublic: in.IsPublic}
	if err := s.Outfits.Create(ctx, o); err != nil {
		return nil, err
	}
	o.Items = []domain.OutfitItem{}
	return o, nil
}

func (s *OutfitService) Update(ctx context.Context, userID, id string, in OutfitInput) (*domain.Outfit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	o := &domain.Outfit{ID: id, UserID: userID, Name: in.Name, Description: in.Description, IsPublic: in.IsPublic}
	if err := s.Outfits.Update(ctx, o); err != nil {
		return nil, err
	}
	return s.Outfits.ByID(ctx, id)
}

func (s *OutfitService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.Outfits.Delete(ctx, userID, id)
}

// Get returns an outfit its owner or, when public, anyone may see.
func (s *OutfitService) Get(ctx context.Context, userID, id string) (*domain.Outfit, error) {
	o, err := s.Outfits.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID && !o.IsPublic {
		return nil, repos.ErrNotFound
	}
	return o, nil
}

func (s *OutfitService) Mine(ctx context.Context, userID string) ([]domain.Outfit, error) {
	list, err := s.Outfits.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, list)
}

func (s *OutfitService) Public(ctx context.Context, page, size int) ([]domain.Outfit, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	list, err := s.Outfits.Public(ctx, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, list)
}

func (s *OutfitService) withItems(ctx context.Context, list []domain.Outfit) ([]domain.Outfit, error) {
	var err error
	for i := range list {
		if list[i].Items, err = s.Outfits.Items(ctx, list[i].ID); err != nil {
			return nil, err
		}
	}
	if list == nil {
		list = []domain.Outfit{}
	}
	return list, nil
}

// AddItem appends an active product to the end of the outfit.
func (s *OutfitService) AddItem(ctx context.Context, userID, outfitID, productID string) (*domain.Outfit, error) {
	if _, err := s.owned(ctx, userID, outfitID); err != nil {
		return nil, err
	}
	p, err := s.Prods.ByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, repos.ErrNotFound
	}
	pos, err := s.Outfits.NextPosition(ctx, outfitID)
	if err != nil {
		return nil, err
	}
	it := &domain.OutfitItem{OutfitID: outfitID, ProductID: productID, Position: pos}
	if err := s.Outfits.AddItem(ctx, it); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, ErrDuplicateItem
		}
		return nil, err
	}
	return s.Outfits.ByID(ctx, outfitID)
}

func (s *OutfitService) RemoveItem(ctx context.Context, userID, outfitID, productID string) (*domain.Outfit, error) {
	if _, err := s.owned(ctx, userID, outfitID); err != nil {
		return nil, err
	}
	if err := s.Outfits.RemoveItem(ctx, outfitID, productID); err != nil {
		return nil, err
	}
	return s.Outfits.ByID(ctx, outfitID)
}

// owned loads an outfit the user may modify. Other users' public outfits
// are forbidden; private ones do not exist for them.
func (s *OutfitService) owned(ctx context.Context, userID, id string) (*domain.Outfit, error) {
	o, err := s.Outfits.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		if o.IsPublic {
			return nil, ErrForbidden
		}
		return nil, repos.ErrNotFound
	}
	return o, nil
}
