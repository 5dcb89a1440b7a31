package services

import (
	"context"

	"github.com/rs/zerolog"

	"modestwear/internal/domain"
	applog "modestwear/internal/log"
	"modestwear/internal/mailer"
	"modestwear/internal/metrics"
	"modestwear/internal/repos"
)

// DefaultLowStockThreshold is the stock level at or below which a variant
// counts as low.
const DefaultLowStockThreshold = 5

type InventoryService struct {
	Inv       *repos.InventoryRepo
	Mail      mailer.Mailer
	Compose   *mailer.Composer
	AlertTo   string
	Threshold int

	log zerolog.Logger
}

func NewInventoryService(inv *repos.InventoryRepo, mail mailer.Mailer, compose *mailer.Composer, alertTo string, threshold int) *InventoryService {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &InventoryService{
		Inv: inv, Mail: mail, Compose: compose, AlertTo: alertTo, Threshold: threshold,
		log: applog.Component("inventory"),
	}
}

// Availability converts stock into IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) Availability(ctx context.Context, variantID string) (domain.Availability, error) {
	qty, err := s.Inv.Stock(ctx, variantID)
	if err != nil {
		return domain.Availability{}, err
	}
	status := "OUT_OF_STOCK"
	switch {
	case qty > s.Threshold:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{VariantID: variantID, Status: status, Qty: qty}, nil
}

// Restock adds qty units to a variant and returns the new level.
func (s *InventoryService) Restock(ctx context.Context, variantID string, qty int) (int, error) {
	if qty < 1 || qty > 10000 {
		return 0, invalid("restock quantity must be between 1 and 10000")
	}
	if err := s.Inv.Restock(ctx, variantID, qty); err != nil {
		return 0, err
	}
	return s.Inv.Stock(ctx, variantID)
}

func (s *InventoryService) LowStock(ctx context.Context) ([]domain.LowStock, error) {
	out, err := s.Inv.LowStock(ctx, s.Threshold)
	if out == nil && err == nil {
		out = []domain.LowStock{}
	}
	return out, err
}

// ScanLowStock records the number of low variants and mails an alert to
// the configured address when there are any.
func (s *InventoryService) ScanLowStock(ctx context.Context) ([]domain.LowStock, error) {
	items, err := s.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	metrics.LowStockVariants.Set(float64(len(items)))
	if len(items) == 0 || s.AlertTo == "" || s.Mail == nil || s.Compose == nil {
		return items, nil
	}
	msg, err := s.Compose.LowStock(s.AlertTo, s.Threshold, items)
	if err != nil {
		return items, err
	}
	if err := s.Mail.Send(ctx, msg); err != nil {
		return items, err
	}
	s.log.Warn().Int("variants", len(items)).Msg("inventory.low_stock.alert")
	return items, nil
}
