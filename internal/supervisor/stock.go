package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"modestwear/internal/domain"
)

// StockScanner reports variants at or under the low-stock threshold and
// alerts whoever manages inventory.
type StockScanner interface {
	ScanLowStock(ctx context.Context) ([]domain.LowStock, error)
}

// StockMonitor scans inventory on a fixed interval.
type StockMonitor struct {
	scanner  StockScanner
	interval time.Duration
	log      zerolog.Logger
}

func NewStockMonitor(scanner StockScanner, interval time.Duration, log zerolog.Logger) *StockMonitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &StockMonitor{scanner: scanner, interval: interval, log: log}
}

// Serve runs a scan every interval until ctx is cancelled. A failed scan is
// logged and retried on the next tick.
func (m *StockMonitor) Serve(ctx context.Context) error {
	tick := time.NewTicker(m.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			items, err := m.scanner.ScanLowStock(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.log.Error().Err(err).Str("action", "inventory.scan.fail").Send()
				continue
			}
			m.log.Info().Int("low", len(items)).Str("action", "inventory.scan").Send()
		}
	}
}

func (m *StockMonitor) String() string { return "stock-monitor" }
