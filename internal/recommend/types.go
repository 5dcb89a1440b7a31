// Package recommend ranks catalog products for shoppers. Every strategy is a
// read-only computation over a Store, so calls are safe to run concurrently.
package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLimit = errors.New("recommend: invalid limit")
	ErrInvalidID    = errors.New("recommend: malformed identifier")
	ErrNotFound     = errors.New("recommend: not found")
)

// Strategy labels the algorithm that produced a recommendation.
type Strategy string

const (
	StrategyPopular       Strategy = "popular"
	StrategySimilar       Strategy = "similar"
	StrategyCollaborative Strategy = "collaborative"
	StrategyPreference    Strategy = "preference"
	StrategyTrending      Strategy = "trending"
	StrategyPriceBand     Strategy = "price_band"
)

// Recommendation is one entry of an aggregated result.
type Recommendation struct {
	ProductID string   `json:"product_id"`
	Strategy  Strategy `json:"strategy"`
}

// Request is the aggregator input. UserID and ProductID are optional.
type Request struct {
	UserID    string
	ProductID string
	Limit     int
}

// Product is the slice of catalog data the scorer needs.
type Product struct {
	ID         string
	CategoryID string
	Price      decimal.Decimal
	Featured   bool
	Added      time.Time
}

// ProductQuery filters active products. Zero-valued fields do not filter;
// a nil IDs slice means any product.
type ProductQuery struct {
	IDs         []string
	CategoryIDs []string
	MinPrice    decimal.NullDecimal
	MaxPrice    decimal.NullDecimal
	Exclude     []string
}

// Store is the catalog and interaction log as seen by the scorer.
// Interactions are order lines (attributed to the product of the ordered
// variant) and outfit memberships.
type Store interface {
	// Product returns a product by id regardless of its active flag, or ErrNotFound.
	Product(ctx context.Context, id string) (Product, error)
	UserExists(ctx context.Context, id string) (bool, error)
	// Products returns active products in active categories matching q, in any order.
	Products(ctx context.Context, q ProductQuery) ([]Product, error)

	// InteractionCounts counts order lines plus outfit memberships per
	// product created at or after since. A zero since counts everything.
	InteractionCounts(ctx context.Context, since time.Time) (map[string]int, error)
	// PurchasedProducts lists the distinct products the user has ordered.
	PurchasedProducts(ctx context.Context, userID string) ([]string, error)
	// Buyers maps every other user who ordered any of productIDs to the
	// number of distinct products of that set they ordered.
	Buyers(ctx context.Context, productIDs []string, excludeUser string) (map[string]int, error)
	// PurchaseCounts counts order lines per product across userIDs.
	PurchaseCounts(ctx context.Context, userIDs []string) (map[string]int, error)
	// CategoryPurchaseCounts counts the user's order lines per category.
	CategoryPurchaseCounts(ctx context.Context, userID string) (map[string]int, error)
	// CategoryOutfitCounts counts products in the user's outfits per category.
	CategoryOutfitCounts(ctx context.Context, userID string) (map[string]int, error)
}

// Cache memoizes serialized results. Any Get error is treated as a miss.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, ttl time.Duration) error
}

// Clock supplies the current time for trending windows.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// Config tunes the scorer.
type Config struct {
	// MaxLimit caps any requested limit.
	MaxLimit int `koanf:"max_limit" validate:"min=1"`
	// Neighbors is how many similar users collaborative filtering consults.
	Neighbors int `koanf:"neighbors" validate:"min=1"`
	// TopCategories is taken from both purchase and outfit history.
	TopCategories  int           `koanf:"top_categories" validate:"min=1"`
	TrendingWindow time.Duration `koanf:"trending_window" validate:"gt=0"`
	// SimilarTolerance is the relative price window for content similarity.
	SimilarTolerance float64       `koanf:"similar_tolerance" validate:"gt=0,lt=1"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	// Seed drives the price band shuffle. Zero seeds from the clock.
	Seed int64 `koanf:"seed"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxLimit:         50,
		Neighbors:        10,
		TopCategories:    3,
		TrendingWindow:   7 * 24 * time.Hour,
		SimilarTolerance: 0.30,
		CacheTTL:         5 * time.Minute,
	}
}
