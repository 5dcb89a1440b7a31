package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"modestwear/internal/metrics"
	"modestwear/internal/validate"
)

// Engine runs the scoring strategies against a Store. It is safe for
// concurrent use.
type Engine struct {
	store  Store
	cfg    Config
	clock  Clock
	logger zerolog.Logger

	cache    Cache
	cacheTTL time.Duration

	// price band shuffle; rand.Rand is not safe for concurrent use
	rng   *rand.Rand
	rngMu sync.Mutex
}

// Option customizes an Engine.
type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithCache memoizes popularity and trending results for cfg.CacheTTL.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// NewEngine builds an engine. Zero config fields fall back to DefaultConfig.
func NewEngine(store Store, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = def.Neighbors
	}
	if cfg.TopCategories <= 0 {
		cfg.TopCategories = def.TopCategories
	}
	if cfg.TrendingWindow <= 0 {
		cfg.TrendingWindow = def.TrendingWindow
	}
	if cfg.SimilarTolerance <= 0 {
		cfg.SimilarTolerance = def.SimilarTolerance
	}
	e := &Engine{
		store:    store,
		cfg:      cfg,
		clock:    SystemClock,
		logger:   zerolog.Nop(),
		cacheTTL: cfg.CacheTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = e.clock.Now().UnixNano()
	}
	e.rng = rand.New(rand.NewSource(seed))
	return e
}

// Popular ranks products by all-time interaction count, then featured flag,
// then newest first. Products without interactions are left out.
func (e *Engine) Popular(ctx context.Context, limit int) ([]string, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	defer e.observe(StrategyPopular, time.Now())
	return e.cached(fmt.Sprintf("recommend:popular:%d", limit), func() ([]string, error) {
		counts, err := e.store.InteractionCounts(ctx, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("popular: %w", err)
		}
		return e.rankByCount(ctx, counts, nil, byFeaturedThenNewest, limit)
	})
}

// Trending ranks products by activity inside the trailing window, then
// newest first. Older activity is ignored entirely.
func (e *Engine) Trending(ctx context.Context, limit int) ([]string, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	defer e.observe(StrategyTrending, time.Now())
	return e.cached(fmt.Sprintf("recommend:trending:%d", limit), func() ([]string, error) {
		since := e.clock.Now().Add(-e.cfg.TrendingWindow)
		counts, err := e.store.InteractionCounts(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("trending: %w", err)
		}
		return e.rankByCount(ctx, counts, nil, byNewest, limit)
	})
}

// Similar returns same-category products priced within the configured
// tolerance of the seed, featured and newest first.
func (e *Engine) Similar(ctx context.Context, productID string, limit int) ([]string, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	defer e.observe(StrategySimilar, time.Now())
	seed, err := e.seed(ctx, productID)
	if err != nil {
		return nil, err
	}
	tol := decimal.NewFromFloat(e.cfg.SimilarTolerance)
	lo := seed.Price.Mul(decimal.NewFromInt(1).Sub(tol))
	hi := seed.Price.Mul(decimal.NewFromInt(1).Add(tol))
	products, err := e.store.Products(ctx, ProductQuery{
		CategoryIDs: []string{seed.CategoryID},
		MinPrice:    decimal.NewNullDecimal(lo),
		MaxPrice:    decimal.NewNullDecimal(hi),
		Exclude:     []string{seed.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("similar: %w", err)
	}
	sortFeaturedRecent(products)
	return head(products, limit), nil
}

// Collaborative recommends what the user's nearest neighbors bought.
// Neighbors are the users sharing the most distinct purchased products.
func (e *Engine) Collaborative(ctx context.Context, userID string, limit int) ([]string, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	defer e.observe(StrategyCollaborative, time.Now())
	if err := e.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	purchased, err := e.store.PurchasedProducts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("collaborative: %w", err)
	}
	if len(purchased) == 0 {
		return []string{}, nil
	}
	overlap, err := e.store.Buyers(ctx, purchased, userID)
	if err != nil {
		return nil, fmt.Errorf("collaborative: %w", err)
	}
	neighbors := topKeys(overlap, e.cfg.Neighbors)
	if len(neighbors) == 0 {
		return []string{}, nil
	}
	counts, err := e.store.PurchaseCounts(ctx, neighbors)
	if err != nil {
		return nil, fmt.Errorf("collaborative: %w", err)
	}
	return e.rankByCount(ctx, counts, toSet(purchased), byID, limit)
}

// Preferred recommends unpurchased products from the user's favorite
// categories, taken from both purchase and outfit history.
func (e *Engine) Preferred(ctx context.Context, userID string, limit int) ([]string, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	defer e.observe(StrategyPreference, time.Now())
	if err := e.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	bought, err := e.store.CategoryPurchaseCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preferred: %w", err)
	}
	styled, err := e.store.CategoryOutfitCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preferred: %w", err)
	}
	cats := union(topKeys(bought, e.cfg.TopCategories), topKeys(styled, e.cfg.TopCategories))
	if len(cats) == 0 {
		return []string{}, nil
	}
	purchased, err := e.store.PurchasedProducts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preferred: %w", err)
	}
	products, err := e.store.Products(ctx, ProductQuery{CategoryIDs: cats, Exclude: purchased})
	if err != nil {
		return nil, fmt.Errorf("preferred: %w", err)
	}
	sortFeaturedRecent(products)
	return head(products, limit), nil
}

// PriceBand returns products in the seed's price band, featured first and
// otherwise in shuffled order, so repeated calls vary.
func (e *Engine) PriceBand(ctx context.Context, productID string, limit int) ([]string, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	defer e.observe(StrategyPriceBand, time.Now())
	seed, err := e.seed(ctx, productID)
	if err != nil {
		return nil, err
	}
	lo, hi := PriceBandFor(seed.Price)
	products, err := e.store.Products(ctx, ProductQuery{
		MinPrice: decimal.NewNullDecimal(lo),
		MaxPrice: decimal.NewNullDecimal(hi),
		Exclude:  []string{seed.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("price band: %w", err)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	e.rngMu.Lock()
	e.rng.Shuffle(len(products), func(i, j int) { products[i], products[j] = products[j], products[i] })
	e.rngMu.Unlock()
	sort.SliceStable(products, func(i, j int) bool { return products[i].Featured && !products[j].Featured })
	return head(products, limit), nil
}

var (
	fifty       = decimal.NewFromInt(50)
	hundred     = decimal.NewFromInt(100)
	lowBandTop  = decimal.NewFromInt(75)
	midBandLow  = decimal.NewFromInt(25)
	midBandTop  = decimal.NewFromInt(150)
	highBandLow = decimal.RequireFromString("0.7")
	highBandTop = decimal.RequireFromString("1.5")
)

// PriceBandFor returns the inclusive band for a seed price.
func PriceBandFor(price decimal.Decimal) (lo, hi decimal.Decimal) {
	switch {
	case price.LessThanOrEqual(fifty):
		return decimal.Zero, lowBandTop
	case price.LessThanOrEqual(hundred):
		return midBandLow, midBandTop
	default:
		return price.Mul(highBandLow), price.Mul(highBandTop)
	}
}

func (e *Engine) seed(ctx context.Context, productID string) (Product, error) {
	if _, ok := validate.ID(productID); !ok {
		return Product{}, fmt.Errorf("%w: product %q", ErrInvalidID, productID)
	}
	p, err := e.store.Product(ctx, productID)
	if err != nil {
		return Product{}, fmt.Errorf("seed product %s: %w", productID, err)
	}
	return p, nil
}

func (e *Engine) checkUser(ctx context.Context, userID string) error {
	if _, ok := validate.ID(userID); !ok {
		return fmt.Errorf("%w: user %q", ErrInvalidID, userID)
	}
	ok, err := e.store.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// tieBreak picks the keys that order products with equal counts.
type tieBreak int

const (
	byFeaturedThenNewest tieBreak = iota
	byNewest
	byID
)

// rankByCount orders counted products by count, then by the tie-break keys,
// then by id. Products with a zero count or in exclude are dropped.
func (e *Engine) rankByCount(ctx context.Context, counts map[string]int, exclude map[string]struct{}, tb tieBreak, limit int) ([]string, error) {
	ids := make([]string, 0, len(counts))
	for id, n := range counts {
		if _, skip := exclude[id]; n > 0 && !skip {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []string{}, nil
	}
	products, err := e.store.Products(ctx, ProductQuery{IDs: ids})
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if counts[a.ID] != counts[b.ID] {
			return counts[a.ID] > counts[b.ID]
		}
		if tb == byFeaturedThenNewest && a.Featured != b.Featured {
			return a.Featured
		}
		if tb != byID && !a.Added.Equal(b.Added) {
			return a.Added.After(b.Added)
		}
		return a.ID < b.ID
	})
	return head(products, limit), nil
}

func (e *Engine) cached(key string, compute func() ([]string, error)) ([]string, error) {
	if e.cache == nil || e.cacheTTL <= 0 {
		return compute()
	}
	if raw, err := e.cache.Get(key); err == nil {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err == nil {
			metrics.CacheResults.WithLabelValues("recommend", "hit").Inc()
			return ids, nil
		}
	}
	metrics.CacheResults.WithLabelValues("recommend", "miss").Inc()
	ids, err := compute()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(ids); err == nil {
		if err := e.cache.Set(key, raw, e.cacheTTL); err != nil {
			e.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return ids, nil
}

func (e *Engine) observe(s Strategy, start time.Time) {
	metrics.RecommendDuration.WithLabelValues(string(s)).Observe(time.Since(start).Seconds())
}

func checkLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return nil
}

func sortFeaturedRecent(products []Product) {
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Featured != b.Featured {
			return a.Featured
		}
		if !a.Added.Equal(b.Added) {
			return a.Added.After(b.Added)
		}
		return a.ID < b.ID
	})
}

func head(products []Product, limit int) []string {
	if len(products) > limit {
		products = products[:limit]
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

// topKeys returns up to n keys with the highest positive counts, ties by key.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k, v := range counts {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func union(a, b []string) []string {
	seen := toSet(a)
	out := append([]string(nil), a...)
	for _, k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
