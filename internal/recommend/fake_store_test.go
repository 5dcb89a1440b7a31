package recommend_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"modestwear/internal/recommend"
)

type interaction struct {
	user    string
	product string
	at      time.Time
}

// memStore is an in-memory recommend.Store.
type memStore struct {
	products map[string]recommend.Product
	inactive map[string]bool
	users    map[string]bool
	lines    []interaction
	outfits  []interaction
	err      error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]recommend.Product{},
		inactive: map[string]bool{},
		users:    map[string]bool{},
	}
}

func (s *memStore) addProduct(id, cat string, price string, featured bool, added time.Time) {
	s.products[id] = recommend.Product{
		ID:         id,
		CategoryID: cat,
		Price:      decimal.RequireFromString(price),
		Featured:   featured,
		Added:      added,
	}
}

func (s *memStore) buy(user string, at time.Time, products ...string) {
	s.users[user] = true
	for _, p := range products {
		s.lines = append(s.lines, interaction{user: user, product: p, at: at})
	}
}

func (s *memStore) style(user string, at time.Time, products ...string) {
	s.users[user] = true
	for _, p := range products {
		s.outfits = append(s.outfits, interaction{user: user, product: p, at: at})
	}
}

func (s *memStore) Product(_ context.Context, id string) (recommend.Product, error) {
	if s.err != nil {
		return recommend.Product{}, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return recommend.Product{}, recommend.ErrNotFound
	}
	return p, nil
}

func (s *memStore) UserExists(_ context.Context, id string) (bool, error) {
	return s.users[id], s.err
}

func (s *memStore) Products(_ context.Context, q recommend.ProductQuery) ([]recommend.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := set(q.IDs)
	cats := set(q.CategoryIDs)
	excl := set(q.Exclude)
	var out []recommend.Product
	for id, p := range s.products {
		if s.inactive[id] {
			continue
		}
		if q.IDs != nil && !ids[id] {
			continue
		}
		if len(cats) > 0 && !cats[p.CategoryID] {
			continue
		}
		if excl[id] {
			continue
		}
		if q.MinPrice.Valid && p.Price.LessThan(q.MinPrice.Decimal) {
			continue
		}
		if q.MaxPrice.Valid && p.Price.GreaterThan(q.MaxPrice.Decimal) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) InteractionCounts(_ context.Context, since time.Time) (map[string]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	counts := map[string]int{}
	for _, it := range append(append([]interaction(nil), s.lines...), s.outfits...) {
		if !since.IsZero() && it.at.Before(since) {
			continue
		}
		counts[it.product]++
	}
	return counts, nil
}

func (s *memStore) PurchasedProducts(_ context.Context, userID string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, l := range s.lines {
		if l.user == userID && !seen[l.product] {
			seen[l.product] = true
			out = append(out, l.product)
		}
	}
	sort.Strings(out)
	return out, s.err
}

func (s *memStore) Buyers(_ context.Context, productIDs []string, excludeUser string) (map[string]int, error) {
	want := set(productIDs)
	distinct := map[string]map[string]bool{}
	for _, l := range s.lines {
		if l.user == excludeUser || !want[l.product] {
			continue
		}
		if distinct[l.user] == nil {
			distinct[l.user] = map[string]bool{}
		}
		distinct[l.user][l.product] = true
	}
	out := map[string]int{}
	for u, ps := range distinct {
		out[u] = len(ps)
	}
	return out, s.err
}

func (s *memStore) PurchaseCounts(_ context.Context, userIDs []string) (map[string]int, error) {
	users := set(userIDs)
	out := map[string]int{}
	for _, l := range s.lines {
		if users[l.user] {
			out[l.product]++
		}
	}
	return out, s.err
}

func (s *memStore) CategoryPurchaseCounts(_ context.Context, userID string) (map[string]int, error) {
	return s.categoryCounts(s.lines, userID), s.err
}

func (s *memStore) CategoryOutfitCounts(_ context.Context, userID string) (map[string]int, error) {
	return s.categoryCounts(s.outfits, userID), s.err
}

func (s *memStore) categoryCounts(rows []interaction, userID string) map[string]int {
	out := map[string]int{}
	for _, r := range rows {
		if r.user == userID {
			out[s.products[r.product].CategoryID]++
		}
	}
	return out
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// mapCache is a recommend.Cache without expiry.
type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

var errMiss = errors.New("miss")

func (c *mapCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if !ok {
		return nil, errMiss
	}
	return v, nil
}

func (c *mapCache) Set(key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	c.m[key] = val
	return nil
}
