package recommend_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modestwear/internal/recommend"
)

// shopFixture has purchase history for u, a seed product, and a popular tail.
func shopFixture() *memStore {
	s := newMemStore()
	for i := 0; i < 12; i++ {
		s.addProduct(fmt.Sprintf("d%02d", i), "dress", "100", i%4 == 0, days(i+1))
	}
	s.addProduct("seed", "dress", "100", false, days(50))
	s.buy("u", days(10), "d00", "d01")
	s.buy("v", days(10), "d00", "d01", "d02", "d03")
	s.buy("w", days(10), "seed", "d04", "d04", "d04")
	s.style("w", days(3), "d05", "seed")
	return s
}

func productIDs(recs []recommend.Recommendation) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ProductID
	}
	return ids
}

func TestRecommend_ZeroAndNegativeLimit(t *testing.T) {
	e := newEngine(shopFixture())
	ctx := context.Background()

	got, err := e.Recommend(ctx, recommend.Request{UserID: "u", ProductID: "seed", Limit: 0})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = e.Recommend(ctx, recommend.Request{Limit: -1})
	assert.ErrorIs(t, err, recommend.ErrInvalidLimit)
}

func TestRecommend_NoDuplicatesAndBoundedLength(t *testing.T) {
	e := newEngine(shopFixture())
	ctx := context.Background()

	for _, limit := range []int{1, 2, 3, 5, 8, 13, 40} {
		for _, req := range []recommend.Request{
			{Limit: limit},
			{UserID: "u", Limit: limit},
			{ProductID: "seed", Limit: limit},
			{UserID: "u", ProductID: "seed", Limit: limit},
		} {
			got, err := e.Recommend(ctx, req)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), limit)
			ids := productIDs(got)
			seen := map[string]bool{}
			for _, id := range ids {
				assert.False(t, seen[id], "duplicate %s in %v", id, ids)
				seen[id] = true
			}
			if req.ProductID != "" {
				assert.NotContains(t, ids, req.ProductID)
			}
		}
	}
}

func TestRecommend_PopularityOnlyWithoutContext(t *testing.T) {
	e := newEngine(shopFixture())

	got, err := e.Recommend(context.Background(), recommend.Request{Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, recommend.StrategyPopular, r.Strategy)
	}
	assert.Equal(t, "d04", got[0].ProductID)
}

func TestRecommend_EmptyCatalog(t *testing.T) {
	got, err := newEngine(newMemStore()).Recommend(context.Background(), recommend.Request{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecommend_StrategyPriority(t *testing.T) {
	e := newEngine(shopFixture())

	got, err := e.Recommend(context.Background(), recommend.Request{UserID: "u", ProductID: "seed", Limit: 9})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	order := map[recommend.Strategy]int{
		recommend.StrategyCollaborative: 0,
		recommend.StrategyPreference:    1,
		recommend.StrategySimilar:       2,
		recommend.StrategyPopular:       3,
	}
	last := 0
	for _, r := range got {
		rank, ok := order[r.Strategy]
		require.True(t, ok, "unexpected strategy %s", r.Strategy)
		assert.GreaterOrEqual(t, rank, last)
		last = rank
	}
	assert.Equal(t, recommend.StrategyCollaborative, got[0].Strategy)
	assert.Equal(t, "d02", got[0].ProductID)
}

func TestRecommend_UnknownReferences(t *testing.T) {
	e := newEngine(shopFixture())
	ctx := context.Background()

	_, err := e.Recommend(ctx, recommend.Request{UserID: "ghost", Limit: 5})
	assert.ErrorIs(t, err, recommend.ErrNotFound)

	_, err = e.Recommend(ctx, recommend.Request{ProductID: "nope", Limit: 5})
	assert.ErrorIs(t, err, recommend.ErrNotFound)
}

func TestRecommend_ClampsToMaxLimit(t *testing.T) {
	s := newMemStore()
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("p%d", i)
		s.addProduct(id, "c", "10", false, days(1))
		s.buy("u", days(1), id)
	}
	cfg := recommend.DefaultConfig()
	cfg.MaxLimit = 4
	e := recommend.NewEngine(s, cfg, recommend.WithClock(fixedClock{now}))

	got, err := e.Recommend(context.Background(), recommend.Request{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
