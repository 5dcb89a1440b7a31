package recommend

import (
	"context"
	"fmt"
)

type source struct {
	strategy Strategy
	n        int
	fetch    func(ctx context.Context, n int) ([]string, error)
}

// Recommend merges strategy outputs into one list of at most req.Limit
// distinct products. A user contributes collaborative and preference
// picks, a seed product contributes similar picks, and popularity fills
// whatever is left. The seed itself is never returned. A zero limit yields
// an empty list.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, req.Limit)
	}
	limit := min(req.Limit, e.cfg.MaxLimit)
	out := []Recommendation{}
	if limit == 0 {
		return out, nil
	}

	var sources []source
	if req.UserID != "" {
		if err := e.checkUser(ctx, req.UserID); err != nil {
			return nil, err
		}
		sources = append(sources,
			source{StrategyCollaborative, limit / 3, func(ctx context.Context, n int) ([]string, error) {
				return e.Collaborative(ctx, req.UserID, n)
			}},
			source{StrategyPreference, limit / 3, func(ctx context.Context, n int) ([]string, error) {
				return e.Preferred(ctx, req.UserID, n)
			}},
		)
	}
	if req.ProductID != "" {
		if _, err := e.seed(ctx, req.ProductID); err != nil {
			return nil, err
		}
		sources = append(sources, source{StrategySimilar, limit / 2, func(ctx context.Context, n int) ([]string, error) {
			return e.Similar(ctx, req.ProductID, n)
		}})
	}
	sources = append(sources, source{StrategyPopular, limit, e.Popular})

	seen := map[string]struct{}{}
	if req.ProductID != "" {
		seen[req.ProductID] = struct{}{}
	}
	for _, s := range sources {
		if len(out) >= limit {
			break
		}
		if s.n < 1 {
			continue
		}
		ids, err := s.fetch(ctx, s.n)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.strategy, err)
		}
		e.logger.Debug().Str("strategy", string(s.strategy)).Int("requested", s.n).Int("returned", len(ids)).Msg("strategy result")
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, Recommendation{ProductID: id, Strategy: s.strategy})
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
