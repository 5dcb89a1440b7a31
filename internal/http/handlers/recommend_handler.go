package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"modestwear/internal/domain"
	"modestwear/internal/recommend"
	"modestwear/internal/repos"
)

const (
	defaultRecommendations = 10
	maxRecommendations     = 50
)

type RecommendHandler struct {
	Engine   *recommend.Engine
	Products *repos.ProductRepo
}

type recommendedProduct struct {
	domain.Product
	Strategy recommend.Strategy `json:"strategy,omitempty"`
}

// GET /api/v1/recommendations/?product_id=&limit=
func (h *RecommendHandler) ForUser(c *fiber.Ctx) error {
	limit, err := limitQuery(c, defaultRecommendations)
	if err != nil {
		return fail(c, "recommend.user", err)
	}
	recs, err := h.Engine.Recommend(c.UserContext(), recommend.Request{
		UserID:    userID(c),
		ProductID: c.Query("product_id"),
		Limit:     limit,
	})
	if err != nil {
		return fail(c, "recommend.user", err)
	}
	return h.respondTagged(c, "personalized", recs, nil)
}

// GET /api/v1/recommendations/product/:id
func (h *RecommendHandler) ForProduct(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "recommend.product", err)
	}
	limit, err := limitQuery(c, defaultRecommendations)
	if err != nil {
		return fail(c, "recommend.product", err)
	}
	seed, err := h.Products.ByID(c.UserContext(), id)
	if err != nil {
		return fail(c, "recommend.product", err)
	}
	recs, err := h.Engine.Recommend(c.UserContext(), recommend.Request{
		UserID:    userID(c),
		ProductID: id,
		Limit:     limit,
	})
	if err != nil {
		return fail(c, "recommend.product", err)
	}
	return h.respondTagged(c, "product_based", recs, seed)
}

// GET /api/v1/recommendations/popular
func (h *RecommendHandler) Popular(c *fiber.Ctx) error {
	return h.strategy(c, "popular", h.Engine.Popular)
}

// GET /api/v1/recommendations/trending
func (h *RecommendHandler) Trending(c *fiber.Ctx) error {
	return h.strategy(c, "trending", h.Engine.Trending)
}

// GET /api/v1/recommendations/similar-price/:id
func (h *RecommendHandler) SimilarPrice(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "recommend.similar_price", err)
	}
	limit, err := limitQuery(c, defaultRecommendations)
	if err != nil {
		return fail(c, "recommend.similar_price", err)
	}
	seed, err := h.Products.ByID(c.UserContext(), id)
	if err != nil {
		return fail(c, "recommend.similar_price", err)
	}
	ids, err := h.Engine.PriceBand(c.UserContext(), id, min(limit, maxRecommendations))
	if err != nil {
		return fail(c, "recommend.similar_price", err)
	}
	products, err := h.hydrate(c.UserContext(), ids)
	if err != nil {
		return fail(c, "recommend.similar_price", err)
	}
	lo, hi := recommend.PriceBandFor(seed.Price)
	return c.JSON(fiber.Map{
		"recommendations": products,
		"count":           len(products),
		"type":            "similar_price",
		"price_range":     fiber.Map{"min": lo.StringFixed(2), "max": hi.StringFixed(2)},
		"based_on":        seed,
	})
}

func (h *RecommendHandler) strategy(c *fiber.Ctx, kind string, run func(context.Context, int) ([]string, error)) error {
	limit, err := limitQuery(c, defaultRecommendations)
	if err != nil {
		return fail(c, "recommend."+kind, err)
	}
	ids, err := run(c.UserContext(), min(limit, maxRecommendations))
	if err != nil {
		return fail(c, "recommend."+kind, err)
	}
	products, err := h.hydrate(c.UserContext(), ids)
	if err != nil {
		return fail(c, "recommend."+kind, err)
	}
	return c.JSON(fiber.Map{"recommendations": products, "count": len(products), "type": kind})
}

func (h *RecommendHandler) respondTagged(c *fiber.Ctx, kind string, recs []recommend.Recommendation, seed *domain.Product) error {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ProductID
	}
	products, err := h.hydrate(c.UserContext(), ids)
	if err != nil {
		return fail(c, "recommend."+kind, err)
	}
	tags := make(map[string]recommend.Strategy, len(recs))
	for _, r := range recs {
		tags[r.ProductID] = r.Strategy
	}
	out := make([]recommendedProduct, len(products))
	for i, p := range products {
		out[i] = recommendedProduct{Product: p, Strategy: tags[p.ID]}
	}
	body := fiber.Map{"recommendations": out, "count": len(out), "type": kind}
	if seed != nil {
		body["based_on"] = seed
	}
	return c.JSON(body)
}

// hydrate loads products for ids, keeping the ranked order.
func (h *RecommendHandler) hydrate(ctx context.Context, ids []string) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := h.Products.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
