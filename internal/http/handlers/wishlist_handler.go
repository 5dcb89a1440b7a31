package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/services"
	"modestwear/internal/validate"
)

type WishlistHandler struct {
	Wish *services.WishlistService
}

// GET /api/v1/wishlist
func (h *WishlistHandler) List(c *fiber.Ctx) error {
	items, err := h.Wish.List(c.UserContext(), userID(c))
	if err != nil {
		return fail(c, "wishlist.list", err)
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

// POST /api/v1/wishlist
func (h *WishlistHandler) Save(c *fiber.Ctx) error {
	var in struct {
		VariantID string `json:"variant_id" validate:"required,id"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "wishlist.save", err)
	}
	if err := validate.Struct(in); err != nil {
		return fail(c, "wishlist.save", err)
	}
	if err := h.Wish.Save(c.UserContext(), userID(c), in.VariantID); err != nil {
		return fail(c, "wishlist.save", err)
	}
	applog.Audit(c, "wishlist.save", map[string]any{"variant_id": in.VariantID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Saved"})
}

// DELETE /api/v1/wishlist/:variant_id
func (h *WishlistHandler) Unsave(c *fiber.Ctx) error {
	id, err := param(c, "variant_id")
	if err != nil {
		return fail(c, "wishlist.unsave", err)
	}
	if err := h.Wish.Unsave(c.UserContext(), userID(c), id); err != nil {
		return fail(c, "wishlist.unsave", err)
	}
	applog.Audit(c, "wishlist.unsave", map[string]any{"variant_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/wishlist/:variant_id/move-to-cart
func (h *WishlistHandler) MoveToCart(c *fiber.Ctx) error {
	id, err := param(c, "variant_id")
	if err != nil {
		return fail(c, "wishlist.move", err)
	}
	if err := h.Wish.MoveToCart(c.UserContext(), userID(c), id); err != nil {
		return fail(c, "wishlist.move", err)
	}
	applog.Audit(c, "wishlist.move_to_cart", map[string]any{"variant_id": id})
	return c.JSON(fiber.Map{"message": "Moved to cart"})
}
