package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/services"
	"modestwear/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

// GET /api/v1/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cart, err := h.Cart.View(c.UserContext(), userID(c))
	if err != nil {
		return fail(c, "cart.view", err)
	}
	return c.JSON(cart)
}

type addToCartRequest struct {
	VariantID string `json:"variant_id" validate:"required,id"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=50"`
}

// POST /api/v1/cart/items
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var in addToCartRequest
	if err := bind(c, &in); err != nil {
		return fail(c, "cart.add", err)
	}
	if err := validate.Struct(in); err != nil {
		return fail(c, "cart.add", err)
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	cart, err := h.Cart.Add(c.UserContext(), userID(c), in.VariantID, in.Quantity)
	if err != nil {
		return fail(c, "cart.add", err)
	}
	applog.Info(c, "cart.add", map[string]any{"variant_id": in.VariantID, "qty": in.Quantity})
	return c.Status(fiber.StatusCreated).JSON(cart)
}

// PATCH /api/v1/cart/items/:id
func (h *CartHandler) Update(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "cart.update", err)
	}
	var in struct {
		Quantity *int `json:"quantity"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "cart.update", err)
	}
	if in.Quantity == nil {
		return fail(c, "cart.update", fiber.NewError(fiber.StatusBadRequest, "quantity is required"))
	}
	cart, err := h.Cart.Update(c.UserContext(), userID(c), id, *in.Quantity)
	if err != nil {
		return fail(c, "cart.update", err)
	}
	return c.JSON(cart)
}

// DELETE /api/v1/cart/items/:id
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "cart.remove", err)
	}
	cart, err := h.Cart.Remove(c.UserContext(), userID(c), id)
	if err != nil {
		return fail(c, "cart.remove", err)
	}
	return c.JSON(cart)
}
