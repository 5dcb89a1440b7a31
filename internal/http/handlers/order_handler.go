package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/services"
)

type OrderHandler struct {
	Orders *services.OrderService
}

// POST /api/v1/orders/checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var in struct {
		Address string `json:"address"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "checkout", err)
	}
	order, err := h.Orders.Checkout(c.UserContext(), userID(c), in.Address)
	if err != nil {
		var short *services.InsufficientStockError
		if errors.As(err, &short) {
			applog.Info(c, "checkout.insufficient_stock", map[string]any{
				"variant_id": short.VariantID, "requested": short.Requested, "available": short.Available,
			})
		}
		return fail(c, "checkout", err)
	}
	applog.Audit(c, "checkout.placed", map[string]any{"order_id": order.ID, "total": order.TotalPrice.StringFixed(2)})
	return c.Status(fiber.StatusCreated).JSON(order)
}

// GET /api/v1/orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Orders.History(c.UserContext(), userID(c))
	if err != nil {
		return fail(c, "orders.history", err)
	}
	return c.JSON(fiber.Map{"orders": orders, "count": len(orders)})
}

// GET /api/v1/orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "orders.view", err)
	}
	u := currentUser(c)
	order, err := h.Orders.Order(c.UserContext(), u.ID, u.IsStaff, id)
	if err != nil {
		return fail(c, "orders.view", err)
	}
	return c.JSON(order)
}
