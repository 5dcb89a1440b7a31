package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/services"
)

type AdminHandler struct {
	Auth   *services.AuthService
	Orders *services.OrderService
}

// GET /api/v1/admin/users
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := h.Auth.ListUsers(c.UserContext())
	if err != nil {
		return fail(c, "admin.users.list", err)
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

// PATCH /api/v1/admin/users/:id
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "admin.users.update", err)
	}
	var in struct {
		IsActive *bool `json:"is_active"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "admin.users.update", err)
	}
	if in.IsActive == nil {
		return fail(c, "admin.users.update", fiber.NewError(fiber.StatusBadRequest, "is_active is required"))
	}
	if err := h.Auth.SetUserActive(c.UserContext(), userID(c), id, *in.IsActive); err != nil {
		return fail(c, "admin.users.update", err)
	}
	applog.Audit(c, "admin.users.update", map[string]any{"target": id, "is_active": *in.IsActive})
	return c.JSON(fiber.Map{"id": id, "is_active": *in.IsActive})
}

// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "admin.users.delete", err)
	}
	if err := h.Auth.DeleteUser(c.UserContext(), userID(c), id); err != nil {
		return fail(c, "admin.users.delete", err)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"target": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/v1/admin/orders?status=
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.Orders.All(c.UserContext(), c.Query("status"))
	if err != nil {
		return fail(c, "admin.orders.list", err)
	}
	return c.JSON(fiber.Map{"orders": orders, "count": len(orders)})
}

// PATCH /api/v1/admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "admin.orders.update", err)
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "admin.orders.update", err)
	}
	order, err := h.Orders.SetStatus(c.UserContext(), id, in.Status)
	if err != nil {
		return fail(c, "admin.orders.update", err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": order.Status})
	return c.JSON(order)
}
