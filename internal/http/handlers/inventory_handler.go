package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/services"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /api/v1/availability/:variant_id
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	id, err := param(c, "variant_id")
	if err != nil {
		return fail(c, "availability", err)
	}
	avail, err := h.Inv.Availability(c.UserContext(), id)
	if err != nil {
		return fail(c, "availability", err)
	}
	return c.JSON(avail)
}

// GET /api/v1/admin/inventory/low-stock
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.Inv.LowStock(c.UserContext())
	if err != nil {
		return fail(c, "admin.inventory.low", err)
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items), "threshold": h.Inv.Threshold})
}

// POST /api/v1/admin/inventory/:variant_id/restock
func (h *InventoryHandler) Restock(c *fiber.Ctx) error {
	id, err := param(c, "variant_id")
	if err != nil {
		return fail(c, "admin.inventory.restock", err)
	}
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "admin.inventory.restock", err)
	}
	stock, err := h.Inv.Restock(c.UserContext(), id, in.Quantity)
	if err != nil {
		return fail(c, "admin.inventory.restock", err)
	}
	applog.Audit(c, "admin.inventory.restock", map[string]any{"variant_id": id, "qty": in.Quantity, "stock": stock})
	return c.JSON(fiber.Map{"variant_id": id, "stock": stock})
}
