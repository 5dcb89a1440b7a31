package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/services"
)

type OutfitHandler struct {
	Outfits *services.OutfitService
}

// GET /api/v1/outfits/public?page=&page_size=
func (h *OutfitHandler) Public(c *fiber.Ctx) error {
	list, err := h.Outfits.Public(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("page_size", 20))
	if err != nil {
		return fail(c, "outfits.public", err)
	}
	return c.JSON(fiber.Map{"outfits": list, "count": len(list)})
}

// GET /api/v1/outfits
func (h *OutfitHandler) Mine(c *fiber.Ctx) error {
	list, err := h.Outfits.Mine(c.UserContext(), userID(c))
	if err != nil {
		return fail(c, "outfits.mine", err)
	}
	return c.JSON(fiber.Map{"outfits": list, "count": len(list)})
}

// POST /api/v1/outfits
func (h *OutfitHandler) Create(c *fiber.Ctx) error {
	var in services.OutfitInput
	if err := bind(c, &in); err != nil {
		return fail(c, "outfits.create", err)
	}
	o, err := h.Outfits.Create(c.UserContext(), userID(c), in)
	if err != nil {
		return fail(c, "outfits.create", err)
	}
	applog.Audit(c, "outfits.create", map[string]any{"outfit_id": o.ID})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/v1/outfits/:id
func (h *OutfitHandler) Get(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "outfits.get", err)
	}
	o, err := h.Outfits.Get(c.UserContext(), userID(c), id)
	if err != nil {
		return fail(c, "outfits.get", err)
	}
	return c.JSON(o)
}

// PUT /api/v1/outfits/:id
func (h *OutfitHandler) Update(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "outfits.update", err)
	}
	var in services.OutfitInput
	if err := bind(c, &in); err != nil {
		return fail(c, "outfits.update", err)
	}
	o, err := h.Outfits.Update(c.UserContext(), userID(c), id, in)
	if err != nil {
		return fail(c, "outfits.update", err)
	}
	applog.Audit(c, "outfits.update", map[string]any{"outfit_id": id})
	return c.JSON(o)
}

// DELETE /api/v1/outfits/:id
func (h *OutfitHandler) Delete(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "outfits.delete", err)
	}
	if err := h.Outfits.Delete(c.UserContext(), userID(c), id); err != nil {
		return fail(c, "outfits.delete", err)
	}
	applog.Audit(c, "outfits.delete", map[string]any{"outfit_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/outfits/:id/items
func (h *OutfitHandler) AddItem(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "outfits.items.add", err)
	}
	var in struct {
		ProductID string `json:"product_id"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "outfits.items.add", err)
	}
	if in.ProductID == "" {
		return fail(c, "outfits.items.add", fiber.NewError(fiber.StatusBadRequest, "product_id is required"))
	}
	o, err := h.Outfits.AddItem(c.UserContext(), userID(c), id, in.ProductID)
	if err != nil {
		return fail(c, "outfits.items.add", err)
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

// DELETE /api/v1/outfits/:id/items/:product_id
func (h *OutfitHandler) RemoveItem(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "outfits.items.remove", err)
	}
	pid, err := param(c, "product_id")
	if err != nil {
		return fail(c, "outfits.items.remove", err)
	}
	o, err := h.Outfits.RemoveItem(c.UserContext(), userID(c), id, pid)
	if err != nil {
		return fail(c, "outfits.items.remove", err)
	}
	return c.JSON(o)
}
