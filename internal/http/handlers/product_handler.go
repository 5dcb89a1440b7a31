package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/services"
	"modestwear/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /api/v1/categories
func (h *ProductHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, "catalog.categories", err)
	}
	return c.JSON(fiber.Map{"categories": cats, "count": len(cats)})
}

// GET /api/v1/products?category=&q=&size=&color=&min_price=&max_price=&featured=&page=&page_size=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var q services.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return fail(c, "catalog.list", fiber.NewError(fiber.StatusBadRequest, "malformed query"))
	}
	f, err := services.ParseFilter(q)
	if err != nil {
		applog.Security(c, "validation.fail", map[string]any{"action": "catalog.list", "reason": err.Error()})
		return fail(c, "catalog.list", err)
	}
	products, err := h.Catalog.ListProducts(c.UserContext(), f)
	if err != nil {
		return fail(c, "catalog.list", err)
	}
	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

// GET /api/v1/products/filters
func (h *ProductHandler) Filters(c *fiber.Ctx) error {
	f, err := h.Catalog.Filters(c.UserContext())
	if err != nil {
		return fail(c, "catalog.filters", err)
	}
	return c.JSON(f)
}

// GET /api/v1/products/:slug
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return fail(c, "catalog.detail", fiber.NewError(fiber.StatusNotFound, "not found"))
	}
	p, err := h.Catalog.Product(c.UserContext(), slug)
	if err != nil {
		return fail(c, "catalog.detail", err)
	}
	return c.JSON(p)
}

// POST /api/v1/admin/products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := bind(c, &in); err != nil {
		return fail(c, "admin.products.create", err)
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), in)
	if err != nil {
		return fail(c, "admin.products.create", err)
	}
	applog.Audit(c, "admin.products.create", map[string]any{"product_id": p.ID, "slug": p.Slug})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// POST /api/v1/admin/products/:id/image (multipart field "image")
func (h *ProductHandler) UploadImage(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return fail(c, "admin.products.image", err)
	}
	data, err := upload(c, "image")
	if err != nil {
		return fail(c, "admin.products.image", err)
	}
	p, err := h.Catalog.SetProductImage(c.UserContext(), id, bytes.NewReader(data))
	if err != nil {
		return fail(c, "admin.products.image", err)
	}
	applog.Audit(c, "admin.products.image", map[string]any{"product_id": id})
	return c.JSON(p)
}
