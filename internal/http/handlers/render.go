package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "modestwear/internal/log"
	"modestwear/internal/recommend"
	"modestwear/internal/repos"
	"modestwear/internal/services"
	"modestwear/internal/validate"
)

// fail maps a service error onto a status code and a JSON body. Anything
// unrecognised is logged and answered with a generic 500.
func fail(c *fiber.Ctx, action string, err error) error {
	var (
		verr  *validate.Error
		short *services.InsufficientStockError
		ferr  *fiber.Error
	)
	switch {
	case errors.As(err, &verr):
		applog.Security(c, "validation.fail", map[string]any{"action": action, "fields": verr.Fields})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "fields": verr.Fields})
	case errors.As(err, &short):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":        short.Error(),
			"variant_id":   short.VariantID,
			"product_name": short.ProductName,
			"requested":    short.Requested,
			"available":    short.Available,
		})
	case errors.As(err, &ferr) && ferr.Code < fiber.StatusInternalServerError:
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	case errors.Is(err, services.ErrInvalid),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, recommend.ErrInvalidLimit),
		errors.Is(err, recommend.ErrInvalidID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, repos.ErrNotFound), errors.Is(err, recommend.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrDuplicateItem):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrBadCreds), errors.Is(err, services.ErrInvalidToken):
		applog.Security(c, action+".unauthorized", map[string]any{"reason": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInactive), errors.Is(err, services.ErrForbidden):
		applog.Security(c, action+".forbidden", map[string]any{"reason": err.Error()})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrRateLimited):
		applog.Security(c, action+".throttled", nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	}
	applog.Error(c, action+".fail", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "something went wrong, please try again"})
}

// ErrorHandler answers errors that escape a handler, including fiber's own
// (404 for unknown routes, 413 for oversized bodies).
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ferr *fiber.Error
	if errors.As(err, &ferr) && ferr.Code < fiber.StatusInternalServerError {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "something went wrong, please try again"})
}

// bind decodes the JSON body into v.
func bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	return nil
}

// param returns a validated identifier route parameter.
func param(c *fiber.Ctx, name string) (string, error) {
	id, ok := validate.ID(c.Params(name))
	if !ok {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// limitQuery reads ?limit=, defaulting to def.
func limitQuery(c *fiber.Ctx, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
	}
	return n, nil
}
