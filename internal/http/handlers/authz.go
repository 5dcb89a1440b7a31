package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"modestwear/internal/auth"
	"modestwear/internal/domain"
	applog "modestwear/internal/log"
	"modestwear/internal/services"
)

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func authenticate(c *fiber.Ctx, svc *services.AuthService) error {
	tok := bearer(c)
	if tok == "" {
		return services.ErrInvalidToken
	}
	u, claims, err := svc.Authenticate(c.UserContext(), tok)
	if err != nil {
		return err
	}
	c.Locals("user_id", u.ID)
	c.Locals("user", u)
	c.Locals("claims", claims)
	return nil
}

// RequireUser rejects requests without a valid access token.
func RequireUser(svc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, svc); err != nil {
			return fail(c, "auth.required", err)
		}
		return c.Next()
	}
}

// RequireAdmin additionally requires the staff flag.
func RequireAdmin(svc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, svc); err != nil {
			return fail(c, "auth.required", err)
		}
		if !currentUser(c).IsStaff {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
		}
		return c.Next()
	}
}

// OptionalUser attaches the user when a valid token is presented and lets
// anonymous requests through. A bad token is still rejected.
func OptionalUser(svc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if bearer(c) == "" {
			return c.Next()
		}
		if err := authenticate(c, svc); err != nil {
			return fail(c, "auth.optional", err)
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func claims(c *fiber.Ctx) *auth.Claims {
	cl, _ := c.Locals("claims").(*auth.Claims)
	return cl
}
