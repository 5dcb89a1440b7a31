package handlers

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v2"

	"modestwear/internal/auth"
	"modestwear/internal/domain"
	applog "modestwear/internal/log"
	"modestwear/internal/media"
	"modestwear/internal/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type tokenResponse struct {
	User *domain.User `json:"user,omitempty"`
	auth.Pair
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := bind(c, &in); err != nil {
		return fail(c, "auth.register", err)
	}
	u, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		return fail(c, "auth.register", err)
	}
	c.Locals("user_id", u.ID)
	applog.Audit(c, "auth.register", map[string]any{"email": u.Email})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    u,
		"message": "Registration successful. Check your email to verify your account.",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := bind(c, &in); err != nil {
		return fail(c, "auth.login", err)
	}
	u, pair, err := h.Auth.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": in.Email})
		return fail(c, "auth.login", err)
	}
	c.Locals("user_id", u.ID)
	applog.Audit(c, "auth.login.success", map[string]any{"email": u.Email})
	return c.JSON(tokenResponse{User: u, Pair: pair})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var in refreshRequest
	if err := bind(c, &in); err != nil {
		return fail(c, "auth.refresh", err)
	}
	pair, err := h.Auth.Refresh(c.UserContext(), in.Refresh)
	if err != nil {
		return fail(c, "auth.refresh", err)
	}
	return c.JSON(tokenResponse{Pair: pair})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var in refreshRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &in); err != nil {
			return fail(c, "auth.logout", err)
		}
	}
	if err := h.Auth.Logout(c.UserContext(), claims(c), in.Refresh); err != nil {
		return fail(c, "auth.logout", err)
	}
	applog.Audit(c, "auth.logout", nil)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GET /api/v1/auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	tok := strings.TrimSpace(c.Query("token"))
	if tok == "" {
		return fail(c, "auth.verify", fiber.NewError(fiber.StatusBadRequest, "token is required"))
	}
	if err := h.Auth.VerifyEmail(c.UserContext(), tok); err != nil {
		return fail(c, "auth.verify", err)
	}
	applog.Audit(c, "auth.email.verified", nil)
	return c.JSON(fiber.Map{"message": "Email verified"})
}

// POST /api/v1/auth/verify-email/resend
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	if err := h.Auth.ResendVerification(c.UserContext(), userID(c)); err != nil {
		return fail(c, "auth.verify.resend", err)
	}
	return c.JSON(fiber.Map{"message": "Verification email sent"})
}

// POST /api/v1/auth/password-reset
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var in struct {
		Email string `json:"email"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "auth.reset.request", err)
	}
	if err := h.Auth.RequestPasswordReset(c.UserContext(), in.Email); err != nil {
		return fail(c, "auth.reset.request", err)
	}
	// Same answer whether or not the address exists.
	return c.JSON(fiber.Map{"message": "If the address is registered, a reset link has been sent"})
}

// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "auth.reset.confirm", err)
	}
	if in.Token == "" {
		in.Token = c.Query("token")
	}
	if err := h.Auth.ResetPassword(c.UserContext(), in.Token, in.Password); err != nil {
		return fail(c, "auth.reset.confirm", err)
	}
	applog.Audit(c, "auth.password.reset", nil)
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// POST /api/v1/auth/password/change
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := bind(c, &in); err != nil {
		return fail(c, "auth.password.change", err)
	}
	if err := h.Auth.ChangePassword(c.UserContext(), userID(c), in.Current, in.New); err != nil {
		return fail(c, "auth.password.change", err)
	}
	applog.Audit(c, "auth.password.change", nil)
	return c.JSON(fiber.Map{"message": "Password changed, please log in again"})
}

// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	u, err := h.Auth.Profile(c.UserContext(), userID(c))
	if err != nil {
		return fail(c, "profile.get", err)
	}
	return c.JSON(u)
}

// PUT /api/v1/auth/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := bind(c, &in); err != nil {
		return fail(c, "profile.update", err)
	}
	u, err := h.Auth.UpdateProfile(c.UserContext(), userID(c), in)
	if err != nil {
		return fail(c, "profile.update", err)
	}
	applog.Audit(c, "profile.update", nil)
	return c.JSON(u)
}

// POST /api/v1/auth/profile/picture (multipart field "image")
func (h *AuthHandler) UploadPicture(c *fiber.Ctx) error {
	data, err := upload(c, "image")
	if err != nil {
		return fail(c, "profile.picture", err)
	}
	u, err := h.Auth.SetProfilePicture(c.UserContext(), userID(c), bytes.NewReader(data))
	if err != nil {
		return fail(c, "profile.picture", err)
	}
	applog.Audit(c, "profile.picture", nil)
	return c.JSON(u)
}

// upload reads one multipart file, bounded by media.MaxImageBytes.
func upload(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, field+" file is required")
	}
	if fh.Size > media.MaxImageBytes {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "image is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := bytes.NewBuffer(make([]byte, 0, fh.Size))
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
