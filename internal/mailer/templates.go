package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	html "github.com/gofiber/template/html/v2"

	"modestwear/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Composer renders the shop's transactional emails.
type Composer struct {
	engine  *html.Engine
	baseURL string
}

func NewComposer(baseURL string) (*Composer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	return &Composer{engine: engine, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (c *Composer) render(name string, data any) (string, error) {
	var b bytes.Buffer
	if err := c.engine.Render(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

func (c *Composer) link(path, token string) string {
	return c.baseURL + path + "?token=" + url.QueryEscape(token)
}

type tokenMail struct {
	Name      string
	Link      string
	ExpiresIn string
}

func (c *Composer) Verification(u domain.User, token string) (Message, error) {
	data := tokenMail{Name: u.FullName(), Link: c.link("/api/v1/auth/verify-email", token), ExpiresIn: "24 hours"}
	body, err := c.render("verification", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Template: "verification",
		To:       u.Email,
		ToName:   u.FullName(),
		Subject:  "Verify your ModestWear email",
		Text:     "Verify your email: " + data.Link,
		HTML:     body,
	}, nil
}

func (c *Composer) PasswordReset(u domain.User, token string) (Message, error) {
	data := tokenMail{Name: u.FullName(), Link: c.link("/api/v1/auth/password-reset/confirm", token), ExpiresIn: "1 hour"}
	body, err := c.render("password_reset", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Template: "password_reset",
		To:       u.Email,
		ToName:   u.FullName(),
		Subject:  "Reset your ModestWear password",
		Text:     "Reset your password: " + data.Link,
		HTML:     body,
	}, nil
}

func (c *Composer) OrderConfirmation(u domain.User, o domain.Order) (Message, error) {
	body, err := c.render("order_confirmation", struct {
		Name  string
		Order domain.Order
	}{u.FullName(), o})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Template: "order_confirmation",
		To:       u.Email,
		ToName:   u.FullName(),
		Subject:  "Your ModestWear order " + o.ID,
		Text:     fmt.Sprintf("Order %s received. Total %s.", o.ID, o.TotalPrice.StringFixed(2)),
		HTML:     body,
	}, nil
}

func (c *Composer) LowStock(to string, threshold int, items []domain.LowStock) (Message, error) {
	body, err := c.render("low_stock", struct {
		Threshold int
		Items     []domain.LowStock
	}{threshold, items})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Template: "low_stock",
		To:       to,
		Subject:  fmt.Sprintf("Low stock: %d variant(s)", len(items)),
		Text:     fmt.Sprintf("%d variant(s) at or below %d units.", len(items), threshold),
		HTML:     body,
	}, nil
}
