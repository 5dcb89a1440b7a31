package handlers

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modestwear/internal/config"
	applog "modestwear/internal/log"
	"modestwear/internal/media"
	"modestwear/internal/metrics"
)

// NewApp builds the fiber app with middleware and every route mounted.
func NewApp(d *Deps, cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "modestwear",
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(observe)
	app.Use(rateLimit(d.Limits, "global", cfg.RateLimit, cfg.RateWindow))

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	if d.LocalMedia != nil {
		app.Get(MediaPrefix+"/*", serveMedia(d.LocalMedia))
	}

	var (
		authH   = &AuthHandler{Auth: d.Auth}
		prodH   = &ProductHandler{Catalog: d.Catalog}
		cartH   = &CartHandler{Cart: d.Cart}
		wishH   = &WishlistHandler{Wish: d.Wishlist}
		orderH  = &OrderHandler{Orders: d.Orders}
		outfitH = &OutfitHandler{Outfits: d.Outfits}
		invH    = &InventoryHandler{Inv: d.Inventory}
		adminH  = &AdminHandler{Auth: d.Auth, Orders: d.Orders}
		recH    = &RecommendHandler{Engine: d.Recommend, Products: d.Products}

		user     = RequireUser(d.Auth)
		optional = OptionalUser(d.Auth)
	)

	api := app.Group("/api/v1")

	a := api.Group("/auth")
	a.Post("/register", authH.Register)
	a.Post("/login", rateLimit(d.Limits, "login", cfg.LoginRateLimit, cfg.LoginRateWindow), authH.Login)
	a.Post("/refresh", authH.Refresh)
	a.Post("/logout", user, authH.Logout)
	a.Get("/verify-email", authH.VerifyEmail)
	a.Post("/verify-email/resend", user, authH.ResendVerification)
	a.Post("/password-reset", authH.RequestPasswordReset)
	a.Post("/password-reset/confirm", authH.ConfirmPasswordReset)
	a.Post("/password/change", user, authH.ChangePassword)
	a.Get("/profile", user, authH.Profile)
	a.Put("/profile", user, authH.UpdateProfile)
	a.Post("/profile/picture", user, authH.UploadPicture)

	api.Get("/categories", prodH.Categories)
	api.Get("/products", prodH.List)
	api.Get("/products/filters", prodH.Filters)
	api.Get("/products/:slug", prodH.Detail)
	api.Get("/availability/:variant_id", invH.Check)

	api.Get("/cart", user, cartH.View)
	api.Post("/cart/items", user, cartH.Add)
	api.Patch("/cart/items/:id", user, cartH.Update)
	api.Delete("/cart/items/:id", user, cartH.Remove)

	api.Get("/wishlist", user, wishH.List)
	api.Post("/wishlist", user, wishH.Save)
	api.Delete("/wishlist/:variant_id", user, wishH.Unsave)
	api.Post("/wishlist/:variant_id/move-to-cart", user, wishH.MoveToCart)

	api.Post("/orders/checkout", user, orderH.Checkout)
	api.Get("/orders", user, orderH.History)
	api.Get("/orders/:id", user, orderH.View)

	api.Get("/outfits/public", outfitH.Public)
	api.Get("/outfits", user, outfitH.Mine)
	api.Post("/outfits", user, outfitH.Create)
	api.Get("/outfits/:id", optional, outfitH.Get)
	api.Put("/outfits/:id", user, outfitH.Update)
	api.Delete("/outfits/:id", user, outfitH.Delete)
	api.Post("/outfits/:id/items", user, outfitH.AddItem)
	api.Delete("/outfits/:id/items/:product_id", user, outfitH.RemoveItem)

	api.Get("/recommendations", user, recH.ForUser)
	api.Get("/recommendations/popular", recH.Popular)
	api.Get("/recommendations/trending", recH.Trending)
	api.Get("/recommendations/product/:id", optional, recH.ForProduct)
	api.Get("/recommendations/similar-price/:id", recH.SimilarPrice)

	admin := api.Group("/admin", RequireAdmin(d.Auth))
	admin.Get("/users", adminH.Users)
	admin.Patch("/users/:id", adminH.SetUserActive)
	admin.Delete("/users/:id", adminH.DeleteUser)
	admin.Get("/orders", adminH.ListOrders)
	admin.Patch("/orders/:id/status", adminH.UpdateOrderStatus)
	admin.Post("/products", prodH.Create)
	admin.Post("/products/:id/image", prodH.UploadImage)
	admin.Get("/inventory/low-stock", invH.LowStock)
	admin.Post("/inventory/:variant_id/restock", invH.Restock)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	return app
}

// MediaPrefix is where in-process images are served from.
const MediaPrefix = "/media"

func serveMedia(store *media.MemoryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, contentType, ok := store.Get(c.Params("*"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
		return c.Send(data)
	}
}

// observe records request metrics and writes the access log line.
func observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler set the final status before recording it.
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
		err = nil
	}
	route := c.Route().Path
	if route == "" || route == "/" {
		route = "unmatched"
	}
	metrics.RecordHTTP(c.Method(), route, c.Response().StatusCode(), time.Since(start))
	applog.Info(c, "http.access", map[string]any{"ms": time.Since(start).Milliseconds()})
	return err
}

// rateLimit caps requests per client IP. max <= 0 disables the limiter.
func rateLimit(storage fiber.Storage, name string, max int, window time.Duration) fiber.Handler {
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		Next: func(c *fiber.Ctx) bool {
			if max <= 0 {
				return true
			}
			p := c.Path()
			return p == "/healthz" || p == "/metrics" || strings.HasPrefix(p, "/metrics/")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return "rate:" + name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+name+".hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
}
