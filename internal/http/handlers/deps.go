package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"modestwear/internal/auth"
	"modestwear/internal/config"
	"modestwear/internal/kv"
	applog "modestwear/internal/log"
	"modestwear/internal/mailer"
	"modestwear/internal/media"
	"modestwear/internal/recommend"
	"modestwear/internal/repos"
	"modestwear/internal/services"
)

// Deps holds everything the HTTP layer calls into.
type Deps struct {
	Auth      *services.AuthService
	Catalog   *services.CatalogService
	Cart      *services.CartService
	Wishlist  *services.WishlistService
	Orders    *services.OrderService
	Outfits   *services.OutfitService
	Inventory *services.InventoryService
	Recommend *recommend.Engine
	Products  *repos.ProductRepo

	// Limits backs the rate limiters. Nil keeps counters in process memory.
	Limits fiber.Storage
	// LocalMedia is set when images live in process and must be served
	// by the app itself.
	LocalMedia *media.MemoryStore
}

// NewDeps builds the repositories, services and recommendation engine on
// top of the database and key-value store.
func NewDeps(db *sqlx.DB, store *kv.Store, cfg config.Config, tokens *auth.Manager, mail mailer.Mailer, compose *mailer.Composer, objects media.ObjectStore) *Deps {
	var (
		tx       = repos.NewTxManager(db)
		users    = repos.NewUserRepo(db)
		cats     = repos.NewCategoryRepo(db)
		prods    = repos.NewProductRepo(db)
		carts    = repos.NewCartRepo(db)
		wishlist = repos.NewWishlistRepo(db)
		orders   = repos.NewOrderRepo(db)
		outfits  = repos.NewOutfitRepo(db)
		inv      = repos.NewInventoryRepo(db)
	)

	engine := recommend.NewEngine(repos.NewRecommendStore(db), cfg.Recommend,
		recommend.WithCache(store),
		recommend.WithLogger(applog.Component("recommend")),
	)

	d := &Deps{
		Auth:      services.NewAuthService(users, tokens, store, mail, compose, objects),
		Catalog:   services.NewCatalogService(tx, cats, prods, objects),
		Cart:      services.NewCartService(carts, prods),
		Wishlist:  services.NewWishlistService(tx, wishlist, carts, prods),
		Orders:    services.NewOrderService(tx, carts, inv, orders, users, mail, compose),
		Outfits:   services.NewOutfitService(outfits, prods),
		Inventory: services.NewInventoryService(inv, mail, compose, cfg.Mail.AdminEmail, cfg.Inventory.LowStockThreshold),
		Recommend: engine,
		Products:  prods,
		Limits:    store,
	}
	if mem, ok := objects.(*media.MemoryStore); ok {
		d.LocalMedia = mem
	}
	return d
}
