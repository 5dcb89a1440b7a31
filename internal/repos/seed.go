package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"modestwear/internal/domain"
)

// SeedPassword is the password of every sample shopper.
const SeedPassword = "Passw0rd!"

// SeedStats reports what Seed inserted.
type SeedStats struct {
	Categories int
	Products   int
	Variants   int
	Users      int
	Orders     int
	Outfits    int
}

type seedProduct struct {
	name, slug, category, price string
	featured                    bool
}

var seedCategories = [][2]string{
	{"Dresses", "dresses"},
	{"Tops", "tops"},
	{"Bottoms", "bottoms"},
	{"Outerwear", "outerwear"},
	{"Accessories", "accessories"},
}

var seedProducts = []seedProduct{
	{"Modest Maxi Dress", "modest-maxi-dress", "dresses", "89.99", true},
	{"Elegant Midi Dress", "elegant-midi-dress", "dresses", "79.99", false},
	{"Casual Day Dress", "casual-day-dress", "dresses", "59.99", false},
	{"Long Sleeve Blouse", "long-sleeve-blouse", "tops", "45.99", true},
	{"Modest Tunic Top", "modest-tunic-top", "tops", "39.99", false},
	{"High-Neck Sweater", "high-neck-sweater", "tops", "55.99", false},
	{"Wide Leg Pants", "wide-leg-pants", "bottoms", "65.99", false},
	{"Modest Skirt", "modest-skirt", "bottoms", "49.99", true},
	{"Long Cardigan", "long-cardigan", "outerwear", "75.99", false},
	{"Modest Blazer", "modest-blazer", "outerwear", "95.99", true},
	{"Chiffon Hijab", "chiffon-hijab", "accessories", "19.99", false},
	{"Jersey Underscarf", "jersey-underscarf", "accessories", "9.99", false},
}

var seedColors = []string{"black", "navy", "sage"}

// seedOrders lists, per shopper, the product slugs of each order.
var seedOrders = [][][]string{
	{{"modest-maxi-dress", "chiffon-hijab"}, {"long-cardigan"}},
	{{"modest-maxi-dress", "chiffon-hijab", "modest-skirt"}, {"long-sleeve-blouse"}},
	{{"modest-maxi-dress", "modest-skirt"}, {"wide-leg-pants", "chiffon-hijab"}},
	{{"elegant-midi-dress"}, {"modest-blazer", "high-neck-sweater"}},
	{{"casual-day-dress", "modest-tunic-top"}},
}

var seedOutfits = [][]string{
	{"modest-maxi-dress", "long-cardigan", "chiffon-hijab"},
	{"long-sleeve-blouse", "wide-leg-pants"},
	{"modest-skirt", "high-neck-sweater", "jersey-underscarf"},
	{"modest-blazer", "wide-leg-pants"},
	{"elegant-midi-dress", "chiffon-hijab"},
}

// Seed inserts a sample catalog, shoppers, orders and outfits so every
// recommendation strategy has data. It does nothing when categories exist.
func Seed(ctx context.Context, db *sqlx.DB) (SeedStats, error) {
	var stats SeedStats
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`); err != nil {
		return stats, err
	}
	if n > 0 {
		return stats, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return stats, err
	}
	now := time.Now()

	err = NewTxManager(db).WithTx(ctx, func(tx *sqlx.Tx) error {
		cats := NewCategoryRepo(tx)
		products := NewProductRepo(tx)
		users := NewUserRepo(tx)
		orders := NewOrderRepo(tx)
		outfits := NewOutfitRepo(tx)

		catIDs := map[string]string{}
		for _, c := range seedCategories {
			cat := domain.Category{ID: "cat-" + c[1], Name: c[0], Slug: c[1], IsActive: true}
			if err := cats.Create(ctx, &cat); err != nil {
				return fmt.Errorf("category %s: %w", c[1], err)
			}
			catIDs[c[1]] = cat.ID
			stats.Categories++
		}

		prices := map[string]decimal.Decimal{}
		variantOf := map[string]string{}
		for i, sp := range seedProducts {
			p := domain.Product{
				ID:          "prd-" + sp.slug,
				CategoryID:  catIDs[sp.category],
				Name:        sp.name,
				Slug:        sp.slug,
				Description: "Beautiful " + sp.name + " for modest fashion",
				Price:       decimal.RequireFromString(sp.price),
				IsFeatured:  sp.featured,
				IsActive:    true,
				DateAdded:   domain.Timestamp(now.Add(-time.Duration(i) * 24 * time.Hour)),
			}
			if err := products.Create(ctx, &p); err != nil {
				return fmt.Errorf("product %s: %w", sp.slug, err)
			}
			prices[sp.slug] = p.Price
			stats.Products++
			for j, size := range []string{"S", "M", "L"} {
				v := domain.Variant{
					ID:        fmt.Sprintf("var-%s-%s", sp.slug, size),
					ProductID: p.ID,
					Size:      size,
					Color:     seedColors[(i+j)%len(seedColors)],
					Stock:     3 + (i*7+j*5)%20,
					IsActive:  true,
				}
				if err := products.CreateVariant(ctx, &v); err != nil {
					return fmt.Errorf("variant %s: %w", v.ID, err)
				}
				if size == "M" {
					variantOf[sp.slug] = v.ID
				}
				stats.Variants++
			}
		}

		userIDs := make([]string, len(seedOrders))
		for i := range seedOrders {
			u := domain.User{
				ID:         fmt.Sprintf("usr-testuser%d", i+1),
				Email:      fmt.Sprintf("testuser%d@example.com", i+1),
				Username:   fmt.Sprintf("testuser%d", i+1),
				Hash:       string(hash),
				IsVerified: true,
				IsActive:   true,
			}
			if err := users.Create(ctx, &u); err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
			userIDs[i] = u.ID
			stats.Users++
		}

		for i, userOrders := range seedOrders {
			for j, slugs := range userOrders {
				o := domain.Order{
					UserID:    userIDs[i],
					Status:    domain.OrderDelivered,
					Address:   "1 Sample Street",
					CreatedAt: domain.Timestamp(now.Add(-time.Duration(3*i+j+1) * 24 * time.Hour)),
				}
				total := decimal.Zero
				for _, slug := range slugs {
					o.Items = append(o.Items, domain.OrderItem{
						VariantID:       variantOf[slug],
						Quantity:        1,
						PriceAtPurchase: prices[slug],
					})
					total = total.Add(prices[slug])
				}
				o.TotalPrice = total
				if err := orders.Create(ctx, &o); err != nil {
					return fmt.Errorf("order for %s: %w", userIDs[i], err)
				}
				stats.Orders++
			}
		}

		for i, slugs := range seedOutfits {
			o := domain.Outfit{
				UserID:      userIDs[i],
				Name:        fmt.Sprintf("testuser%d Outfit", i+1),
				Description: "A beautiful modest outfit",
				IsPublic:    i%2 == 0,
			}
			if err := outfits.Create(ctx, &o); err != nil {
				return fmt.Errorf("outfit: %w", err)
			}
			for pos, slug := range slugs {
				it := domain.OutfitItem{OutfitID: o.ID, ProductID: "prd-" + slug, Position: pos}
				if err := outfits.AddItem(ctx, &it); err != nil {
					return fmt.Errorf("outfit item %s: %w", slug, err)
				}
			}
			stats.Outfits++
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	return stats, nil
}
