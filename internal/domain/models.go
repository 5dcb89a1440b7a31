package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the fixed-width UTC layout used for every stored timestamp,
// so text comparison in SQL orders correctly.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func Timestamp(t time.Time) string { return t.UTC().Format(TimeLayout) }

func ParseTimestamp(s string) (time.Time, error) { return time.Parse(TimeLayout, s) }

type Category struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Slug      string  `db:"slug" json:"slug"`
	ParentID  *string `db:"parent_id" json:"parent_id,omitempty"`
	IsActive  bool    `db:"is_active" json:"is_active"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// CategorySummary is a category with its active product count.
type CategorySummary struct {
	Category
	Products int `db:"product_count" json:"product_count"`
}

type Product struct {
	ID          string          `db:"id" json:"id"`
	CategoryID  string          `db:"category_id" json:"category_id"`
	Name        string          `db:"name" json:"name"`
	Slug        string          `db:"slug" json:"slug"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	IsFeatured  bool            `db:"is_featured" json:"is_featured"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	ImageKey    string          `db:"image_key" json:"-"`
	DateAdded   string          `db:"date_added" json:"date_added"`

	ImageURL string    `db:"-" json:"image_url,omitempty"`
	Variants []Variant `db:"-" json:"variants,omitempty"`
}

// Variant is a purchasable size/color of a product with its own stock.
type Variant struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"product_id"`
	Size      string `db:"size" json:"size"`
	Color     string `db:"color" json:"color"`
	Stock     int    `db:"stock" json:"stock"`
	IsActive  bool   `db:"is_active" json:"is_active"`
}

// ProductFilter narrows product listings. Empty fields do not filter.
type ProductFilter struct {
	CategorySlug string
	Query        string
	Size         string
	Color        string
	MinPrice     decimal.NullDecimal
	MaxPrice     decimal.NullDecimal
	FeaturedOnly bool
	Limit        int
	Offset       int
}

// Filters lists the facets a storefront can filter on.
type Filters struct {
	Sizes  []string `json:"sizes"`
	Colors []string `json:"colors"`
}

type CartLine struct {
	ID          string          `db:"id" json:"id"`
	VariantID   string          `db:"variant_id" json:"variant_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Size        string          `db:"size" json:"size"`
	Color       string          `db:"color" json:"color"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Stock       int             `db:"stock" json:"-"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	Lines []CartLine      `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type WishlistEntry struct {
	VariantID   string          `db:"variant_id" json:"variant_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Size        string          `db:"size" json:"size"`
	Color       string          `db:"color" json:"color"`
	Price       decimal.Decimal `db:"price" json:"price"`
	AddedAt     string          `db:"added_at" json:"added_at"`
}

const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID         string          `db:"id" json:"id"`
	UserID     string          `db:"user_id" json:"user_id"`
	Status     string          `db:"status" json:"status"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	Address    string          `db:"address" json:"address"`
	CreatedAt  string          `db:"created_at" json:"created_at"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

type OrderItem struct {
	ID              string          `db:"id" json:"id"`
	OrderID         string          `db:"order_id" json:"-"`
	VariantID       string          `db:"variant_id" json:"variant_id"`
	ProductID       string          `db:"product_id" json:"product_id"`
	ProductName     string          `db:"product_name" json:"product_name"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PriceAtPurchase decimal.Decimal `db:"price_at_purchase" json:"price_at_purchase"`
}

type Outfit struct {
	ID          string `db:"id" json:"id"`
	UserID      string `db:"user_id" json:"user_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	IsPublic    bool   `db:"is_public" json:"is_public"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at"`

	Items []OutfitItem `db:"-" json:"items"`
}

type OutfitItem struct {
	ID          string `db:"id" json:"id"`
	OutfitID    string `db:"outfit_id" json:"-"`
	ProductID   string `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Position    int    `db:"position" json:"position"`
	CreatedAt   string `db:"created_at" json:"created_at"`
}

// LowStock is an active variant at or below the alert threshold.
type LowStock struct {
	VariantID   string `db:"variant_id" json:"variant_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Size        string `db:"size" json:"size"`
	Color       string `db:"color" json:"color"`
	Stock       int    `db:"stock" json:"stock"`
}

// Availability is the storefront view of a variant's stock.
type Availability struct {
	VariantID string `json:"variant_id"`
	Status    string `json:"status"`
	Qty       int    `json:"qty"`
}
