package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BulkPricingTier is a quantity-based price break. A selected tier replaces
// the percentage discount, it never stacks with it.
type BulkPricingTier struct {
	MinQuantity int `json:"min_quantity"`
	// MaxQuantity nil means "and above"; only valid on the last tier.
	MaxQuantity     *int            `json:"max_quantity,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent *float64        `json:"discount_percent,omitempty"`
}

// Covers reports whether the tier applies to the given quantity.
func (t BulkPricingTier) Covers(quantity int) bool {
	if quantity < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || quantity <= *t.MaxQuantity
}

// Product is a catalog item. Prices are whole Naira, stored as decimals.
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Slug         string `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Name         string `gorm:"size:128;not null" json:"name"`
	Description  string `gorm:"size:2048" json:"description,omitempty"`
	CategorySlug string `gorm:"size:64;index" json:"category"`
	ImageURL     string `gorm:"size:512" json:"image_url,omitempty"`

	// OriginalPrice, when present, is the pre-discount price; absent means
	// it equals Price. DiscountPercent 0 means no percentage discount.
	Price            decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"price"`
	OriginalPrice    *decimal.Decimal  `gorm:"type:decimal(12,2)" json:"original_price,omitempty"`
	DiscountPercent  float64           `gorm:"not null;default:0" json:"discount_percent"`
	BulkPricingTiers []BulkPricingTier `gorm:"serializer:json" json:"bulk_pricing_tiers,omitempty"`

	// StockCount and InStock are legacy convenience fields kept for the
	// storefront listing; per-warehouse rows are the source of truth and a
	// StockCount of 0 is authoritative when set.
	StockCount *int `json:"stock_count,omitempty"`
	InStock    bool `gorm:"not null;default:true" json:"in_stock"`
}

func (Product) TableName() string { return "products" }

// Category groups products for storefront navigation.
type Category struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Slug      string `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Name      string `gorm:"size:128;not null" json:"name"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

func (Category) TableName() string { return "categories" }
