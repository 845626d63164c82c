// Package pricing computes effective unit and total prices for catalog
// products. All functions are pure; currency arithmetic stays in decimal
// Naira and is rounded only at the display boundary.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"furnistore/internal/model"
)

// ValidationError reports malformed numeric input. Callers are expected to
// validate before rendering, never to display a negative price.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pricing: invalid %s: %s", e.Field, e.Reason)
}

// NoTier marks "no bulk tier selected" in Quote.
const NoTier = -1

// Quote is the result of resolving a product's price for a quantity.
type Quote struct {
	// OriginalPrice is the pre-discount price (product original price, or
	// the base price when none is set).
	OriginalPrice decimal.Decimal `json:"original_price"`
	// UnitPrice is the effective per-unit price after the selected tier or
	// the percentage discount.
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Quantity   int             `json:"quantity"`
	// TierIndex is the applied tier, or NoTier.
	TierIndex   int  `json:"tier_index"`
	HasDiscount bool `json:"has_discount"`
}

// DisplayUnitPrice rounds the unit price half-up to whole Naira. Only for
// rendering; further arithmetic must use UnitPrice.
func (q Quote) DisplayUnitPrice() string {
	return q.UnitPrice.Round(0).StringFixed(0)
}

// DisplayTotalPrice rounds the total half-up to whole Naira.
func (q Quote) DisplayTotalPrice() string {
	return q.TotalPrice.Round(0).StringFixed(0)
}

var oneHundred = decimal.NewFromInt(100)

// Resolve computes the effective price for quantity units of p.
//
// The selected tier price replaces the percentage discount, it never stacks
// with it. An out-of-range tierIndex (stale after the tier list changed) is
// treated as "no tier selected" rather than an error. Pass NoTier when the
// caller made no selection.
func Resolve(p *model.Product, tierIndex, quantity int) (Quote, error) {
	if quantity < 1 {
		return Quote{}, &ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}
	if p.Price.IsNegative() {
		return Quote{}, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if p.OriginalPrice != nil && p.OriginalPrice.IsNegative() {
		return Quote{}, &ValidationError{Field: "original_price", Reason: "must not be negative"}
	}
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return Quote{}, &ValidationError{Field: "discount_percent", Reason: "must be within 0..100"}
	}

	original := p.Price
	if p.OriginalPrice != nil {
		original = *p.OriginalPrice
	}

	unit := original
	if p.DiscountPercent > 0 {
		factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(p.DiscountPercent).Div(oneHundred))
		unit = original.Mul(factor)
	}

	applied := NoTier
	if tierIndex >= 0 && tierIndex < len(p.BulkPricingTiers) {
		unit = p.BulkPricingTiers[tierIndex].Price
		applied = tierIndex
	}

	return Quote{
		OriginalPrice: original,
		UnitPrice:     unit,
		TotalPrice:    unit.Mul(decimal.NewFromInt(int64(quantity))),
		Quantity:      quantity,
		TierIndex:     applied,
		HasDiscount:   p.DiscountPercent > 0 || applied != NoTier,
	}, nil
}

// ValidateTiers checks a tier sequence before it is stored: MinQuantity
// strictly increasing, prices non-negative, and only the last tier may
// leave MaxQuantity open.
func ValidateTiers(tiers []model.BulkPricingTier) error {
	prevMin := 0
	for i, t := range tiers {
		if t.MinQuantity < 1 {
			return &ValidationError{Field: "bulk_pricing_tiers", Reason: fmt.Sprintf("tier %d: min_quantity must be >= 1", i)}
		}
		if t.MinQuantity <= prevMin {
			return &ValidationError{Field: "bulk_pricing_tiers", Reason: fmt.Sprintf("tier %d: min_quantity must increase", i)}
		}
		if t.Price.IsNegative() {
			return &ValidationError{Field: "bulk_pricing_tiers", Reason: fmt.Sprintf("tier %d: price must not be negative", i)}
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			return &ValidationError{Field: "bulk_pricing_tiers", Reason: fmt.Sprintf("tier %d: max_quantity below min_quantity", i)}
		}
		if t.MaxQuantity == nil && i != len(tiers)-1 {
			return &ValidationError{Field: "bulk_pricing_tiers", Reason: fmt.Sprintf("tier %d: only the last tier may omit max_quantity", i)}
		}
		prevMin = t.MinQuantity
	}
	return nil
}

// TierFor returns the index of the tier covering quantity, or NoTier. Tiers
// are ordered by strictly increasing MinQuantity, so the last match wins.
func TierFor(p *model.Product, quantity int) int {
	match := NoTier
	for i, t := range p.BulkPricingTiers {
		if t.Covers(quantity) {
			match = i
		}
	}
	return match
}
