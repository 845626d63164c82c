package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"furnistore/internal/model"
)

//go:embed data/products.json
var fallbackData []byte

// Fallback is the static bundled catalog served verbatim when the store is
// unreachable or unconfigured. It is read-only; it never carries warehouse
// stock rows, so availability resolves from the legacy product fields.
type Fallback struct {
	products   []model.Product
	categories []model.Category
	bySlug     map[string]int
	byID       map[uint]int
}

// NewFallback parses the bundled dataset. The dataset ships with the
// binary, so a parse failure is a build defect, not a runtime condition.
func NewFallback() (*Fallback, error) {
	var doc struct {
		Categories []model.Category `json:"categories"`
		Products   []model.Product  `json:"products"`
	}
	if err := json.Unmarshal(fallbackData, &doc); err != nil {
		return nil, fmt.Errorf("parse fallback catalog: %w", err)
	}

	fb := &Fallback{
		products:   doc.Products,
		categories: doc.Categories,
		bySlug:     make(map[string]int, len(doc.Products)),
		byID:       make(map[uint]int, len(doc.Products)),
	}
	for i, p := range doc.Products {
		fb.bySlug[p.Slug] = i
		fb.byID[p.ID] = i
	}
	sort.SliceStable(fb.categories, func(i, j int) bool {
		return fb.categories[i].SortOrder < fb.categories[j].SortOrder
	})
	return fb, nil
}

// ListProducts applies the storefront filters in memory and returns the
// requested page plus the total match count.
func (fb *Fallback) ListProducts(f ProductFilters) ([]model.Product, int) {
	f = f.normalized()

	matched := make([]model.Product, 0, len(fb.products))
	q := strings.ToLower(f.Query)
	for _, p := range fb.products {
		if f.Category != "" && p.CategorySlug != f.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		matched = append(matched, p)
	}

	total := len(matched)
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return []model.Product{}, total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// GetProductBySlug returns the fallback product, or ErrProductNotFound.
func (fb *Fallback) GetProductBySlug(slug string) (*model.Product, error) {
	i, ok := fb.bySlug[slug]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := fb.products[i]
	return &p, nil
}

// GetProduct returns the fallback product by id, or ErrProductNotFound.
func (fb *Fallback) GetProduct(id uint) (*model.Product, error) {
	i, ok := fb.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := fb.products[i]
	return &p, nil
}

// ListCategories returns the bundled categories in sort order.
func (fb *Fallback) ListCategories() []model.Category {
	out := make([]model.Category, len(fb.categories))
	copy(out, fb.categories)
	return out
}
