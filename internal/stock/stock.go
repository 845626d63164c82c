// Package stock aggregates per-warehouse stock rows into summary figures
// and a tri-state availability status. All functions are pure.
package stock

import "furnistore/internal/model"

// Status is the availability classification for a product in scope.
type Status string

const (
	StatusOutOfStock Status = "out_of_stock"
	StatusLowStock   Status = "low_stock"
	StatusInStock    Status = "in_stock"
)

// AllWarehouses disables the warehouse scope filter in Summarize.
const AllWarehouses = 0

// Summary holds the aggregated stock figures for one product.
type Summary struct {
	TotalStock     int    `json:"total_stock"`
	TotalReserved  int    `json:"total_reserved"`
	TotalAvailable int    `json:"total_available"`
	Status         Status `json:"status"`
}

// Summarize aggregates rows, optionally scoped to one warehouse.
//
// Status precedence: out_of_stock when total stock is zero or less,
// low_stock when total stock does not exceed the highest reorder level in
// scope, in_stock otherwise. A product with no rows in scope is
// out_of_stock regardless of any legacy in-stock flag on the product
// record; available is clamped at zero even when reservations oversubscribe
// physical stock.
func Summarize(rows []model.WarehouseStock, warehouseID uint) Summary {
	var s Summary
	maxReorder := 0
	matched := false

	for _, r := range rows {
		if warehouseID != AllWarehouses && r.WarehouseID != warehouseID {
			continue
		}
		matched = true
		s.TotalStock += r.StockQuantity
		s.TotalReserved += r.ReservedQuantity
		if r.ReorderLevel > maxReorder {
			maxReorder = r.ReorderLevel
		}
	}

	s.TotalAvailable = s.TotalStock - s.TotalReserved
	if s.TotalAvailable < 0 {
		s.TotalAvailable = 0
	}

	switch {
	case !matched || s.TotalStock <= 0:
		s.Status = StatusOutOfStock
	case s.TotalStock <= maxReorder:
		s.Status = StatusLowStock
	default:
		s.Status = StatusInStock
	}
	return s
}
