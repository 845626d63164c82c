package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrStockNotFound     = errors.New("stock row not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPending   = errors.New("order is no longer pending")
	ErrSlugTaken         = errors.New("slug already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrWarehouseClosed   = errors.New("warehouse is not accepting stock")
	ErrStoreUnreachable  = errors.New("catalog store unreachable")
)

// ConfigurationError rejects a write attempted while the catalog store is
// not configured. It must always reach the caller; writes are never
// silently dropped.
type ConfigurationError struct {
	Op string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("catalog: %s rejected: store is not configured", e.Op)
}

// TransientReadError is a store failure on a read path. It is absorbed at
// the data-access boundary (logged, fallback served) and never reaches the
// caller.
type TransientReadError struct {
	Op  string
	Err error
}

func (e *TransientReadError) Error() string {
	return fmt.Sprintf("catalog: read %s failed: %v", e.Op, e.Err)
}

func (e *TransientReadError) Unwrap() error { return e.Err }

// WriteFailure is a store-reachable write rejected by the store or a
// business rule. It always propagates to the caller.
type WriteFailure struct {
	Op  string
	Err error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("catalog: write %s failed: %v", e.Op, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }
