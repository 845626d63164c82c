package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"furnistore/internal/model"
)

// ProductFilters are the storefront list parameters.
type ProductFilters struct {
	Query    string `json:"q"`
	Category string `json:"category"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func (f ProductFilters) normalized() ProductFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	return f
}

// Store is the gorm-backed catalog store. All methods honour the request
// context; errors come back raw and are classified by the Service.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// Migrate creates or updates the catalog tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&model.Product{},
		&model.Category{},
		&model.Warehouse{},
		&model.WarehouseStock{},
		&model.StockMovement{},
		&model.Order{},
	)
}

func (s *Store) ListProducts(ctx context.Context, f ProductFilters) ([]model.Product, int, error) {
	f = f.normalized()

	q := s.db.WithContext(ctx).Model(&model.Product{})
	if f.Category != "" {
		q = q.Where("category_slug = ?", f.Category)
	}
	if f.Query != "" {
		pattern := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Product
	err := q.Order("id").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, int(total), nil
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("slug = ?", p.Slug).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrSlugTaken
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) UpdateProduct(ctx context.Context, p *model.Product) error {
	var existing model.Product
	if err := s.db.WithContext(ctx).First(&existing, p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if existing.Slug != p.Slug {
		var n int64
		if err := s.db.WithContext(ctx).Model(&model.Product{}).
			Where("slug = ? AND id <> ?", p.Slug, p.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSlugTaken
		}
	}
	// The incoming struct is request-built with zero timestamps; a full
	// Save would reset created_at on the row.
	return s.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", p.ID).
		Select("*").Omit("id", "created_at", "deleted_at").
		Updates(p).Error
}

func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	var list []model.Category
	err := s.db.WithContext(ctx).Order("sort_order, id").Find(&list).Error
	return list, err
}

func (s *Store) ListWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	var list []model.Warehouse
	err := s.db.WithContext(ctx).Order("id").Find(&list).Error
	return list, err
}

func (s *Store) GetWarehouse(ctx context.Context, id uint) (*model.Warehouse, error) {
	var w model.Warehouse
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWarehouseNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *Store) CreateWarehouse(ctx context.Context, w *model.Warehouse) error {
	return s.db.WithContext(ctx).Create(w).Error
}

func (s *Store) UpdateWarehouse(ctx context.Context, w *model.Warehouse) error {
	res := s.db.WithContext(ctx).Model(&model.Warehouse{}).
		Where("id = ?", w.ID).
		Select("*").Omit("id", "created_at", "deleted_at").
		Updates(w)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWarehouseNotFound
	}
	return nil
}

// DeleteWarehouse removes the warehouse and cascades to its stock rows.
func (s *Store) DeleteWarehouse(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Warehouse{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrWarehouseNotFound
		}
		return tx.Where("warehouse_id = ?", id).Delete(&model.WarehouseStock{}).Error
	})
}

func (s *Store) ListWarehouseStock(ctx context.Context, productID uint) ([]model.WarehouseStock, error) {
	var rows []model.WarehouseStock
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("warehouse_id").
		Find(&rows).Error
	return rows, err
}

// StockChange reports a stock mutation so the caller can emit the movement
// event.
type StockChange struct {
	Row            model.WarehouseStock
	QuantityBefore int
	QuantityAfter  int
}

// UpsertStock sets the absolute figures of a (warehouse, product) stock
// row, creating it when an admin first assigns the product to the
// warehouse.
func (s *Store) UpsertStock(ctx context.Context, in model.WarehouseStock) (*StockChange, error) {
	if in.StockQuantity < 0 || in.ReservedQuantity < 0 || in.ReorderLevel < 0 {
		return nil, fmt.Errorf("stock figures must not be negative")
	}
	if in.ReservedQuantity > in.StockQuantity {
		return nil, ErrInsufficientStock
	}

	var change StockChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w model.Warehouse
		if err := tx.First(&w, in.WarehouseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWarehouseNotFound
			}
			return err
		}
		if !w.IsAvailable {
			return ErrWarehouseClosed
		}
		if err := tx.First(&model.Product{}, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		var row model.WarehouseStock
		err := tx.Where("warehouse_id = ? AND product_id = ?", in.WarehouseID, in.ProductID).
			First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = in
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			change = StockChange{Row: row, QuantityBefore: 0, QuantityAfter: row.StockQuantity}
		case err != nil:
			return err
		default:
			change.QuantityBefore = row.StockQuantity
			row.StockQuantity = in.StockQuantity
			row.ReservedQuantity = in.ReservedQuantity
			row.ReorderLevel = in.ReorderLevel
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
			change.Row = row
			change.QuantityAfter = row.StockQuantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// AdjustStock applies a delta to a stock row. The row must exist, and the
// result must stay at or above the reserved quantity.
func (s *Store) AdjustStock(ctx context.Context, warehouseID, productID uint, delta int) (*StockChange, error) {
	var change StockChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.WarehouseStock
		err := tx.Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStockNotFound
			}
			return err
		}

		after := row.StockQuantity + delta
		if after < 0 || after < row.ReservedQuantity {
			return ErrInsufficientStock
		}

		change.QuantityBefore = row.StockQuantity
		row.StockQuantity = after
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		change.Row = row
		change.QuantityAfter = after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// ReserveStock allocates quantity units of a product in a warehouse for an
// order, bounded by the sellable (stock - reserved) figure.
func (s *Store) ReserveStock(ctx context.Context, warehouseID, productID uint, quantity int) (*StockChange, error) {
	var change StockChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.WarehouseStock
		err := tx.Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStockNotFound
			}
			return err
		}

		if row.StockQuantity-row.ReservedQuantity < quantity {
			return ErrInsufficientStock
		}
		change.QuantityBefore = row.StockQuantity
		row.ReservedQuantity += quantity
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		change.Row = row
		change.QuantityAfter = row.StockQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// SettleReservation releases an order's allocation. When consume is true
// (fulfilment) the physical stock is decremented as well.
func (s *Store) SettleReservation(ctx context.Context, warehouseID, productID uint, quantity int, consume bool) (*StockChange, error) {
	var change StockChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.WarehouseStock
		err := tx.Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStockNotFound
			}
			return err
		}

		change.QuantityBefore = row.StockQuantity
		row.ReservedQuantity -= quantity
		if row.ReservedQuantity < 0 {
			row.ReservedQuantity = 0
		}
		if consume {
			row.StockQuantity -= quantity
			if row.StockQuantity < 0 {
				row.StockQuantity = 0
			}
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		change.Row = row
		change.QuantityAfter = row.StockQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	return s.db.WithContext(ctx).Create(o).Error
}

func (s *Store) GetOrderByNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderNo string, from, to model.OrderStatus) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_no = ?", orderNo).First(&o).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if o.Status != from {
			return ErrOrderNotPending
		}
		o.Status = to
		return tx.Save(&o).Error
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, status *model.OrderStatus) ([]model.Order, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var list []model.Order
	err := q.Find(&list).Error
	return list, err
}

func (s *Store) ListAllStock(ctx context.Context) ([]model.WarehouseStock, error) {
	var rows []model.WarehouseStock
	err := s.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}
