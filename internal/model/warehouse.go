package model

import (
	"time"

	"gorm.io/gorm"
)

// Warehouse is a physical stock location. IsAvailable gates whether new
// stock may be assigned to it.
type Warehouse struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string `gorm:"size:128;not null" json:"name"`
	State        string `gorm:"size:64;not null" json:"state"`
	Address      string `gorm:"size:512" json:"address,omitempty"`
	ContactPhone string `gorm:"size:32" json:"contact_phone,omitempty"`
	ContactEmail string `gorm:"size:128" json:"contact_email,omitempty"`
	MapLink      string `gorm:"size:512" json:"map_link,omitempty"`
	Capacity     *int   `json:"capacity,omitempty"`
	IsAvailable  bool   `gorm:"not null;default:true" json:"is_available"`
}

func (Warehouse) TableName() string { return "warehouses" }

// WarehouseStock is the per-warehouse stock row for a product. The
// (warehouse_id, product_id) pair is unique; ReservedQuantity counts units
// allocated to unfulfilled orders and never exceeds StockQuantity.
type WarehouseStock struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	WarehouseID      uint `gorm:"not null;uniqueIndex:idx_warehouse_product" json:"warehouse_id"`
	ProductID        uint `gorm:"not null;uniqueIndex:idx_warehouse_product;index" json:"product_id"`
	StockQuantity    int  `gorm:"not null;default:0" json:"stock_quantity"`
	ReservedQuantity int  `gorm:"not null;default:0" json:"reserved_quantity"`
	ReorderLevel     int  `gorm:"not null;default:0" json:"reorder_level"`
}

func (WarehouseStock) TableName() string { return "warehouse_stocks" }
