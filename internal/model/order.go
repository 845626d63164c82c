package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus tracks an order through the reservation lifecycle.
type OrderStatus int

const (
	OrderPending   OrderStatus = iota // placed, stock reserved
	OrderFulfilled                    // shipped, reservation consumed
	OrderCancelled                    // cancelled, reservation released
)

// Order is a storefront order. Placing one reserves units in a warehouse;
// fulfilling or cancelling it settles the reservation.
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderNo     string          `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	WarehouseID uint            `gorm:"not null;index" json:"warehouse_id"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	Status      OrderStatus     `gorm:"not null;default:0;index" json:"status"`

	CustomerName  string `gorm:"size:128;not null" json:"customer_name"`
	CustomerPhone string `gorm:"size:32" json:"customer_phone,omitempty"`
	CustomerEmail string `gorm:"size:128" json:"customer_email,omitempty"`
}

func (Order) TableName() string { return "orders" }
