package model

import (
	"time"

	"gorm.io/gorm"
)

// Stock movement types recorded in the audit trail.
const (
	MovementSet     = "set"     // absolute upsert of a stock row
	MovementAdjust  = "adjust"  // delta adjustment
	MovementReserve = "reserve" // order placed, units allocated
	MovementRelease = "release" // order cancelled, allocation returned
	MovementFulfill = "fulfill" // order shipped, stock and allocation consumed
)

// StockMovement is one audit row per stock mutation, materialized
// asynchronously from the movement event stream. MovementID makes replayed
// events no-ops.
type StockMovement struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	MovementID     string `gorm:"size:64;uniqueIndex;not null" json:"movement_id"`
	WarehouseID    uint   `gorm:"not null;index" json:"warehouse_id"`
	ProductID      uint   `gorm:"not null;index" json:"product_id"`
	MovementType   string `gorm:"size:16;not null" json:"movement_type"`
	QuantityChange int    `gorm:"not null" json:"quantity_change"`
	QuantityBefore int    `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int    `gorm:"not null" json:"quantity_after"`
	Reference      string `gorm:"size:128" json:"reference,omitempty"`
}

func (StockMovement) TableName() string { return "stock_movements" }
