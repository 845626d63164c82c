package queue

import "fmt"

// MovementMessage is the stock-movement event carried through the outbox
// stream and Kafka. MovementID is the idempotency key for the whole chain.
type MovementMessage struct {
	MovementID     string `json:"movement_id"`
	WarehouseID    uint   `json:"warehouse_id"`
	ProductID      uint   `json:"product_id"`
	MovementType   string `json:"movement_type"`
	QuantityChange int    `json:"quantity_change"`
	QuantityBefore int    `json:"quantity_before"`
	QuantityAfter  int    `json:"quantity_after"`
	Reference      string `json:"reference,omitempty"`
}

// Validate does minimal field checks so consumers never process dirty
// messages.
func (m MovementMessage) Validate() error {
	if m.MovementID == "" {
		return fmt.Errorf("movement_id is required")
	}
	if m.WarehouseID == 0 {
		return fmt.Errorf("warehouse_id is required")
	}
	if m.ProductID == 0 {
		return fmt.Errorf("product_id is required")
	}
	switch m.MovementType {
	case "set", "adjust", "reserve", "release", "fulfill":
	default:
		return fmt.Errorf("unknown movement_type %q", m.MovementType)
	}
	if m.QuantityAfter < 0 {
		return fmt.Errorf("quantity_after must not be negative")
	}
	return nil
}
