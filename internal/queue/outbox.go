package queue

import (
	"context"
	"strconv"

	rd "github.com/redis/go-redis/v9"
)

// Outbox appends movement events to a Redis Stream inside the write path.
// The relay forwards entries to Kafka asynchronously, so a Kafka outage
// never blocks or fails an admin stock mutation.
type Outbox struct {
	rdb    *rd.Client
	stream string
}

func NewOutbox(rdb *rd.Client, stream string) *Outbox {
	return &Outbox{rdb: rdb, stream: stream}
}

// Record appends one movement event. Values are flat strings so the relay
// can parse them without a JSON envelope.
func (o *Outbox) Record(ctx context.Context, msg MovementMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: map[string]interface{}{
			"movement_id":     msg.MovementID,
			"warehouse_id":    strconv.FormatUint(uint64(msg.WarehouseID), 10),
			"product_id":      strconv.FormatUint(uint64(msg.ProductID), 10),
			"movement_type":   msg.MovementType,
			"quantity_change": strconv.Itoa(msg.QuantityChange),
			"quantity_before": strconv.Itoa(msg.QuantityBefore),
			"quantity_after":  strconv.Itoa(msg.QuantityAfter),
			"reference":       msg.Reference,
		},
	}).Err()
}
