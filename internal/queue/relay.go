package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Relay forwards movement events from the Redis Stream outbox to Kafka.
// An entry is acknowledged only after Kafka confirms the publish; failed
// entries stay pending and are retried.
type Relay struct {
	rdb      *rd.Client
	producer *Producer
	log      *zap.Logger

	stream   string
	group    string
	consumer string
}

func NewRelay(rdb *rd.Client, producer *Producer, log *zap.Logger, stream, group, consumer string) *Relay {
	return &Relay{
		rdb:      rdb,
		producer: producer,
		log:      log,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if err := r.ensureGroup(ctx); err != nil {
		r.log.Error("relay ensure group", zap.Error(err))
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// Drain this consumer's pending entries first so nothing left over
		// from a crash sits behind new traffic.
		msgs, err := r.readGroup(ctx, "0", 0)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			r.log.Warn("relay read pending", zap.Error(err))
			time.Sleep(300 * time.Millisecond)
			continue
		}
		if len(msgs) == 0 {
			msgs, err = r.readGroup(ctx, ">", 2*time.Second)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				r.log.Warn("relay read new", zap.Error(err))
				time.Sleep(300 * time.Millisecond)
				continue
			}
		}

		for _, xm := range msgs {
			if err := r.processOne(ctx, xm); err != nil {
				// Not acked; the entry stays pending for retry.
				r.log.Warn("relay process entry", zap.String("id", xm.ID), zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				break
			}
		}
	}
}

func (r *Relay) ensureGroup(ctx context.Context) error {
	err := r.rdb.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

func (r *Relay) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, streamID},
		Count:    16,
		Block:    block,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]rd.XMessage, 0, 16)
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (r *Relay) processOne(ctx context.Context, xm rd.XMessage) error {
	msg, err := ParseMovementEvent(xm.Values)
	if err != nil {
		// Dirty entries are acked and dropped so they never block the
		// stream.
		if ackErr := r.ackAndDelete(ctx, xm.ID); ackErr != nil {
			return fmt.Errorf("parse failed: %v, ack failed: %w", err, ackErr)
		}
		r.log.Warn("relay dropped dirty entry", zap.String("id", xm.ID), zap.Error(err))
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.producer.Publish(pubCtx, msg); err != nil {
		return err
	}
	return r.ackAndDelete(ctx, xm.ID)
}

func (r *Relay) ackAndDelete(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	pipe.XAck(ctx, r.stream, r.group, id)
	pipe.XDel(ctx, r.stream, id)
	_, err := pipe.Exec(ctx)
	return err
}

// ParseMovementEvent decodes the flat stream entry produced by Outbox.
func ParseMovementEvent(values map[string]interface{}) (MovementMessage, error) {
	movementID, err := getStreamString(values, "movement_id")
	if err != nil {
		return MovementMessage{}, err
	}
	warehouseStr, err := getStreamString(values, "warehouse_id")
	if err != nil {
		return MovementMessage{}, err
	}
	productStr, err := getStreamString(values, "product_id")
	if err != nil {
		return MovementMessage{}, err
	}
	movementType, err := getStreamString(values, "movement_type")
	if err != nil {
		return MovementMessage{}, err
	}
	changeStr, err := getStreamString(values, "quantity_change")
	if err != nil {
		return MovementMessage{}, err
	}
	beforeStr, err := getStreamString(values, "quantity_before")
	if err != nil {
		return MovementMessage{}, err
	}
	afterStr, err := getStreamString(values, "quantity_after")
	if err != nil {
		return MovementMessage{}, err
	}
	reference, _ := getStreamString(values, "reference")

	warehouseID, err := strconv.ParseUint(warehouseStr, 10, 64)
	if err != nil {
		return MovementMessage{}, fmt.Errorf("invalid warehouse_id %q", warehouseStr)
	}
	productID, err := strconv.ParseUint(productStr, 10, 64)
	if err != nil {
		return MovementMessage{}, fmt.Errorf("invalid product_id %q", productStr)
	}
	change, err := strconv.Atoi(changeStr)
	if err != nil {
		return MovementMessage{}, fmt.Errorf("invalid quantity_change %q", changeStr)
	}
	before, err := strconv.Atoi(beforeStr)
	if err != nil {
		return MovementMessage{}, fmt.Errorf("invalid quantity_before %q", beforeStr)
	}
	after, err := strconv.Atoi(afterStr)
	if err != nil {
		return MovementMessage{}, fmt.Errorf("invalid quantity_after %q", afterStr)
	}

	msg := MovementMessage{
		MovementID:     movementID,
		WarehouseID:    uint(warehouseID),
		ProductID:      uint(productID),
		MovementType:   movementType,
		QuantityChange: change,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reference:      reference,
	}
	if err := msg.Validate(); err != nil {
		return MovementMessage{}, err
	}
	return msg, nil
}

func getStreamString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatInt(int64(x), 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}
