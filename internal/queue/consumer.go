package queue

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"furnistore/internal/model"
)

// Consumer materializes movement events into stock_movements audit rows.
type Consumer struct {
	r   *kafka.Reader
	db  *gorm.DB
	log *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, db *gorm.DB, log *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		db:  db,
		log: log,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancelled or connection lost
		}

		var msg MovementMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.Warn("consumer unmarshal", zap.Error(err))
			continue
		}
		if err := msg.Validate(); err != nil {
			c.log.Warn("consumer dropped dirty message", zap.Error(err))
			continue
		}

		row := &model.StockMovement{
			MovementID:     msg.MovementID,
			WarehouseID:    msg.WarehouseID,
			ProductID:      msg.ProductID,
			MovementType:   msg.MovementType,
			QuantityChange: msg.QuantityChange,
			QuantityBefore: msg.QuantityBefore,
			QuantityAfter:  msg.QuantityAfter,
			Reference:      msg.Reference,
		}

		if err := c.db.Create(row).Error; err != nil {
			// Replayed movement ids hit the unique index; treat as done.
			if errorsLikeUnique(err) {
				continue
			}
			c.log.Error("consumer insert movement", zap.String("movement_id", msg.MovementID), zap.Error(err))
			continue
		}
	}
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
