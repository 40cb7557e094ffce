package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/earnings-gateway/internal/gateway"
	"github.com/trogers1052/earnings-gateway/internal/models"
)

// RecordWriter is the part of the gateway the consumer writes through
type RecordWriter interface {
	Save(ctx context.Context, p gateway.Payload) (string, error)
	UpdateByKey(ctx context.Context, p gateway.Payload) (string, error)
}

// TradeAuditLog stores consumed trade events
type TradeAuditLog interface {
	RecordTradeEvent(ctx context.Context, event models.TradeEvent) (bool, error)
}

// Consumer applies trade events from the trade workflow to the earnings table
type Consumer struct {
	reader *kafka.Reader
	writer RecordWriter
	audit  TradeAuditLog
	logger *slog.Logger
}

// NewConsumer creates a new Kafka consumer for trade events. audit may be nil.
func NewConsumer(brokers []string, topic, groupID string, writer RecordWriter, audit TradeAuditLog, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		reader: reader,
		writer: writer,
		audit:  audit,
		logger: logger,
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer", "topic", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("error reading message", "error", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("error processing message",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.logger.Debug("received message",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)

	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != models.EventTradeOpened && event.EventType != models.EventTradeClosed {
		c.logger.Debug("ignoring event type", "event_type", event.EventType)
		return nil
	}

	c.record(ctx, event)

	switch event.EventType {
	case models.EventTradeOpened:
		return c.tradeOpened(ctx, event.Data)
	default:
		return c.tradeClosed(ctx, event.Data)
	}
}

// record writes the event to the audit log. Duplicates are still applied to
// the table.
func (c *Consumer) record(ctx context.Context, event models.TradeEvent) {
	if c.audit == nil {
		return
	}

	inserted, err := c.audit.RecordTradeEvent(ctx, event)
	if err != nil {
		c.logger.Warn("failed to record trade event",
			"event_type", event.EventType,
			"symbol", event.Data.Symbol,
			"error", err,
		)
		return
	}
	if !inserted {
		c.logger.Info("trade event redelivered",
			"event_type", event.EventType,
			"symbol", event.Data.Symbol,
		)
	}
}

// tradeOpened records a new trade. A redelivered event finds its row and
// rewrites it instead of appending a duplicate.
func (c *Consumer) tradeOpened(ctx context.Context, trade models.EarningsTrade) error {
	p, err := OpenedPayload(trade)
	if err != nil {
		return err
	}

	status, err := c.writer.UpdateByKey(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w", trade.Symbol, err)
	}
	if status != gateway.StatusNotFound {
		c.logger.Info("trade already recorded", "symbol", trade.Symbol, "status", status)
		return nil
	}

	status, err = c.writer.Save(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to save trade %s: %w", trade.Symbol, err)
	}

	c.logger.Info("trade recorded", "symbol", trade.Symbol, "status", status)
	return nil
}

func (c *Consumer) tradeClosed(ctx context.Context, trade models.EarningsTrade) error {
	p, err := ClosedPayload(trade)
	if err != nil {
		return err
	}

	status, err := c.writer.UpdateByKey(ctx, p)
	if err != nil {
		if errors.Is(err, gateway.ErrMissingKey) {
			return fmt.Errorf("trade %s has no key: %w", trade.Symbol, err)
		}
		return fmt.Errorf("failed to close trade %s: %w", trade.Symbol, err)
	}

	if status == gateway.StatusNotFound {
		c.logger.Warn("closed trade has no open row",
			"symbol", trade.Symbol,
			"open_time", trade.OpenTime,
		)
		return nil
	}

	c.logger.Info("trade closed", "symbol", trade.Symbol)
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
