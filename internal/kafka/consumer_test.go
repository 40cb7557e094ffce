package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/earnings-gateway/internal/gateway"
	"github.com/trogers1052/earnings-gateway/internal/models"
	"github.com/trogers1052/earnings-gateway/internal/table"
)

// MockRecordWriter records calls and answers UpdateByKey with a fixed status
type MockRecordWriter struct {
	UpdateStatus string
	Err          error

	SaveCalls   []gateway.Payload
	UpdateCalls []gateway.Payload
}

func (m *MockRecordWriter) Save(ctx context.Context, p gateway.Payload) (string, error) {
	m.SaveCalls = append(m.SaveCalls, p)
	return "Appended new row 2", m.Err
}

func (m *MockRecordWriter) UpdateByKey(ctx context.Context, p gateway.Payload) (string, error) {
	m.UpdateCalls = append(m.UpdateCalls, p)
	return m.UpdateStatus, m.Err
}

// MockAuditLog remembers which events it has seen
type MockAuditLog struct {
	seen map[string]bool
	Err  error
}

func (m *MockAuditLog) RecordTradeEvent(ctx context.Context, event models.TradeEvent) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	key := event.EventType + ":" + event.Data.Symbol + ":" + event.Data.OpenTime
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func openedTrade() models.EarningsTrade {
	return models.EarningsTrade{
		Symbol:         "aapl",
		ExpiryShort:    "2025-01-31",
		ExpiryLong:     "2025-03-21",
		Strike:         decimal.RequireFromString("230"),
		Quantity:       decimal.RequireFromString("3"),
		EarningsDate:   "2025-01-30",
		When:           models.WhenAfterClose,
		Status:         models.ResultOpen,
		OpenTime:       "2025-01-30T15:45:12.123456",
		KellyFraction:  decimal.RequireFromString("0.1"),
		SpreadCost:     decimal.RequireFromString("2.15"),
		PortfolioValue: decimal.RequireFromString("25000"),
	}
}

func message(t *testing.T, eventType string, trade models.EarningsTrade) kafka.Message {
	t.Helper()

	data, err := json.Marshal(models.TradeEvent{
		EventType: eventType,
		Source:    "trade_workflow",
		Data:      trade,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	return kafka.Message{Key: []byte(trade.Symbol), Value: data}
}

func newTestConsumer(writer RecordWriter) *Consumer {
	return &Consumer{writer: writer, logger: slog.Default()}
}

func TestOpenedPayload(t *testing.T) {
	p, err := OpenedPayload(openedTrade())
	require.NoError(t, err)

	assert.Empty(t, p.Action)
	assert.Equal(t, "AAPL", p.Fields[models.ColumnTicker].String())
	assert.Equal(t, "2025-01-30", p.Fields[models.ColumnOpenDate].String())
	assert.Equal(t, "AMC", p.Fields[models.ColumnWhen].String())
	assert.Equal(t, table.Number, p.Fields[models.ColumnStrike].Kind)
	assert.Equal(t, "2.15", p.Fields[models.ColumnSpreadCost].String())
	assert.Equal(t, models.ResultOpen, p.Fields[models.ColumnResult].String())
	assert.Equal(t, "0.1", p.Fields[models.ColumnKellyFraction].String())

	_, ok := p.Fields[models.ColumnCloseDate]
	assert.False(t, ok)
	_, ok = p.Fields[models.ColumnNotes]
	assert.False(t, ok, "empty strings are not written")
}

func TestClosedPayload(t *testing.T) {
	trade := openedTrade()
	trade.Status = ""
	trade.CloseTime = "2025-01-31T09:46:00-05:00"
	trade.CloseCost = decimal.RequireFromString("3.40")

	p, err := ClosedPayload(trade)
	require.NoError(t, err)

	assert.Equal(t, models.ResultClosed, p.Fields[models.ColumnResult].String())
	assert.Equal(t, "2025-01-31", p.Fields[models.ColumnCloseDate].String())
	assert.Equal(t, "3.4", p.Fields[models.ColumnCloseCost].String())

	_, ok := p.Fields[models.ColumnSpreadCost]
	assert.False(t, ok, "closing does not rewrite the opening columns")
}

func TestPayloadRequiresKey(t *testing.T) {
	trade := openedTrade()
	trade.Symbol = " "
	_, err := OpenedPayload(trade)
	assert.Error(t, err)

	trade = openedTrade()
	trade.OpenTime = ""
	_, err = ClosedPayload(trade)
	assert.Error(t, err)
}

func TestDatePart(t *testing.T) {
	tests := map[string]string{
		"2025-01-30T15:45:12.123456": "2025-01-30",
		"2025-01-30T15:45:12Z":       "2025-01-30",
		"2025-01-30":                 "2025-01-30",
		"2025-01-30 09:30":           "2025-01-30",
		"":                           "",
		"yesterday":                  "yesterday",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, datePart(in), "input %q", in)
	}
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("opened trade not yet recorded is saved", func(t *testing.T) {
		writer := &MockRecordWriter{UpdateStatus: gateway.StatusNotFound}
		consumer := newTestConsumer(writer)

		require.NoError(t, consumer.processMessage(ctx, message(t, models.EventTradeOpened, openedTrade())))
		assert.Len(t, writer.UpdateCalls, 1)
		require.Len(t, writer.SaveCalls, 1)
		assert.Equal(t, "AAPL", writer.SaveCalls[0].Fields[models.ColumnTicker].String())
	})

	t.Run("redelivered opened trade is not appended twice", func(t *testing.T) {
		writer := &MockRecordWriter{UpdateStatus: gateway.StatusUpdated}
		consumer := newTestConsumer(writer)

		require.NoError(t, consumer.processMessage(ctx, message(t, models.EventTradeOpened, openedTrade())))
		assert.Len(t, writer.UpdateCalls, 1)
		assert.Empty(t, writer.SaveCalls)
	})

	t.Run("closed trade without a row is dropped", func(t *testing.T) {
		writer := &MockRecordWriter{UpdateStatus: gateway.StatusNotFound}
		consumer := newTestConsumer(writer)

		require.NoError(t, consumer.processMessage(ctx, message(t, models.EventTradeClosed, openedTrade())))
		assert.Len(t, writer.UpdateCalls, 1)
		assert.Empty(t, writer.SaveCalls)
	})

	t.Run("writer errors are returned", func(t *testing.T) {
		writer := &MockRecordWriter{Err: errors.New("no active sheet")}
		consumer := newTestConsumer(writer)

		err := consumer.processMessage(ctx, message(t, models.EventTradeClosed, openedTrade()))
		assert.ErrorContains(t, err, "no active sheet")
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		writer := &MockRecordWriter{}
		consumer := newTestConsumer(writer)

		require.NoError(t, consumer.processMessage(ctx, message(t, "TRADE_DETECTED", openedTrade())))
		assert.Empty(t, writer.UpdateCalls)
		assert.Empty(t, writer.SaveCalls)
	})

	t.Run("malformed message", func(t *testing.T) {
		consumer := newTestConsumer(&MockRecordWriter{})
		err := consumer.processMessage(ctx, kafka.Message{Value: []byte("{")})
		assert.Error(t, err)
	})
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicates are still applied", func(t *testing.T) {
		writer := &MockRecordWriter{UpdateStatus: gateway.StatusUpdated}
		audit := &MockAuditLog{}
		consumer := &Consumer{writer: writer, audit: audit, logger: slog.Default()}

		msg := message(t, models.EventTradeOpened, openedTrade())
		require.NoError(t, consumer.processMessage(ctx, msg))
		require.NoError(t, consumer.processMessage(ctx, msg))

		assert.Len(t, audit.seen, 1)
		assert.Len(t, writer.UpdateCalls, 2)
	})

	t.Run("audit failures do not block the table", func(t *testing.T) {
		writer := &MockRecordWriter{UpdateStatus: gateway.StatusNotFound}
		audit := &MockAuditLog{Err: errors.New("connection refused")}
		consumer := &Consumer{writer: writer, audit: audit, logger: slog.Default()}

		require.NoError(t, consumer.processMessage(ctx, message(t, models.EventTradeOpened, openedTrade())))
		assert.Len(t, writer.SaveCalls, 1)
	})

	t.Run("ignored events are not audited", func(t *testing.T) {
		audit := &MockAuditLog{}
		consumer := &Consumer{writer: &MockRecordWriter{}, audit: audit, logger: slog.Default()}

		require.NoError(t, consumer.processMessage(ctx, message(t, "TRADE_DETECTED", openedTrade())))
		assert.Empty(t, audit.seen)
	})
}

func TestTradeLifecycleAgainstGateway(t *testing.T) {
	ctx := context.Background()
	m := table.NewMemory(models.EarningsHeaders...)
	gw := gateway.New(m)
	consumer := newTestConsumer(gw)

	trade := openedTrade()
	require.NoError(t, consumer.processMessage(ctx, message(t, models.EventTradeOpened, trade)))
	require.NoError(t, consumer.processMessage(ctx, message(t, models.EventTradeOpened, trade)))
	assert.Equal(t, 2, m.Len(), "header plus one trade row")

	open, err := gw.List(ctx, models.ResultOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)

	trade.Status = models.ResultClosed
	trade.CloseTime = "2025-01-31T09:46:00"
	trade.CloseCost = decimal.RequireFromString("3.4")
	require.NoError(t, consumer.processMessage(ctx, message(t, models.EventTradeClosed, trade)))

	open, err = gw.List(ctx, models.ResultOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	closed, err := gw.List(ctx, models.ResultClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "2025-01-31", closed[0].Get(models.ColumnCloseDate).String())
	assert.Equal(t, "3.4", closed[0].Get(models.ColumnCloseCost).String())
	assert.Equal(t, "2.15", closed[0].Get(models.ColumnSpreadCost).String())
}
