package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/earnings-gateway/internal/models"
)

// RecordTradeEvent stores a consumed trade event for audit. It reports false
// when the same event was already stored.
func (db *DB) RecordTradeEvent(ctx context.Context, event models.TradeEvent) (bool, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal trade: %w", err)
	}

	query := `
		INSERT INTO trade_events (event_type, source, symbol, open_time, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_type, source, symbol, open_time) DO NOTHING
	`
	result, err := db.conn.ExecContext(ctx, query,
		event.EventType, event.Source, strings.ToUpper(event.Data.Symbol), event.Data.OpenTime, payload, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to record trade event: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// GetTradeEventsBySymbol returns the newest stored events for a symbol
func (db *DB) GetTradeEventsBySymbol(ctx context.Context, symbol string, limit int) ([]*models.TradeEventRecord, error) {
	query := `
		SELECT id, event_type, source, symbol, open_time, payload, received_at
		FROM trade_events
		WHERE symbol = $1
		ORDER BY received_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade events: %w", err)
	}
	defer rows.Close()

	var events []*models.TradeEventRecord
	for rows.Next() {
		var e models.TradeEventRecord
		var payload []byte

		err := rows.Scan(&e.ID, &e.EventType, &e.Source, &e.Symbol, &e.OpenTime, &payload, &e.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade event: %w", err)
		}

		if err := json.Unmarshal(payload, &e.Trade); err != nil {
			return nil, fmt.Errorf("trade event %d: %w", e.ID, err)
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}
