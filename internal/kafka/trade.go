package kafka

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/earnings-gateway/internal/gateway"
	"github.com/trogers1052/earnings-gateway/internal/models"
	"github.com/trogers1052/earnings-gateway/internal/table"
)

const dateLayout = "2006-01-02"

// OpenedPayload maps an opened trade onto earnings table columns
func OpenedPayload(trade models.EarningsTrade) (gateway.Payload, error) {
	fields, err := keyFields(trade)
	if err != nil {
		return gateway.Payload{}, err
	}

	result := strings.ToUpper(trade.Status)
	if result == "" {
		result = models.ResultOpen
	}

	setText(fields, models.ColumnEarningsDate, trade.EarningsDate)
	setText(fields, models.ColumnWhen, strings.ToUpper(trade.When))
	setText(fields, models.ColumnExpiryShort, trade.ExpiryShort)
	setText(fields, models.ColumnExpiryLong, trade.ExpiryLong)
	fields[models.ColumnStrike] = table.NewNumber(trade.Strike)
	fields[models.ColumnQuantity] = table.NewNumber(trade.Quantity)
	fields[models.ColumnSpreadCost] = table.NewNumber(trade.SpreadCost)
	fields[models.ColumnResult] = table.NewText(result)
	setNumber(fields, models.ColumnKellyFraction, trade.KellyFraction)
	setNumber(fields, models.ColumnPortfolioValue, trade.PortfolioValue)
	setText(fields, models.ColumnNotes, trade.Notes)

	return gateway.Payload{Fields: fields}, nil
}

// ClosedPayload carries only the key and the columns closing a trade touches
func ClosedPayload(trade models.EarningsTrade) (gateway.Payload, error) {
	fields, err := keyFields(trade)
	if err != nil {
		return gateway.Payload{}, err
	}

	result := strings.ToUpper(trade.Status)
	if result == "" || result == models.ResultOpen {
		result = models.ResultClosed
	}

	closeDate := datePart(trade.CloseTime)
	if closeDate == "" {
		closeDate = time.Now().Format(dateLayout)
	}

	fields[models.ColumnResult] = table.NewText(result)
	fields[models.ColumnCloseDate] = table.NewText(closeDate)
	setNumber(fields, models.ColumnCloseCost, trade.CloseCost)
	setText(fields, models.ColumnNotes, trade.Notes)

	return gateway.Payload{Fields: fields}, nil
}

func keyFields(trade models.EarningsTrade) (map[string]table.Cell, error) {
	symbol := strings.ToUpper(strings.TrimSpace(trade.Symbol))
	if symbol == "" {
		return nil, errors.New("trade has no symbol")
	}

	openDate := datePart(trade.OpenTime)
	if openDate == "" {
		return nil, errors.New("trade " + symbol + " has no open time")
	}

	return map[string]table.Cell{
		models.ColumnTicker:   table.NewText(symbol),
		models.ColumnOpenDate: table.NewText(openDate),
	}, nil
}

// datePart reduces an ISO 8601 timestamp, with or without a zone, to its
// calendar date
func datePart(ts string) string {
	ts = strings.TrimSpace(ts)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.Format(dateLayout)
	}
	if len(ts) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, ts[:len(dateLayout)]); err == nil {
			return t.Format(dateLayout)
		}
	}
	return ts
}

func setText(fields map[string]table.Cell, column, value string) {
	if value != "" {
		fields[column] = table.NewText(value)
	}
}

func setNumber(fields map[string]table.Cell, column string, value decimal.Decimal) {
	if !value.IsZero() {
		fields[column] = table.NewNumber(value)
	}
}
