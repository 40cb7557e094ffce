package models

import "time"

// Earnings sheet column names
const (
	ColumnTicker         = "Ticker"
	ColumnOpenDate       = "Open Date"
	ColumnEarningsDate   = "Earnings Date"
	ColumnWhen           = "When"
	ColumnExpiryShort    = "Expiry Short"
	ColumnExpiryLong     = "Expiry Long"
	ColumnStrike         = "Strike"
	ColumnQuantity       = "Quantity"
	ColumnSpreadCost     = "Spread Cost"
	ColumnResult         = "Result"
	ColumnCloseDate      = "Close Date"
	ColumnCloseCost      = "Close Cost"
	ColumnKellyFraction  = "Kelly Fraction"
	ColumnPortfolioValue = "Portfolio Value"
	ColumnNotes          = "Notes"
)

// Result column values
const (
	ResultOpen   = "OPEN"
	ResultClosed = "CLOSED"
)

// EarningsHeaders is the header row used when bootstrapping an empty table.
// Result, Close Date and Close Cost sit inside the first 12 columns so that a
// bounded update can close a trade.
var EarningsHeaders = []string{
	ColumnTicker,
	ColumnOpenDate,
	ColumnEarningsDate,
	ColumnWhen,
	ColumnExpiryShort,
	ColumnExpiryLong,
	ColumnStrike,
	ColumnQuantity,
	ColumnSpreadCost,
	ColumnResult,
	ColumnCloseDate,
	ColumnCloseCost,
	ColumnKellyFraction,
	ColumnPortfolioValue,
	ColumnNotes,
}

// Record event type constants
const (
	EventRecordInserted = "RECORD_INSERTED"
	EventRecordAppended = "RECORD_APPENDED"
	EventRecordUpdated  = "RECORD_UPDATED"
)

// RecordEvent represents a Kafka event for a row change
type RecordEvent struct {
	EventType string            `json:"event_type"`
	Table     string            `json:"table"`
	Row       int               `json:"row"`
	Ticker    string            `json:"ticker,omitempty"`
	OpenDate  string            `json:"open_date,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
