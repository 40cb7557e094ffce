package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade event type constants
const (
	EventTradeOpened = "TRADE_OPENED"
	EventTradeClosed = "TRADE_CLOSED"
)

// Earnings announcement timing
const (
	WhenBeforeOpen = "BMO"
	WhenAfterClose = "AMC"
)

// TradeEvent is a Kafka event emitted by the trade workflow when a calendar
// spread is opened or closed
type TradeEvent struct {
	EventType string        `json:"event_type"`
	Source    string        `json:"source"`
	Data      EarningsTrade `json:"data"`
	Timestamp time.Time     `json:"timestamp"`
}

// EarningsTrade is a calendar spread opened ahead of an earnings announcement
type EarningsTrade struct {
	Symbol         string          `json:"symbol"`
	ExpiryShort    string          `json:"expiry_short"`
	ExpiryLong     string          `json:"expiry_long"`
	Strike         decimal.Decimal `json:"strike"`
	Quantity       decimal.Decimal `json:"quantity"`
	EarningsDate   string          `json:"earnings_date"`
	When           string          `json:"when,omitempty"`
	Status         string          `json:"status"`
	OpenTime       string          `json:"open_time"`
	CloseTime      string          `json:"close_time,omitempty"`
	CloseCost      decimal.Decimal `json:"close_cost,omitempty"`
	KellyFraction  decimal.Decimal `json:"kelly_fraction,omitempty"`
	SpreadCost     decimal.Decimal `json:"spread_cost"`
	PortfolioValue decimal.Decimal `json:"portfolio_value,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// TradeEventRecord is a consumed trade event kept for audit
type TradeEventRecord struct {
	ID         int           `json:"id"`
	EventType  string        `json:"event_type"`
	Source     string        `json:"source"`
	Symbol     string        `json:"symbol"`
	OpenTime   string        `json:"open_time"`
	Trade      EarningsTrade `json:"trade"`
	ReceivedAt time.Time     `json:"received_at"`
}
