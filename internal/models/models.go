// Package models provides domain models for the trading core.
package models

import "time"

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeStop         OrderType = "STOP"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusOpen            OrderStatus = "OPEN"
	StatusFilled          OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// PriceInfo represents a snapshot from the reference price feed.
type PriceInfo struct {
	Symbol       string
	Price        float64
	Change24hPct float64
	Volume24h    float64
	UpdatedAt    time.Time
}

// PlatformToken is the internal unit of account platform fees are charged in.
const PlatformToken = "CDK"
