package models

import "time"

// Advice represents AI-generated trade commentary. It is advisory input to
// the execution gate and never the sole authorization for a trade.
type Advice struct {
	ID         string
	OrderID    string
	Symbol     string
	Action     string // BUY, SELL, HOLD
	Confidence float64
	Commentary string
	CreatedAt  time.Time
}
