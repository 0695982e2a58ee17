package models

import "time"

// Balance represents a user's balance in one currency.
type Balance struct {
	UserID    string
	Asset     string
	Amount    float64
	UpdatedAt time.Time
}

// Holding represents a user's position in a traded asset.
type Holding struct {
	UserID       string
	Asset        string
	Amount       float64
	AveragePrice float64
	UpdatedAt    time.Time
}

// Transaction is the immutable record written once per settlement.
type Transaction struct {
	ID             string
	OrderID        string
	UserID         string
	BaseAsset      string
	QuoteAsset     string
	Side           OrderSide
	Amount         float64
	ExecutionPrice float64
	TotalValue     float64
	TradingFee     float64
	PlatformFee    float64
	Venue          string
	TxRef          string
	CreatedAt      time.Time
}

// LedgerMutation records a single balance or holding delta applied during
// settlement, linked to the transaction that caused it.
type LedgerMutation struct {
	UserID        string
	Asset         string
	Delta         float64
	ResultingAmt  float64
	TransactionID string
	AppliedAt     time.Time
}
