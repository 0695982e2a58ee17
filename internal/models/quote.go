package models

import "time"

// Quote represents a single venue's response to a price request.
// Absent quotes are modeled as "no result" at the adapter level and never
// reach this type with a zero price.
type Quote struct {
	Venue        string
	Price        float64
	OutputAmount float64
	GasCost      float64
	FetchedAt    time.Time
}

// EffectiveOutput returns the cost-adjusted output used for venue ranking.
func (q *Quote) EffectiveOutput() float64 {
	return q.OutputAmount - q.GasCost
}

// ExecutionQuote is the quote selected by the router for settlement.
type ExecutionQuote struct {
	Quote
	// Reference is true when no venue responded and the price came from
	// the reference feed instead.
	Reference bool
	// Preferred is true when the caller's preferred venue won by override.
	Preferred bool
}

// ExecutionResult contains the outcome of a settled trade.
type ExecutionResult struct {
	OrderID        string
	Venue          string
	ExecutionPrice float64
	TotalValue     float64
	TradingFee     float64
	PlatformFee    float64
	GasCost        float64
	TxRef          string
	SettledAt      time.Time
}
