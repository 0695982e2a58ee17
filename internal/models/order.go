package models

import "time"

// Order represents a trading order.
type Order struct {
	ID              string
	UserID          string
	BaseAsset       string
	QuoteAsset      string
	Side            OrderSide
	Type            OrderType
	Amount          float64
	LimitPrice      float64
	StopPrice       float64
	TrailingPercent float64
	OCOLinkedID     string
	Margin          bool
	Leverage        int
	Status          OrderStatus
	FilledAmount    float64
	ExecutionPrice  float64
	RejectReason    string
	PreferredVenue  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Symbol returns the trading pair symbol, e.g. "BTC/USDT".
func (o *Order) Symbol() string {
	return o.BaseAsset + "/" + o.QuoteAsset
}

// IsOCO reports whether the order is one leg of a one-cancels-other pair.
func (o *Order) IsOCO() bool {
	return o.OCOLinkedID != ""
}

// CanTransition reports whether a status transition is permitted by the
// order state machine. Terminal states permit no transitions at all.
func (o *Order) CanTransition(to OrderStatus) bool {
	if o.Status.IsTerminal() {
		return false
	}
	switch o.Status {
	case StatusOpen, StatusPartiallyFilled:
		switch to {
		case StatusFilled, StatusPartiallyFilled, StatusCancelled, StatusRejected:
			return true
		}
	}
	return false
}
