// Package ledger computes trading fees and applies settlements against the
// backing store as one atomic unit.
package ledger

import "cryptodesk/internal/config"

// Fees holds the computed fees for one settlement. The trading fee is
// denominated in the quote asset; the platform fee is charged in the
// internal platform token.
type Fees struct {
	TotalValue  float64
	TradingFee  float64
	PlatformFee float64
}

// ComputeFees derives the fee breakdown for a trade.
func ComputeFees(amount, executionPrice float64, cfg config.FeeConfig) Fees {
	total := amount * executionPrice
	trading := total * cfg.TradingFeeRate
	return Fees{
		TotalValue:  total,
		TradingFee:  trading,
		PlatformFee: trading * cfg.PlatformMultiplier,
	}
}
