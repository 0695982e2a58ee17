// Package orders provides order validation, the order state machine, and
// linked-order (OCO) management.
package orders

import (
	"errors"
	"fmt"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
)

// Validation sentinel errors. All are terminal rejections: the order is
// persisted as REJECTED with the reason, never retried.
var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrMissingLimit     = errors.New("limit order requires a limit price")
	ErrMissingStop      = errors.New("stop order requires a stop price")
	ErrConflictingPrice = errors.New("order carries a price field its type does not use")
	ErrInvalidTrailing  = errors.New("trailing percent must be in (0, 100)")
	ErrLeverageExceeded = errors.New("leverage exceeds maximum")
	ErrPriceOutOfRange  = errors.New("execution price outside limit")
	ErrStopNotTriggered = errors.New("stop price not triggered")
)

// Validator enforces order-type preconditions.
type Validator struct {
	cfg config.RiskConfig
}

// NewValidator creates a validator with the given risk configuration.
func NewValidator(cfg config.RiskConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate checks an order's fields against its type's rules. A nil return
// means the order may proceed to routing.
func (v *Validator) Validate(order *models.Order) error {
	if order.Amount <= 0 {
		return fmt.Errorf("%w: got %f", ErrInvalidAmount, order.Amount)
	}
	if order.Side != models.OrderSideBuy && order.Side != models.OrderSideSell {
		return fmt.Errorf("invalid order side: %s", order.Side)
	}

	switch order.Type {
	case models.OrderTypeMarket:
		if order.LimitPrice != 0 || order.StopPrice != 0 {
			return ErrConflictingPrice
		}
	case models.OrderTypeLimit:
		if order.LimitPrice <= 0 {
			return ErrMissingLimit
		}
		if order.StopPrice != 0 {
			return ErrConflictingPrice
		}
	case models.OrderTypeStop:
		if order.StopPrice <= 0 {
			return ErrMissingStop
		}
		if order.LimitPrice != 0 {
			return ErrConflictingPrice
		}
	case models.OrderTypeTrailingStop:
		if order.TrailingPercent <= 0 || order.TrailingPercent >= 100 {
			return fmt.Errorf("%w: got %f", ErrInvalidTrailing, order.TrailingPercent)
		}
	default:
		return fmt.Errorf("unknown order type: %s", order.Type)
	}

	if order.Margin {
		if order.Leverage < 1 || order.Leverage > v.cfg.MaxLeverage {
			return fmt.Errorf("%w: %d (max %d)", ErrLeverageExceeded, order.Leverage, v.cfg.MaxLeverage)
		}
	}

	return nil
}

// CheckLimitExecutable verifies a limit order may fill at the discovered
// execution price: a buy fills only at or below the limit, a sell only at
// or above it.
func (v *Validator) CheckLimitExecutable(order *models.Order, executionPrice float64) error {
	if order.Type != models.OrderTypeLimit {
		return nil
	}
	switch order.Side {
	case models.OrderSideBuy:
		if executionPrice > order.LimitPrice {
			return fmt.Errorf("%w: %.8f > limit %.8f", ErrPriceOutOfRange, executionPrice, order.LimitPrice)
		}
	case models.OrderSideSell:
		if executionPrice < order.LimitPrice {
			return fmt.Errorf("%w: %.8f < limit %.8f", ErrPriceOutOfRange, executionPrice, order.LimitPrice)
		}
	}
	return nil
}

// CheckStopTriggered verifies a stop order's trigger condition against the
// current market price. A sell stop triggers once the market trades at or
// below the stop price; a buy stop at or above it.
func (v *Validator) CheckStopTriggered(order *models.Order, marketPrice float64) error {
	if order.Type != models.OrderTypeStop && order.Type != models.OrderTypeTrailingStop {
		return nil
	}
	switch order.Side {
	case models.OrderSideSell:
		if marketPrice > order.StopPrice {
			return fmt.Errorf("%w: market %.8f above stop %.8f", ErrStopNotTriggered, marketPrice, order.StopPrice)
		}
	case models.OrderSideBuy:
		if marketPrice < order.StopPrice {
			return fmt.Errorf("%w: market %.8f below stop %.8f", ErrStopNotTriggered, marketPrice, order.StopPrice)
		}
	}
	return nil
}

// InitialTrailingStop computes the initial stop price for a trailing-stop
// order from the current price: below it for a protective sell, above it
// for a protective buy.
func InitialTrailingStop(currentPrice, trailingPercent float64, side models.OrderSide) float64 {
	if side == models.OrderSideSell {
		return currentPrice * (1 - trailingPercent/100)
	}
	return currentPrice * (1 + trailingPercent/100)
}

// TightenedTrailingStop returns the stop price a trailing order should
// carry after a price update, never loosening the previous stop. For a
// protective sell the stop only ratchets up; for a protective buy it only
// ratchets down.
func TightenedTrailingStop(order *models.Order, currentPrice float64) float64 {
	candidate := InitialTrailingStop(currentPrice, order.TrailingPercent, order.Side)
	if order.StopPrice == 0 {
		return candidate
	}
	if order.Side == models.OrderSideSell {
		if candidate > order.StopPrice {
			return candidate
		}
	} else if candidate < order.StopPrice {
		return candidate
	}
	return order.StopPrice
}

// LiquidationPrice computes the advisory liquidation price for a leveraged
// position. Display math only; no margin call is simulated.
func LiquidationPrice(price float64, leverage int, side models.OrderSide, maintenanceMargin float64) float64 {
	if leverage < 1 {
		return 0
	}
	if side == models.OrderSideBuy {
		return price * (1 - 1/float64(leverage) + maintenanceMargin)
	}
	return price * (1 + 1/float64(leverage) - maintenanceMargin)
}
