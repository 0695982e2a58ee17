package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
	"cryptodesk/internal/store"
)

// Settler computes fees and commits settlements. All ledger mutations for
// one settlement happen in a single store transaction: fee debit, holding
// adjustment, OCO sibling cancellation, and the immutable transaction
// record commit together or not at all.
type Settler struct {
	store  store.DataStore
	cfg    config.FeeConfig
	stub   SettlementStub
	logger zerolog.Logger
}

// NewSettler creates a settler.
func NewSettler(st store.DataStore, cfg config.FeeConfig, logger zerolog.Logger) *Settler {
	return &Settler{
		store:  st,
		cfg:    cfg,
		logger: logger.With().Str("component", "settlement").Logger(),
	}
}

// Settle executes one settlement for an order at the routed quote.
// Idempotent per order id: settling an already-filled order returns the
// existing result without any mutation.
func (s *Settler) Settle(ctx context.Context, order *models.Order, quote *models.ExecutionQuote) (*models.ExecutionResult, error) {
	fees := ComputeFees(order.Amount, quote.Price, s.cfg)

	// Pre-check the fee balance so a clearly broke account never reaches
	// the claim; the store re-verifies inside the transaction.
	balance, err := s.store.GetBalance(ctx, order.UserID, models.PlatformToken)
	if err != nil {
		return nil, fmt.Errorf("read fee balance: %w", err)
	}
	if balance.Amount < fees.PlatformFee {
		return nil, fmt.Errorf("%w: need %.8f %s, have %.8f",
			store.ErrInsufficientFeeBalance, fees.PlatformFee, models.PlatformToken, balance.Amount)
	}

	now := time.Now().UTC()
	record, err := s.store.Settle(ctx, store.SettlementParams{
		Order:          order,
		Venue:          quote.Venue,
		ExecutionPrice: quote.Price,
		TotalValue:     fees.TotalValue,
		TradingFee:     fees.TradingFee,
		PlatformFee:    fees.PlatformFee,
		GasCost:        quote.GasCost,
		TxRef:          s.stub.Broadcast(order.ID, now),
	})
	if errors.Is(err, store.ErrAlreadySettled) {
		existing, readErr := s.store.GetTransactionByOrder(ctx, order.ID)
		if readErr != nil {
			return nil, fmt.Errorf("order %s already settled but record unreadable: %w", order.ID, readErr)
		}
		return resultFromTransaction(existing, quote.GasCost), nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("venue", record.Venue).
		Float64("price", record.ExecutionPrice).
		Float64("total_value", record.TotalValue).
		Float64("platform_fee", record.PlatformFee).
		Str("tx_ref", record.TxRef).
		Msg("Trade settled")

	return resultFromTransaction(record, quote.GasCost), nil
}

// ExecuteStop settles a triggered stop order at the reference price. It
// implements the risk engine's StopExecutor.
func (s *Settler) ExecuteStop(ctx context.Context, order *models.Order, price float64) error {
	_, err := s.Settle(ctx, order, &models.ExecutionQuote{
		Quote: models.Quote{
			Venue:        "reference",
			Price:        price,
			OutputAmount: order.Amount * price,
			FetchedAt:    time.Now(),
		},
		Reference: true,
	})
	return err
}

func resultFromTransaction(t *models.Transaction, gasCost float64) *models.ExecutionResult {
	return &models.ExecutionResult{
		OrderID:        t.OrderID,
		Venue:          t.Venue,
		ExecutionPrice: t.ExecutionPrice,
		TotalValue:     t.TotalValue,
		TradingFee:     t.TradingFee,
		PlatformFee:    t.PlatformFee,
		GasCost:        gasCost,
		TxRef:          t.TxRef,
		SettledAt:      t.CreatedAt,
	}
}
