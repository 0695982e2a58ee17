// Package engine composes validation, risk control, routing and settlement
// into the end-to-end trade execution flow.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cryptodesk/internal/advisor"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/ledger"
	"cryptodesk/internal/models"
	"cryptodesk/internal/notify"
	"cryptodesk/internal/orders"
	"cryptodesk/internal/risk"
	"cryptodesk/internal/router"
	"cryptodesk/internal/store"
)

// Engine is the trade execution orchestrator. Per order the stages run
// strictly in sequence: validation, risk pre-checks, price discovery,
// settlement, risk post-checks. Any rejection short-circuits the rest and
// the engine makes at most one settlement attempt per invocation.
type Engine struct {
	orders    *orders.Service
	validator *orders.Validator
	risk      *risk.Engine
	router    *router.Router
	settler   *ledger.Settler
	feed      *feed.Feed
	store     store.DataStore
	notifier  notify.Notifier
	gate      *advisor.Gate
	logger    zerolog.Logger
}

// New creates the orchestrator. The settler is also wired into the risk
// engine as its stop executor so scanner-triggered stops settle through
// the same atomic path.
func New(
	ordersSvc *orders.Service,
	validator *orders.Validator,
	riskEngine *risk.Engine,
	r *router.Router,
	settler *ledger.Settler,
	f *feed.Feed,
	st store.DataStore,
	notifier notify.Notifier,
	gate *advisor.Gate,
	logger zerolog.Logger,
) *Engine {
	riskEngine.SetStopExecutor(settler)
	return &Engine{
		orders:    ordersSvc,
		validator: validator,
		risk:      riskEngine,
		router:    r,
		settler:   settler,
		feed:      f,
		store:     st,
		notifier:  notifier,
		gate:      gate,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// Execute runs the full flow for one order. The order is persisted first:
// rejections at any stage leave a REJECTED record with the reason, and a
// stop or trailing order whose trigger has not been reached stays OPEN for
// the scanner, returning a nil result.
func (e *Engine) Execute(ctx context.Context, order *models.Order) (*models.ExecutionResult, error) {
	logger := e.logger.With().Str("order_id", orderID(order)).Logger()

	// Validation. A malformed order is persisted as rejected so the
	// reason survives.
	if err := e.validator.Validate(order); err != nil {
		e.persistRejected(ctx, order, err.Error())
		return nil, err
	}
	if err := e.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	// Risk pre-checks: circuit breaker, then position size.
	if e.risk.Halted() {
		return nil, e.reject(ctx, order, risk.ErrHalted, "trading halted by circuit breaker")
	}
	if event, err := e.risk.CheckCircuitBreaker(ctx); err != nil {
		return nil, err
	} else if event != nil {
		e.notifyRisk(event)
		return nil, e.reject(ctx, order, risk.ErrHalted, event.Detail)
	}

	if refPrice, err := e.feed.Price(order.BaseAsset); err == nil {
		event, err := e.risk.CheckPositionSize(ctx, order.UserID, order.Amount*refPrice)
		if err != nil {
			return nil, err
		}
		if event != nil {
			e.notifyRisk(event)
			return nil, e.reject(ctx, order, risk.ErrHalted, event.Detail)
		}
	}

	// Stop and trailing orders are parked for the scanner unless the
	// trigger has already been crossed.
	if order.Type == models.OrderTypeStop || order.Type == models.OrderTypeTrailingStop {
		price, err := e.feed.Price(order.BaseAsset)
		if err != nil {
			logger.Info().Msg("Stop order parked, no reference price yet")
			return nil, nil
		}
		if err := e.validator.CheckStopTriggered(order, price); err != nil {
			logger.Info().Float64("stop", order.StopPrice).Msg("Stop order parked")
			return nil, nil
		}
	}

	// Price discovery.
	quote, allQuotes, err := e.router.Route(ctx, order.BaseAsset, order.QuoteAsset,
		order.Side, order.Amount, order.PreferredVenue)
	if err != nil {
		// Transient: the order stays open for a later retry.
		logger.Warn().Int("quotes", len(allQuotes)).Err(err).Msg("Price discovery failed")
		return nil, err
	}

	// Limit orders fill only inside their limit.
	if err := e.validator.CheckLimitExecutable(order, quote.Price); err != nil {
		return nil, e.reject(ctx, order, err, err.Error())
	}

	// Settlement: one attempt, atomic in the store.
	result, err := e.settler.Settle(ctx, order, quote)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFeeBalance) || errors.Is(err, store.ErrInsufficientHolding) {
			return nil, e.reject(ctx, order, err, err.Error())
		}
		return nil, err
	}

	// Risk post-check: anomaly scan is advisory and never unwinds the
	// settlement.
	if event, err := e.risk.CheckAnomaly(ctx, order.UserID); err != nil {
		logger.Warn().Err(err).Msg("Anomaly check failed")
	} else if event != nil {
		e.notifyRisk(event)
	}

	e.notifyTrade(result, order)

	logger.Info().
		Str("venue", result.Venue).
		Float64("price", result.ExecutionPrice).
		Msg("Order executed")
	return result, nil
}

// ExecuteAdvised runs the agent-driven path: the advice and the risk
// verdict both gate execution before the normal flow runs. Advisory
// output alone never authorizes the trade.
func (e *Engine) ExecuteAdvised(ctx context.Context, order *models.Order, advice *models.Advice) (*models.ExecutionResult, error) {
	riskApproved := !e.risk.Halted()
	if riskApproved {
		if refPrice, err := e.feed.Price(order.BaseAsset); err == nil {
			event, err := e.risk.CheckPositionSize(ctx, order.UserID, order.Amount*refPrice)
			if err != nil {
				return nil, err
			}
			riskApproved = event == nil
		}
	}

	gateResult := e.gate.Check(advice, riskApproved)
	if !gateResult.ShouldExecute {
		return nil, fmt.Errorf("execution gate blocked order: %s", gateResult.BlockReason)
	}

	return e.Execute(ctx, order)
}

// reject transitions a persisted order to REJECTED and returns the typed
// cause.
func (e *Engine) reject(ctx context.Context, order *models.Order, cause error, reason string) error {
	if err := e.orders.Reject(ctx, order.ID, reason); err != nil {
		e.logger.Error().Err(err).Str("order_id", order.ID).Msg("Failed to persist rejection")
	}
	return cause
}

// persistRejected writes a rejected record for an order that failed
// validation before it was ever created.
func (e *Engine) persistRejected(ctx context.Context, order *models.Order, reason string) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	order.Status = models.StatusRejected
	order.RejectReason = reason
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Leverage == 0 {
		order.Leverage = 1
	}
	if err := e.store.CreateOrder(ctx, order); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist rejected order")
	}
}

func (e *Engine) notifyTrade(result *models.ExecutionResult, order *models.Order) {
	if e.notifier == nil {
		return
	}
	// Fire and forget: notification failure never affects the settlement.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	go func() {
		defer cancel()
		if err := e.notifier.SendTrade(ctx, result, order); err != nil {
			e.logger.Warn().Err(err).Msg("Trade notification failed")
		}
	}()
}

func (e *Engine) notifyRisk(event *models.RiskEvent) {
	if e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	go func() {
		defer cancel()
		if err := e.notifier.SendRiskEvent(ctx, event); err != nil {
			e.logger.Warn().Err(err).Msg("Risk notification failed")
		}
	}()
}

func orderID(order *models.Order) string {
	if order.ID != "" {
		return order.ID
	}
	return "(new)"
}
