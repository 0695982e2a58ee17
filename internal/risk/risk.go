// Package risk implements the independent risk-control checks: circuit
// breaker, stop-loss scan, position-size cap, and anomaly detection.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cryptodesk/internal/config"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/models"
	"cryptodesk/internal/store"
)

// ErrHalted is returned by the orchestrator path when the circuit breaker
// has tripped and new executions are refused.
var ErrHalted = errors.New("trading halted by circuit breaker")

// StopExecutor executes a triggered stop order. The orchestrator provides
// the settlement-backed implementation; without one the scan only
// transitions the order.
type StopExecutor interface {
	ExecuteStop(ctx context.Context, order *models.Order, price float64) error
}

// Engine runs the risk checks. Each check is idempotent, individually
// invokable, and treats missing data as "not applicable" rather than
// failure. Every triggered check persists exactly one RiskEvent before its
// action is considered complete.
type Engine struct {
	store  store.DataStore
	feed   *feed.Feed
	cfg    config.RiskConfig
	logger zerolog.Logger

	mu       sync.RWMutex
	halted   bool
	haltedAt time.Time

	stopExecutor StopExecutor
}

// NewEngine creates a risk engine.
func NewEngine(st store.DataStore, f *feed.Feed, cfg config.RiskConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  st,
		feed:   f,
		cfg:    cfg,
		logger: logger.With().Str("component", "risk").Logger(),
	}
}

// SetStopExecutor wires the settlement-backed stop execution path.
func (e *Engine) SetStopExecutor(ex StopExecutor) {
	e.stopExecutor = ex
}

// Halted reports whether the circuit breaker is currently tripped.
func (e *Engine) Halted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.halted
}

// ClearHalt resets the circuit breaker. Operator action.
func (e *Engine) ClearHalt() {
	e.mu.Lock()
	e.halted = false
	e.mu.Unlock()
	e.logger.Info().Msg("Circuit breaker cleared")
}

// CheckCircuitBreaker samples recent 24h change-percent readings across
// assets and trips when their mean absolute value exceeds the volatility
// threshold. Returns the persisted event when tripped, nil otherwise. The
// check signals the orchestrator to refuse new executions; it does not
// cancel open orders itself.
func (e *Engine) CheckCircuitBreaker(ctx context.Context) (*models.RiskEvent, error) {
	changes := e.feed.ChangeSample(e.cfg.VolatilitySamples)
	if len(changes) == 0 {
		// No data: check not applicable.
		return nil, nil
	}

	var sum float64
	for _, c := range changes {
		sum += math.Abs(c)
	}
	mean := sum / float64(len(changes))

	if mean <= e.cfg.VolatilityHaltPct {
		return nil, nil
	}

	event := &models.RiskEvent{
		Type:      models.RiskCircuitBreaker,
		Severity:  models.SeverityHigh,
		Action:    models.ActionHaltTrading,
		Metric:    mean,
		Threshold: e.cfg.VolatilityHaltPct,
		Detail:    fmt.Sprintf("mean absolute 24h change %.2f%% across %d assets", mean, len(changes)),
	}
	if err := e.store.SaveRiskEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record circuit breaker event: %w", err)
	}

	e.mu.Lock()
	e.halted = true
	e.haltedAt = time.Now()
	e.mu.Unlock()

	e.logger.Error().
		Float64("mean_abs_change", mean).
		Float64("threshold", e.cfg.VolatilityHaltPct).
		Msg("Circuit breaker tripped, trading halted")
	return event, nil
}

// CheckStopLoss evaluates one stop order against the current reference
// price. When the price has crossed the stop in the adverse direction it
// records the event and executes the stop. Checking an already-terminal
// order is a no-op, not an error.
func (e *Engine) CheckStopLoss(ctx context.Context, order *models.Order) (*models.RiskEvent, error) {
	if order.Status.IsTerminal() {
		return nil, nil
	}
	if order.StopPrice <= 0 {
		return nil, nil
	}

	price, err := e.feed.Price(order.BaseAsset)
	if err != nil {
		// No reference price: check not applicable.
		return nil, nil
	}

	crossed := (order.Side == models.OrderSideSell && price <= order.StopPrice) ||
		(order.Side == models.OrderSideBuy && price >= order.StopPrice)
	if !crossed {
		return nil, nil
	}

	event := &models.RiskEvent{
		Type:      models.RiskStopLoss,
		Severity:  models.SeverityMedium,
		Action:    models.ActionExecuteStopLoss,
		UserID:    order.UserID,
		OrderID:   order.ID,
		Metric:    price,
		Threshold: order.StopPrice,
		Detail:    fmt.Sprintf("%s stop on %s triggered at %.8f", order.Side, order.Symbol(), price),
	}
	if err := e.store.SaveRiskEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record stop-loss event: %w", err)
	}

	if e.stopExecutor != nil {
		if err := e.stopExecutor.ExecuteStop(ctx, order, price); err != nil {
			// A concurrent fill of the same order is the safe outcome.
			if errors.Is(err, store.ErrAlreadySettled) {
				return event, nil
			}
			return event, fmt.Errorf("execute stop: %w", err)
		}
	} else if err := e.store.TransitionOrder(ctx, order.ID, models.StatusFilled, ""); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return event, nil
		}
		return event, err
	}

	e.logger.Warn().
		Str("order_id", order.ID).
		Float64("price", price).
		Float64("stop", order.StopPrice).
		Msg("Stop-loss executed")
	return event, nil
}

// CheckPositionSize rejects a proposed position exceeding the configured
// fraction of the user's total portfolio value. Returns the persisted
// event when the cap is breached, nil otherwise. A zero portfolio makes
// the check not applicable.
func (e *Engine) CheckPositionSize(ctx context.Context, userID string, proposedValue float64) (*models.RiskEvent, error) {
	total, err := e.portfolioValue(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("portfolio value: %w", err)
	}
	if total <= 0 {
		return nil, nil
	}

	ratio := proposedValue / total
	limit := e.cfg.MaxPositionPct / 100
	if ratio <= limit {
		return nil, nil
	}

	event := &models.RiskEvent{
		Type:      models.RiskPositionSize,
		Severity:  models.SeverityMedium,
		Action:    models.ActionRejectOrder,
		UserID:    userID,
		Metric:    ratio,
		Threshold: limit,
		Detail:    fmt.Sprintf("proposed %.2f of %.2f portfolio (%.1f%% > %.1f%%)", proposedValue, total, ratio*100, e.cfg.MaxPositionPct),
	}
	if err := e.store.SaveRiskEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record position-size event: %w", err)
	}

	e.logger.Warn().
		Str("user_id", userID).
		Float64("ratio", ratio).
		Msg("Position-size cap breached")
	return event, nil
}

// CheckAnomaly counts the user's settled trades within the trailing window
// and flags high-frequency activity for review. Advisory only: the event
// never blocks execution.
func (e *Engine) CheckAnomaly(ctx context.Context, userID string) (*models.RiskEvent, error) {
	since := time.Now().Add(-e.cfg.AnomalyWindow)
	count, err := e.store.CountUserTransactionsSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("count trades: %w", err)
	}
	if count <= e.cfg.AnomalyTradeLimit {
		return nil, nil
	}

	event := &models.RiskEvent{
		Type:      models.RiskAnomaly,
		Severity:  models.SeverityHigh,
		Action:    models.ActionFlagForReview,
		UserID:    userID,
		Metric:    float64(count),
		Threshold: float64(e.cfg.AnomalyTradeLimit),
		Detail:    fmt.Sprintf("%d trades in trailing %s", count, e.cfg.AnomalyWindow),
	}
	if err := e.store.SaveRiskEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record anomaly event: %w", err)
	}

	e.logger.Warn().
		Str("user_id", userID).
		Int("trades", count).
		Msg("High-frequency trading flagged for review")
	return event, nil
}

// portfolioValue sums the user's holdings at reference prices plus quote
// and platform-token balances. Holdings without a reference price are
// skipped.
func (e *Engine) portfolioValue(ctx context.Context, userID string) (float64, error) {
	holdings, err := e.store.ListHoldings(ctx, userID)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, h := range holdings {
		price, err := e.feed.Price(h.Asset)
		if err != nil {
			continue
		}
		total += h.Amount * price
	}

	for _, asset := range []string{"USDT", models.PlatformToken} {
		b, err := e.store.GetBalance(ctx, userID, asset)
		if err != nil {
			return 0, err
		}
		total += b.Amount
	}
	return total, nil
}
