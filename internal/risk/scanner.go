package risk

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cryptodesk/internal/models"
	"cryptodesk/internal/orders"
	"cryptodesk/internal/store"
)

// Scanner periodically re-evaluates open stop and trailing-stop orders
// against the reference feed: trailing stops are tightened first, then
// triggered stops are executed through the engine. Trailing recalculation
// is event-driven off feed updates rather than continuous; the scan
// interval bounds the worst-case reaction time.
type Scanner struct {
	engine   *Engine
	store    store.DataStore
	interval time.Duration
	logger   zerolog.Logger
}

// NewScanner creates a stop-loss scanner.
func NewScanner(engine *Engine, st store.DataStore, interval time.Duration, logger zerolog.Logger) *Scanner {
	return &Scanner{
		engine:   engine,
		store:    st,
		interval: interval,
		logger:   logger.With().Str("component", "stop_scanner").Logger(),
	}
}

// Run scans until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("Stop scan pass failed")
			}
		}
	}
}

// ScanOnce runs one scan pass. Safe to call concurrently with the loop:
// every action it takes is idempotent.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	open, err := s.store.ListOpenStopOrders(ctx)
	if err != nil {
		return err
	}

	for i := range open {
		order := &open[i]

		if order.Type == models.OrderTypeTrailingStop {
			price, err := s.engine.feed.Price(order.BaseAsset)
			if err == nil {
				tightened := orders.TightenedTrailingStop(order, price)
				if tightened != order.StopPrice {
					if err := s.store.TightenStopPrice(ctx, order.ID, tightened, order.Side); err != nil {
						s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("Trailing tighten failed")
					} else {
						order.StopPrice = tightened
					}
				}
			}
		}

		if _, err := s.engine.CheckStopLoss(ctx, order); err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("Stop-loss check failed")
		}
	}
	return nil
}
