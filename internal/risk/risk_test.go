package risk

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cryptodesk/internal/config"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/models"
	"cryptodesk/internal/store"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		VolatilityHaltPct: 20,
		MaxPositionPct:    20,
		AnomalyTradeLimit: 50,
		AnomalyWindow:     time.Hour,
		VolatilitySamples: 10,
	}
}

func newTestStore(t *testing.T) store.DataStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "risk_test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func feedWithChanges(changes map[string]float64) *feed.Feed {
	f := feed.New()
	for sym, chg := range changes {
		f.Update(models.PriceInfo{
			Symbol:       sym,
			Price:        100,
			Change24hPct: chg,
			UpdatedAt:    time.Now(),
		})
	}
	return f
}

func TestCheckCircuitBreaker(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		changes  map[string]float64
		wantTrip bool
	}{
		{
			name:     "mean 25 percent trips",
			changes:  map[string]float64{"BTC": -30, "ETH": -25, "SOL": 20},
			wantTrip: true,
		},
		{
			name:     "mean 8 percent does not trip",
			changes:  map[string]float64{"BTC": -10, "ETH": 8, "SOL": -6},
			wantTrip: false,
		},
		{
			name:     "empty feed is not applicable",
			changes:  nil,
			wantTrip: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			engine := NewEngine(st, feedWithChanges(tt.changes), testRiskConfig(), zerolog.Nop())

			event, err := engine.CheckCircuitBreaker(ctx)
			if err != nil {
				t.Fatalf("CheckCircuitBreaker() error = %v", err)
			}
			if tt.wantTrip {
				if event == nil {
					t.Fatal("expected a circuit breaker event")
				}
				if !engine.Halted() {
					t.Error("engine should be halted after trip")
				}
				// The event must be durable.
				events, err := st.GetRiskEvents(ctx, store.RiskEventFilter{Type: models.RiskCircuitBreaker})
				if err != nil || len(events) != 1 {
					t.Errorf("persisted events = %d (err %v), want 1", len(events), err)
				}
			} else {
				if event != nil {
					t.Errorf("unexpected event: %+v", event)
				}
				if engine.Halted() {
					t.Error("engine should not be halted")
				}
			}
		})
	}
}

func TestClearHalt(t *testing.T) {
	st := newTestStore(t)
	f := feedWithChanges(map[string]float64{"BTC": -50})
	engine := NewEngine(st, f, testRiskConfig(), zerolog.Nop())

	if _, err := engine.CheckCircuitBreaker(context.Background()); err != nil {
		t.Fatalf("CheckCircuitBreaker() error = %v", err)
	}
	if !engine.Halted() {
		t.Fatal("engine should be halted")
	}
	engine.ClearHalt()
	if engine.Halted() {
		t.Error("engine should resume after ClearHalt")
	}
}

func TestCheckPositionSize(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	f := feed.New()
	engine := NewEngine(st, f, testRiskConfig(), zerolog.Nop())

	// Portfolio: 1000 USDT cash.
	if err := st.CreditBalance(ctx, "user1", "USDT", 1000); err != nil {
		t.Fatalf("CreditBalance() error = %v", err)
	}

	// 25% of portfolio breaches the 20% cap.
	event, err := engine.CheckPositionSize(ctx, "user1", 250)
	if err != nil {
		t.Fatalf("CheckPositionSize() error = %v", err)
	}
	if event == nil {
		t.Fatal("expected a position-size event at 25%")
	}
	if event.Action != models.ActionRejectOrder {
		t.Errorf("action = %s, want reject_order", event.Action)
	}

	// 15% passes.
	event, err = engine.CheckPositionSize(ctx, "user1", 150)
	if err != nil {
		t.Fatalf("CheckPositionSize() error = %v", err)
	}
	if event != nil {
		t.Errorf("unexpected event at 15%%: %+v", event)
	}
}

func TestCheckPositionSize_EmptyPortfolioNotApplicable(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(newTestStore(t), feed.New(), testRiskConfig(), zerolog.Nop())

	event, err := engine.CheckPositionSize(ctx, "nobody", 1000000)
	if err != nil {
		t.Fatalf("CheckPositionSize() error = %v", err)
	}
	if event != nil {
		t.Errorf("empty portfolio should not trigger, got %+v", event)
	}
}

func TestCheckAnomaly(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	cfg := testRiskConfig()
	cfg.AnomalyTradeLimit = 2
	engine := NewEngine(st, feed.New(), cfg, zerolog.Nop())

	if err := st.CreditBalance(ctx, "user1", models.PlatformToken, 10000); err != nil {
		t.Fatalf("CreditBalance() error = %v", err)
	}

	settleOne := func() {
		order := &models.Order{
			ID: uuid.NewString(), UserID: "user1", BaseAsset: "BTC", QuoteAsset: "USDT",
			Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Amount: 0.01,
			Status: models.StatusOpen, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
		if err := st.CreateOrder(ctx, order); err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		if _, err := st.Settle(ctx, store.SettlementParams{
			Order: order, Venue: "sim", ExecutionPrice: 100,
			TotalValue: 1, TradingFee: 0.001, PlatformFee: 0.0015, TxRef: uuid.NewString(),
		}); err != nil {
			t.Fatalf("Settle() error = %v", err)
		}
	}

	// At the limit: no event.
	settleOne()
	settleOne()
	event, err := engine.CheckAnomaly(ctx, "user1")
	if err != nil {
		t.Fatalf("CheckAnomaly() error = %v", err)
	}
	if event != nil {
		t.Errorf("unexpected event at limit: %+v", event)
	}

	// One past the limit: flagged for review.
	settleOne()
	event, err = engine.CheckAnomaly(ctx, "user1")
	if err != nil {
		t.Fatalf("CheckAnomaly() error = %v", err)
	}
	if event == nil {
		t.Fatal("expected an anomaly event past the limit")
	}
	if event.Action != models.ActionFlagForReview {
		t.Errorf("action = %s, want flag_for_review", event.Action)
	}
}

func TestCheckStopLoss(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	f := feed.New()
	f.Update(models.PriceInfo{Symbol: "BTC", Price: 59000, UpdatedAt: time.Now()})
	engine := NewEngine(st, f, testRiskConfig(), zerolog.Nop())

	order := &models.Order{
		ID: uuid.NewString(), UserID: "user1", BaseAsset: "BTC", QuoteAsset: "USDT",
		Side: models.OrderSideSell, Type: models.OrderTypeStop, Amount: 1,
		StopPrice: 60000, Status: models.StatusOpen,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := st.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	// 59000 <= stop 60000: triggered. Without a stop executor the engine
	// transitions the order itself.
	event, err := engine.CheckStopLoss(ctx, order)
	if err != nil {
		t.Fatalf("CheckStopLoss() error = %v", err)
	}
	if event == nil {
		t.Fatal("expected a stop-loss event")
	}
	got, _ := st.GetOrder(ctx, order.ID)
	if got.Status != models.StatusFilled {
		t.Errorf("order status = %s, want FILLED", got.Status)
	}

	// Re-checking the now-terminal order is a no-op.
	got, _ = st.GetOrder(ctx, order.ID)
	event, err = engine.CheckStopLoss(ctx, got)
	if err != nil {
		t.Fatalf("repeat CheckStopLoss() error = %v", err)
	}
	if event != nil {
		t.Errorf("terminal order produced event: %+v", event)
	}
}

func TestCheckStopLoss_NotCrossedIsNoop(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	f := feed.New()
	f.Update(models.PriceInfo{Symbol: "BTC", Price: 61000, UpdatedAt: time.Now()})
	engine := NewEngine(st, f, testRiskConfig(), zerolog.Nop())

	order := &models.Order{
		ID: uuid.NewString(), UserID: "user1", BaseAsset: "BTC", QuoteAsset: "USDT",
		Side: models.OrderSideSell, Type: models.OrderTypeStop, Amount: 1,
		StopPrice: 60000, Status: models.StatusOpen,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := st.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	event, err := engine.CheckStopLoss(ctx, order)
	if err != nil {
		t.Fatalf("CheckStopLoss() error = %v", err)
	}
	if event != nil {
		t.Errorf("uncrossed stop produced event: %+v", event)
	}
	got, _ := st.GetOrder(ctx, order.ID)
	if got.Status != models.StatusOpen {
		t.Errorf("order status = %s, want OPEN", got.Status)
	}
}
