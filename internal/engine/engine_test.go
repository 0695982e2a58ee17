package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cryptodesk/internal/advisor"
	"cryptodesk/internal/config"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/ledger"
	"cryptodesk/internal/models"
	"cryptodesk/internal/orders"
	"cryptodesk/internal/risk"
	"cryptodesk/internal/router"
	"cryptodesk/internal/store"
	"cryptodesk/internal/venue"
)

type testHarness struct {
	engine *Engine
	store  store.DataStore
	feed   *feed.Feed
	venue  *venue.SimVenue
	risk   *risk.Engine
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "engine_test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := feed.New()
	f.Update(models.PriceInfo{Symbol: "BTC", Price: 65000, UpdatedAt: time.Now()})

	sim := venue.NewSimVenue("sim")
	sim.SetPrice("BTC/USDT", 65000)
	sim.SetGasCost(0)

	riskCfg := config.RiskConfig{
		VolatilityHaltPct: 20,
		MaxPositionPct:    20,
		AnomalyTradeLimit: 50,
		AnomalyWindow:     time.Hour,
		MaxLeverage:       10,
		VolatilitySamples: 10,
	}
	routerCfg := config.RouterConfig{
		VenueTimeout:  time.Second,
		RouteDeadline: 2 * time.Second,
	}
	feeCfg := config.FeeConfig{TradingFeeRate: 0.001, PlatformMultiplier: 1.5}

	validator := orders.NewValidator(riskCfg)
	ordersSvc := orders.NewService(st, validator, f, zerolog.Nop())
	riskEngine := risk.NewEngine(st, f, riskCfg, zerolog.Nop())
	settler := ledger.NewSettler(st, feeCfg, zerolog.Nop())
	r := router.New([]venue.Venue{sim}, f, routerCfg, zerolog.Nop())
	gate := advisor.NewGate(&config.AdvisorConfig{Enabled: true, ConfidenceThreshold: 80})

	eng := New(ordersSvc, validator, riskEngine, r, settler, f, st, nil, gate, zerolog.Nop())

	// Quote-asset funds so a 0.1 BTC order stays inside the position cap.
	if err := st.CreditBalance(context.Background(), "user1", "USDT", 100000); err != nil {
		t.Fatalf("Failed to credit quote balance: %v", err)
	}

	return &testHarness{engine: eng, store: st, feed: f, venue: sim, risk: riskEngine}
}

func (h *testHarness) fund(t *testing.T, amount float64) {
	t.Helper()
	if err := h.store.CreditBalance(context.Background(), "user1", models.PlatformToken, amount); err != nil {
		t.Fatalf("Failed to credit fee balance: %v", err)
	}
}

func marketBuy(amount float64) *models.Order {
	return &models.Order{
		UserID:     "user1",
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		Side:       models.OrderSideBuy,
		Type:       models.OrderTypeMarket,
		Amount:     amount,
	}
}

func TestExecute_MarketBuyEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	h.fund(t, 1000)

	order := marketBuy(0.1)
	result, err := h.engine.Execute(ctx, order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result == nil {
		t.Fatal("expected an execution result")
	}
	if result.Venue != "sim" {
		t.Errorf("venue = %s, want sim", result.Venue)
	}
	if result.TxRef == "" {
		t.Error("settlement reference missing")
	}

	settled, err := h.store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if settled.Status != models.StatusFilled {
		t.Errorf("order status = %s, want FILLED", settled.Status)
	}

	holding, err := h.store.GetHolding(ctx, "user1", "BTC")
	if err != nil {
		t.Fatalf("GetHolding() error = %v", err)
	}
	if holding.Amount != 0.1 {
		t.Errorf("holding = %f, want 0.1", holding.Amount)
	}
}

func TestExecute_InvalidOrderPersistedAsRejected(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	order := marketBuy(0.1)
	order.Type = models.OrderTypeLimit // no limit price

	_, err := h.engine.Execute(ctx, order)
	if !errors.Is(err, orders.ErrMissingLimit) {
		t.Fatalf("Execute() error = %v, want ErrMissingLimit", err)
	}

	rejected, err := h.store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("rejected order not persisted: %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}
	if rejected.RejectReason == "" {
		t.Error("rejection reason missing")
	}
}

func TestExecute_HaltedEngineRejectsOrder(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	h.fund(t, 1000)

	// A crash across the market trips the breaker mid-flow.
	h.feed.Update(models.PriceInfo{Symbol: "BTC", Price: 40000, Change24hPct: -40, UpdatedAt: time.Now()})

	order := marketBuy(0.1)
	_, err := h.engine.Execute(ctx, order)
	if !errors.Is(err, risk.ErrHalted) {
		t.Fatalf("Execute() error = %v, want ErrHalted", err)
	}
	if !h.risk.Halted() {
		t.Error("risk engine should be halted")
	}

	rejected, _ := h.store.GetOrder(ctx, order.ID)
	if rejected.Status != models.StatusRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}

	// The next order is refused while the halt stands.
	next := marketBuy(0.1)
	if _, err := h.engine.Execute(ctx, next); !errors.Is(err, risk.ErrHalted) {
		t.Errorf("Execute() after halt error = %v, want ErrHalted", err)
	}

	// Operator clears the halt and trading resumes. The 24h reading must
	// calm down too or the next check trips again.
	h.feed.Update(models.PriceInfo{Symbol: "BTC", Price: 40000, Change24hPct: -5, UpdatedAt: time.Now()})
	h.venue.SetPrice("BTC/USDT", 40000)
	h.risk.ClearHalt()
	resumed := marketBuy(0.1)
	if _, err := h.engine.Execute(ctx, resumed); err != nil {
		t.Errorf("Execute() after ClearHalt error = %v", err)
	}
}

func TestExecute_UntriggeredStopOrderIsParked(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	h.fund(t, 1000)

	order := &models.Order{
		UserID:     "user1",
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		Side:       models.OrderSideSell,
		Type:       models.OrderTypeStop,
		Amount:     0.1,
		StopPrice:  60000, // market at 65000, not crossed
	}

	result, err := h.engine.Execute(ctx, order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != nil {
		t.Fatalf("untriggered stop should not settle, got %+v", result)
	}

	parked, err := h.store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if parked.Status != models.StatusOpen {
		t.Errorf("status = %s, want OPEN", parked.Status)
	}
}

func TestExecute_LimitOrderOutsideLimitRejected(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	h.fund(t, 1000)

	order := marketBuy(0.1)
	order.Type = models.OrderTypeLimit
	order.LimitPrice = 60000 // market at ~65000, buy cannot fill

	_, err := h.engine.Execute(ctx, order)
	if !errors.Is(err, orders.ErrPriceOutOfRange) {
		t.Fatalf("Execute() error = %v, want ErrPriceOutOfRange", err)
	}

	rejected, _ := h.store.GetOrder(ctx, order.ID)
	if rejected.Status != models.StatusRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}
}

func TestExecute_InsufficientFeeBalanceRejected(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	// No platform-token balance at all.

	order := marketBuy(0.1)
	_, err := h.engine.Execute(ctx, order)
	if !errors.Is(err, store.ErrInsufficientFeeBalance) {
		t.Fatalf("Execute() error = %v, want ErrInsufficientFeeBalance", err)
	}

	rejected, _ := h.store.GetOrder(ctx, order.ID)
	if rejected.Status != models.StatusRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}
}

func TestExecute_NoPriceAnywhereLeavesOrderOpen(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	h.fund(t, 1000)
	h.venue.SetFailing(true)

	order := marketBuy(0.1)
	order.BaseAsset = "DOGE" // no venue price, no feed price

	_, err := h.engine.Execute(ctx, order)
	if !errors.Is(err, router.ErrNoPriceAvailable) {
		t.Fatalf("Execute() error = %v, want ErrNoPriceAvailable", err)
	}

	open, err := h.store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if open.Status != models.StatusOpen {
		t.Errorf("status = %s, want OPEN for retry", open.Status)
	}
}

func TestExecuteAdvised_GateBlocksLowConfidence(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	h.fund(t, 1000)

	order := marketBuy(0.1)
	advice := &models.Advice{Action: "BUY", Confidence: 50}

	_, err := h.engine.ExecuteAdvised(ctx, order, advice)
	if err == nil {
		t.Fatal("expected gate to block low-confidence advice")
	}

	// The blocked order was never created.
	if order.ID != "" {
		if _, err := h.store.GetOrder(ctx, order.ID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("blocked order should not be persisted, lookup err = %v", err)
		}
	}
}

func TestExecuteAdvised_ConfidentAdviceExecutes(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	h.fund(t, 1000)

	order := marketBuy(0.1)
	advice := &models.Advice{Action: "BUY", Confidence: 95}

	result, err := h.engine.ExecuteAdvised(ctx, order, advice)
	if err != nil {
		t.Fatalf("ExecuteAdvised() error = %v", err)
	}
	if result == nil {
		t.Fatal("expected an execution result")
	}
}
