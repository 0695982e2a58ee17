package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cryptodesk/internal/config"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/models"
	"cryptodesk/internal/venue"
)

func testRouterConfig() config.RouterConfig {
	return config.RouterConfig{
		VenueTimeout:  500 * time.Millisecond,
		RouteDeadline: time.Second,
	}
}

func simVenueAt(name string, price, gasCost float64) *venue.SimVenue {
	v := venue.NewSimVenue(name)
	v.SetPrice("BTC/USDT", price)
	v.SetGasCost(gasCost)
	return v
}

func TestRoute_SelectsHighestEffectiveOutput(t *testing.T) {
	// Venue "cheap" has a slightly lower price but far lower gas, so its
	// effective output should win for this trade size.
	cheap := simVenueAt("cheap", 64000, 1)
	pricey := simVenueAt("pricey", 64000, 5000)

	r := New([]venue.Venue{cheap, pricey}, feed.New(), testRouterConfig(), zerolog.Nop())

	best, all, err := r.Route(context.Background(), "BTC", "USDT", models.OrderSideBuy, 1, "")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 candidate quotes, got %d", len(all))
	}
	if best.Venue != "cheap" {
		t.Errorf("best venue = %s, want cheap", best.Venue)
	}
	if best.Reference || best.Preferred {
		t.Errorf("unexpected flags on winner: %+v", best)
	}
}

func TestRoute_PreferredVenueOverridesRanking(t *testing.T) {
	better := simVenueAt("better", 65000, 0)
	worse := simVenueAt("worse", 64000, 100)

	r := New([]venue.Venue{better, worse}, feed.New(), testRouterConfig(), zerolog.Nop())

	best, _, err := r.Route(context.Background(), "BTC", "USDT", models.OrderSideBuy, 1, "worse")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if best.Venue != "worse" {
		t.Errorf("best venue = %s, want preferred worse", best.Venue)
	}
	if !best.Preferred {
		t.Error("winner should be flagged as preferred")
	}
}

func TestRoute_PreferredVenueUnavailableFallsBackToRanking(t *testing.T) {
	healthy := simVenueAt("healthy", 65000, 1)
	broken := simVenueAt("broken", 65000, 1)
	broken.SetFailing(true)

	r := New([]venue.Venue{healthy, broken}, feed.New(), testRouterConfig(), zerolog.Nop())

	best, _, err := r.Route(context.Background(), "BTC", "USDT", models.OrderSideBuy, 1, "broken")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if best.Venue != "healthy" {
		t.Errorf("best venue = %s, want healthy", best.Venue)
	}
	if best.Preferred {
		t.Error("fallback winner must not carry the preferred flag")
	}
}

func TestRoute_AllVenuesFailFallsBackToFeed(t *testing.T) {
	broken := simVenueAt("broken", 65000, 1)
	broken.SetFailing(true)

	f := feed.New()
	f.Update(models.PriceInfo{Symbol: "BTC", Price: 64500, UpdatedAt: time.Now()})

	r := New([]venue.Venue{broken}, f, testRouterConfig(), zerolog.Nop())

	best, all, err := r.Route(context.Background(), "BTC", "USDT", models.OrderSideBuy, 2, "")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no candidate quotes, got %d", len(all))
	}
	if !best.Reference {
		t.Error("fallback quote should be flagged as reference")
	}
	if best.Price != 64500 {
		t.Errorf("fallback price = %f, want 64500", best.Price)
	}
	if best.OutputAmount != 2*64500 {
		t.Errorf("fallback output = %f, want %f", best.OutputAmount, 2*64500.0)
	}
}

func TestRoute_NoVenuesNoFeedReturnsError(t *testing.T) {
	broken := simVenueAt("broken", 65000, 1)
	broken.SetFailing(true)

	r := New([]venue.Venue{broken}, feed.New(), testRouterConfig(), zerolog.Nop())

	_, _, err := r.Route(context.Background(), "BTC", "USDT", models.OrderSideBuy, 1, "")
	if !errors.Is(err, ErrNoPriceAvailable) {
		t.Errorf("Route() error = %v, want ErrNoPriceAvailable", err)
	}
}

func TestRoute_SlowVenueDroppedByTimeout(t *testing.T) {
	fast := simVenueAt("fast", 64000, 1)
	slow := simVenueAt("slow", 66000, 0)
	slow.SetLatency(2 * time.Second)

	cfg := config.RouterConfig{
		VenueTimeout:  100 * time.Millisecond,
		RouteDeadline: time.Second,
	}
	r := New([]venue.Venue{fast, slow}, feed.New(), cfg, zerolog.Nop())

	start := time.Now()
	best, all, err := r.Route(context.Background(), "BTC", "USDT", models.OrderSideBuy, 1, "")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Errorf("Route() took %v, slow venue was not cut off", elapsed)
	}
	if len(all) != 1 || best.Venue != "fast" {
		t.Errorf("expected only the fast venue to answer, got %d quotes, best %s", len(all), best.Venue)
	}
}
