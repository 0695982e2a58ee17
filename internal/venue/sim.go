package venue

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"cryptodesk/internal/models"
)

// SimVenue simulates a liquidity venue for sim mode and tests. Prices are
// derived from a configurable base table with a small deterministic spread
// per venue so different sim venues disagree slightly.
type SimVenue struct {
	name    string
	mu      sync.RWMutex
	prices  map[string]float64 // "BTC/USDT" -> price
	gasCost float64
	latency time.Duration
	fail    bool
}

// NewSimVenue creates a simulated venue with default prices.
func NewSimVenue(name string) *SimVenue {
	return &SimVenue{
		name: name,
		prices: map[string]float64{
			"BTC/USDT": 65000,
			"ETH/USDT": 3200,
			"SOL/USDT": 150,
		},
		gasCost: 0.5 + rand.Float64(),
	}
}

// Name returns the venue name.
func (v *SimVenue) Name() string {
	return v.name
}

// SetPrice sets the simulated price for a pair.
func (v *SimVenue) SetPrice(pair string, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices[pair] = price
}

// SetGasCost sets the simulated network cost per trade.
func (v *SimVenue) SetGasCost(cost float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gasCost = cost
}

// SetLatency adds an artificial delay before responding.
func (v *SimVenue) SetLatency(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.latency = d
}

// SetFailing makes the venue return ErrNoQuote for every request.
func (v *SimVenue) SetFailing(fail bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fail = fail
}

// spread returns a small deterministic per-venue price skew so ranking is
// stable across runs.
func (v *SimVenue) spread() float64 {
	h := fnv.New32a()
	h.Write([]byte(v.name))
	return 1 + float64(h.Sum32()%100)/100000 // up to 0.1%
}

// GetQuote returns a simulated quote, honoring the artificial latency and
// the caller's context.
func (v *SimVenue) GetQuote(ctx context.Context, assetIn, assetOut string, amount float64) (*models.Quote, error) {
	v.mu.RLock()
	latency, fail, gasCost := v.latency, v.fail, v.gasCost
	price, ok := v.prices[assetOut+"/"+assetIn]
	if !ok {
		// Quote side: price the base asset in the quote asset.
		price, ok = v.prices[assetIn+"/"+assetOut]
	}
	v.mu.RUnlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail || !ok || price <= 0 {
		return nil, ErrNoQuote
	}

	price *= v.spread()
	return &models.Quote{
		Venue:        v.name,
		Price:        price,
		OutputAmount: amount * price,
		GasCost:      gasCost,
		FetchedAt:    time.Now(),
	}, nil
}
