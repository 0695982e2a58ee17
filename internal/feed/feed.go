// Package feed provides the reference price feed: a read-side snapshot
// cache filled by a polling or streaming ingester.
package feed

import (
	"errors"
	"sync"
	"time"

	"cryptodesk/internal/models"
)

// ErrPriceUnavailable is returned when no reference price is known for a
// symbol.
var ErrPriceUnavailable = errors.New("reference price unavailable")

// maxAge is how stale a snapshot may be before it stops counting as a
// reference price.
const maxAge = 5 * time.Minute

// Feed is the in-memory snapshot of the reference price feed. Writers are
// the ingesters; readers are the router fallback and the risk engine.
type Feed struct {
	mu        sync.RWMutex
	snapshots map[string]models.PriceInfo
}

// New creates an empty feed.
func New() *Feed {
	return &Feed{snapshots: make(map[string]models.PriceInfo)}
}

// Update stores a new snapshot for a symbol.
func (f *Feed) Update(info models.PriceInfo) {
	if info.UpdatedAt.IsZero() {
		info.UpdatedAt = time.Now()
	}
	f.mu.Lock()
	f.snapshots[info.Symbol] = info
	f.mu.Unlock()
}

// Get returns the snapshot for a symbol.
func (f *Feed) Get(symbol string) (models.PriceInfo, error) {
	f.mu.RLock()
	info, ok := f.snapshots[symbol]
	f.mu.RUnlock()
	if !ok || time.Since(info.UpdatedAt) > maxAge {
		return models.PriceInfo{}, ErrPriceUnavailable
	}
	return info, nil
}

// Price returns the reference price for a symbol.
func (f *Feed) Price(symbol string) (float64, error) {
	info, err := f.Get(symbol)
	if err != nil {
		return 0, err
	}
	if info.Price <= 0 {
		return 0, ErrPriceUnavailable
	}
	return info.Price, nil
}

// ChangeSample returns the most recent 24h change-percent readings across
// tracked symbols, up to n. The circuit breaker samples these.
func (f *Feed) ChangeSample(n int) []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	changes := make([]float64, 0, len(f.snapshots))
	for _, info := range f.snapshots {
		if time.Since(info.UpdatedAt) > maxAge {
			continue
		}
		changes = append(changes, info.Change24hPct)
		if n > 0 && len(changes) == n {
			break
		}
	}
	return changes
}

// Symbols returns all tracked symbols.
func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	symbols := make([]string, 0, len(f.snapshots))
	for s := range f.snapshots {
		symbols = append(symbols, s)
	}
	return symbols
}
