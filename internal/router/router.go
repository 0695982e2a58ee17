// Package router implements best-execution routing across liquidity venues.
package router

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cryptodesk/internal/config"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/models"
	"cryptodesk/internal/venue"
)

// ErrNoPriceAvailable is returned when no venue produced a valid quote and
// the reference feed has no price either. Transient: the caller may retry
// the whole request later.
var ErrNoPriceAvailable = errors.New("no price available")

// Router fans out quote requests to all configured venues, ranks the
// results and selects the best executable quote.
type Router struct {
	venues []venue.Venue
	feed   *feed.Feed
	cfg    config.RouterConfig
	logger zerolog.Logger
}

// New creates a router over the given venues with the feed as fallback.
func New(venues []venue.Venue, f *feed.Feed, cfg config.RouterConfig, logger zerolog.Logger) *Router {
	return &Router{
		venues: venues,
		feed:   f,
		cfg:    cfg,
		logger: logger.With().Str("component", "router").Logger(),
	}
}

// Route queries every venue concurrently under the per-venue timeout and
// selects a winner. Selection order: the preferred venue if it produced a
// valid quote, otherwise the quote maximizing effective output
// (outputAmount - gasCost), otherwise the reference feed. All collected
// quotes are returned alongside the winner for audit.
func (r *Router) Route(ctx context.Context, baseAsset, quoteAsset string, side models.OrderSide, amount float64, preferredVenue string) (*models.ExecutionQuote, []models.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RouteDeadline)
	defer cancel()

	quotes := r.fanOut(ctx, baseAsset, quoteAsset, side, amount)

	if chosen := r.selectQuote(quotes, preferredVenue); chosen != nil {
		r.logger.Debug().
			Str("venue", chosen.Venue).
			Float64("price", chosen.Price).
			Int("candidates", len(quotes)).
			Bool("preferred", chosen.Preferred).
			Msg("Route selected")
		return chosen, quotes, nil
	}

	// No venue responded: fall back to the reference price feed.
	price, err := r.feed.Price(baseAsset)
	if err != nil {
		return nil, quotes, ErrNoPriceAvailable
	}
	r.logger.Warn().
		Str("pair", baseAsset+"/"+quoteAsset).
		Float64("price", price).
		Msg("No venue quotes, using reference price")
	return &models.ExecutionQuote{
		Quote: models.Quote{
			Venue:        "reference",
			Price:        price,
			OutputAmount: amount * price,
			FetchedAt:    time.Now(),
		},
		Reference: true,
	}, quotes, nil
}

// fanOut queries all venues in parallel, each bounded by the per-venue
// timeout. Errors and timeouts drop the candidate silently. The sender
// side joins before returning, so no goroutine outlives the call.
func (r *Router) fanOut(ctx context.Context, baseAsset, quoteAsset string, side models.OrderSide, amount float64) []models.Quote {
	assetIn, assetOut := quoteAsset, baseAsset
	if side == models.OrderSideSell {
		assetIn, assetOut = baseAsset, quoteAsset
	}

	results := make(chan models.Quote, len(r.venues))
	var wg sync.WaitGroup

	for _, v := range r.venues {
		wg.Add(1)
		go func(v venue.Venue) {
			defer wg.Done()

			vctx, cancel := context.WithTimeout(ctx, r.cfg.VenueTimeout)
			defer cancel()

			quote, err := v.GetQuote(vctx, assetIn, assetOut, amount)
			if err != nil {
				r.logger.Debug().Str("venue", v.Name()).Err(err).Msg("Venue produced no quote")
				return
			}
			if quote == nil || quote.Price <= 0 {
				return
			}
			results <- *quote
		}(v)
	}

	wg.Wait()
	close(results)

	quotes := make([]models.Quote, 0, len(r.venues))
	for q := range results {
		quotes = append(quotes, q)
	}
	return quotes
}

// selectQuote picks the winner among collected quotes. A preferred venue
// with a valid quote wins regardless of ranking.
func (r *Router) selectQuote(quotes []models.Quote, preferredVenue string) *models.ExecutionQuote {
	if len(quotes) == 0 {
		return nil
	}

	if preferredVenue != "" {
		for _, q := range quotes {
			if q.Venue == preferredVenue {
				return &models.ExecutionQuote{Quote: q, Preferred: true}
			}
		}
	}

	sorted := make([]models.Quote, len(quotes))
	copy(sorted, quotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveOutput() > sorted[j].EffectiveOutput()
	})
	return &models.ExecutionQuote{Quote: sorted[0]}
}
