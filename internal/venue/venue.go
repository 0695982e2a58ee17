// Package venue provides quote source adapters for external liquidity venues.
package venue

import (
	"context"
	"errors"
	"fmt"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
)

// ErrNoQuote is returned when a venue has no executable quote for the pair.
// The router treats it the same as a timeout: the venue simply does not
// contribute a candidate.
var ErrNoQuote = errors.New("no quote available")

// Venue defines the interface for a single liquidity source.
type Venue interface {
	Name() string
	// GetQuote returns a quote for swapping amount of assetIn into assetOut,
	// or ErrNoQuote when the venue cannot price the pair. A returned quote
	// always has a positive price.
	GetQuote(ctx context.Context, assetIn, assetOut string, amount float64) (*models.Quote, error)
}

// FromConfig builds the configured venue set.
func FromConfig(venues []config.VenueConfig) ([]Venue, error) {
	var out []Venue
	for _, vc := range venues {
		switch vc.Kind {
		case "http":
			out = append(out, NewHTTPVenue(vc))
		case "sim":
			out = append(out, NewSimVenue(vc.Name))
		default:
			return nil, fmt.Errorf("unknown venue kind %q for %s", vc.Kind, vc.Name)
		}
	}
	return out, nil
}
