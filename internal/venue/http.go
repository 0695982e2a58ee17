package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
)

// HTTPVenue queries a liquidity venue over its HTTP quote endpoint.
type HTTPVenue struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewHTTPVenue creates a venue adapter for an HTTP quote API.
func NewHTTPVenue(cfg config.VenueConfig) *HTTPVenue {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &HTTPVenue{
		name:    cfg.Name,
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the venue name.
func (v *HTTPVenue) Name() string {
	return v.name
}

type quoteResponse struct {
	Price        float64 `json:"price"`
	OutputAmount float64 `json:"output_amount"`
	GasCost      float64 `json:"gas_cost"`
}

// GetQuote requests a quote from the venue's API. Any transport error,
// non-200 status, or non-positive price is reported as ErrNoQuote wrapping
// the cause; the router drops the candidate either way.
func (v *HTTPVenue) GetQuote(ctx context.Context, assetIn, assetOut string, amount float64) (*models.Quote, error) {
	q := url.Values{}
	q.Set("asset_in", assetIn)
	q.Set("asset_out", assetOut)
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoQuote, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoQuote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrNoQuote, v.name, resp.StatusCode)
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrNoQuote, err)
	}
	if qr.Price <= 0 {
		return nil, ErrNoQuote
	}

	out := qr.OutputAmount
	if out == 0 {
		out = amount * qr.Price
	}

	return &models.Quote{
		Venue:        v.name,
		Price:        qr.Price,
		OutputAmount: out,
		GasCost:      qr.GasCost,
		FetchedAt:    time.Now(),
	}, nil
}
