package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
	"cryptodesk/pkg/utils"
)

// Ingester polls the external reference price API and writes snapshots
// into the feed.
type Ingester struct {
	feed    *Feed
	cfg     config.FeedConfig
	client  *http.Client
	logger  zerolog.Logger
}

// NewIngester creates a polling ingester.
func NewIngester(f *Feed, cfg config.FeedConfig, logger zerolog.Logger) *Ingester {
	return &Ingester{
		feed:   f,
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "feed_ingester").Logger(),
	}
}

// Run polls until the context is cancelled. An initial poll happens
// immediately so the feed is warm before the first tick.
func (i *Ingester) Run(ctx context.Context) {
	i.pollOnce(ctx)

	ticker := time.NewTicker(i.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.pollOnce(ctx)
		}
	}
}

type tickerResponse struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Change24hPct float64 `json:"change_24h_pct"`
	Volume24h    float64 `json:"volume_24h"`
}

func (i *Ingester) pollOnce(ctx context.Context) {
	if i.cfg.URL == "" {
		return
	}

	url := fmt.Sprintf("%s/tickers?symbols=%s", i.cfg.URL, strings.Join(i.cfg.Symbols, ","))

	tickers, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() ([]tickerResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := i.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
		}

		var out []tickerResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decoding feed response: %w", err)
		}
		return out, nil
	})
	if err != nil {
		i.logger.Warn().Err(err).Msg("Feed poll failed")
		return
	}

	now := time.Now()
	for _, t := range tickers {
		if t.Price <= 0 {
			continue
		}
		i.feed.Update(models.PriceInfo{
			Symbol:       t.Symbol,
			Price:        t.Price,
			Change24hPct: t.Change24hPct,
			Volume24h:    t.Volume24h,
			UpdatedAt:    now,
		})
	}
	i.logger.Debug().Int("symbols", len(tickers)).Msg("Feed updated")
}
