package feed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cryptodesk/internal/models"
)

// StreamClient consumes the reference feed's websocket stream and pushes
// price updates into the feed. It complements the poller: the poller fills
// 24h statistics, the stream keeps last prices fresh between polls.
type StreamClient struct {
	feed      *Feed
	streamURL string
	dialer    *websocket.Dialer
	logger    zerolog.Logger

	// onUpdate, when set, is invoked after each applied update. The stop
	// scanner hooks trailing-stop tightening here.
	mu       sync.RWMutex
	onUpdate func(models.PriceInfo)
}

// NewStreamClient creates a websocket stream client for the feed.
func NewStreamClient(f *Feed, streamURL string, logger zerolog.Logger) *StreamClient {
	return &StreamClient{
		feed:      f,
		streamURL: streamURL,
		dialer:    websocket.DefaultDialer,
		logger:    logger.With().Str("component", "feed_stream").Logger(),
	}
}

// OnUpdate registers a callback fired after each applied price update.
func (c *StreamClient) OnUpdate(fn func(models.PriceInfo)) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

type streamMessage struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Run connects and consumes the stream until the context is cancelled,
// reconnecting with a short backoff on read failures.
func (c *StreamClient) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.consume(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("Stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *StreamClient) consume(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.streamURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return err
		}

		var m streamMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			c.logger.Debug().Err(err).Msg("Skipping malformed stream message")
			continue
		}
		if m.Price <= 0 {
			continue
		}

		info, err := c.feed.Get(m.Symbol)
		if err != nil {
			info = models.PriceInfo{Symbol: m.Symbol}
		}
		info.Price = m.Price
		info.UpdatedAt = time.Now()
		c.feed.Update(info)

		c.mu.RLock()
		fn := c.onUpdate
		c.mu.RUnlock()
		if fn != nil {
			fn(info)
		}
	}
}
