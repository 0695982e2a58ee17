// Package notify provides notification functionality for the trading core.
// Delivery is fire-and-forget: a failed notification never affects a
// completed settlement.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
	"cryptodesk/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendTrade(ctx context.Context, result *models.ExecutionResult, order *models.Order) error
	SendRiskEvent(ctx context.Context, event *models.RiskEvent) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTrade NotificationType = "trade"
	NotificationRisk  NotificationType = "risk"
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a new MultiNotifier with the given configuration.
func NewMultiNotifier(cfg *config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]NotificationChannel, 0),
		level:    NotificationLevel(cfg.Level),
	}

	if mn.level == "" {
		mn.level = LevelAll
	}

	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// shouldSend checks if a notification should be sent based on the level filter.
func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return notifType == NotificationTrade
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendTrade sends a trade-executed notification.
func (mn *MultiNotifier) SendTrade(ctx context.Context, result *models.ExecutionResult, order *models.Order) error {
	title := fmt.Sprintf("Trade Executed: %s %s", order.Side, order.Symbol())
	message := fmt.Sprintf(
		"Pair: %s\nSide: %s\nAmount: %s\nPrice: %s\nTotal: %s %s\nVenue: %s\nFee: %s %s\nRef: %s",
		order.Symbol(),
		order.Side,
		utils.FormatQty(order.Amount),
		utils.FormatQty(result.ExecutionPrice),
		utils.FormatMoney(result.TotalValue),
		order.QuoteAsset,
		result.Venue,
		utils.FormatQty(result.PlatformFee),
		models.PlatformToken,
		result.TxRef,
	)

	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"order_id":     order.ID,
			"symbol":       order.Symbol(),
			"side":         order.Side,
			"amount":       order.Amount,
			"price":        result.ExecutionPrice,
			"total_value":  result.TotalValue,
			"venue":        result.Venue,
			"platform_fee": result.PlatformFee,
			"tx_ref":       result.TxRef,
		},
	})
}

// SendRiskEvent sends a risk-event notification.
func (mn *MultiNotifier) SendRiskEvent(ctx context.Context, event *models.RiskEvent) error {
	title := fmt.Sprintf("Risk Event: %s (%s)", event.Type, event.Severity)
	message := fmt.Sprintf("Action: %s\nMetric: %.4f (threshold %.4f)\n%s",
		event.Action, event.Metric, event.Threshold, event.Detail)

	return mn.Send(ctx, Notification{
		Type:    NotificationRisk,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"type":     event.Type,
			"severity": event.Severity,
			"action":   event.Action,
			"order_id": event.OrderID,
			"user_id":  event.UserID,
			"metric":   event.Metric,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, context string) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "Error: " + context,
		Message: err.Error(),
	})
}

// WebhookNotifier sends notifications via an HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send sends a notification via webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}
