package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cryptodesk/internal/feed"
	"cryptodesk/internal/models"
	"cryptodesk/internal/store"
)

// Service manages order creation and lifecycle on top of the validator and
// the store's transactional primitives.
type Service struct {
	store     store.DataStore
	validator *Validator
	feed      *feed.Feed
	logger    zerolog.Logger
}

// NewService creates an order service.
func NewService(st store.DataStore, v *Validator, f *feed.Feed, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		validator: v,
		feed:      f,
		logger:    logger.With().Str("component", "orders").Logger(),
	}
}

// Create validates and persists a single order in OPEN state. A trailing
// stop gets its initial stop price from the current reference price.
func (s *Service) Create(ctx context.Context, order *models.Order) error {
	if err := s.validator.Validate(order); err != nil {
		return err
	}

	if order.Type == models.OrderTypeTrailingStop && order.StopPrice == 0 {
		price, err := s.feed.Price(order.BaseAsset)
		if err != nil {
			return fmt.Errorf("trailing stop needs a reference price: %w", err)
		}
		order.StopPrice = InitialTrailingStop(price, order.TrailingPercent, order.Side)
	}

	s.prepare(order)
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("symbol", order.Symbol()).
		Str("type", string(order.Type)).
		Str("side", string(order.Side)).
		Float64("amount", order.Amount).
		Msg("Order created")
	return nil
}

// CreateOCO validates both legs of a one-cancels-other pair and persists
// them atomically with mutual back-references. The pair is always one
// limit leg and one stop leg on the same pair and side.
func (s *Service) CreateOCO(ctx context.Context, limitLeg, stopLeg *models.Order) error {
	if limitLeg.Type != models.OrderTypeLimit {
		return fmt.Errorf("oco limit leg must be a limit order, got %s", limitLeg.Type)
	}
	if stopLeg.Type != models.OrderTypeStop {
		return fmt.Errorf("oco stop leg must be a stop order, got %s", stopLeg.Type)
	}
	if limitLeg.Symbol() != stopLeg.Symbol() {
		return fmt.Errorf("oco legs must share a trading pair: %s vs %s", limitLeg.Symbol(), stopLeg.Symbol())
	}
	if err := s.validator.Validate(limitLeg); err != nil {
		return fmt.Errorf("oco limit leg: %w", err)
	}
	if err := s.validator.Validate(stopLeg); err != nil {
		return fmt.Errorf("oco stop leg: %w", err)
	}

	s.prepare(limitLeg)
	s.prepare(stopLeg)
	if err := s.store.CreateOCOPair(ctx, limitLeg, stopLeg); err != nil {
		return fmt.Errorf("create oco pair: %w", err)
	}

	s.logger.Info().
		Str("limit_leg", limitLeg.ID).
		Str("stop_leg", stopLeg.ID).
		Str("symbol", limitLeg.Symbol()).
		Msg("OCO pair created")
	return nil
}

// Cancel moves an open order to CANCELLED. For an OCO leg the sibling is
// cancelled in the same store transaction.
func (s *Service) Cancel(ctx context.Context, orderID string) error {
	if err := s.store.TransitionOrder(ctx, orderID, models.StatusCancelled, "cancelled by user"); err != nil {
		return err
	}
	s.logger.Info().Str("order_id", orderID).Msg("Order cancelled")
	return nil
}

// Reject marks an order REJECTED with a persisted human-readable reason.
func (s *Service) Reject(ctx context.Context, orderID, reason string) error {
	return s.store.TransitionOrder(ctx, orderID, models.StatusRejected, reason)
}

// Get fetches an order by id.
func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// ListOpen returns a user's open orders.
func (s *Service) ListOpen(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.ListOpenOrders(ctx, userID)
}

func (s *Service) prepare(order *models.Order) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Leverage == 0 {
		order.Leverage = 1
	}
	order.Status = models.StatusOpen
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
}
