// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"cryptodesk/internal/models"
)

// Storage-level sentinel errors. Callers match with errors.Is.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when an order status change is not
	// permitted by the state machine. Terminal orders never transition.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrSettlementConflict is returned when the settlement claim on an
	// order row fails because another attempt holds or held it.
	ErrSettlementConflict = errors.New("concurrent settlement attempt")
	// ErrAlreadySettled is returned when settlement is invoked for an
	// order that is already filled. No mutation is performed.
	ErrAlreadySettled = errors.New("order already settled")
	// ErrInsufficientFeeBalance is returned when the platform-token
	// balance cannot cover the platform fee.
	ErrInsufficientFeeBalance = errors.New("insufficient fee balance")
	// ErrInsufficientHolding is returned when a sell would take a holding
	// below zero.
	ErrInsufficientHolding = errors.New("insufficient holding")
)

// SettlementParams carries the precomputed values applied atomically by
// Settle. All mutations happen in one transaction or not at all.
type SettlementParams struct {
	Order          *models.Order
	Venue          string
	ExecutionPrice float64
	TotalValue     float64
	TradingFee     float64
	PlatformFee    float64
	GasCost        float64
	TxRef          string
}

// RiskEventFilter represents filters for querying risk events.
type RiskEventFilter struct {
	Type      models.RiskEventType
	UserID    string
	StartDate time.Time
	Limit     int
}

// DataStore defines the interface for ledger persistence.
type DataStore interface {
	// Orders
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOCOPair(ctx context.Context, limitLeg, stopLeg *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOpenOrders(ctx context.Context, userID string) ([]models.Order, error)
	ListOpenStopOrders(ctx context.Context) ([]models.Order, error)
	TransitionOrder(ctx context.Context, id string, to models.OrderStatus, reason string) error
	TightenStopPrice(ctx context.Context, id string, stopPrice float64, side models.OrderSide) error

	// Balances & holdings
	GetBalance(ctx context.Context, userID, asset string) (*models.Balance, error)
	CreditBalance(ctx context.Context, userID, asset string, amount float64) error
	GetHolding(ctx context.Context, userID, asset string) (*models.Holding, error)
	ListHoldings(ctx context.Context, userID string) ([]models.Holding, error)

	// Settlement applies the claim, fee debit, holding adjustment, OCO
	// sibling cancellation and transaction insert in one transaction.
	Settle(ctx context.Context, p SettlementParams) (*models.Transaction, error)

	// Transactions
	GetTransactionByOrder(ctx context.Context, orderID string) (*models.Transaction, error)
	CountUserTransactionsSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListLedgerMutations(ctx context.Context, transactionID string) ([]models.LedgerMutation, error)

	// Risk events
	SaveRiskEvent(ctx context.Context, event *models.RiskEvent) error
	GetRiskEvents(ctx context.Context, filter RiskEventFilter) ([]models.RiskEvent, error)

	// Lifecycle
	Close() error
}
