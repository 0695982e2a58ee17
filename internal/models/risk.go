package models

import "time"

// RiskEventType identifies which risk rule produced an event.
type RiskEventType string

const (
	RiskCircuitBreaker RiskEventType = "circuit_breaker"
	RiskStopLoss       RiskEventType = "stop_loss"
	RiskPositionSize   RiskEventType = "position_size"
	RiskAnomaly        RiskEventType = "anomaly"
)

// RiskSeverity represents the severity of a risk event.
type RiskSeverity string

const (
	SeverityLow    RiskSeverity = "LOW"
	SeverityMedium RiskSeverity = "MEDIUM"
	SeverityHigh   RiskSeverity = "HIGH"
)

// RiskAction is the action a triggered risk rule demands.
type RiskAction string

const (
	ActionHaltTrading     RiskAction = "halt_trading"
	ActionExecuteStopLoss RiskAction = "execute_stop_loss"
	ActionRejectOrder     RiskAction = "reject_order"
	ActionFlagForReview   RiskAction = "flag_for_review"
)

// RiskEvent is the durable record of a triggered risk rule. Every event
// that halts or auto-executes must be persisted before the action is
// considered complete.
type RiskEvent struct {
	ID        string
	Type      RiskEventType
	Severity  RiskSeverity
	Action    RiskAction
	UserID    string
	OrderID   string
	Metric    float64
	Threshold float64
	Detail    string
	CreatedAt time.Time
}
