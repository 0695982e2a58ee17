package advisor

import (
	"fmt"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
)

// Gate decides whether an agent-driven order may auto-execute. Execution
// requires confidence at or above the threshold AND a clean risk verdict;
// advisory output alone never authorizes a trade.
type Gate struct {
	cfg *config.AdvisorConfig
}

// GateResult contains the result of a gate check.
type GateResult struct {
	ShouldExecute bool
	BlockReason   string
	ChecksPassed  []string
	ChecksFailed  []string
}

// NewGate creates an execution gate.
func NewGate(cfg *config.AdvisorConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Check evaluates an advice against the gate. riskApproved carries the
// risk engine's verdict for the same order.
func (g *Gate) Check(advice *models.Advice, riskApproved bool) GateResult {
	result := GateResult{ShouldExecute: true}

	if g.cfg == nil || !g.cfg.Enabled {
		result.ShouldExecute = false
		result.BlockReason = "advisor disabled"
		result.ChecksFailed = append(result.ChecksFailed, "enabled")
		return result
	}
	result.ChecksPassed = append(result.ChecksPassed, "enabled")

	if advice == nil {
		result.ShouldExecute = false
		result.BlockReason = "no advice available"
		result.ChecksFailed = append(result.ChecksFailed, "advice")
		return result
	}
	result.ChecksPassed = append(result.ChecksPassed, "advice")

	if advice.Confidence < g.cfg.ConfidenceThreshold {
		result.ShouldExecute = false
		result.BlockReason = fmt.Sprintf("confidence %.1f%% below threshold %.1f%%",
			advice.Confidence, g.cfg.ConfidenceThreshold)
		result.ChecksFailed = append(result.ChecksFailed, "confidence_threshold")
		return result
	}
	result.ChecksPassed = append(result.ChecksPassed, "confidence_threshold")

	if !riskApproved {
		result.ShouldExecute = false
		result.BlockReason = "risk check failed"
		result.ChecksFailed = append(result.ChecksFailed, "risk_approval")
		return result
	}
	result.ChecksPassed = append(result.ChecksPassed, "risk_approval")

	if advice.Action == "HOLD" || advice.Action == "" {
		result.ShouldExecute = false
		result.BlockReason = "advice is HOLD, no trade to execute"
		result.ChecksFailed = append(result.ChecksFailed, "action_type")
		return result
	}
	result.ChecksPassed = append(result.ChecksPassed, "action_type")

	return result
}
