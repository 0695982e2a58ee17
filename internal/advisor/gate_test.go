package advisor

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
)

func enabledGate(threshold float64) *Gate {
	return NewGate(&config.AdvisorConfig{
		Enabled:             true,
		ConfidenceThreshold: threshold,
	})
}

func TestGateCheck(t *testing.T) {
	tests := []struct {
		name        string
		gate        *Gate
		advice      *models.Advice
		riskOK      bool
		wantExecute bool
		wantBlocked string
	}{
		{
			name:        "executes when confident and risk approved",
			gate:        enabledGate(80),
			advice:      &models.Advice{Action: "BUY", Confidence: 85},
			riskOK:      true,
			wantExecute: true,
		},
		{
			name:        "blocked when advisor disabled",
			gate:        NewGate(&config.AdvisorConfig{Enabled: false}),
			advice:      &models.Advice{Action: "BUY", Confidence: 99},
			riskOK:      true,
			wantBlocked: "enabled",
		},
		{
			name:        "blocked without advice",
			gate:        enabledGate(80),
			advice:      nil,
			riskOK:      true,
			wantBlocked: "advice",
		},
		{
			name:        "blocked below confidence threshold",
			gate:        enabledGate(80),
			advice:      &models.Advice{Action: "BUY", Confidence: 79.9},
			riskOK:      true,
			wantBlocked: "confidence_threshold",
		},
		{
			name:        "blocked when risk rejects despite confidence",
			gate:        enabledGate(80),
			advice:      &models.Advice{Action: "SELL", Confidence: 99},
			riskOK:      false,
			wantBlocked: "risk_approval",
		},
		{
			name:        "blocked on HOLD",
			gate:        enabledGate(80),
			advice:      &models.Advice{Action: "HOLD", Confidence: 95},
			riskOK:      true,
			wantBlocked: "action_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.gate.Check(tt.advice, tt.riskOK)
			if result.ShouldExecute != tt.wantExecute {
				t.Errorf("ShouldExecute = %v, want %v (reason: %s)",
					result.ShouldExecute, tt.wantExecute, result.BlockReason)
			}
			if tt.wantBlocked != "" {
				if len(result.ChecksFailed) == 0 || result.ChecksFailed[len(result.ChecksFailed)-1] != tt.wantBlocked {
					t.Errorf("ChecksFailed = %v, want last failure %q", result.ChecksFailed, tt.wantBlocked)
				}
				if result.BlockReason == "" {
					t.Error("blocked result must carry a reason")
				}
			}
		})
	}
}

// Property: The gate approves execution only when the advisor is enabled,
// confidence meets the threshold, risk approved, and the action is a trade.
func TestProperty_GateRequiresConfidenceAndRiskApproval(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("execute iff confidence >= threshold AND risk approved AND tradable action", prop.ForAll(
		func(confidence, threshold float64, riskApproved bool, actionIdx int) bool {
			actions := []string{"BUY", "SELL", "HOLD"}
			action := actions[actionIdx%len(actions)]

			gate := enabledGate(threshold)
			result := gate.Check(&models.Advice{Action: action, Confidence: confidence}, riskApproved)

			want := confidence >= threshold && riskApproved && action != "HOLD"
			return result.ShouldExecute == want
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(50, 95),
		gen.Bool(),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
