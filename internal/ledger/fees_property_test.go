package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cryptodesk/internal/config"
)

// Property: For any trade, tradingFee = totalValue * rate and
// platformFee = tradingFee * multiplier, both non-negative and strictly
// smaller than the total for realistic rates.
func TestProperty_FeeComputation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	amountGen := gen.Float64Range(0.00000001, 1000000)
	priceGen := gen.Float64Range(0.00000001, 1000000)

	properties.Property("fees scale linearly with total value", prop.ForAll(
		func(amount, price float64) bool {
			cfg := config.FeeConfig{TradingFeeRate: 0.001, PlatformMultiplier: 1.5}
			fees := ComputeFees(amount, price, cfg)

			total := amount * price
			const eps = 1e-9
			if math.Abs(fees.TotalValue-total) > eps*math.Max(1, total) {
				return false
			}
			if math.Abs(fees.TradingFee-total*0.001) > eps*math.Max(1, total) {
				return false
			}
			if math.Abs(fees.PlatformFee-fees.TradingFee*1.5) > eps*math.Max(1, fees.TradingFee) {
				return false
			}
			return fees.TradingFee >= 0 && fees.PlatformFee >= 0 && fees.TradingFee < total
		},
		amountGen,
		priceGen,
	))

	properties.Property("zero rate produces zero fees", prop.ForAll(
		func(amount, price float64) bool {
			fees := ComputeFees(amount, price, config.FeeConfig{TradingFeeRate: 0, PlatformMultiplier: 1.5})
			return fees.TradingFee == 0 && fees.PlatformFee == 0
		},
		amountGen,
		priceGen,
	))

	properties.TestingRun(t)
}
