package orders

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cryptodesk/internal/models"
)

// Property: A trailing stop never loosens. For a protective sell the stop
// price is non-decreasing across any sequence of price updates; for a
// protective buy it is non-increasing.
func TestProperty_TrailingStopNeverLoosens(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	priceGen := gen.SliceOfN(20, gen.Float64Range(1.0, 100000.0))
	trailingGen := gen.Float64Range(0.1, 50.0)

	properties.Property("sell trailing stop is non-decreasing", prop.ForAll(
		func(prices []float64, trailing float64) bool {
			order := &models.Order{
				Side:            models.OrderSideSell,
				Type:            models.OrderTypeTrailingStop,
				TrailingPercent: trailing,
			}
			for _, p := range prices {
				next := TightenedTrailingStop(order, p)
				if order.StopPrice != 0 && next < order.StopPrice {
					t.Logf("stop loosened: %f -> %f at price %f", order.StopPrice, next, p)
					return false
				}
				order.StopPrice = next
			}
			return true
		},
		priceGen,
		trailingGen,
	))

	properties.Property("buy trailing stop is non-increasing", prop.ForAll(
		func(prices []float64, trailing float64) bool {
			order := &models.Order{
				Side:            models.OrderSideBuy,
				Type:            models.OrderTypeTrailingStop,
				TrailingPercent: trailing,
			}
			for _, p := range prices {
				next := TightenedTrailingStop(order, p)
				if order.StopPrice != 0 && next > order.StopPrice {
					t.Logf("stop loosened: %f -> %f at price %f", order.StopPrice, next, p)
					return false
				}
				order.StopPrice = next
			}
			return true
		},
		priceGen,
		trailingGen,
	))

	properties.Property("initial stop sits on the protective side of the price", prop.ForAll(
		func(price, trailing float64) bool {
			sellStop := InitialTrailingStop(price, trailing, models.OrderSideSell)
			buyStop := InitialTrailingStop(price, trailing, models.OrderSideBuy)
			return sellStop < price && buyStop > price
		},
		gen.Float64Range(1.0, 100000.0),
		trailingGen,
	))

	properties.TestingRun(t)
}
