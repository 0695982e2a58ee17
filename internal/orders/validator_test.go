package orders

import (
	"errors"
	"math"
	"testing"

	"cryptodesk/internal/config"
	"cryptodesk/internal/models"
)

func testValidator() *Validator {
	return NewValidator(config.RiskConfig{MaxLeverage: 10})
}

func TestValidate_OrderTypeRules(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name    string
		order   models.Order
		wantErr error
	}{
		{
			name: "market order valid",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Amount: 1,
			},
		},
		{
			name: "market order with limit price rejected",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Amount: 1, LimitPrice: 100,
			},
			wantErr: ErrConflictingPrice,
		},
		{
			name: "limit order without limit price rejected",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Amount: 1,
			},
			wantErr: ErrMissingLimit,
		},
		{
			name: "limit order with stop price rejected",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Amount: 1,
				LimitPrice: 100, StopPrice: 90,
			},
			wantErr: ErrConflictingPrice,
		},
		{
			name: "stop order without stop price rejected",
			order: models.Order{
				Side: models.OrderSideSell, Type: models.OrderTypeStop, Amount: 1,
			},
			wantErr: ErrMissingStop,
		},
		{
			name: "stop order valid",
			order: models.Order{
				Side: models.OrderSideSell, Type: models.OrderTypeStop, Amount: 1, StopPrice: 90,
			},
		},
		{
			name: "trailing stop with zero percent rejected",
			order: models.Order{
				Side: models.OrderSideSell, Type: models.OrderTypeTrailingStop, Amount: 1,
			},
			wantErr: ErrInvalidTrailing,
		},
		{
			name: "trailing stop with 100 percent rejected",
			order: models.Order{
				Side: models.OrderSideSell, Type: models.OrderTypeTrailingStop, Amount: 1,
				TrailingPercent: 100,
			},
			wantErr: ErrInvalidTrailing,
		},
		{
			name: "zero amount rejected",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeMarket,
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "negative amount rejected",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Amount: -3,
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "margin order within leverage limit",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Amount: 1,
				Margin: true, Leverage: 10,
			},
		},
		{
			name: "margin order above leverage limit rejected",
			order: models.Order{
				Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Amount: 1,
				Margin: true, Leverage: 11,
			},
			wantErr: ErrLeverageExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.order)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckLimitExecutable(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name     string
		side     models.OrderSide
		limit    float64
		price    float64
		wantFill bool
	}{
		{"buy fills below limit", models.OrderSideBuy, 100, 99, true},
		{"buy fills at limit", models.OrderSideBuy, 100, 100, true},
		{"buy rejected above limit", models.OrderSideBuy, 100, 101, false},
		{"sell fills above limit", models.OrderSideSell, 100, 101, true},
		{"sell fills at limit", models.OrderSideSell, 100, 100, true},
		{"sell rejected below limit", models.OrderSideSell, 100, 99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &models.Order{
				Side: tt.side, Type: models.OrderTypeLimit, LimitPrice: tt.limit,
			}
			err := v.CheckLimitExecutable(order, tt.price)
			if tt.wantFill && err != nil {
				t.Errorf("CheckLimitExecutable() = %v, want nil", err)
			}
			if !tt.wantFill && !errors.Is(err, ErrPriceOutOfRange) {
				t.Errorf("CheckLimitExecutable() = %v, want ErrPriceOutOfRange", err)
			}
		})
	}
}

func TestCheckStopTriggered(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name      string
		side      models.OrderSide
		stop      float64
		market    float64
		triggered bool
	}{
		{"sell stop triggers below stop", models.OrderSideSell, 100, 99, true},
		{"sell stop triggers at stop", models.OrderSideSell, 100, 100, true},
		{"sell stop not triggered above stop", models.OrderSideSell, 100, 101, false},
		{"buy stop triggers above stop", models.OrderSideBuy, 100, 101, true},
		{"buy stop triggers at stop", models.OrderSideBuy, 100, 100, true},
		{"buy stop not triggered below stop", models.OrderSideBuy, 100, 99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &models.Order{
				Side: tt.side, Type: models.OrderTypeStop, StopPrice: tt.stop,
			}
			err := v.CheckStopTriggered(order, tt.market)
			if tt.triggered && err != nil {
				t.Errorf("CheckStopTriggered() = %v, want nil", err)
			}
			if !tt.triggered && !errors.Is(err, ErrStopNotTriggered) {
				t.Errorf("CheckStopTriggered() = %v, want ErrStopNotTriggered", err)
			}
		})
	}
}

func TestLiquidationPrice(t *testing.T) {
	// 10x long at 100 with 5% maintenance margin liquidates near 95,
	// 10x short near 105.
	long := LiquidationPrice(100, 10, models.OrderSideBuy, 0.05)
	if math.Abs(long-95) > 1e-9 {
		t.Errorf("long liquidation = %f, want 95", long)
	}
	short := LiquidationPrice(100, 10, models.OrderSideSell, 0.05)
	if math.Abs(short-105) > 1e-9 {
		t.Errorf("short liquidation = %f, want 105", short)
	}

	// 5x positions liquidate at 85 / 115.
	long5 := LiquidationPrice(100, 5, models.OrderSideBuy, 0.05)
	if math.Abs(long5-85) > 1e-9 {
		t.Errorf("5x long liquidation = %f, want 85", long5)
	}
	short5 := LiquidationPrice(100, 5, models.OrderSideSell, 0.05)
	if math.Abs(short5-115) > 1e-9 {
		t.Errorf("5x short liquidation = %f, want 115", short5)
	}

	// 2x positions liquidate at 55 / 145.
	long2 := LiquidationPrice(100, 2, models.OrderSideBuy, 0.05)
	if math.Abs(long2-55) > 1e-9 {
		t.Errorf("2x long liquidation = %f, want 55", long2)
	}
	short2 := LiquidationPrice(100, 2, models.OrderSideSell, 0.05)
	if math.Abs(short2-145) > 1e-9 {
		t.Errorf("2x short liquidation = %f, want 145", short2)
	}
}

func TestInitialTrailingStop(t *testing.T) {
	sell := InitialTrailingStop(200, 5, models.OrderSideSell)
	if math.Abs(sell-190) > 1e-9 {
		t.Errorf("sell trailing stop = %f, want 190", sell)
	}
	buy := InitialTrailingStop(200, 5, models.OrderSideBuy)
	if math.Abs(buy-210) > 1e-9 {
		t.Errorf("buy trailing stop = %f, want 210", buy)
	}
}
