package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cryptodesk/internal/models"
	"cryptodesk/internal/orders"
)

// addTradeCommands adds trade execution commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBuyCmd(app))
	rootCmd.AddCommand(newSellCmd(app))
	rootCmd.AddCommand(newOCOCmd(app))
	rootCmd.AddCommand(newCancelCmd(app))
	rootCmd.AddCommand(newAdviseCmd(app))
}

func newBuyCmd(app *App) *cobra.Command {
	cmd := newSideCmd(app, models.OrderSideBuy, "buy", "Place a buy order",
		`  cryptodesk buy BTC 0.5
  cryptodesk buy ETH 2 --limit 3100
  cryptodesk buy SOL 10 --margin --leverage 5`)
	return cmd
}

func newSellCmd(app *App) *cobra.Command {
	cmd := newSideCmd(app, models.OrderSideSell, "sell", "Place a sell order",
		`  cryptodesk sell BTC 0.5
  cryptodesk sell ETH 2 --stop 2900
  cryptodesk sell SOL 10 --trailing 5`)
	return cmd
}

func newSideCmd(app *App, side models.OrderSide, use, short, example string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use + " <asset> <amount>",
		Short:   short,
		Example: example,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			asset := strings.ToUpper(args[0])
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				output.Error("Invalid amount: %s", args[1])
				return fmt.Errorf("invalid amount")
			}

			limit, _ := cmd.Flags().GetFloat64("limit")
			stop, _ := cmd.Flags().GetFloat64("stop")
			trailing, _ := cmd.Flags().GetFloat64("trailing")
			margin, _ := cmd.Flags().GetBool("margin")
			leverage, _ := cmd.Flags().GetInt("leverage")
			venueName, _ := cmd.Flags().GetString("venue")
			user, _ := cmd.Flags().GetString("user")

			orderType := models.OrderTypeMarket
			switch {
			case trailing > 0:
				orderType = models.OrderTypeTrailingStop
			case stop > 0:
				orderType = models.OrderTypeStop
			case limit > 0:
				orderType = models.OrderTypeLimit
			}

			order := &models.Order{
				UserID:          user,
				BaseAsset:       asset,
				QuoteAsset:      app.Config.Trading.DefaultQuote,
				Side:            side,
				Type:            orderType,
				Amount:          amount,
				LimitPrice:      limit,
				StopPrice:       stop,
				TrailingPercent: trailing,
				Margin:          margin,
				Leverage:        leverage,
				PreferredVenue:  venueName,
			}

			if margin && leverage > 1 {
				if price, err := app.Feed.Price(asset); err == nil {
					liq := orders.LiquidationPrice(price, leverage, side, app.Config.Risk.MaintenanceMargin)
					output.Warning("Liquidation price (advisory): %.2f", liq)
				}
			}

			result, err := app.Engine.Execute(ctx, order)
			if err != nil {
				output.Error("Order failed: %v", err)
				return err
			}
			if result == nil {
				output.Info("Order %s accepted, waiting for trigger", order.ID)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			output.Success("Filled %s %.8f %s at %.8f on %s", side, amount, asset,
				result.ExecutionPrice, result.Venue)
			output.Printf("  Total:        %.2f %s\n", result.TotalValue, order.QuoteAsset)
			output.Printf("  Trading fee:  %.8f\n", result.TradingFee)
			output.Printf("  Platform fee: %.8f %s\n", result.PlatformFee, models.PlatformToken)
			output.Printf("  Reference:    %s\n", result.TxRef)
			return nil
		},
	}

	cmd.Flags().Float64("limit", 0, "limit price")
	cmd.Flags().Float64("stop", 0, "stop price")
	cmd.Flags().Float64("trailing", 0, "trailing stop percent")
	cmd.Flags().Bool("margin", false, "margin order")
	cmd.Flags().Int("leverage", 1, "leverage (1-10, margin orders only)")
	cmd.Flags().String("venue", "", "preferred venue override")
	cmd.Flags().String("user", "default", "user id")
	return cmd
}

func newAdviseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advise <buy|sell> <asset> <amount>",
		Short: "Get AI commentary on a trade, optionally executing through the gate",
		Long: `Ask the advisor for commentary and a confidence score on a proposed
market order. With --execute, the order runs through the execution gate:
it fills only when confidence meets the configured threshold AND the risk
engine approves. Advisory output alone never authorizes a trade.`,
		Example: `  cryptodesk advise buy BTC 0.5
  cryptodesk advise sell ETH 2 --execute`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			if app.Advisor == nil {
				output.Error("Advisor not configured (enable it and set OpenAI credentials)")
				return fmt.Errorf("advisor not configured")
			}

			side := models.OrderSide(strings.ToUpper(args[0]))
			if side != models.OrderSideBuy && side != models.OrderSideSell {
				output.Error("Side must be buy or sell, got %s", args[0])
				return fmt.Errorf("invalid side")
			}
			asset := strings.ToUpper(args[1])
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil || amount <= 0 {
				output.Error("Invalid amount: %s", args[2])
				return fmt.Errorf("invalid amount")
			}

			execute, _ := cmd.Flags().GetBool("execute")
			user, _ := cmd.Flags().GetString("user")

			order := &models.Order{
				UserID:     user,
				BaseAsset:  asset,
				QuoteAsset: app.Config.Trading.DefaultQuote,
				Side:       side,
				Type:       models.OrderTypeMarket,
				Amount:     amount,
			}

			refPrice, err := app.Feed.Price(asset)
			if err != nil {
				output.Error("No reference price for %s: %v", asset, err)
				return err
			}

			advice, err := app.Advisor.Advise(ctx, order, refPrice)
			if err != nil {
				output.Error("Advisor failed: %v", err)
				return err
			}

			if output.IsJSON() && !execute {
				return output.JSON(advice)
			}
			output.Bold("Advice for %s %.8f %s", side, amount, asset)
			output.Printf("  Action:     %s\n", advice.Action)
			output.Printf("  Confidence: %.1f%%\n", advice.Confidence)
			output.Printf("  Commentary: %s\n", advice.Commentary)

			if !execute {
				return nil
			}

			result, err := app.Engine.ExecuteAdvised(ctx, order, advice)
			if err != nil {
				output.Error("Advised execution failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(result)
			}
			output.Success("Filled %s %.8f %s at %.8f on %s", side, amount, asset,
				result.ExecutionPrice, result.Venue)
			output.Printf("  Reference: %s\n", result.TxRef)
			return nil
		},
	}

	cmd.Flags().Bool("execute", false, "execute through the gate when advice qualifies")
	cmd.Flags().String("user", "default", "user id")
	return cmd
}

func newOCOCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oco <asset> <amount>",
		Short: "Place a one-cancels-other pair (limit + stop)",
		Long: `Place a linked pair of orders: a limit leg and a stop leg.
When either leg fills, the other is cancelled in the same transaction.`,
		Example: `  cryptodesk oco BTC 0.5 --limit 70000 --stop 60000 --side SELL`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			asset := strings.ToUpper(args[0])
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				output.Error("Invalid amount: %s", args[1])
				return fmt.Errorf("invalid amount")
			}

			limit, _ := cmd.Flags().GetFloat64("limit")
			stop, _ := cmd.Flags().GetFloat64("stop")
			sideStr, _ := cmd.Flags().GetString("side")
			user, _ := cmd.Flags().GetString("user")
			side := models.OrderSide(strings.ToUpper(sideStr))

			base := models.Order{
				UserID:     user,
				BaseAsset:  asset,
				QuoteAsset: app.Config.Trading.DefaultQuote,
				Side:       side,
				Amount:     amount,
			}
			limitLeg, stopLeg := base, base
			limitLeg.Type = models.OrderTypeLimit
			limitLeg.LimitPrice = limit
			stopLeg.Type = models.OrderTypeStop
			stopLeg.StopPrice = stop

			if err := app.Orders.CreateOCO(ctx, &limitLeg, &stopLeg); err != nil {
				output.Error("OCO failed: %v", err)
				return err
			}

			output.Success("OCO pair created")
			output.Printf("  Limit leg: %s (limit %.8f)\n", limitLeg.ID, limit)
			output.Printf("  Stop leg:  %s (stop %.8f)\n", stopLeg.ID, stop)
			return nil
		},
	}

	cmd.Flags().Float64("limit", 0, "limit price for the limit leg")
	cmd.Flags().Float64("stop", 0, "stop price for the stop leg")
	cmd.Flags().String("side", "SELL", "order side for both legs")
	cmd.Flags().String("user", "default", "user id")
	return cmd
}

func newCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an open order (and its OCO sibling, if any)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.Orders.Cancel(ctx, args[0]); err != nil {
				output.Error("Cancel failed: %v", err)
				return err
			}
			output.Success("Order %s cancelled", args[0])
			return nil
		},
	}
}
