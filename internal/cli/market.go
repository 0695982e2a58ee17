package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cryptodesk/internal/models"
	"cryptodesk/pkg/utils"
)

// addMarketCommands adds market data commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newPricesCmd(app))
}

func newQuoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <asset> <amount>",
		Short: "Compare venue quotes for a trade without executing",
		Example: `  cryptodesk quote BTC 0.5
  cryptodesk quote ETH 2 --side SELL`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			asset := strings.ToUpper(args[0])
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				output.Error("Invalid amount: %s", args[1])
				return err
			}
			sideStr, _ := cmd.Flags().GetString("side")
			venueName, _ := cmd.Flags().GetString("venue")
			side := models.OrderSide(strings.ToUpper(sideStr))

			best, all, err := app.Router.Route(ctx, asset, app.Config.Trading.DefaultQuote, side, amount, venueName)
			if err != nil {
				output.Error("No price available: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"best":   best,
					"quotes": all,
				})
			}

			output.Bold("%-14s %14s %14s %14s", "VENUE", "PRICE", "GAS", "EFFECTIVE")
			for _, q := range all {
				marker := "  "
				if q.Venue == best.Venue {
					marker = "* "
				}
				output.Printf("%s%-12s %14.6f %14.6f %14.6f\n", marker, q.Venue, q.Price, q.GasCost, q.EffectiveOutput())
			}
			if best.Reference {
				output.Warning("No venue quotes; showing reference feed price")
			}
			output.Success("Best execution: %s (effective output %.6f)", best.Venue, best.EffectiveOutput())
			return nil
		},
	}
	cmd.Flags().String("side", "BUY", "order side")
	cmd.Flags().String("venue", "", "preferred venue override")
	return cmd
}

func newPricesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show cached reference feed prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			symbols := app.Feed.Symbols()
			if len(symbols) == 0 {
				output.Info("Feed is empty; run the daemon to ingest prices")
				return nil
			}

			type row struct {
				Symbol    string    `json:"symbol"`
				Price     float64   `json:"price"`
				Change24h float64   `json:"change_24h"`
				Volume24h float64   `json:"volume_24h"`
				UpdatedAt time.Time `json:"updated_at"`
			}
			var rows []row
			for _, sym := range symbols {
				info, err := app.Feed.Get(sym)
				if err != nil {
					continue
				}
				rows = append(rows, row{sym, info.Price, info.Change24hPct, info.Volume24h, info.UpdatedAt})
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}
			output.Bold("%-12s %16s %10s %12s %24s", "SYMBOL", "PRICE", "24H%", "VOLUME", "UPDATED")
			for _, r := range rows {
				pct := utils.FormatPercent(r.Change24h)
				if r.Change24h >= 0 {
					pct = output.Green(pct)
				} else {
					pct = output.Red(pct)
				}
				output.Printf("%-12s %16.6f %10s %12s %24s\n", r.Symbol, r.Price, pct,
					utils.FormatCompact(r.Volume24h), r.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
