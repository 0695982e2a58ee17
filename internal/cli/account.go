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

// addAccountCommands adds balance and holdings commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBalanceCmd(app))
	rootCmd.AddCommand(newDepositCmd(app))
	rootCmd.AddCommand(newHoldingsCmd(app))
}

func newBalanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show quote and fee token balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			user, _ := cmd.Flags().GetString("user")

			assets := []string{app.Config.Trading.DefaultQuote, models.PlatformToken}
			balances := make([]models.Balance, 0, len(assets))
			for _, asset := range assets {
				b, err := app.Store.GetBalance(ctx, user, asset)
				if err != nil {
					output.Error("Failed to read balance: %v", err)
					return err
				}
				balances = append(balances, *b)
			}

			if output.IsJSON() {
				return output.JSON(balances)
			}
			output.Bold("%-8s %18s", "ASSET", "AMOUNT")
			for _, b := range balances {
				output.Printf("%-8s %18.8f\n", b.Asset, b.Amount)
			}
			return nil
		},
	}
	cmd.Flags().String("user", "default", "user id")
	return cmd
}

func newDepositCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit <asset> <amount>",
		Short: "Credit an asset balance",
		Example: `  cryptodesk deposit USDT 10000
  cryptodesk deposit CDK 50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			asset := strings.ToUpper(args[0])
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				output.Error("Invalid amount: %s", args[1])
				return err
			}
			user, _ := cmd.Flags().GetString("user")

			if err := app.Store.CreditBalance(ctx, user, asset, amount); err != nil {
				output.Error("Deposit failed: %v", err)
				return err
			}
			output.Success("Credited %.8f %s", amount, asset)
			return nil
		},
	}
	cmd.Flags().String("user", "default", "user id")
	return cmd
}

func newHoldingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holdings",
		Short: "Show asset holdings with unrealized P&L",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			user, _ := cmd.Flags().GetString("user")
			holdings, err := app.Store.ListHoldings(ctx, user)
			if err != nil {
				output.Error("Failed to list holdings: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(holdings)
			}
			if len(holdings) == 0 {
				output.Info("No holdings")
				return nil
			}

			output.Bold("%-8s %16s %14s %14s %14s", "ASSET", "AMOUNT", "AVG PRICE", "LAST", "P&L")
			for _, h := range holdings {
				last, err := app.Feed.Price(h.Asset)
				if err != nil {
					output.Printf("%-8s %16.8f %14.4f %14s %14s\n",
						h.Asset, h.Amount, h.AveragePrice, "-", "-")
					continue
				}
				pnl := (last - h.AveragePrice) * h.Amount
				pnlStr := utils.FormatPnL(pnl)
				if pnl >= 0 {
					pnlStr = output.Green(pnlStr)
				} else {
					pnlStr = output.Red(pnlStr)
				}
				output.Printf("%-8s %16.8f %14.4f %14.4f %14s\n",
					h.Asset, h.Amount, h.AveragePrice, last, pnlStr)
			}
			return nil
		},
	}
	cmd.Flags().String("user", "default", "user id")
	return cmd
}
