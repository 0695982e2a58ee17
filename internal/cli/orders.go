package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"cryptodesk/internal/models"
)

// addOrderCommands adds order inspection commands.
func addOrderCommands(rootCmd *cobra.Command, app *App) {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect orders",
	}
	ordersCmd.AddCommand(newOrdersListCmd(app))
	ordersCmd.AddCommand(newOrdersShowCmd(app))
	rootCmd.AddCommand(ordersCmd)
}

func newOrdersListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			user, _ := cmd.Flags().GetString("user")
			open, err := app.Orders.ListOpen(ctx, user)
			if err != nil {
				output.Error("Failed to list orders: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(open)
			}
			if len(open) == 0 {
				output.Info("No open orders")
				return nil
			}

			output.Bold("%-38s %-10s %-5s %-13s %12s %12s %12s", "ID", "SYMBOL", "SIDE", "TYPE", "AMOUNT", "LIMIT", "STOP")
			for _, o := range open {
				output.Printf("%-38s %-10s %-5s %-13s %12.6f %12.4f %12.4f",
					o.ID, o.Symbol(), o.Side, o.Type, o.Amount, o.LimitPrice, o.StopPrice)
				if o.IsOCO() {
					output.Printf("  (oco: %s)", o.OCOLinkedID)
				}
				output.Println()
			}
			return nil
		},
	}
	cmd.Flags().String("user", "default", "user id")
	return cmd
}

func newOrdersShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show a single order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			order, err := app.Orders.Get(ctx, args[0])
			if err != nil {
				output.Error("Failed to load order: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(order)
			}

			output.Bold("Order %s", order.ID)
			output.Printf("  Symbol:   %s\n", order.Symbol())
			output.Printf("  Side:     %s\n", order.Side)
			output.Printf("  Type:     %s\n", order.Type)
			output.Printf("  Amount:   %.8f\n", order.Amount)
			output.Printf("  Status:   %s\n", colorStatus(output, order.Status))
			if order.LimitPrice > 0 {
				output.Printf("  Limit:    %.8f\n", order.LimitPrice)
			}
			if order.StopPrice > 0 {
				output.Printf("  Stop:     %.8f\n", order.StopPrice)
			}
			if order.TrailingPercent > 0 {
				output.Printf("  Trailing: %.2f%%\n", order.TrailingPercent)
			}
			if order.IsOCO() {
				output.Printf("  OCO pair: %s\n", order.OCOLinkedID)
			}
			if order.Margin {
				output.Printf("  Leverage: %dx\n", order.Leverage)
			}
			if order.Status == models.StatusFilled {
				output.Printf("  Filled:   %.8f at %.8f\n", order.FilledAmount, order.ExecutionPrice)
				if txn, err := app.Store.GetTransactionByOrder(ctx, order.ID); err == nil {
					output.Printf("  Tx ref:   %s\n", txn.TxRef)
					if mutations, err := app.Store.ListLedgerMutations(ctx, txn.ID); err == nil && len(mutations) > 0 {
						output.Printf("  Ledger:\n")
						for _, m := range mutations {
							output.Printf("    %-6s %+14.8f -> %.8f\n", m.Asset, m.Delta, m.ResultingAmt)
						}
					}
				}
			}
			if order.RejectReason != "" {
				output.Printf("  Reason:   %s\n", order.RejectReason)
			}
			output.Printf("  Created:  %s\n", order.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func colorStatus(o *Output, status models.OrderStatus) string {
	switch status {
	case models.StatusFilled:
		return o.Green(string(status))
	case models.StatusRejected, models.StatusCancelled:
		return o.Red(string(status))
	default:
		return string(status)
	}
}
