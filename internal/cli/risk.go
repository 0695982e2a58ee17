package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"cryptodesk/internal/models"
	"cryptodesk/internal/store"
)

// addRiskCommands adds risk control commands.
func addRiskCommands(rootCmd *cobra.Command, app *App) {
	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "Risk control engine",
	}
	riskCmd.AddCommand(newRiskEventsCmd(app))
	riskCmd.AddCommand(newRiskCheckCmd(app))
	riskCmd.AddCommand(newRiskStatusCmd(app))
	riskCmd.AddCommand(newRiskResumeCmd(app))
	rootCmd.AddCommand(riskCmd)
}

func newRiskEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded risk events",
		Example: `  cryptodesk risk events
  cryptodesk risk events --type circuit_breaker --days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			eventType, _ := cmd.Flags().GetString("type")
			user, _ := cmd.Flags().GetString("user")
			days, _ := cmd.Flags().GetInt("days")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := store.RiskEventFilter{
				Type:   models.RiskEventType(eventType),
				UserID: user,
				Limit:  limit,
			}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}

			events, err := app.Store.GetRiskEvents(ctx, filter)
			if err != nil {
				output.Error("Failed to load risk events: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(events)
			}
			if len(events) == 0 {
				output.Info("No risk events recorded")
				return nil
			}

			output.Bold("%-20s %-16s %-8s %-18s %10s %10s", "TIME", "TYPE", "SEV", "ACTION", "METRIC", "LIMIT")
			for _, ev := range events {
				sev := string(ev.Severity)
				if ev.Severity == models.SeverityHigh {
					sev = output.Red(sev)
				}
				output.Printf("%-20s %-16s %-8s %-18s %10.4f %10.4f\n",
					ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Type, sev, ev.Action,
					ev.Metric, ev.Threshold)
				if ev.Detail != "" {
					output.Printf("    %s\n", ev.Detail)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("type", "", "filter by event type")
	cmd.Flags().String("user", "", "filter by user id")
	cmd.Flags().Int("days", 0, "only events from the last N days")
	cmd.Flags().Int("limit", 50, "maximum events to return")
	return cmd
}

func newRiskCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the market-wide circuit breaker check now",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			event, err := app.Risk.CheckCircuitBreaker(ctx)
			if err != nil {
				output.Error("Circuit breaker check failed: %v", err)
				return err
			}
			if event == nil {
				output.Success("Market volatility within limits, trading enabled")
				return nil
			}
			output.Warning("Circuit breaker tripped: mean 24h move %.2f%% exceeds %.2f%%",
				event.Metric, event.Threshold)
			output.Warning("Trading halted; resume with `cryptodesk risk resume`")
			return nil
		},
	}
}

func newRiskStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether trading is halted",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Risk.Halted() {
				output.Warning("Trading is HALTED (circuit breaker)")
			} else {
				output.Success("Trading is enabled")
			}
			return nil
		},
	}
}

func newRiskResumeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Clear a circuit breaker halt and resume trading",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			app.Risk.ClearHalt()
			output.Success("Trading halt cleared")
			return nil
		},
	}
}
