package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"cryptodesk/internal/feed"
	"cryptodesk/internal/models"
	"cryptodesk/internal/risk"
)

// addDaemonCommands adds the long-running daemon command.
func addDaemonCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the price ingester, stream client and stop-order scanner",
		Long: `Run the background daemon: polls the reference feed, consumes the
price stream, tightens trailing stops on new prices, and scans open
stop orders for triggers until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				app.Logger.Info().Msg("shutdown signal received")
				cancel()
			}()

			scanner := risk.NewScanner(app.Risk, app.Store, app.Config.Risk.StopScanInterval, app.Logger)

			var wg sync.WaitGroup

			if app.Config.Feed.URL != "" {
				ingester := feed.NewIngester(app.Feed, app.Config.Feed, app.Logger)
				wg.Add(1)
				go func() {
					defer wg.Done()
					ingester.Run(ctx)
				}()
			}

			if app.Config.Feed.StreamURL != "" {
				stream := feed.NewStreamClient(app.Feed, app.Config.Feed.StreamURL, app.Logger)
				// Scans run on the stream consume goroutine, so a burst of
				// ticks serializes instead of piling up concurrent scans.
				stream.OnUpdate(func(info models.PriceInfo) {
					if err := scanner.ScanOnce(ctx); err != nil && ctx.Err() == nil {
						app.Logger.Warn().Err(err).Msg("stop scan after price update failed")
					}
				})
				wg.Add(1)
				go func() {
					defer wg.Done()
					stream.Run(ctx)
				}()
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				scanner.Run(ctx)
			}()

			output.Info("Daemon running, press Ctrl+C to stop")
			wg.Wait()
			output.Info("Daemon stopped")
			return nil
		},
	}
}
