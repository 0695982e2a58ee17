package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cryptodesk/internal/advisor"
	"cryptodesk/internal/config"
	"cryptodesk/internal/engine"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/ledger"
	"cryptodesk/internal/logging"
	"cryptodesk/internal/notify"
	"cryptodesk/internal/orders"
	"cryptodesk/internal/risk"
	"cryptodesk/internal/router"
	"cryptodesk/internal/store"
	"cryptodesk/internal/venue"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Feed     *feed.Feed
	Router   *router.Router
	Orders   *orders.Service
	Risk     *risk.Engine
	Settler  *ledger.Settler
	Engine   *engine.Engine
	Notifier notify.Notifier
	Advisor  *advisor.Advisor
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := wireApp(app); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
	}

	rootCmd := &cobra.Command{
		Use:   "cryptodesk",
		Short: "Cryptodesk - crypto trade execution and risk control",
		Long: `Cryptodesk is the trade execution core of a crypto trading platform.

It validates orders, discovers the best executable price across liquidity
venues, applies fees and ledger mutations atomically, and runs pre- and
post-trade risk checks.

Use 'cryptodesk help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/cryptodesk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addTradeCommands(rootCmd, app)
	addOrderCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addRiskCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addDaemonCommands(rootCmd, app)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// wireApp constructs the component graph from configuration.
func wireApp(app *App) error {
	cfg, logger := app.Config, app.Logger

	dataStore, err := store.NewSQLiteStore(cfg.Trading.DatabasePath)
	if err != nil {
		return err
	}
	app.Store = dataStore

	app.Feed = feed.New()

	venues, err := venue.FromConfig(cfg.Venues)
	if err != nil {
		return err
	}
	app.Router = router.New(venues, app.Feed, cfg.Router, logger)

	validator := orders.NewValidator(cfg.Risk)
	app.Orders = orders.NewService(dataStore, validator, app.Feed, logger)
	app.Risk = risk.NewEngine(dataStore, app.Feed, cfg.Risk, logger)
	app.Settler = ledger.NewSettler(dataStore, cfg.Fees, logger)

	notifier := notify.NewMultiNotifier(&cfg.Notifications)
	if cfg.Notifications.Enabled {
		notifier.AddChannel(notify.NewTerminalNotifier())
	}
	app.Notifier = notifier

	gate := advisor.NewGate(&cfg.Advisor)
	if cfg.Advisor.Enabled && cfg.Credentials.OpenAI.APIKey != "" {
		llm := advisor.NewOpenAIClient(cfg.Credentials.OpenAI.APIKey, cfg.Advisor.Model)
		app.Advisor = advisor.New(llm)
		logger.Debug().Str("model", cfg.Advisor.Model).Msg("Advisor initialized")
	}

	app.Engine = engine.New(app.Orders, validator, app.Risk, app.Router,
		app.Settler, app.Feed, dataStore, notifier, gate, logger)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Printf("cryptodesk %s\n", Version)
		},
	}
}
