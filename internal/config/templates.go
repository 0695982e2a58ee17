package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Cryptodesk Configuration

[trading]
# Trading mode: "live" or "sim"
mode = "sim"
# Default quote asset for new orders
default_quote = "USDT"
# Path to the SQLite ledger database (empty = default config dir)
database_path = ""

[risk]
# Mean absolute 24h change (percent) that trips the circuit breaker
volatility_halt_pct = 20.0
# Maximum single position as percentage of portfolio value
max_position_pct = 20.0
# Completed trades per trailing hour before a user is flagged
anomaly_trade_limit = 50
# Maintenance margin fraction used for liquidation price display
maintenance_margin = 0.05
# Maximum leverage for margin orders
max_leverage = 10
# Interval between stop-loss scan passes
stop_scan_interval = "5s"
# Number of assets sampled for the volatility reading
volatility_samples = 10

[router]
# Per-venue quote timeout
venue_timeout = "3s"
# Overall deadline for one routing pass
route_deadline = "5s"

[fees]
# Trading fee as a fraction of total value
trading_fee_rate = 0.001
# Platform-token fee as a multiple of the trading fee
platform_multiplier = 1.5

[feed]
# Reference price feed endpoint
url = ""
# Optional websocket stream endpoint
stream_url = ""
poll_interval = "10s"
symbols = ["BTC", "ETH", "SOL"]

# One [[venues]] block per liquidity source.
[[venues]]
name = "sim"
kind = "sim"

[notifications]
enabled = false
# Notification level: all, trades_only, errors_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[logging]
# Log level: debug, info, warn, error
level = "info"
# Mirror logs to the console
console = false
# Write logs to a rotating file (empty path = default config dir)
file = true
file_path = ""
`

const credentialsTemplate = `# Cryptodesk Credentials
# This file contains sensitive information. Keep it secure.

[openai]
api_key = ""
`

const advisorTemplate = `# Cryptodesk Advisor Configuration

# Enable AI-generated trade commentary. Advisory only: commentary never
# authorizes a trade on its own.
enabled = false
# Model used for commentary
model = "gpt-4o-mini"
# Minimum confidence for agent-driven orders to pass the execution gate
confidence_threshold = 80.0
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials are sensitive, restrict permissions
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}

func createTemplateAdvisorConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "advisor.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(advisorTemplate), 0644); err != nil {
		return fmt.Errorf("writing advisor template: %w", err)
	}
	return nil
}
