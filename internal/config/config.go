// Package config provides configuration management for the trading core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading       TradingConfig      `mapstructure:"trading"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Router        RouterConfig       `mapstructure:"router"`
	Fees          FeeConfig          `mapstructure:"fees"`
	Venues        []VenueConfig      `mapstructure:"venues"`
	Feed          FeedConfig         `mapstructure:"feed"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Advisor       AdvisorConfig      `mapstructure:"-"` // Loaded separately
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode         string `mapstructure:"mode"` // "live", "sim"
	DefaultQuote string `mapstructure:"default_quote"`
	DatabasePath string `mapstructure:"database_path"`
}

// RiskConfig holds risk-control thresholds.
type RiskConfig struct {
	VolatilityHaltPct float64       `mapstructure:"volatility_halt_pct"`
	MaxPositionPct    float64       `mapstructure:"max_position_pct"`
	AnomalyTradeLimit int           `mapstructure:"anomaly_trade_limit"`
	AnomalyWindow     time.Duration `mapstructure:"anomaly_window"`
	MaintenanceMargin float64       `mapstructure:"maintenance_margin"`
	MaxLeverage       int           `mapstructure:"max_leverage"`
	StopScanInterval  time.Duration `mapstructure:"stop_scan_interval"`
	VolatilitySamples int           `mapstructure:"volatility_samples"`
}

// RouterConfig holds best-execution router configuration.
type RouterConfig struct {
	VenueTimeout  time.Duration `mapstructure:"venue_timeout"`
	RouteDeadline time.Duration `mapstructure:"route_deadline"`
}

// FeeConfig holds fee computation parameters.
type FeeConfig struct {
	TradingFeeRate     float64 `mapstructure:"trading_fee_rate"`
	PlatformMultiplier float64 `mapstructure:"platform_multiplier"`
}

// VenueConfig describes one configured liquidity venue.
type VenueConfig struct {
	Name    string        `mapstructure:"name"`
	Kind    string        `mapstructure:"kind"` // "http", "sim"
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FeedConfig holds reference price feed configuration.
type FeedConfig struct {
	URL          string        `mapstructure:"url"`
	StreamURL    string        `mapstructure:"stream_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Symbols      []string      `mapstructure:"symbols"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Level   string        `mapstructure:"level"` // all, trades_only, errors_only
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// AdvisorConfig holds advisory text service configuration.
type AdvisorConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	Model               string  `mapstructure:"model"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/cryptodesk"
	}
	return filepath.Join(home, ".config", "cryptodesk")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	if err := loadAdvisorConfig(configDir, &cfg.Advisor); err != nil {
		return nil, fmt.Errorf("loading advisor.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func loadAdvisorConfig(configDir string, advisor *AdvisorConfig) error {
	v := viper.New()
	v.SetConfigName("advisor")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("enabled", false)
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("confidence_threshold", 80.0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateAdvisorConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(advisor)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("CRYPTODESK_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
	if v := os.Getenv("CRYPTODESK_DB"); v != "" {
		cfg.Trading.DatabasePath = v
	}
	if v := os.Getenv("CRYPTODESK_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
		cfg.Notifications.Webhook.Enabled = true
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "sim"
	}
	if cfg.Trading.DefaultQuote == "" {
		cfg.Trading.DefaultQuote = "USDT"
	}
	if cfg.Trading.DatabasePath == "" {
		cfg.Trading.DatabasePath = filepath.Join(DefaultConfigDir(), "cryptodesk.db")
	}
	if cfg.Risk.VolatilityHaltPct == 0 {
		cfg.Risk.VolatilityHaltPct = 20.0
	}
	if cfg.Risk.MaxPositionPct == 0 {
		cfg.Risk.MaxPositionPct = 20.0
	}
	if cfg.Risk.AnomalyTradeLimit == 0 {
		cfg.Risk.AnomalyTradeLimit = 50
	}
	if cfg.Risk.AnomalyWindow == 0 {
		cfg.Risk.AnomalyWindow = time.Hour
	}
	if cfg.Risk.MaintenanceMargin == 0 {
		cfg.Risk.MaintenanceMargin = 0.05
	}
	if cfg.Risk.MaxLeverage == 0 {
		cfg.Risk.MaxLeverage = 10
	}
	if cfg.Risk.StopScanInterval == 0 {
		cfg.Risk.StopScanInterval = 5 * time.Second
	}
	if cfg.Risk.VolatilitySamples == 0 {
		cfg.Risk.VolatilitySamples = 10
	}
	if cfg.Router.VenueTimeout == 0 {
		cfg.Router.VenueTimeout = 3 * time.Second
	}
	if cfg.Router.RouteDeadline == 0 {
		cfg.Router.RouteDeadline = 5 * time.Second
	}
	if cfg.Fees.TradingFeeRate == 0 {
		cfg.Fees.TradingFeeRate = 0.001
	}
	if cfg.Fees.PlatformMultiplier == 0 {
		cfg.Fees.PlatformMultiplier = 1.5
	}
	if cfg.Feed.PollInterval == 0 {
		cfg.Feed.PollInterval = 10 * time.Second
	}
	if cfg.Notifications.Level == "" {
		cfg.Notifications.Level = "all"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(DefaultConfigDir(), "logs", "cryptodesk.log")
		cfg.Logging.File = true
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case "live", "sim":
	default:
		return fmt.Errorf("invalid trading mode: %s", c.Trading.Mode)
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 100 {
		return fmt.Errorf("max_position_pct must be in (0, 100], got %.2f", c.Risk.MaxPositionPct)
	}
	if c.Risk.MaxLeverage < 1 {
		return fmt.Errorf("max_leverage must be >= 1, got %d", c.Risk.MaxLeverage)
	}
	if c.Fees.TradingFeeRate < 0 {
		return fmt.Errorf("trading_fee_rate must be >= 0, got %f", c.Fees.TradingFeeRate)
	}
	for _, v := range c.Venues {
		if v.Name == "" {
			return fmt.Errorf("venue with empty name")
		}
		if v.Kind == "http" && v.URL == "" {
			return fmt.Errorf("http venue %s requires a url", v.Name)
		}
	}
	return nil
}
