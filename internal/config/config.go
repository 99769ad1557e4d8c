// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Universe  UniverseConfig  `mapstructure:"universe"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// BinanceConfig holds venue connectivity configuration.
type BinanceConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	RESTURL        string        `mapstructure:"rest_url"`
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	DepthLimit     int           `mapstructure:"depth_limit"`
	DepthSpeedMs   int           `mapstructure:"depth_speed_ms"`
	StaleTimeout   time.Duration `mapstructure:"stale_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
}

// UniverseConfig holds pair universe and path cache configuration.
type UniverseConfig struct {
	Stablecoins     []string `mapstructure:"stablecoins"`
	QuoteAssets     []string `mapstructure:"quote_assets"` // limit intermediates to these assets plus the stablecoins (empty = all)
	CachePath       string   `mapstructure:"cache_path"`
	PruneOldEntries bool     `mapstructure:"prune_old_entries"`
}

// TradingConfig holds scanning and execution configuration.
type TradingConfig struct {
	TradeNotional     float64       `mapstructure:"trade_notional"`
	ProfitMargin      float64       `mapstructure:"profit_margin"`
	FeeRate           float64       `mapstructure:"fee_rate"`
	ScanInterval      time.Duration `mapstructure:"scan_interval"`
	MaxParallelFetch  int           `mapstructure:"max_parallel_fetch"`
	QuoteFreshness    time.Duration `mapstructure:"quote_freshness"`
	SlippageBps       float64       `mapstructure:"slippage_bps"`
	LegTimeout        time.Duration `mapstructure:"leg_timeout"`
	DryRun            bool          `mapstructure:"dry_run"`
	UnwindOnPartial   bool          `mapstructure:"unwind_on_partial"`
	MaxOpportunities  int           `mapstructure:"max_opportunities"`
	TUIMode           bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// TradeNotionalDecimal returns the trade notional as decimal.Decimal.
func (c *TradingConfig) TradeNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TradeNotional)
}

// ProfitMarginDecimal returns the profit margin as decimal.Decimal.
func (c *TradingConfig) ProfitMarginDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ProfitMargin)
}

// FeeRateDecimal returns the taker fee rate as decimal.Decimal.
func (c *TradingConfig) FeeRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FeeRate)
}

// SlippageDecimal returns the slippage tolerance as a fraction.
func (c *TradingConfig) SlippageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageBps).Div(decimal.NewFromInt(10000))
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("TRI")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "TRI_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "TRI_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "TRI_LOG_LEVEL", "LOG_LEVEL")

	// Binance
	v.BindEnv("binance.websocket_url", "TRI_BINANCE_WS_URL", "BINANCE_WS_URL")
	v.BindEnv("binance.rest_url", "TRI_BINANCE_REST_URL", "BINANCE_REST_URL")
	v.BindEnv("binance.api_key", "TRI_BINANCE_API_KEY", "BINANCE_API_KEY")
	v.BindEnv("binance.api_secret", "TRI_BINANCE_API_SECRET", "BINANCE_API_SECRET")

	// Universe
	v.BindEnv("universe.stablecoins", "TRI_STABLECOINS")
	v.BindEnv("universe.cache_path", "TRI_CACHE_PATH")

	// Trading
	v.BindEnv("trading.trade_notional", "TRI_TRADE_NOTIONAL")
	v.BindEnv("trading.profit_margin", "TRI_PROFIT_MARGIN")
	v.BindEnv("trading.scan_interval", "TRI_SCAN_INTERVAL")
	v.BindEnv("trading.dry_run", "TRI_DRY_RUN")

	// Telemetry
	v.BindEnv("telemetry.enabled", "TRI_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "TRI_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "TRI_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "triarb-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Binance defaults
	v.SetDefault("binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("binance.rest_url", "https://api.binance.com")
	v.SetDefault("binance.depth_limit", 5)
	v.SetDefault("binance.depth_speed_ms", 100)
	v.SetDefault("binance.stale_timeout", "5s")
	v.SetDefault("binance.request_timeout", "10s")
	v.SetDefault("binance.requests_per_min", 1200)

	// Universe defaults
	v.SetDefault("universe.stablecoins", []string{"USDT", "USDC", "BUSD", "FDUSD"})
	v.SetDefault("universe.cache_path", "paths.db")
	v.SetDefault("universe.prune_old_entries", false)

	// Trading defaults
	v.SetDefault("trading.trade_notional", 100.0)
	v.SetDefault("trading.profit_margin", 0.003)
	v.SetDefault("trading.fee_rate", 0.001)
	v.SetDefault("trading.scan_interval", "3s")
	v.SetDefault("trading.max_parallel_fetch", 5)
	v.SetDefault("trading.quote_freshness", "3s")
	v.SetDefault("trading.slippage_bps", 10)
	v.SetDefault("trading.leg_timeout", "5s")
	v.SetDefault("trading.dry_run", true)
	v.SetDefault("trading.unwind_on_partial", false)
	v.SetDefault("trading.max_opportunities", 10)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "triarb-bot")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Binance.WebSocketURL == "" {
		return fmt.Errorf("binance.websocket_url is required")
	}
	if c.Binance.RESTURL == "" {
		return fmt.Errorf("binance.rest_url is required")
	}
	if len(c.Universe.Stablecoins) == 0 {
		return fmt.Errorf("universe.stablecoins cannot be empty")
	}
	if c.Trading.TradeNotional <= 0 {
		return fmt.Errorf("trading.trade_notional must be positive")
	}
	if c.Trading.ProfitMargin < 0 {
		return fmt.Errorf("trading.profit_margin cannot be negative")
	}
	if c.Trading.FeeRate < 0 || c.Trading.FeeRate >= 1 {
		return fmt.Errorf("trading.fee_rate must be in [0, 1)")
	}
	if c.Trading.ScanInterval <= 0 {
		return fmt.Errorf("trading.scan_interval must be positive")
	}
	if c.Trading.MaxParallelFetch <= 0 {
		return fmt.Errorf("trading.max_parallel_fetch must be positive")
	}
	if !c.Trading.DryRun && c.Binance.APIKey == "" {
		return fmt.Errorf("binance.api_key is required for live trading")
	}
	return nil
}
