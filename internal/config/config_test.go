package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test-bot\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "test-bot" {
		t.Errorf("App.Name = %q, want test-bot", cfg.App.Name)
	}
	if cfg.Trading.TradeNotional != 100.0 {
		t.Errorf("TradeNotional = %v, want 100", cfg.Trading.TradeNotional)
	}
	if cfg.Trading.ProfitMargin != 0.003 {
		t.Errorf("ProfitMargin = %v, want 0.003", cfg.Trading.ProfitMargin)
	}
	if cfg.Trading.ScanInterval != 3*time.Second {
		t.Errorf("ScanInterval = %v, want 3s", cfg.Trading.ScanInterval)
	}
	if !cfg.Trading.DryRun {
		t.Error("DryRun should default to true")
	}
	if cfg.Trading.UnwindOnPartial {
		t.Error("UnwindOnPartial should default to false")
	}
	if cfg.Binance.DepthLimit != 5 {
		t.Errorf("DepthLimit = %d, want 5", cfg.Binance.DepthLimit)
	}
	if len(cfg.Universe.Stablecoins) != 4 {
		t.Errorf("Stablecoins = %v, want the four defaults", cfg.Universe.Stablecoins)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
trading:
  trade_notional: 250
  scan_interval: 10s
  slippage_bps: 25
universe:
  stablecoins:
    - USDT
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Trading.TradeNotional != 250 {
		t.Errorf("TradeNotional = %v, want 250", cfg.Trading.TradeNotional)
	}
	if cfg.Trading.ScanInterval != 10*time.Second {
		t.Errorf("ScanInterval = %v, want 10s", cfg.Trading.ScanInterval)
	}
	if len(cfg.Universe.Stablecoins) != 1 || cfg.Universe.Stablecoins[0] != "USDT" {
		t.Errorf("Stablecoins = %v, want [USDT]", cfg.Universe.Stablecoins)
	}
	if !cfg.Trading.SlippageDecimal().Equal(decimal.RequireFromString("0.0025")) {
		t.Errorf("SlippageDecimal = %s, want 0.0025", cfg.Trading.SlippageDecimal())
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Binance: BinanceConfig{
				WebSocketURL: "wss://stream.binance.com:9443",
				RESTURL:      "https://api.binance.com",
			},
			Universe: UniverseConfig{Stablecoins: []string{"USDT"}},
			Trading: TradingConfig{
				TradeNotional:    100,
				ProfitMargin:     0.003,
				FeeRate:          0.001,
				ScanInterval:     3 * time.Second,
				MaxParallelFetch: 5,
				DryRun:           true,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing_ws_url", mutate: func(c *Config) { c.Binance.WebSocketURL = "" }, wantErr: true},
		{name: "missing_rest_url", mutate: func(c *Config) { c.Binance.RESTURL = "" }, wantErr: true},
		{name: "no_stablecoins", mutate: func(c *Config) { c.Universe.Stablecoins = nil }, wantErr: true},
		{name: "zero_notional", mutate: func(c *Config) { c.Trading.TradeNotional = 0 }, wantErr: true},
		{name: "negative_margin", mutate: func(c *Config) { c.Trading.ProfitMargin = -0.001 }, wantErr: true},
		{name: "fee_at_one", mutate: func(c *Config) { c.Trading.FeeRate = 1 }, wantErr: true},
		{name: "negative_fee", mutate: func(c *Config) { c.Trading.FeeRate = -0.1 }, wantErr: true},
		{name: "zero_scan_interval", mutate: func(c *Config) { c.Trading.ScanInterval = 0 }, wantErr: true},
		{name: "zero_parallel_fetch", mutate: func(c *Config) { c.Trading.MaxParallelFetch = 0 }, wantErr: true},
		{name: "live_without_api_key", mutate: func(c *Config) { c.Trading.DryRun = false }, wantErr: true},
		{
			name: "live_with_api_key",
			mutate: func(c *Config) {
				c.Trading.DryRun = false
				c.Binance.APIKey = "key"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTradingConfig_DecimalAccessors(t *testing.T) {
	c := TradingConfig{
		TradeNotional: 100,
		ProfitMargin:  0.003,
		FeeRate:       0.001,
		SlippageBps:   10,
	}

	if !c.TradeNotionalDecimal().Equal(decimal.NewFromInt(100)) {
		t.Errorf("TradeNotionalDecimal = %s", c.TradeNotionalDecimal())
	}
	if !c.ProfitMarginDecimal().Equal(decimal.RequireFromString("0.003")) {
		t.Errorf("ProfitMarginDecimal = %s", c.ProfitMarginDecimal())
	}
	if !c.FeeRateDecimal().Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("FeeRateDecimal = %s", c.FeeRateDecimal())
	}
	if !c.SlippageDecimal().Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("SlippageDecimal = %s, want 0.001", c.SlippageDecimal())
	}
}
