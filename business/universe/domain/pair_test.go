package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewPair(t *testing.T) {
	fee := decimal.RequireFromString("0.001")
	zero := decimal.Zero

	tests := []struct {
		name    string
		symbol  string
		base    string
		quote   string
		feeRate decimal.Decimal
		wantErr bool
	}{
		{
			name:   "valid_pair",
			symbol: "BTCUSDT", base: "BTC", quote: "USDT",
			feeRate: fee,
		},
		{
			name:   "normalizes_case_and_whitespace",
			symbol: " btcusdt ", base: " btc", quote: "usdt ",
			feeRate: fee,
		},
		{
			name:   "empty_symbol",
			symbol: "", base: "BTC", quote: "USDT",
			feeRate: fee, wantErr: true,
		},
		{
			name:   "empty_base",
			symbol: "BTCUSDT", base: "", quote: "USDT",
			feeRate: fee, wantErr: true,
		},
		{
			name:   "base_equals_quote",
			symbol: "USDTUSDT", base: "USDT", quote: "USDT",
			feeRate: fee, wantErr: true,
		},
		{
			name:   "negative_fee",
			symbol: "BTCUSDT", base: "BTC", quote: "USDT",
			feeRate: decimal.RequireFromString("-0.001"), wantErr: true,
		},
		{
			name:   "fee_of_one",
			symbol: "BTCUSDT", base: "BTC", quote: "USDT",
			feeRate: decimal.NewFromInt(1), wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPair(tt.symbol, tt.base, tt.quote, tt.feeRate, zero, zero, zero)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got pair %+v", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Symbol != "BTCUSDT" || p.Base != "BTC" || p.Quote != "USDT" {
				t.Errorf("pair not normalized: %+v", p)
			}
		})
	}
}

func TestPair_RoundQty(t *testing.T) {
	tests := []struct {
		name string
		step string
		qty  string
		want string
	}{
		{"rounds_down_to_step", "0.001", "0.123456", "0.123"},
		{"exact_multiple_unchanged", "0.01", "1.23", "1.23"},
		{"below_step_rounds_to_zero", "0.01", "0.005", "0"},
		{"zero_step_passthrough", "0", "0.123456", "0.123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Pair{QtyStep: decimal.RequireFromString(tt.step)}
			got := p.RoundQty(decimal.RequireFromString(tt.qty))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("RoundQty(%s) = %s, want %s", tt.qty, got, tt.want)
			}
		})
	}
}

func TestPair_MeetsMinNotional(t *testing.T) {
	p := Pair{MinNotional: decimal.NewFromInt(10)}

	if !p.MeetsMinNotional(decimal.NewFromInt(1), decimal.NewFromInt(10)) {
		t.Error("exactly the minimum should pass")
	}
	if p.MeetsMinNotional(decimal.NewFromInt(1), decimal.NewFromInt(9)) {
		t.Error("below the minimum should fail")
	}

	unfiltered := Pair{}
	if !unfiltered.MeetsMinNotional(decimal.Zero, decimal.Zero) {
		t.Error("zero minimum should always pass")
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell {
		t.Error("opposite of BUY should be SELL")
	}
	if SideSell.Opposite() != SideBuy {
		t.Error("opposite of SELL should be BUY")
	}
}
