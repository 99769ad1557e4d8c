package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testPair(t *testing.T, symbol, base, quote string) Pair {
	t.Helper()
	p, err := NewPair(symbol, base, quote,
		decimal.RequireFromString("0.001"), decimal.Zero, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("building pair %s: %v", symbol, err)
	}
	return p
}

// usdtBtcEth returns the hops of a USDT -> BTC -> ETH -> USDT cycle.
func usdtBtcEth(t *testing.T) [3]Hop {
	t.Helper()
	btcusdt := testPair(t, "BTCUSDT", "BTC", "USDT")
	ethbtc := testPair(t, "ETHBTC", "ETH", "BTC")
	ethusdt := testPair(t, "ETHUSDT", "ETH", "USDT")

	return [3]Hop{
		{Pair: btcusdt, Side: SideBuy, From: "USDT", To: "BTC"},
		{Pair: ethbtc, Side: SideBuy, From: "BTC", To: "ETH"},
		{Pair: ethusdt, Side: SideSell, From: "ETH", To: "USDT"},
	}
}

func TestNewCycle(t *testing.T) {
	hops := usdtBtcEth(t)

	cycle, err := NewCycle("USDT", hops)
	if err != nil {
		t.Fatalf("valid cycle rejected: %v", err)
	}
	if got := cycle.String(); got != "USDT -> BTC -> ETH -> USDT" {
		t.Errorf("String() = %q", got)
	}
	if got := cycle.Key(); got != "USDT|BUY:BTCUSDT|BUY:ETHBTC|SELL:ETHUSDT" {
		t.Errorf("Key() = %q", got)
	}

	x, y := cycle.Assets()
	if x != "BTC" || y != "ETH" {
		t.Errorf("Assets() = %s, %s", x, y)
	}
}

func TestNewCycle_Invalid(t *testing.T) {
	valid := usdtBtcEth(t)

	t.Run("wrong_start", func(t *testing.T) {
		if _, err := NewCycle("USDC", valid); err == nil {
			t.Error("cycle starting elsewhere should be rejected")
		}
	})

	t.Run("broken_continuity", func(t *testing.T) {
		hops := valid
		hops[1].From = "ETH" // hop 1 ends at BTC
		if _, err := NewCycle("USDT", hops); err == nil {
			t.Error("discontinuous hops should be rejected")
		}
	})

	t.Run("open_cycle", func(t *testing.T) {
		hops := valid
		hops[2].To = "USDC"
		if _, err := NewCycle("USDT", hops); err == nil {
			t.Error("cycle not returning to start should be rejected")
		}
	})

	t.Run("side_direction_mismatch", func(t *testing.T) {
		hops := valid
		hops[0].Side = SideSell // selling BTCUSDT moves BTC -> USDT, not USDT -> BTC
		if _, err := NewCycle("USDT", hops); err == nil {
			t.Error("side contradicting traversal direction should be rejected")
		}
	})
}

func TestCycleSet_DistinctSymbols(t *testing.T) {
	hops := usdtBtcEth(t)
	c1, err := NewCycle("USDT", hops)
	if err != nil {
		t.Fatal(err)
	}

	// Second cycle reuses BTCUSDT and ETHBTC via the reverse direction.
	hops2 := [3]Hop{
		{Pair: hops[2].Pair, Side: SideBuy, From: "USDT", To: "ETH"},
		{Pair: hops[1].Pair, Side: SideSell, From: "ETH", To: "BTC"},
		{Pair: hops[0].Pair, Side: SideSell, From: "BTC", To: "USDT"},
	}
	c2, err := NewCycle("USDT", hops2)
	if err != nil {
		t.Fatal(err)
	}

	set := &CycleSet{Cycles: []Cycle{c1, c2}}
	symbols := set.DistinctSymbols()
	if len(symbols) != 3 {
		t.Errorf("DistinctSymbols() = %v, want 3 unique symbols", symbols)
	}
}
