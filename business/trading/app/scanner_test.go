package app

import (
	"context"
	"testing"
	"time"

	pricingApp "github.com/fd1az/triarb-bot/business/pricing/app"
	pricingDomain "github.com/fd1az/triarb-bot/business/pricing/domain"
	universeApp "github.com/fd1az/triarb-bot/business/universe/app"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/ratelimit"
)

func newTestScanner(t *testing.T, cfg ScannerConfig, market *fakeMarket, stablecoins []string) *Scanner {
	t.Helper()

	universe, err := universeApp.NewUniverseService(
		universeApp.ServiceConfig{Stablecoins: stablecoins},
		market, nil, testLogger(),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := universe.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	pricing := pricingApp.NewPricingService(market, ratelimit.New(600000))

	scanner, err := NewScanner(cfg, universe, pricing, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return scanner
}

func triangleMarket(t *testing.T) *fakeMarket {
	m := profitableMarket()
	m.pairs = []universeDomain.Pair{
		execPair(t, "BTCUSDT", "BTC", "USDT"),
		execPair(t, "ETHBTC", "ETH", "BTC"),
		execPair(t, "ETHUSDT", "ETH", "USDT"),
	}
	return m
}

func TestScanner_Scan(t *testing.T) {
	ctx := context.Background()
	market := triangleMarket(t)

	scanner := newTestScanner(t, ScannerConfig{
		Notional:     d("100"),
		ProfitMargin: d("0.003"),
	}, market, []string{"USDT"})

	candidates, stats, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	// Both triangle directions exist, only USDT -> BTC -> ETH -> USDT
	// is priced above water on this book.
	if stats.Cycles != 2 {
		t.Errorf("stats.Cycles = %d, want 2", stats.Cycles)
	}
	if stats.Priced != 2 {
		t.Errorf("stats.Priced = %d, want 2", stats.Priced)
	}
	if stats.Skipped != 0 {
		t.Errorf("stats.Skipped = %d, want 0", stats.Skipped)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if stats.Candidates != 1 {
		t.Errorf("stats.Candidates = %d, want 1", stats.Candidates)
	}

	top := candidates[0]
	if got := top.Cycle.String(); got != "USDT -> BTC -> ETH -> USDT" {
		t.Errorf("top candidate = %s", got)
	}
	if !top.Profitable(d("0.003")) {
		t.Errorf("candidate yield %s below margin", top.NetYield)
	}
}

func TestScanner_MissingQuoteSkipsCycle(t *testing.T) {
	ctx := context.Background()
	market := triangleMarket(t)
	delete(market.quotes, "ETHBTC")

	scanner := newTestScanner(t, ScannerConfig{
		Notional:     d("100"),
		ProfitMargin: d("0.003"),
	}, market, []string{"USDT"})

	candidates, stats, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	// Both directions touch ETHBTC, so both sit out this pass.
	if stats.Skipped != 2 {
		t.Errorf("stats.Skipped = %d, want 2", stats.Skipped)
	}
	if stats.Priced != 0 {
		t.Errorf("stats.Priced = %d, want 0", stats.Priced)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0", len(candidates))
	}
}

func TestScanner_StaleQuoteSkipsCycle(t *testing.T) {
	ctx := context.Background()
	market := triangleMarket(t)
	market.quotes["ETHBTC"].CapturedAt = time.Now().Add(-time.Minute)

	scanner := newTestScanner(t, ScannerConfig{
		Notional:       d("100"),
		ProfitMargin:   d("0.003"),
		QuoteFreshness: 3 * time.Second,
	}, market, []string{"USDT"})

	candidates, stats, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	// A quote past the freshness window counts the same as a missing
	// one; both ETHBTC cycles sit out this pass.
	if stats.Skipped != 2 {
		t.Errorf("stats.Skipped = %d, want 2", stats.Skipped)
	}
	if stats.Priced != 0 {
		t.Errorf("stats.Priced = %d, want 0", stats.Priced)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0", len(candidates))
	}
}

func TestScanner_RanksByYield(t *testing.T) {
	ctx := context.Background()

	// Two anchored triangles sharing ETHBTC. The USDC book pays a
	// wider exit so its cycle must rank first.
	market := &fakeMarket{
		pairs: []universeDomain.Pair{
			execPair(t, "BTCUSDT", "BTC", "USDT"),
			execPair(t, "ETHUSDT", "ETH", "USDT"),
			execPair(t, "BTCUSDC", "BTC", "USDC"),
			execPair(t, "ETHUSDC", "ETH", "USDC"),
			execPair(t, "ETHBTC", "ETH", "BTC"),
		},
		quotes: map[string]*pricingDomain.Quote{
			"BTCUSDT": bookQuote("BTCUSDT", "49990", "50000"),
			"BTCUSDC": bookQuote("BTCUSDC", "49990", "50000"),
			"ETHBTC":  bookQuote("ETHBTC", "0.0499", "0.05"),
			"ETHUSDT": bookQuote("ETHUSDT", "2530", "2531"),
			"ETHUSDC": bookQuote("ETHUSDC", "2560", "2561"),
		},
	}

	scanner := newTestScanner(t, ScannerConfig{
		Notional:     d("100"),
		ProfitMargin: d("0.003"),
	}, market, []string{"USDT", "USDC"})

	candidates, _, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(candidates) < 2 {
		t.Fatalf("got %d candidates, want at least 2", len(candidates))
	}

	for i := 1; i < len(candidates); i++ {
		if candidates[i].NetYield.GreaterThan(candidates[i-1].NetYield) {
			t.Errorf("candidates not sorted by yield: %s after %s",
				candidates[i].NetYield, candidates[i-1].NetYield)
		}
	}
	if candidates[0].Cycle.Start != "USDC" {
		t.Errorf("top candidate anchored at %s, want USDC", candidates[0].Cycle.Start)
	}
}

func TestScanner_CapsCandidates(t *testing.T) {
	ctx := context.Background()
	market := triangleMarket(t)

	scanner := newTestScanner(t, ScannerConfig{
		Notional:         d("100"),
		ProfitMargin:     d("-1"), // everything is a candidate
		MaxOpportunities: 1,
	}, market, []string{"USDT"})

	candidates, stats, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want cap of 1", len(candidates))
	}
	if stats.Candidates != 1 {
		t.Errorf("stats.Candidates = %d, want 1", stats.Candidates)
	}
}

func TestScanner_UniverseNotLoaded(t *testing.T) {
	market := triangleMarket(t)

	universe, err := universeApp.NewUniverseService(
		universeApp.ServiceConfig{Stablecoins: []string{"USDT"}},
		market, nil, testLogger(),
	)
	if err != nil {
		t.Fatal(err)
	}

	pricing := pricingApp.NewPricingService(market, ratelimit.New(600000))
	scanner, err := NewScanner(ScannerConfig{Notional: d("100")}, universe, pricing, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := scanner.Scan(context.Background()); err == nil {
		t.Error("Scan before the universe loads should fail")
	}
}
