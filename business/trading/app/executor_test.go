package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pricingApp "github.com/fd1az/triarb-bot/business/pricing/app"
	pricingDomain "github.com/fd1az/triarb-bot/business/pricing/domain"
	"github.com/fd1az/triarb-bot/business/trading/domain"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
	"github.com/fd1az/triarb-bot/internal/logger"
	"github.com/fd1az/triarb-bot/internal/ratelimit"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// fakeMarket serves canned pairs and quotes. Missing symbols error.
type fakeMarket struct {
	pairs  []universeDomain.Pair
	quotes map[string]*pricingDomain.Quote
}

func (f *fakeMarket) ListTradablePairs(ctx context.Context) ([]universeDomain.Pair, error) {
	return f.pairs, nil
}

func (f *fakeMarket) GetQuote(ctx context.Context, symbol string) (*pricingDomain.Quote, error) {
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, apperror.New(apperror.CodeOrderbookFetchFailed,
			apperror.WithContext("no quote for "+symbol))
	}
	return q, nil
}

// fakeGateway answers each submission from a script and records the
// requests it saw.
type fakeGateway struct {
	market   *fakeMarket
	failAt   int   // 1-based submission index to fail, 0 never
	failWith error // error returned at failAt
	requests []pricingDomain.OrderRequest
}

func (g *fakeGateway) SubmitOrder(ctx context.Context, req pricingDomain.OrderRequest) (*pricingDomain.Fill, error) {
	g.requests = append(g.requests, req)
	if g.failAt > 0 && len(g.requests) == g.failAt {
		return nil, g.failWith
	}

	q, ok := g.market.quotes[req.Symbol]
	if !ok {
		return nil, apperror.New(apperror.CodeOrderRejected)
	}

	fee := d("0.001")
	fill := &pricingDomain.Fill{Symbol: req.Symbol, Side: req.Side, FilledAt: time.Now()}
	if req.Side == pricingDomain.OrderSideBuy {
		price := q.Asks[0].Price
		fill.FilledQty = req.QuoteQty.Div(price)
		fill.QuoteQty = req.QuoteQty
		fill.AvgPrice = price
		fill.Commission = fill.FilledQty.Mul(fee)
	} else {
		price := q.Bids[0].Price
		fill.FilledQty = req.Qty
		fill.QuoteQty = req.Qty.Mul(price)
		fill.AvgPrice = price
		fill.Commission = fill.QuoteQty.Mul(fee)
	}
	return fill, nil
}

// countingAudit records every terminal result it sees.
type countingAudit struct {
	results []*domain.ExecutionResult
}

func (a *countingAudit) Record(ctx context.Context, result *domain.ExecutionResult) error {
	a.results = append(a.results, result)
	return nil
}

func (a *countingAudit) Close() error { return nil }

func execPair(t testing.TB, symbol, base, quote string) universeDomain.Pair {
	t.Helper()
	p, err := universeDomain.NewPair(symbol, base, quote,
		d("0.001"), decimal.Zero, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func execCycle(t testing.TB) universeDomain.Cycle {
	t.Helper()
	cycle, err := universeDomain.NewCycle("USDT", [3]universeDomain.Hop{
		{Pair: execPair(t, "BTCUSDT", "BTC", "USDT"), Side: universeDomain.SideBuy, From: "USDT", To: "BTC"},
		{Pair: execPair(t, "ETHBTC", "ETH", "BTC"), Side: universeDomain.SideBuy, From: "BTC", To: "ETH"},
		{Pair: execPair(t, "ETHUSDT", "ETH", "USDT"), Side: universeDomain.SideSell, From: "ETH", To: "USDT"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return cycle
}

func bookQuote(symbol, bid, ask string) *pricingDomain.Quote {
	return &pricingDomain.Quote{
		Symbol:     symbol,
		Bids:       []pricingDomain.Level{{Price: d(bid), Qty: d("1000")}},
		Asks:       []pricingDomain.Level{{Price: d(ask), Qty: d("1000")}},
		CapturedAt: time.Now(),
	}
}

func profitableMarket() *fakeMarket {
	return &fakeMarket{
		quotes: map[string]*pricingDomain.Quote{
			"BTCUSDT": bookQuote("BTCUSDT", "49990", "50000"),
			"ETHBTC":  bookQuote("ETHBTC", "0.0499", "0.05"),
			"ETHUSDT": bookQuote("ETHUSDT", "2530", "2531"),
		},
	}
}

func pricedOpportunity(t testing.TB, market *fakeMarket) *domain.Opportunity {
	t.Helper()
	opp, err := domain.PriceCycle(execCycle(t), market.quotes, d("100"))
	if err != nil {
		t.Fatal(err)
	}
	return opp
}

func newTestExecutor(t testing.TB, cfg ExecutorConfig, gateway pricingApp.OrderGateway, market *fakeMarket, audit AuditLog) *Executor {
	t.Helper()
	pricing := pricingApp.NewPricingService(market, ratelimit.New(600000))
	e, err := NewExecutor(cfg, gateway, pricing, audit, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestExecutor_Completed(t *testing.T) {
	ctx := context.Background()
	market := profitableMarket()
	gateway := &fakeGateway{market: market}
	audit := &countingAudit{}

	exec := newTestExecutor(t, ExecutorConfig{
		Slippage: d("0.001"),
		DryRun:   true,
	}, gateway, market, audit)

	opp := pricedOpportunity(t, market)
	result := exec.Execute(ctx, opp)

	if result.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", result.Status)
	}
	if result.FailedLeg != -1 {
		t.Errorf("FailedLeg = %d, want -1", result.FailedLeg)
	}
	if len(result.Legs) != 3 {
		t.Fatalf("got %d legs, want 3", len(result.Legs))
	}
	if len(gateway.requests) != 3 {
		t.Errorf("gateway saw %d orders, want 3", len(gateway.requests))
	}
	if !result.DryRun {
		t.Error("dry-run flag lost")
	}

	// Legs run in cycle order: buy, buy, sell.
	if gateway.requests[0].Side != pricingDomain.OrderSideBuy || gateway.requests[0].Symbol != "BTCUSDT" {
		t.Errorf("leg 1 request = %+v", gateway.requests[0])
	}
	if gateway.requests[2].Side != pricingDomain.OrderSideSell || gateway.requests[2].Symbol != "ETHUSDT" {
		t.Errorf("leg 3 request = %+v", gateway.requests[2])
	}

	// Buys spend the quote amount in hand, sells pass base quantity.
	if gateway.requests[0].QuoteQty.IsZero() || !gateway.requests[0].Qty.IsZero() {
		t.Error("buy leg should carry QuoteQty only")
	}
	if gateway.requests[2].Qty.IsZero() || !gateway.requests[2].QuoteQty.IsZero() {
		t.Error("sell leg should carry Qty only")
	}

	if result.Profit().LessThanOrEqual(decimal.Zero) {
		t.Errorf("profit = %s, want positive on a profitable book", result.Profit())
	}
	if result.Exposed() {
		t.Error("completed execution must not report exposure")
	}
	if len(audit.results) != 1 {
		t.Errorf("audit recorded %d results, want 1", len(audit.results))
	}
}

func TestExecutor_PartialOnSecondLeg(t *testing.T) {
	ctx := context.Background()
	market := profitableMarket()
	gateway := &fakeGateway{
		market:   market,
		failAt:   2,
		failWith: apperror.New(apperror.CodeOrderRejected),
	}
	audit := &countingAudit{}

	exec := newTestExecutor(t, ExecutorConfig{Slippage: d("0.001")}, gateway, market, audit)
	result := exec.Execute(ctx, pricedOpportunity(t, market))

	if result.Status != domain.StatusPartial {
		t.Fatalf("status = %s, want PARTIAL_EXECUTION", result.Status)
	}
	if result.FailedLeg != 1 {
		t.Errorf("FailedLeg = %d, want 1", result.FailedLeg)
	}
	if len(result.Legs) != 2 {
		t.Fatalf("got %d legs, want 2: the third leg must never be attempted", len(result.Legs))
	}
	if result.Legs[0].Failed() {
		t.Error("first leg fill must be preserved")
	}
	if result.Legs[1].FailureCode != string(apperror.CodeOrderRejected) {
		t.Errorf("leg 2 failure code = %q", result.Legs[1].FailureCode)
	}
	if !result.Exposed() {
		t.Error("partial without unwind must report exposure")
	}
	if len(audit.results) != 1 {
		t.Error("partial execution must always be audited")
	}
}

func TestExecutor_SlippageAborts(t *testing.T) {
	ctx := context.Background()
	market := profitableMarket()
	gateway := &fakeGateway{market: market}

	exec := newTestExecutor(t, ExecutorConfig{Slippage: d("0.0005")}, gateway, market, &countingAudit{})
	opp := pricedOpportunity(t, market)

	// The ask moves 0.1% against the plan, beyond the 5bps tolerance.
	market.quotes["BTCUSDT"] = bookQuote("BTCUSDT", "49990", "50050")

	result := exec.Execute(ctx, opp)

	if result.Status != domain.StatusAborted {
		t.Fatalf("status = %s, want ABORTED", result.Status)
	}
	if len(gateway.requests) != 0 {
		t.Errorf("gateway saw %d orders, want 0 before submission", len(gateway.requests))
	}
	if result.Legs[0].FailureCode != string(apperror.CodeSlippageExceeded) {
		t.Errorf("failure code = %q, want slippage", result.Legs[0].FailureCode)
	}
	if result.Exposed() {
		t.Error("aborted execution has no exposure")
	}
}

func TestExecutor_UnwindOnPartial(t *testing.T) {
	ctx := context.Background()
	market := profitableMarket()
	gateway := &fakeGateway{
		market:   market,
		failAt:   2,
		failWith: apperror.New(apperror.CodeOrderRejected),
	}

	exec := newTestExecutor(t, ExecutorConfig{
		Slippage:        d("0.001"),
		UnwindOnPartial: true,
	}, gateway, market, &countingAudit{})

	result := exec.Execute(ctx, pricedOpportunity(t, market))

	if result.Status != domain.StatusPartial {
		t.Fatalf("status = %s, want PARTIAL_EXECUTION", result.Status)
	}
	if len(result.Unwound) != 1 {
		t.Fatalf("got %d unwound legs, want 1", len(result.Unwound))
	}

	// Leg 1 bought BTC; the reversal sells it back.
	rev := result.Unwound[0]
	if rev.Symbol != "BTCUSDT" || rev.Side != pricingDomain.OrderSideSell {
		t.Errorf("reversal = %+v, want sell BTCUSDT", rev)
	}
	if rev.Failed() {
		t.Errorf("reversal failed: %s", rev.FailureCode)
	}
	if result.Exposed() {
		t.Error("unwound partial must not report exposure")
	}
}

func TestExecutor_UnwindFailureRecorded(t *testing.T) {
	ctx := context.Background()
	market := profitableMarket()

	// Leg 1 fills, then the venue goes down: leg 2 fails and so does
	// the unwind submission.
	gateway := &failAfterGateway{
		inner:    &fakeGateway{market: market},
		failFrom: 2,
	}

	exec := newTestExecutor(t, ExecutorConfig{
		Slippage:        d("0.001"),
		UnwindOnPartial: true,
	}, gateway, market, &countingAudit{})

	result := exec.Execute(ctx, pricedOpportunity(t, market))

	if result.Status != domain.StatusPartial {
		t.Fatalf("status = %s, want PARTIAL_EXECUTION", result.Status)
	}
	if len(result.Unwound) != 1 {
		t.Fatalf("got %d unwound legs, want 1", len(result.Unwound))
	}
	if result.Unwound[0].FailureCode != string(apperror.CodeUnwindFailed) {
		t.Errorf("unwind failure code = %q", result.Unwound[0].FailureCode)
	}
}

// failAfterGateway fails every submission from failFrom (1-based) on.
type failAfterGateway struct {
	inner    *fakeGateway
	failFrom int
	calls    int
}

func (g *failAfterGateway) SubmitOrder(ctx context.Context, req pricingDomain.OrderRequest) (*pricingDomain.Fill, error) {
	g.calls++
	if g.calls >= g.failFrom {
		return nil, errors.New("venue down")
	}
	return g.inner.SubmitOrder(ctx, req)
}
