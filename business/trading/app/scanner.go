package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pricingApp "github.com/fd1az/triarb-bot/business/pricing/app"
	pricingDomain "github.com/fd1az/triarb-bot/business/pricing/domain"
	"github.com/fd1az/triarb-bot/business/trading/domain"
	universeApp "github.com/fd1az/triarb-bot/business/universe/app"
	"github.com/fd1az/triarb-bot/internal/apperror"
	"github.com/fd1az/triarb-bot/internal/logger"
)

const (
	tracerName = "trading"
	meterName  = "trading"
)

// ScannerConfig holds opportunity scanner settings.
type ScannerConfig struct {
	Notional         decimal.Decimal // stablecoin amount to trade per cycle
	ProfitMargin     decimal.Decimal // candidate threshold, e.g. 0.003
	MaxParallelFetch int             // max in-flight quote fetches
	FetchTimeout     time.Duration   // per-fetch deadline
	QuoteFreshness   time.Duration   // max quote age usable for pricing
	MaxOpportunities int             // cap on returned candidates
}

type scannerMetrics struct {
	passes     metric.Int64Counter
	candidates metric.Int64Counter
	skipped    metric.Int64Counter
	rejected   metric.Int64Counter
	passTime   metric.Float64Histogram
}

// Scanner prices every cycle in the active snapshot against quotes
// fetched within a single pass.
type Scanner struct {
	config   ScannerConfig
	universe *universeApp.UniverseService
	pricing  *pricingApp.PricingService
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner wires the scanner.
func NewScanner(cfg ScannerConfig, universe *universeApp.UniverseService, pricing *pricingApp.PricingService, log logger.LoggerInterface) (*Scanner, error) {
	if cfg.MaxParallelFetch <= 0 {
		cfg.MaxParallelFetch = 5
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.QuoteFreshness <= 0 {
		cfg.QuoteFreshness = 3 * time.Second
	}

	s := &Scanner{
		config:   cfg,
		universe: universe,
		pricing:  pricing,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.passes, err = meter.Int64Counter(
		"scan_passes_total",
		metric.WithDescription("Completed scan passes"),
	)
	if err != nil {
		return err
	}

	s.metrics.candidates, err = meter.Int64Counter(
		"scan_candidates_total",
		metric.WithDescription("Candidates above the profit margin"),
	)
	if err != nil {
		return err
	}

	s.metrics.skipped, err = meter.Int64Counter(
		"scan_cycles_skipped_total",
		metric.WithDescription("Cycles skipped for missing quotes"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejected, err = meter.Int64Counter(
		"scan_cycles_rejected_total",
		metric.WithDescription("Cycles rejected on liquidity or book quality"),
	)
	if err != nil {
		return err
	}

	s.metrics.passTime, err = meter.Float64Histogram(
		"scan_pass_seconds",
		metric.WithDescription("Scan pass duration"),
	)
	return err
}

// Scan runs one pass: fetch a quote per distinct pair, price every
// cycle and return the ranked candidates. Cycles missing any quote
// are skipped until the next pass; quotes are never reused across
// passes.
func (s *Scanner) Scan(ctx context.Context) ([]*domain.Opportunity, ScanStats, error) {
	ctx, span := s.tracer.Start(ctx, "trading.scan")
	defer span.End()

	start := time.Now()

	set, err := s.universe.Snapshot()
	if err != nil {
		return nil, ScanStats{}, err
	}

	stats := ScanStats{Cycles: len(set.Cycles)}
	if len(set.Cycles) == 0 {
		return nil, stats, nil
	}

	quotes := s.fetchQuotes(ctx, set.DistinctSymbols())

	candidates := make([]*domain.Opportunity, 0)
	seen := make(map[string]struct{}, len(set.Cycles))

	for _, cycle := range set.Cycles {
		if _, dup := seen[cycle.Key()]; dup {
			continue
		}
		seen[cycle.Key()] = struct{}{}

		if missingQuote(cycle.Symbols(), quotes) {
			stats.Skipped++
			continue
		}

		opp, err := domain.PriceCycle(cycle, quotes, s.config.Notional)
		if err != nil {
			stats.Rejected++
			if apperror.GetCode(err) == apperror.CodeInsufficientLiquidity {
				s.logger.Debug(ctx, "cycle rejected on liquidity", "cycle", cycle.String())
			} else {
				s.logger.Debug(ctx, "cycle rejected", "cycle", cycle.String(), "error", err)
			}
			continue
		}

		stats.Priced++
		if opp.Profitable(s.config.ProfitMargin) {
			candidates = append(candidates, opp)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].NetYield.GreaterThan(candidates[j].NetYield)
	})
	if s.config.MaxOpportunities > 0 && len(candidates) > s.config.MaxOpportunities {
		candidates = candidates[:s.config.MaxOpportunities]
	}

	stats.Candidates = len(candidates)
	stats.Duration = time.Since(start)

	s.metrics.passes.Add(ctx, 1)
	s.metrics.candidates.Add(ctx, int64(stats.Candidates))
	s.metrics.skipped.Add(ctx, int64(stats.Skipped))
	s.metrics.rejected.Add(ctx, int64(stats.Rejected))
	s.metrics.passTime.Record(ctx, stats.Duration.Seconds())

	span.SetAttributes(
		attribute.Int("cycles", stats.Cycles),
		attribute.Int("priced", stats.Priced),
		attribute.Int("skipped", stats.Skipped),
		attribute.Int("candidates", stats.Candidates),
	)

	return candidates, stats, nil
}

// fetchQuotes fetches one quote per symbol through a bounded worker
// pool. A timed-out or failed fetch leaves the symbol absent from the
// result; the cycles touching it sit out this pass.
func (s *Scanner) fetchQuotes(ctx context.Context, symbols []string) map[string]*pricingDomain.Quote {
	quotes := make(map[string]*pricingDomain.Quote, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, s.config.MaxParallelFetch)

	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			// Shutdown mid-pass: wait for in-flight fetches, start no
			// new ones.
			wg.Wait()
			return quotes
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
			defer cancel()

			quote, err := s.pricing.GetQuote(fetchCtx, symbol)
			if err != nil {
				s.logger.Debug(ctx, "quote fetch failed", "symbol", symbol, "error", err)
				return
			}
			if quote.Stale(s.config.QuoteFreshness) {
				s.logger.Debug(ctx, "quote too old for pricing",
					"symbol", symbol, "captured_at", quote.CapturedAt)
				return
			}

			mu.Lock()
			quotes[symbol] = quote
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return quotes
}

func missingQuote(symbols [3]string, quotes map[string]*pricingDomain.Quote) bool {
	for _, sym := range symbols {
		if _, ok := quotes[sym]; !ok {
			return true
		}
	}
	return false
}
