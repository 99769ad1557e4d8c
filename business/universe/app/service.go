package app

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
	"github.com/fd1az/triarb-bot/internal/logger"
)

const (
	tracerName = "universe"
	meterName  = "universe"
)

// ServiceConfig holds the universe service settings.
type ServiceConfig struct {
	Stablecoins []string
	QuoteAssets []string // restrict intermediates when non-empty
	PruneCache  bool
}

type serviceMetrics struct {
	pairsLoaded  metric.Int64Gauge
	cyclesFound  metric.Int64Gauge
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	cacheCorrupt metric.Int64Counter
}

// UniverseService builds the pair universe, resolves cycles through
// the path cache and exposes an immutable snapshot for readers.
type UniverseService struct {
	config ServiceConfig
	source PairSource
	store  PathStore
	finder *CycleFinder
	logger logger.LoggerInterface

	snapshot atomic.Pointer[domain.CycleSet]

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewUniverseService wires the service. store may be nil, in which
// case every load rebuilds from scratch.
func NewUniverseService(cfg ServiceConfig, source PairSource, store PathStore, log logger.LoggerInterface) (*UniverseService, error) {
	s := &UniverseService{
		config: cfg,
		source: source,
		store:  store,
		finder: NewCycleFinder(cfg.Stablecoins, cfg.QuoteAssets),
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *UniverseService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.pairsLoaded, err = meter.Int64Gauge(
		"universe_pairs",
		metric.WithDescription("Tradable pairs in the current universe"),
	)
	if err != nil {
		return err
	}

	s.metrics.cyclesFound, err = meter.Int64Gauge(
		"universe_cycles",
		metric.WithDescription("Triangular cycles in the current snapshot"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheHits, err = meter.Int64Counter(
		"path_cache_hits_total",
		metric.WithDescription("Path cache hits"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheMisses, err = meter.Int64Counter(
		"path_cache_misses_total",
		metric.WithDescription("Path cache misses"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheCorrupt, err = meter.Int64Counter(
		"path_cache_corrupt_total",
		metric.WithDescription("Path cache corruption events"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Load fetches pairs from the venue, resolves cycles and swaps the
// snapshot. Safe to call again to refresh; readers keep the old
// snapshot until the swap.
func (s *UniverseService) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "universe.load")
	defer span.End()

	pairs, err := s.source.ListTradablePairs(ctx)
	if err != nil {
		span.RecordError(err)
		return apperror.Wrap(err, apperror.CodeConnectivityError, "listing tradable pairs")
	}

	u := domain.NewUniverse(pairs)
	s.metrics.pairsLoaded.Record(ctx, int64(u.Size()))
	span.SetAttributes(
		attribute.Int("pairs", u.Size()),
		attribute.String("fingerprint", u.Fingerprint()),
	)

	cycles, fromCache := s.resolveCycles(ctx, u)

	if len(cycles) == 0 {
		// Not fatal: the scanner idles until a refresh finds paths.
		s.logger.Warn(ctx, "no triangular paths found",
			"pairs", u.Size(),
			"stablecoins", s.config.Stablecoins)
	}

	if !fromCache && s.store != nil && len(cycles) > 0 {
		if err := s.store.Store(ctx, u.Fingerprint(), cycles); err != nil {
			// Persistence failure degrades to rebuild-on-restart.
			s.logger.Warn(ctx, "failed to persist paths", "error", err)
		}
		if s.config.PruneCache {
			if err := s.store.Prune(ctx, u.Fingerprint()); err != nil {
				s.logger.Warn(ctx, "path cache prune failed", "error", err)
			}
		}
	}

	set := &domain.CycleSet{Fingerprint: u.Fingerprint(), Cycles: cycles}
	s.snapshot.Store(set)
	s.metrics.cyclesFound.Record(ctx, int64(len(cycles)))

	s.logger.Info(ctx, "universe loaded",
		"pairs", u.Size(),
		"cycles", len(cycles),
		"from_cache", fromCache,
		"fingerprint", u.Fingerprint()[:12])

	return nil
}

// resolveCycles loads from the cache when the fingerprint matches and
// rebuilds otherwise. Cache corruption downgrades to a rebuild.
func (s *UniverseService) resolveCycles(ctx context.Context, u *domain.Universe) ([]domain.Cycle, bool) {
	if s.store != nil {
		cached, ok, err := s.store.Load(ctx, u.Fingerprint())
		switch {
		case err != nil:
			s.metrics.cacheCorrupt.Add(ctx, 1)
			corrupt := apperror.New(apperror.CodeCacheCorrupt, apperror.WithCause(err))
			s.logger.Warn(ctx, "path cache unusable, rebuilding", "error", corrupt)
		case ok:
			if cycles, valid := s.rebindCycles(cached, u); valid {
				s.metrics.cacheHits.Add(ctx, 1)
				return cycles, true
			}
			s.metrics.cacheCorrupt.Add(ctx, 1)
			s.logger.Warn(ctx, "cached paths reference unknown pairs, rebuilding")
		default:
			s.metrics.cacheMisses.Add(ctx, 1)
		}
	}

	return s.finder.Find(u), false
}

// rebindCycles refreshes cached cycle pair metadata from the live
// universe so fee or step changes are picked up. A cycle referencing
// a symbol missing from the universe invalidates the whole entry.
func (s *UniverseService) rebindCycles(cached []domain.Cycle, u *domain.Universe) ([]domain.Cycle, bool) {
	out := make([]domain.Cycle, 0, len(cached))
	for _, c := range cached {
		var hops [3]domain.Hop
		for i, h := range c.Hops {
			pair, ok := u.Pair(h.Pair.Symbol)
			if !ok {
				return nil, false
			}
			hops[i] = domain.Hop{Pair: pair, Side: h.Side, From: h.From, To: h.To}
		}
		cycle, err := domain.NewCycle(c.Start, hops)
		if err != nil {
			return nil, false
		}
		out = append(out, cycle)
	}
	return out, true
}

// Snapshot returns the current cycle set. Returns an error until the
// first successful Load.
func (s *UniverseService) Snapshot() (*domain.CycleSet, error) {
	set := s.snapshot.Load()
	if set == nil {
		return nil, apperror.New(apperror.CodeUniverseNotLoaded)
	}
	return set, nil
}

// Ready reports whether a snapshot is available.
func (s *UniverseService) Ready() bool {
	return s.snapshot.Load() != nil
}
