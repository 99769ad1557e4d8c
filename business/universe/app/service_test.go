package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

type fakePairSource struct {
	pairs []domain.Pair
	err   error
	calls int
}

func (f *fakePairSource) ListTradablePairs(ctx context.Context) ([]domain.Pair, error) {
	f.calls++
	return f.pairs, f.err
}

type fakePathStore struct {
	entries map[string][]domain.Cycle
	loadErr error

	loads  int
	stores int
	prunes int
}

func newFakePathStore() *fakePathStore {
	return &fakePathStore{entries: make(map[string][]domain.Cycle)}
}

func (f *fakePathStore) Load(ctx context.Context, fingerprint string) ([]domain.Cycle, bool, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, false, f.loadErr
	}
	cycles, ok := f.entries[fingerprint]
	return cycles, ok, nil
}

func (f *fakePathStore) Store(ctx context.Context, fingerprint string, cycles []domain.Cycle) error {
	f.stores++
	f.entries[fingerprint] = cycles
	return nil
}

func (f *fakePathStore) Prune(ctx context.Context, keep string) error {
	f.prunes++
	for fp := range f.entries {
		if fp != keep {
			delete(f.entries, fp)
		}
	}
	return nil
}

func (f *fakePathStore) Close() error { return nil }

func trianglePairs(t *testing.T) []domain.Pair {
	t.Helper()
	return []domain.Pair{
		mustPair(t, "BTCUSDT", "BTC", "USDT"),
		mustPair(t, "ETHUSDT", "ETH", "USDT"),
		mustPair(t, "ETHBTC", "ETH", "BTC"),
	}
}

func newTestService(t *testing.T, source PairSource, store PathStore) *UniverseService {
	t.Helper()
	svc, err := NewUniverseService(
		ServiceConfig{Stablecoins: []string{"USDT"}},
		source, store, testLogger(),
	)
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return svc
}

func TestUniverseService_LoadBuildsAndPersists(t *testing.T) {
	ctx := context.Background()
	source := &fakePairSource{pairs: trianglePairs(t)}
	store := newFakePathStore()

	svc := newTestService(t, source, store)
	if svc.Ready() {
		t.Fatal("service should not be ready before the first load")
	}
	if _, err := svc.Snapshot(); err == nil {
		t.Fatal("Snapshot before Load should fail")
	}

	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	set, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(set.Cycles) != 2 {
		t.Errorf("got %d cycles, want 2", len(set.Cycles))
	}
	if store.stores != 1 {
		t.Errorf("store.Store called %d times, want 1", store.stores)
	}
	if got := set.DistinctSymbols(); len(got) != 3 {
		t.Errorf("DistinctSymbols() = %v", got)
	}
}

func TestUniverseService_CacheHitSkipsRebuild(t *testing.T) {
	ctx := context.Background()
	source := &fakePairSource{pairs: trianglePairs(t)}
	store := newFakePathStore()

	// First load populates the cache.
	first := newTestService(t, source, store)
	if err := first.Load(ctx); err != nil {
		t.Fatalf("first Load: %v", err)
	}

	// Second service with the same store hits the cache and must not
	// write again.
	second := newTestService(t, source, store)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("second Load: %v", err)
	}

	if store.stores != 1 {
		t.Errorf("cache hit still wrote: Store called %d times", store.stores)
	}

	set, err := second.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Cycles) != 2 {
		t.Errorf("cache hit produced %d cycles, want 2", len(set.Cycles))
	}
}

func TestUniverseService_CorruptCacheRebuilds(t *testing.T) {
	ctx := context.Background()
	source := &fakePairSource{pairs: trianglePairs(t)}
	store := newFakePathStore()
	store.loadErr = errors.New("malformed row")

	svc := newTestService(t, source, store)
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load should survive a corrupt cache: %v", err)
	}

	set, err := svc.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Cycles) != 2 {
		t.Errorf("rebuild produced %d cycles, want 2", len(set.Cycles))
	}
}

func TestUniverseService_StaleCacheEntryRebuilds(t *testing.T) {
	ctx := context.Background()
	source := &fakePairSource{pairs: trianglePairs(t)}
	store := newFakePathStore()

	svc := newTestService(t, source, store)
	if err := svc.Load(ctx); err != nil {
		t.Fatal(err)
	}
	set, _ := svc.Snapshot()

	// Poison the cached entry with a cycle referencing a delisted pair.
	bad := set.Cycles[0]
	bad.Hops[0].Pair.Symbol = "DOGEUSDT"
	store.entries[set.Fingerprint] = []domain.Cycle{bad}

	fresh := newTestService(t, source, store)
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("Load should rebuild past an unusable entry: %v", err)
	}
	freshSet, _ := fresh.Snapshot()
	if len(freshSet.Cycles) != 2 {
		t.Errorf("rebuild produced %d cycles, want 2", len(freshSet.Cycles))
	}
}

func TestUniverseService_NilStore(t *testing.T) {
	ctx := context.Background()
	source := &fakePairSource{pairs: trianglePairs(t)}

	svc := newTestService(t, source, nil)
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load without a store: %v", err)
	}
	if !svc.Ready() {
		t.Error("service should be ready after Load")
	}
}

func TestUniverseService_SourceFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakePairSource{err: errors.New("venue unreachable")}

	svc := newTestService(t, source, newFakePathStore())
	if err := svc.Load(ctx); err == nil {
		t.Fatal("Load should fail when the pair source fails")
	}
	if svc.Ready() {
		t.Error("failed load must not publish a snapshot")
	}
}

func TestUniverseService_PruneOnRebuild(t *testing.T) {
	ctx := context.Background()
	source := &fakePairSource{pairs: trianglePairs(t)}
	store := newFakePathStore()
	store.entries["old-fingerprint"] = nil

	svc, err := NewUniverseService(
		ServiceConfig{Stablecoins: []string{"USDT"}, PruneCache: true},
		source, store, testLogger(),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if store.prunes != 1 {
		t.Errorf("Prune called %d times, want 1", store.prunes)
	}
	if _, ok := store.entries["old-fingerprint"]; ok {
		t.Error("old fingerprint entry survived the prune")
	}
}
