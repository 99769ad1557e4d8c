package pathstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "paths.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCycles(t *testing.T) []domain.Cycle {
	t.Helper()
	fee := decimal.RequireFromString("0.001")

	pair := func(symbol, base, quote string) domain.Pair {
		p, err := domain.NewPair(symbol, base, quote, fee, decimal.Zero, decimal.Zero, decimal.Zero)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	cycle, err := domain.NewCycle("USDT", [3]domain.Hop{
		{Pair: pair("BTCUSDT", "BTC", "USDT"), Side: domain.SideBuy, From: "USDT", To: "BTC"},
		{Pair: pair("ETHBTC", "ETH", "BTC"), Side: domain.SideBuy, From: "BTC", To: "ETH"},
		{Pair: pair("ETHUSDT", "ETH", "USDT"), Side: domain.SideSell, From: "ETH", To: "USDT"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return []domain.Cycle{cycle}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cycles := sampleCycles(t)

	if _, ok, err := s.Load(ctx, "fp1"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v, want miss", ok, err)
	}

	if err := s.Store(ctx, "fp1", cycles); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := s.Load(ctx, "fp1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("stored entry not found")
	}
	if len(got) != 1 {
		t.Fatalf("got %d cycles, want 1", len(got))
	}
	if got[0].Key() != cycles[0].Key() {
		t.Errorf("Key() = %q, want %q", got[0].Key(), cycles[0].Key())
	}
	if !got[0].Hops[0].Pair.FeeRate.Equal(cycles[0].Hops[0].Pair.FeeRate) {
		t.Error("pair metadata lost in round trip")
	}
}

func TestStore_Upsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cycles := sampleCycles(t)

	if err := s.Store(ctx, "fp1", cycles); err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, "fp1", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := s.Load(ctx, "fp1")
	if err != nil || !ok {
		t.Fatalf("Load after upsert: ok=%v err=%v", ok, err)
	}
	if len(got) != 0 {
		t.Errorf("upsert did not replace: got %d cycles", len(got))
	}
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cycles := sampleCycles(t)

	if err := s.Store(ctx, "old", cycles); err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, "current", cycles); err != nil {
		t.Fatal(err)
	}

	if err := s.Prune(ctx, "current"); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, ok, _ := s.Load(ctx, "old"); ok {
		t.Error("pruned entry still present")
	}
	if _, ok, _ := s.Load(ctx, "current"); !ok {
		t.Error("kept entry missing after prune")
	}
}

func TestStore_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO path_cache (fingerprint, version, cycles, created_at)
VALUES ('bad', 1, '{not json', 0)`)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = s.Load(ctx, "bad")
	if err == nil {
		t.Fatal("corrupt payload should error")
	}
	if apperror.GetCode(err) != apperror.CodeCacheCorrupt {
		t.Errorf("error code = %v, want CodeCacheCorrupt", apperror.GetCode(err))
	}
}

func TestStore_VersionMismatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO path_cache (fingerprint, version, cycles, created_at)
VALUES ('fp1', 999, '[]', 0)`)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = s.Load(ctx, "fp1")
	if apperror.GetCode(err) != apperror.CodeCacheCorrupt {
		t.Errorf("error code = %v, want CodeCacheCorrupt", apperror.GetCode(err))
	}
}
