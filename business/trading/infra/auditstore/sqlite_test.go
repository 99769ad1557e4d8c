package auditstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/triarb-bot/business/trading/domain"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(t *testing.T, status domain.Status) *domain.ExecutionResult {
	t.Helper()

	pair := func(symbol, base, quote string) universeDomain.Pair {
		p, err := universeDomain.NewPair(symbol, base, quote,
			decimal.RequireFromString("0.001"), decimal.Zero, decimal.Zero, decimal.Zero)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	cycle, err := universeDomain.NewCycle("USDT", [3]universeDomain.Hop{
		{Pair: pair("BTCUSDT", "BTC", "USDT"), Side: universeDomain.SideBuy, From: "USDT", To: "BTC"},
		{Pair: pair("ETHBTC", "ETH", "BTC"), Side: universeDomain.SideBuy, From: "BTC", To: "ETH"},
		{Pair: pair("ETHUSDT", "ETH", "USDT"), Side: universeDomain.SideSell, From: "ETH", To: "USDT"},
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	return &domain.ExecutionResult{
		Opportunity: &domain.Opportunity{Cycle: cycle},
		Status:      status,
		FailedLeg:   -1,
		Legs: []domain.LegResult{
			{Index: 0, Symbol: "BTCUSDT", FilledQty: decimal.RequireFromString("0.002")},
		},
		StartAmount: decimal.RequireFromString("100"),
		FinalAmount: decimal.RequireFromString("100.5"),
		DryRun:      true,
		StartedAt:   now,
		FinishedAt:  now,
	}
}

func TestStore_Record(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Record(ctx, sampleResult(t, domain.StatusCompleted)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, sampleResult(t, domain.StatusCompleted)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, sampleResult(t, domain.StatusPartial)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	since := time.Now().Add(-time.Minute)

	completed, err := s.CountByStatus(ctx, domain.StatusCompleted, since)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if completed != 2 {
		t.Errorf("completed count = %d, want 2", completed)
	}

	partial, err := s.CountByStatus(ctx, domain.StatusPartial, since)
	if err != nil {
		t.Fatal(err)
	}
	if partial != 1 {
		t.Errorf("partial count = %d, want 1", partial)
	}

	aborted, err := s.CountByStatus(ctx, domain.StatusAborted, since)
	if err != nil {
		t.Fatal(err)
	}
	if aborted != 0 {
		t.Errorf("aborted count = %d, want 0", aborted)
	}
}

func TestStore_RecordWithUnwound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	result := sampleResult(t, domain.StatusPartial)
	result.FailedLeg = 1
	result.Unwound = []domain.LegResult{
		{Index: 0, Symbol: "BTCUSDT", FilledQty: decimal.RequireFromString("0.002")},
	}

	if err := s.Record(ctx, result); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var unwound string
	err := s.db.QueryRowContext(ctx,
		`SELECT unwound FROM executions WHERE status = ?`,
		string(domain.StatusPartial),
	).Scan(&unwound)
	if err != nil {
		t.Fatalf("reading row: %v", err)
	}
	if unwound == "" {
		t.Error("unwound legs not persisted")
	}
}

func TestStore_CountSinceExcludesOld(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	old := sampleResult(t, domain.StatusCompleted)
	old.StartedAt = time.Now().Add(-2 * time.Hour)
	if err := s.Record(ctx, old); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountByStatus(ctx, domain.StatusCompleted, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 for results before the window", n)
	}
}
