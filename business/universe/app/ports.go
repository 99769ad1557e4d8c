// Package app contains the universe application services and ports.
package app

import (
	"context"

	"github.com/fd1az/triarb-bot/business/universe/domain"
)

// PairSource lists the tradable pairs from the venue.
type PairSource interface {
	ListTradablePairs(ctx context.Context) ([]domain.Pair, error)
}

// PathStore persists discovered cycles keyed by universe fingerprint.
type PathStore interface {
	// Load returns the cached cycles for a fingerprint. ok is false on
	// a miss. A corrupt entry returns an error with CodeCacheCorrupt.
	Load(ctx context.Context, fingerprint string) (cycles []domain.Cycle, ok bool, err error)

	// Store replaces the cached cycles for a fingerprint.
	Store(ctx context.Context, fingerprint string, cycles []domain.Cycle) error

	// Prune removes entries for fingerprints other than keep.
	Prune(ctx context.Context, keep string) error

	Close() error
}
