// Package pathstore persists discovered cycles in a local SQLite file.
package pathstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
)

// schemaVersion guards the serialized cycle format. Bumping it
// invalidates every cached entry on load.
const schemaVersion = 1

// Store is a fingerprint-keyed path cache backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the cache database at path.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS path_cache (
  fingerprint TEXT PRIMARY KEY,
  version INTEGER NOT NULL,
  cycles TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_path_cache_created ON path_cache(created_at);
`)
	return err
}

// Load returns the cached cycles for a fingerprint. ok is false when
// no entry exists. Version mismatch or undecodable JSON is reported
// as CodeCacheCorrupt so the caller can rebuild.
func (s *Store) Load(ctx context.Context, fingerprint string) ([]domain.Cycle, bool, error) {
	var (
		version int
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, cycles FROM path_cache WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&version, &payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperror.New(apperror.CodeCacheCorrupt,
			apperror.WithCause(err),
			apperror.WithContext("reading path cache"))
	}

	if version != schemaVersion {
		return nil, false, apperror.New(apperror.CodeCacheCorrupt,
			apperror.WithContext("path cache schema version mismatch"))
	}

	var cycles []domain.Cycle
	if err := json.Unmarshal([]byte(payload), &cycles); err != nil {
		return nil, false, apperror.New(apperror.CodeCacheCorrupt,
			apperror.WithCause(err),
			apperror.WithContext("decoding cached cycles"))
	}

	return cycles, true, nil
}

// Store upserts the cycles for a fingerprint.
func (s *Store) Store(ctx context.Context, fingerprint string, cycles []domain.Cycle) error {
	payload, err := json.Marshal(cycles)
	if err != nil {
		return apperror.New(apperror.CodeCacheStore,
			apperror.WithCause(err),
			apperror.WithContext("encoding cycles"))
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO path_cache (fingerprint, version, cycles, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
  version = excluded.version,
  cycles = excluded.cycles,
  created_at = excluded.created_at
`, fingerprint, schemaVersion, string(payload), time.Now().UnixMilli())

	if err != nil {
		return apperror.New(apperror.CodeCacheStore,
			apperror.WithCause(err),
			apperror.WithContext("writing path cache"))
	}
	return nil
}

// Prune deletes entries for every fingerprint except keep.
func (s *Store) Prune(ctx context.Context, keep string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM path_cache WHERE fingerprint != ?`, keep)
	return err
}
