// Package auditstore persists terminal execution results in SQLite.
// It shares the cache database file so the whole bot state lives in
// one place on disk.
package auditstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	tradingApp "github.com/fd1az/triarb-bot/business/trading/app"
	"github.com/fd1az/triarb-bot/business/trading/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
)

// Ensure Store implements the audit port.
var _ tradingApp.AuditLog = (*Store)(nil)

// Store is an append-only execution audit log.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the audit database at path.
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
CREATE TABLE IF NOT EXISTS executions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  cycle TEXT NOT NULL,
  status TEXT NOT NULL,
  failed_leg INTEGER NOT NULL,
  start_amount TEXT NOT NULL,
  final_amount TEXT NOT NULL,
  dry_run INTEGER NOT NULL,
  legs TEXT NOT NULL,
  unwound TEXT,
  started_at INTEGER NOT NULL,
  finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
CREATE INDEX IF NOT EXISTS idx_executions_started ON executions(started_at);
`)
	return err
}

// Record appends a terminal execution result.
func (s *Store) Record(ctx context.Context, result *domain.ExecutionResult) error {
	legs, err := json.Marshal(result.Legs)
	if err != nil {
		return apperror.New(apperror.CodeCacheStore,
			apperror.WithCause(err),
			apperror.WithContext("encoding legs"))
	}

	var unwound []byte
	if len(result.Unwound) > 0 {
		unwound, err = json.Marshal(result.Unwound)
		if err != nil {
			return apperror.New(apperror.CodeCacheStore,
				apperror.WithCause(err),
				apperror.WithContext("encoding unwound legs"))
		}
	}

	dryRun := 0
	if result.DryRun {
		dryRun = 1
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO executions
  (cycle, status, failed_leg, start_amount, final_amount, dry_run, legs, unwound, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		result.Opportunity.Cycle.Key(),
		string(result.Status),
		result.FailedLeg,
		result.StartAmount.String(),
		result.FinalAmount.String(),
		dryRun,
		string(legs),
		nullableString(unwound),
		result.StartedAt.UnixMilli(),
		result.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return apperror.New(apperror.CodeCacheStore,
			apperror.WithCause(err),
			apperror.WithContext("writing execution audit row"))
	}
	return nil
}

// CountByStatus returns the number of recorded executions with the
// given status since a point in time.
func (s *Store) CountByStatus(ctx context.Context, status domain.Status, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions WHERE status = ? AND started_at >= ?`,
		string(status), since.UnixMilli(),
	).Scan(&n)
	return n, err
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
