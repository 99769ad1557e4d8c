// Package app contains application services and port definitions for the trading context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/triarb-bot/business/trading/domain"
)

// ScanStats summarizes one scan pass for the operator surface.
type ScanStats struct {
	Cycles     int // cycles in the active snapshot
	Priced     int // cycles priced with a full quote set
	Skipped    int // cycles missing a quote this pass
	Rejected   int // liquidity or book-quality rejections
	Candidates int // cycles above the profit margin
	Duration   time.Duration
}

// Reporter is the operator-facing output surface. The console and TUI
// implementations share it.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportOpportunity displays a candidate from the latest pass.
	ReportOpportunity(opp *domain.Opportunity)

	// ReportExecution displays a terminal execution result.
	ReportExecution(result *domain.ExecutionResult)

	// UpdateScanStats refreshes the per-pass statistics display.
	UpdateScanStats(stats ScanStats)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// AuditLog durably records terminal execution results. Partial
// executions represent real exposure and must always land here in
// addition to the operator log.
type AuditLog interface {
	Record(ctx context.Context, result *domain.ExecutionResult) error
	Close() error
}
