package infra

import (
	"context"
	"time"

	"github.com/fd1az/triarb-bot/business/trading/app"
	"github.com/fd1az/triarb-bot/business/trading/domain"
	"github.com/fd1az/triarb-bot/pkg/ui"
)

// TUIReporter implements Reporter by forwarding events to the running
// Bubble Tea program. Safe to use before the program starts; messages
// sent then are dropped.
type TUIReporter struct{}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start initializes the TUI reporter. The program itself is run by main.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// ReportOpportunity forwards a candidate cycle to the TUI.
func (r *TUIReporter) ReportOpportunity(opp *domain.Opportunity) {
	ui.Send(ui.OpportunityMsg{Opportunity: opp})
}

// ReportExecution forwards a terminal execution result to the TUI.
func (r *TUIReporter) ReportExecution(result *domain.ExecutionResult) {
	ui.Send(ui.ExecutionMsg{Result: result})
}

// UpdateScanStats forwards per-pass statistics to the TUI.
func (r *TUIReporter) UpdateScanStats(stats app.ScanStats) {
	ui.Send(ui.ScanStatsMsg{
		Cycles:     stats.Cycles,
		Priced:     stats.Priced,
		Skipped:    stats.Skipped,
		Rejected:   stats.Rejected,
		Candidates: stats.Candidates,
		Duration:   stats.Duration,
	})
}

// UpdateConnectionStatus forwards connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	ui.Send(ui.ConnectionStatusMsg{
		Name:      name,
		Connected: connected,
		Latency:   latency,
	})
}

// Stop gracefully shuts down the TUI reporter.
func (r *TUIReporter) Stop() error {
	return nil
}
