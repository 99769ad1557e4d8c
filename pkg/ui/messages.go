// Package ui provides the Bubble Tea TUI for the triangular arbitrage bot.
package ui

import (
	"time"

	tradingDomain "github.com/fd1az/triarb-bot/business/trading/domain"
)

// Message types for TUI updates

// OpportunityMsg is sent when a scan pass finds a candidate cycle.
type OpportunityMsg struct {
	Opportunity *tradingDomain.Opportunity
}

// ExecutionMsg is sent when an execution reaches a terminal state.
type ExecutionMsg struct {
	Result *tradingDomain.ExecutionResult
}

// ScanStatsMsg is sent after every scan pass.
type ScanStatsMsg struct {
	Cycles     int
	Priced     int
	Skipped    int
	Rejected   int
	Candidates int
	Duration   time.Duration
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}

// DryRunMsg sets the dry-run badge in the status bar.
type DryRunMsg struct {
	DryRun bool
}
