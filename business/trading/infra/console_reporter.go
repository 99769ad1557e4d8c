// Package infra contains infrastructure adapters for the trading context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fd1az/triarb-bot/business/trading/app"
	"github.com/fd1az/triarb-bot/business/trading/domain"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Triangular Arbitrage Bot Started")
	fmt.Fprintln(r.out, "================================")
	return nil
}

// ReportOpportunity outputs a candidate cycle to the console.
func (r *ConsoleReporter) ReportOpportunity(opp *domain.Opportunity) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "TRIANGULAR OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.PricedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Cycle:          %s\n", opp.Cycle.String())
	fmt.Fprintf(r.out, "Net Yield:      %s%%\n", opp.ProfitPct().StringFixed(4))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "LEGS")
	for i, leg := range opp.Legs {
		capped := ""
		if leg.Capped {
			capped = "  [depth-capped]"
		}
		fmt.Fprintf(r.out, "  %d. %-4s %-12s @ %-14s spend %-14s recv %s%s\n",
			i+1, leg.Hop.Side, leg.Hop.Pair.Symbol,
			leg.Price.StringFixed(8),
			leg.Spend.StringFixed(6),
			leg.Receive.StringFixed(6),
			capped)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "  Notional:     %s %s\n", opp.Notional.StringFixed(2), opp.Cycle.Start)
	fmt.Fprintf(r.out, "  Final:        %s %s\n", opp.FinalAmount.StringFixed(6), opp.Cycle.Start)
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportExecution outputs a terminal execution result to the console.
func (r *ConsoleReporter) ReportExecution(result *domain.ExecutionResult) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "EXECUTION %s", result.Status)
	if result.DryRun {
		fmt.Fprint(r.out, "  (dry-run)")
	}
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Cycle:          %s\n", result.Opportunity.Cycle.String())
	fmt.Fprintf(r.out, "Started:        %s\n", result.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Duration:       %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	for _, leg := range result.Legs {
		if leg.Failed() {
			fmt.Fprintf(r.out, "  %d. %-4s %-12s FAILED (%s)\n",
				leg.Index+1, leg.Side, leg.Symbol, leg.FailureCode)
			continue
		}
		fmt.Fprintf(r.out, "  %d. %-4s %-12s filled %-14s @ avg %s\n",
			leg.Index+1, leg.Side, leg.Symbol,
			leg.FilledQty.StringFixed(8), leg.AvgPrice.StringFixed(8))
	}
	for _, leg := range result.Unwound {
		fmt.Fprintf(r.out, "  unwind %-4s %-12s filled %s\n",
			leg.Side, leg.Symbol, leg.FilledQty.StringFixed(8))
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	switch result.Status {
	case domain.StatusCompleted:
		fmt.Fprintf(r.out, "  Profit:       %s %s\n",
			result.Profit().StringFixed(6), result.Opportunity.Cycle.Start)
	case domain.StatusPartial:
		fmt.Fprintf(r.out, "  WARNING: position left unbalanced, failed at leg %d\n", result.FailedLeg+1)
	case domain.StatusAborted:
		fmt.Fprintf(r.out, "  Aborted before any fill (leg %d)\n", result.FailedLeg+1)
	}
	fmt.Fprintln(r.out, "================================================================================")
}

// UpdateScanStats outputs a one-line pass summary.
func (r *ConsoleReporter) UpdateScanStats(stats app.ScanStats) {
	fmt.Fprintf(r.out, "[%s] pass: %d cycles, %d priced, %d skipped, %d rejected, %d candidates (%s)\n",
		time.Now().Format("15:04:05"),
		stats.Cycles, stats.Priced, stats.Skipped, stats.Rejected, stats.Candidates,
		stats.Duration.Round(time.Millisecond))
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency)
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Triangular Arbitrage Bot Stopped")
	return nil
}
