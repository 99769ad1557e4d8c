// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents a candidate cycle in the list.
type OpportunityRow struct {
	Timestamp string
	Cycle     string // asset path, e.g. USDT -> BTC -> ETH -> USDT
	YieldPct  decimal.Decimal
	Notional  decimal.Decimal
	Final     decimal.Decimal
	Limited   bool // book depth capped a leg
}

// OpportunitiesComponent renders the candidate list with scrolling.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	offset  int
	visible int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: 10,
	}
}

// Add adds a new candidate to the top of the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// Clear clears all candidates.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the view window towards newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the view window towards older rows.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset < len(o.rows)-o.visible {
		o.offset++
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	yieldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	result := headerStyle.Render("CANDIDATES") + "\n\n"

	if len(o.rows) == 0 {
		return result + dimStyle.Render("  No candidates above margin yet...")
	}

	result += fmt.Sprintf("  %-8s  %-32s  %9s  %10s  %s\n",
		"Time", "Cycle", "Yield", "Final", "")

	end := o.offset + o.visible
	if end > len(o.rows) {
		end = len(o.rows)
	}
	for _, row := range o.rows[o.offset:end] {
		depth := ""
		if row.Limited {
			depth = warnStyle.Render("depth-capped")
		}
		result += fmt.Sprintf("  %-8s  %-32s  %s  %10s  %s\n",
			row.Timestamp,
			truncate(row.Cycle, 32),
			yieldStyle.Render(fmt.Sprintf("%+8.4f%%", row.YieldPct.InexactFloat64())),
			row.Final.StringFixed(4),
			depth,
		)
	}

	if len(o.rows) > o.visible {
		result += dimStyle.Render(fmt.Sprintf("  (%d of %d, ↑↓ to scroll)", end-o.offset, len(o.rows)))
	}

	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
