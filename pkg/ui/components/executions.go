package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// ExecutionRow represents a terminal execution result.
type ExecutionRow struct {
	Timestamp string
	Cycle     string
	Status    string // COMPLETED, ABORTED, PARTIAL_EXECUTION
	FailedLeg int    // 1-based, 0 when none
	Profit    decimal.Decimal
	DryRun    bool
}

// ExecutionsComponent renders recent execution results.
type ExecutionsComponent struct {
	rows    []ExecutionRow
	maxRows int
}

// NewExecutionsComponent creates a new executions component.
func NewExecutionsComponent(maxRows int) *ExecutionsComponent {
	return &ExecutionsComponent{
		rows:    make([]ExecutionRow, 0),
		maxRows: maxRows,
	}
}

// Add adds a result to the top of the list.
func (e *ExecutionsComponent) Add(row ExecutionRow) {
	e.rows = append([]ExecutionRow{row}, e.rows...)
	if len(e.rows) > e.maxRows {
		e.rows = e.rows[:e.maxRows]
	}
}

// View renders the executions component.
func (e *ExecutionsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	abortStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	partialStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	result := headerStyle.Render("EXECUTIONS") + "\n\n"

	if len(e.rows) == 0 {
		return result + dimStyle.Render("  Nothing executed yet...")
	}

	for _, row := range e.rows {
		var status string
		switch row.Status {
		case "COMPLETED":
			status = okStyle.Render(fmt.Sprintf("✓ %+.4f", row.Profit.InexactFloat64()))
		case "ABORTED":
			status = abortStyle.Render(fmt.Sprintf("aborted (leg %d)", row.FailedLeg))
		default:
			status = partialStyle.Render(fmt.Sprintf("PARTIAL leg %d", row.FailedLeg))
		}

		mode := ""
		if row.DryRun {
			mode = dimStyle.Render(" [dry]")
		}

		result += fmt.Sprintf("  %-8s  %-32s  %s%s\n",
			row.Timestamp, truncate(row.Cycle, 32), status, mode)
	}

	return result
}
