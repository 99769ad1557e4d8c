// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds scan loop statistics for display.
type Stats struct {
	Passes       int64
	Cycles       int
	Priced       int
	Skipped      int
	Rejected     int
	Candidates   int64
	Executions   int64
	Partials     int64
	LastPassTime time.Duration
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	dangerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	partialsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Partials))
	if s.stats.Partials > 0 {
		partialsDisplay = dangerStyle.Render(fmt.Sprintf("%d", s.stats.Partials))
	}

	return style.Render("SCAN STATS") + "\n" +
		fmt.Sprintf("Passes: %s  │  Cycles: %s  │  Priced: %s  │  Skipped: %s  │  Rejected: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Passes)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Cycles)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Priced)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Skipped)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Rejected)),
		) +
		fmt.Sprintf("Candidates: %s  │  Executions: %s  │  Partials: %s  │  Last pass: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Candidates)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Executions)),
			partialsDisplay,
			valueStyle.Render(s.stats.LastPassTime.Round(time.Millisecond).String()),
		)
}
