package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	minBarWidth = 10
	maxBarWidth = 50
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5F87FF"))

	filledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D70000"))
)

func renderView(m Model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title))
	b.WriteString("\n\n")
	b.WriteString(renderBar(m.Fraction(), barWidth(m.Width)))
	fmt.Fprintf(&b, " %5.1f%%\n", 100*m.Fraction())
	b.WriteString(mutedStyle.Render(renderStats(m)))
	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.Err)))
		b.WriteString("\n")
	case m.Canceled:
		b.WriteString(errorStyle.Render("Canceled"))
		b.WriteString("\n")
	case !m.Finished:
		b.WriteString(mutedStyle.Render("q to cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

func barWidth(termWidth int) int {
	if termWidth <= 0 {
		return maxBarWidth
	}
	return min(maxBarWidth, max(minBarWidth, termWidth-20))
}

func renderBar(fraction float64, width int) string {
	filled := int(math.Round(fraction * float64(width)))
	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled))
}

func renderStats(m Model) string {
	elapsed := time.Since(m.StartTime).Truncate(100 * time.Millisecond)
	unit := "-"
	if m.Stats.ActiveUnit >= 0 {
		unit = fmt.Sprintf("%d", m.Stats.ActiveUnit)
	}
	score := "-"
	if !math.IsNaN(m.Stats.LastScore) && m.Stats.Samples > 0 {
		score = fmt.Sprintf("%.2f", m.Stats.LastScore)
	}
	return fmt.Sprintf("unit %s | rotations %d | score %s | %s",
		unit, m.Stats.Rotations, score, elapsed)
}
