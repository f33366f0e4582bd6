package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"camextract/internal/extract"
)

type SummaryRow struct {
	Label string
	Value string
	Bad   bool
}

// SummaryRows lays out the run totals for RenderSummary.
func SummaryRows(s extract.Summary, interrupted bool) []SummaryRow {
	rows := []SummaryRow{
		{Label: "Files processed", Value: fmt.Sprintf("%d", s.Files)},
		{Label: "Outputs published", Value: fmt.Sprintf("%d", s.Published)},
		{Label: "Errors", Value: fmt.Sprintf("%d", s.Errors), Bad: s.Errors > 0},
	}
	if interrupted {
		rows = append(rows, SummaryRow{Label: "Interrupted", Value: "yes", Bad: true})
	}
	return rows
}

// RenderSummary draws rows as a two-column table framed by rules.
func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}

	hline := ruleStyle.Render(strings.Repeat("-", labelWidth+valueWidth+3))
	lines := []string{hline}

	for _, row := range rows {
		style := valueStyle
		if row.Bad {
			style = badValueStyle
		}
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), style.Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle    = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	badValueStyle = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
	ruleStyle     = lipgloss.NewStyle().Foreground(ColorDim)
)
