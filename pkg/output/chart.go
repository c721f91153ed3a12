package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	chartBarWidth = 40
	chartBarRune  = "█"
)

// ChartFormatter draws the attacker ranking as a horizontal bar chart.
// Colors are used only when w is a terminal that supports them.
type ChartFormatter struct {
	opts FormatOptions
}

// NewChartFormatter creates a new chart formatter with the given options.
func NewChartFormatter(opts FormatOptions) *ChartFormatter {
	return &ChartFormatter{opts: opts}
}

// Name returns the format name.
func (f *ChartFormatter) Name() string {
	return "chart"
}

// Format renders the top attackers as bars scaled to the largest count.
func (f *ChartFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Underline(true)
	label := r.NewStyle().Foreground(lipgloss.Color("245"))
	bar := r.NewStyle().Foreground(lipgloss.Color("196"))
	count := r.NewStyle().Bold(true)

	var lines []string
	lines = append(lines, title.Render("Top attacker IPs"))

	if len(report.TopIdentities) == 0 {
		lines = append(lines, label.Render("no failed attempts"))
		_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
		return err
	}

	labelWidth, maxCount := 0, 0
	for _, c := range report.TopIdentities {
		labelWidth = max(labelWidth, lipgloss.Width(c.IP))
		maxCount = max(maxCount, c.FailedAttempts)
	}
	label = label.Width(labelWidth + 2)

	for _, c := range report.TopIdentities {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			label.Render(c.IP),
			bar.Render(strings.Repeat(chartBarRune, barLength(c.FailedAttempts, maxCount))),
			" ",
			count.Render(fmt.Sprint(c.FailedAttempts)),
		))
	}

	if !f.opts.Quiet {
		lines = append(lines, "", fmt.Sprintf("%d incidents detected", report.Summary.Incidents))
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
	return err
}

// barLength scales n against maxCount; any non-zero count gets one cell.
func barLength(n, maxCount int) int {
	if n <= 0 || maxCount <= 0 {
		return 0
	}
	return max(1, n*chartBarWidth/maxCount)
}
