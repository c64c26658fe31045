package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

var spinnerFrames = []string{"[.  ]", "[.. ]", "[...]", "[ ..]", "[  .]", "[   ]"}

func currentSpinner(frame int) string {
	return spinnerFrames[frame%len(spinnerFrames)]
}

func renderView(m Model) string {
	var b strings.Builder
	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderSteps(&b, m)
	renderFooter(&b, m)
	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("k8postal: %s", m.Title)
	if m.Namespace != "" {
		title += fmt.Sprintf(" (namespace %s)", m.Namespace)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done:
		status += readyStyle.Render("Applied")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame))
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * m.progress())
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(b, "  %s %d%%\n", bar, int(m.progress()*100))
}

func renderSteps(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Steps"))
	b.WriteString("\n")

	for _, step := range m.Steps {
		var icon string
		var style styleFunc
		switch {
		case step.Err != nil:
			icon = crossMark
			style = sf(failedStyle)
		case step.Skipped:
			icon = skipMark
			style = sf(dimStyle)
		case step.Done:
			icon = checkMark
			style = sf(readyStyle)
		case step.Active:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}

		line := fmt.Sprintf("    %s %s", style(icon), style(step.Name))
		if step.Detail != "" {
			line += "  " + subtitleStyle.Render(step.Detail)
		}
		if step.Err != nil {
			line += "\n      " + failedStyle.Render(step.Err.Error())
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed %s  ·  q to abort", elapsed)))
	b.WriteString("\n")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
