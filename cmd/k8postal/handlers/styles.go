package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors matching internal/ui/tui/styles.go palette.
var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// styled renders text with style on a terminal and returns it unchanged otherwise.
func styled(style lipgloss.Style, text string) string {
	if !isTerminal() {
		return text
	}
	return style.Render(text)
}

// printSection writes a section title with an underline.
func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styled(sectionStyle, "  "+title))
	_, _ = fmt.Fprintln(w, styled(dimStyle, "  "+strings.Repeat("─", 35)))
}

// printRows writes aligned label/value pairs.
func printRows(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "    %-*s  %s\n", width, r[0]+":", r[1])
	}
}
