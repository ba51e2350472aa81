package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

// setupColor picks the color profile for stdout. Output that is not a
// terminal, or NO_COLOR, gets plain text.
func setupColor(disabled bool) {
	if disabled || !isTerminal(os.Stdout) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func renderHeader(s string) string { return headerStyle.Render(s) }
func renderAccent(s string) string { return accentStyle.Render(s) }
func renderPass(s string) string   { return passStyle.Render(s) }
func renderWarn(s string) string   { return warnStyle.Render(s) }
func renderFail(s string) string   { return failStyle.Render(s) }
func renderMuted(s string) string  { return mutedStyle.Render(s) }

// formatDuration renders seconds as "3h 07m", or "12m" under an hour.
func formatDuration(seconds float64) string {
	total := int64(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}

// bar renders percent (0-100) as a bar of at most width cells.
func bar(percent float64, width int) string {
	n := int(percent/100*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	if n == 0 && percent > 0 {
		n = 1
	}
	cells := make([]rune, n)
	for i := range cells {
		cells[i] = '█'
	}
	return barStyle.Render(string(cells))
}
