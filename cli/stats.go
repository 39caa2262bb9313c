package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2))
)

// Stats describes a finished render.
type Stats struct {
	Frames   int           // Sample frames written
	Duration time.Duration // Length of the rendered audio
	Elapsed  time.Duration // Wall time spent rendering
}

// Speed returns how many times faster than realtime the render ran, or 0
// when no time was measured.
func (s Stats) Speed() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return s.Duration.Seconds() / s.Elapsed.Seconds()
}

// Summary returns a one-line report of the render.
func (s Stats) Summary() string {
	return fmt.Sprintf("%s %s %s %s %s %s",
		labelStyle.Render("Song length:"), valueStyle.Render(formatLength(s.Duration)),
		labelStyle.Render("/ running time:"), valueStyle.Render(fmt.Sprintf("%.2f sec", s.Elapsed.Seconds())),
		labelStyle.Render("/ rendered at"), valueStyle.Render(fmt.Sprintf("%.1fx realtime", s.Speed())),
	)
}

// formatLength formats d as m:ss.ss.
func formatLength(d time.Duration) string {
	m := d / time.Minute
	sec := (d - m*time.Minute).Seconds()
	return fmt.Sprintf("%d:%05.2f", int(m), sec)
}
