package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	statusBase = lipgloss.NewStyle().Bold(true)

	StatusRunning = statusBase.Foreground(lipgloss.Color("#00ff88"))
	StatusPaused  = statusBase.Foreground(lipgloss.Color("#ffaa00"))
	StatusError   = statusBase.Foreground(lipgloss.Color("#ff4444"))
)

// arrivalColors maps the lower bound of an arrived fraction to a bar colour.
var arrivalColors = []struct {
	above float64
	color lipgloss.Color
}{
	{0.8, "#00ff88"},
	{0.4, "#ffcc00"},
	{-1, "#ff4444"},
}

// ArrivalBar draws the arrived fraction in [0, 1] as a bar of width cells,
// red while few agents are home and green once most are.
func ArrivalBar(fraction float64, width int) string {
	filled := min(max(int(fraction*float64(width)), 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	for _, c := range arrivalColors {
		if fraction > c.above {
			return lipgloss.NewStyle().Foreground(c.color).Render(bar)
		}
	}
	return bar
}
