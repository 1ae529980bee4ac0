package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	graphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("49")).
			Padding(1, 0)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	statusCompleted = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("78"))

	statusFailed = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	statusSkipped = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245"))

	sparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	sparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	sparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// Spinner returns one frame of the running-case indicator.
func Spinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[frame%len(frames)]
}

// ProgressBar renders completed-over-total as a fixed-width bar.
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if percent >= 1 {
		return statusCompleted.Render(bar)
	}
	return statusRunning.Render(bar)
}

// Sparkline renders a compact strip of the load history. Values are
// normalized over the visible window, brightest at the top band.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	rng := max - min
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var out strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - min) / rng
		idx := int(norm * float64(len(chars)-1))
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		if idx < 0 {
			idx = 0
		}
		c := string(chars[idx])
		switch {
		case norm > 0.7:
			out.WriteString(sparkHigh.Render(c))
		case norm > 0.3:
			out.WriteString(sparkMid.Render(c))
		default:
			out.WriteString(sparkLow.Render(c))
		}
	}
	return out.String()
}
