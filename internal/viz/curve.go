package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/steelspec/bucklab/internal/peak"
)

// Curve plots an equilibrium path in the terminal. The caption names
// the selected peak so a shell user can eyeball the collapse point
// without opening the rendered figure.
func Curve(values []float64, dec peak.Decision, width, height int) string {
	if len(values) == 0 {
		return "(no increments)"
	}
	caption := "load factor"
	if dec.Index >= 0 && dec.Kind != peak.PeakNone {
		caption = fmt.Sprintf("load factor, %s %.4g at increment %d", dec.Kind, dec.LPF, dec.Index+1)
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// peakOf selects with the default knobs, for display only.
func peakOf(values []float64) peak.Decision {
	return peak.Select(nil, values, peak.Options{})
}

// Modes plots the eigenvalue ladder from a buckling run.
func Modes(values []float64, width, height int) string {
	if len(values) == 0 {
		return "(no modes)"
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("eigenvalue by mode"),
	)
}
