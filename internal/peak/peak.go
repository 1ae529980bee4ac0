// Package peak picks the reporting frame from a load-deflection
// history: the first genuine peak followed by a sustained drop, or the
// global maximum when the curve never sheds load.
package peak

// Options tune the selection. Zero values fall back to the stock
// tuning.
type Options struct {
	// SmoothWindow is the centered moving-average width applied before
	// peak detection.
	SmoothWindow int
	// MinPeakFrac discards local maxima below this fraction of the
	// smoothed global peak.
	MinPeakFrac float64
	// DropRatio defines a drop: the curve staying below ratio*peak.
	DropRatio float64
	// PersistN is how many consecutive increments the drop must hold.
	PersistN int
}

func (o Options) withDefaults() Options {
	if o.SmoothWindow <= 0 {
		o.SmoothWindow = 3
	}
	if o.MinPeakFrac <= 0 {
		o.MinPeakFrac = 0.6
	}
	if o.DropRatio <= 0 {
		o.DropRatio = 0.8
	}
	if o.PersistN <= 0 {
		o.PersistN = 3
	}
	return o
}

// Kind labels how the frame was chosen.
type Kind string

const (
	PeakBeforeDrop Kind = "peak_before_drop"
	GlobalMax      Kind = "global_max"
	PeakNone       Kind = "none"
)

// Decision is the selected frame. LPF is the raw series value at the
// chosen index, original sign preserved.
type Decision struct {
	Index int
	LPF   float64
	Time  float64
	Kind  Kind
}

// Select walks the history and picks the reporting frame. Series
// running negative are flipped for detection only. Histories shorter
// than three increments cannot hold an interior peak and resolve to the
// last frame.
func Select(times, lpf []float64, opts Options) Decision {
	o := opts.withDefaults()
	n := len(lpf)
	if n == 0 {
		return Decision{Index: -1, Kind: PeakNone}
	}
	if n < 3 {
		return decideAt(times, lpf, n-1, PeakNone)
	}

	work := make([]float64, n)
	copy(work, lpf)
	var hi, lo float64
	for _, v := range work {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	if -lo > hi {
		for i := range work {
			work[i] = -work[i]
		}
	}

	s := smooth(work, o.SmoothWindow)
	gpIdx := 0
	for i := 1; i < n; i++ {
		if s[i] > s[gpIdx] {
			gpIdx = i
		}
	}
	if s[gpIdx] <= 1e-6 {
		return decideAt(times, lpf, n-1, PeakNone)
	}

	floor := o.MinPeakFrac * s[gpIdx]
	for i := 1; i < n-1; i++ {
		if s[i] < s[i-1] || s[i] < s[i+1] || s[i] < floor {
			continue
		}
		if sustainedDrop(s, i, o.DropRatio, o.PersistN) {
			return decideAt(times, lpf, i, PeakBeforeDrop)
		}
	}
	return decideAt(times, lpf, gpIdx, GlobalMax)
}

// smooth is a centered moving average with edge clamping.
func smooth(v []float64, window int) []float64 {
	n := len(v)
	half := window / 2
	if half == 0 {
		out := make([]float64, n)
		copy(out, v)
		return out
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += v[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// sustainedDrop reports whether the curve after i stays below
// ratio*s[i] for persist consecutive increments. Any recovery resets
// the count.
func sustainedDrop(s []float64, i int, ratio float64, persist int) bool {
	threshold := ratio * s[i]
	run := 0
	for j := i + 1; j < len(s); j++ {
		if s[j] <= threshold {
			run++
			if run >= persist {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func decideAt(times, lpf []float64, i int, kind Kind) Decision {
	d := Decision{Index: i, LPF: lpf[i], Kind: kind}
	if i < len(times) {
		d.Time = times[i]
	} else {
		d.Time = float64(i)
	}
	return d
}

// NearestFrame maps a history time back to the closest frame index.
// Empty times yield -1.
func NearestFrame(times []float64, t float64) int {
	if len(times) == 0 {
		return -1
	}
	best := 0
	bestDist := dist(times[0], t)
	for i := 1; i < len(times); i++ {
		if d := dist(times[i], t); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func dist(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
