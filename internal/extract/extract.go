// Package extract pulls eigenvalues and load-deflection histories out
// of solver results. Eigenvalue recovery degrades through three tiers:
// frame values, frame descriptions, then the solver text log, because
// backends disagree about where the numbers live.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/steelspec/bucklab/internal/engine"
	"github.com/steelspec/bucklab/internal/loadcase"
)

// Mode is one extracted buckling mode.
type Mode struct {
	Number     int
	Eigenvalue float64
}

// Method records which tier produced the eigenvalues.
type Method string

const (
	MethodFrameValue  Method = "frame_value"
	MethodDescription Method = "description"
	MethodSolverLog   Method = "solver_log"
	MethodNone        Method = "none"
)

// EigenResult is the outcome of eigenvalue recovery.
type EigenResult struct {
	Modes  []Mode
	Method Method
}

// Eigenvalues recovers buckling eigenvalues from an open result
// database, falling back to the solver log at logPath. Values that look
// like frame indices are screened out: several backends store the frame
// number where the eigenvalue belongs.
func Eigenvalues(res engine.Results, stepName, logPath string) EigenResult {
	var modes []Mode
	method := MethodNone

	if res != nil {
		if step, ok := res.Step(stepName); ok {
			modes = fromFrameValues(step)
			if len(modes) > 0 {
				method = MethodFrameValue
			} else {
				modes = fromDescriptions(step)
				if len(modes) > 0 {
					method = MethodDescription
				}
			}
			if len(modes) > 0 && suspicious(modes) {
				modes = nil
				method = MethodNone
			}
		}
	}

	if len(modes) == 0 && logPath != "" {
		if logModes := eigenFromLog(logPath); len(logModes) > 0 {
			modes = logModes
			method = MethodSolverLog
		}
	}

	sort.Slice(modes, func(i, j int) bool { return modes[i].Number < modes[j].Number })
	modes = dedupe(modes)
	if len(modes) == 0 {
		method = MethodNone
	}
	return EigenResult{Modes: modes, Method: method}
}

// fromFrameValues reads tier one: the frame scalar. Frame zero is the
// base state. A value within 0.1 of its own frame index, or below 100,
// is taken for a frame counter and skipped.
func fromFrameValues(step engine.Step) []Mode {
	var modes []Mode
	for i := 1; i < step.NumFrames(); i++ {
		v := step.Frame(i).Value()
		if math.Abs(v) <= 1e-6 {
			continue
		}
		if math.Abs(v-float64(i)) < 0.1 || math.Abs(v) < 100 {
			continue
		}
		modes = append(modes, Mode{Number: i, Eigenvalue: v})
	}
	return modes
}

var descRe = regexp.MustCompile(`(?i)Eigenvalue\s*=\s*([0-9Ee\+\-\.]+)`)

// fromDescriptions reads tier two: the eigenvalue printed inside the
// frame description text.
func fromDescriptions(step engine.Step) []Mode {
	var modes []Mode
	for i := 1; i < step.NumFrames(); i++ {
		m := descRe.FindStringSubmatch(step.Frame(i).Description())
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || math.Abs(v) <= 1e-6 {
			continue
		}
		modes = append(modes, Mode{Number: i, Eigenvalue: v})
	}
	return modes
}

// suspicious reports whether the whole set still smells like frame
// counters: no value is both large and far from its mode number.
func suspicious(modes []Mode) bool {
	for _, m := range modes {
		if math.Abs(m.Eigenvalue) > 100 && math.Abs(m.Eigenvalue-float64(m.Number)) > 10 {
			return false
		}
	}
	return true
}

var datRowRe = regexp.MustCompile(`^\s*(\d+)\s+([0-9Ee\+\-\.]+)`)

// eigenFromLog reads tier three: the MODE NO / EIGENVALUE table the
// solver prints into its text log.
func eigenFromLog(path string) []Mode {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var modes []Mode
	inTable := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		upper := strings.ToUpper(line)
		if !inTable {
			if strings.Contains(upper, "MODE NO") && strings.Contains(upper, "EIGENVALUE") {
				inTable = true
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := datRowRe.FindStringSubmatch(line); m != nil {
			num, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			modes = append(modes, Mode{Number: num, Eigenvalue: v})
			continue
		}
		if strings.Contains(upper, "THE ANALYSIS") || strings.Contains(upper, "ANALYSIS COMPLETE") {
			break
		}
	}
	return modes
}

func dedupe(modes []Mode) []Mode {
	out := modes[:0]
	seen := make(map[int]struct{}, len(modes))
	for _, m := range modes {
		if _, dup := seen[m.Number]; dup {
			continue
		}
		seen[m.Number] = struct{}{}
		out = append(out, m)
	}
	return out
}

// ErrNoControlRegion means the collapse results carry no history at the
// control point, so no curve can be built.
var ErrNoControlRegion = errors.New("extract: no control point history in results")

// History is the aligned load-deflection record of one collapse run.
// All slices share one length; LPF may be empty when the solver did not
// record it.
type History struct {
	Time []float64
	LPF  []float64
	U    [3][]float64
	UR   [3][]float64
	RF   [3][]float64
}

// Len reports the number of aligned increments.
func (h History) Len() int { return len(h.Time) }

// Curve assembles the history at the top control point, truncating all
// series to the shortest so every row stays consistent.
func Curve(res engine.Results, stepName string) (History, error) {
	var h History
	if res == nil {
		return h, ErrNoControlRegion
	}
	step, ok := res.Step(stepName)
	if !ok {
		return h, fmt.Errorf("extract: step %q missing: %w", stepName, engine.ErrNoResults)
	}

	ctrl := findControlRegion(step)
	if ctrl == nil {
		return h, ErrNoControlRegion
	}

	u1, ok := ctrl.Output("U1")
	if !ok || len(u1) == 0 {
		return h, ErrNoControlRegion
	}
	n := len(u1)
	grab := func(name string) []engine.Sample {
		s, ok := ctrl.Output(name)
		if !ok {
			return nil
		}
		if len(s) < n {
			n = len(s)
		}
		return s
	}
	var us, urs, rfs [3][]engine.Sample
	us[0] = u1
	us[1], us[2] = grab("U2"), grab("U3")
	for a := 0; a < 3; a++ {
		urs[a] = grab(fmt.Sprintf("UR%d", a+1))
		rfs[a] = grab(fmt.Sprintf("RF%d", a+1))
	}

	var lpf []engine.Sample
	if region := findLPFRegion(step); region != nil {
		lpf, _ = region.Output("LPF")
		if len(lpf) > 0 && len(lpf) < n {
			n = len(lpf)
		}
	}

	h.Time = make([]float64, n)
	for i := 0; i < n; i++ {
		h.Time[i] = u1[i].Time
	}
	values := func(s []engine.Sample) []float64 {
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			if i < len(s) {
				out[i] = s[i].Value
			}
		}
		return out
	}
	for a := 0; a < 3; a++ {
		h.U[a] = values(us[a])
		h.UR[a] = values(urs[a])
		h.RF[a] = values(rfs[a])
	}
	if len(lpf) > 0 {
		h.LPF = values(lpf)
	}
	return h, nil
}

func findControlRegion(step engine.Step) engine.HistoryRegion {
	regions := step.HistoryRegions()
	for _, r := range regions {
		if strings.Contains(strings.ToUpper(r.Name()), "RP_TOP") {
			return r
		}
	}
	for _, r := range regions {
		upper := strings.ToUpper(r.Name())
		if strings.Contains(upper, "NODE") && strings.Contains(upper, "ASSEMBLY") {
			return r
		}
	}
	return nil
}

func findLPFRegion(step engine.Step) engine.HistoryRegion {
	for _, r := range step.HistoryRegions() {
		if !strings.HasPrefix(strings.ToUpper(r.Name()), "ASSEMBLY") {
			continue
		}
		if _, ok := r.Output("LPF"); ok {
			return r
		}
	}
	return nil
}

// Metrics reduces a history to the summary numbers: absolute peak
// displacement and reaction on the control axis, and the raw maximum
// load factor.
func Metrics(h History, ctrl loadcase.Axis) (maxU, maxRF, maxLPF float64) {
	idx := ctrl.Index()
	for _, v := range h.U[idx] {
		if a := math.Abs(v); a > maxU {
			maxU = a
		}
	}
	for _, v := range h.RF[idx] {
		if a := math.Abs(v); a > maxRF {
			maxRF = a
		}
	}
	for _, v := range h.LPF {
		if v > maxLPF {
			maxLPF = v
		}
	}
	return maxU, maxRF, maxLPF
}
