package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/steelspec/bucklab/internal/loadcase"
)

func init() {
	Register(DefaultName, func() Engine { return NewSandbox() })
}

// Sandbox is the built-in backend. It renders real keyword decks,
// honors imperfection directives and synthesizes plate-buckling
// eigenvalues and collapse curves from closed-form estimates, so the
// pipeline, extraction and reporting run without a licensed solver.
type Sandbox struct{}

// NewSandbox returns the in-process backend.
func NewSandbox() *Sandbox { return &Sandbox{} }

func (s *Sandbox) Name() string    { return DefaultName }
func (s *Sandbox) Available() bool { return true }

// Build renders the spec into a deck and captures it for submission.
func (s *Sandbox) Build(ctx context.Context, spec ModelSpec) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &sandboxModel{spec: spec, deck: renderDeck(spec)}, nil
}

// Open loads a JSON result archive written by a previous submission.
func (s *Sandbox) Open(path string) (Results, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results %s: %w", path, err)
	}
	var a archive
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode results %s: %w", path, err)
	}
	if len(a.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, path)
	}
	return &a, nil
}

type sandboxModel struct {
	spec ModelSpec
	deck *Deck
}

func (m *sandboxModel) Deck() *Deck { return m.deck }

// Submit runs the model synchronously in the scratch directory: the
// deck, a text log and the result archive land next to each other under
// the job name.
func (m *sandboxModel) Submit(ctx context.Context, opts SubmitOptions) (Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.JobName == "" {
		return nil, fmt.Errorf("engine: submit needs a job name")
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	inpPath := filepath.Join(workDir, opts.JobName+".inp")
	f, err := os.Create(inpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to write deck: %w", err)
	}
	if _, err := m.deck.WriteTo(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write deck: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write deck: %w", err)
	}

	var (
		arch *archive
		log  string
	)
	switch {
	case m.spec.Step.Buckle != nil:
		arch, log = m.solveBuckle(opts.JobName)
	case m.spec.Step.Riks != nil:
		arch, log, err = m.solveRiks(opts.JobName, workDir)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("engine: model %s defines no analysis step", m.spec.Name)
	}

	logPath := filepath.Join(workDir, opts.JobName+".dat")
	if err := os.WriteFile(logPath, []byte(log), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write solver log: %w", err)
	}
	resultPath := filepath.Join(workDir, opts.JobName+".json")
	raw, err := json.MarshalIndent(arch, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(resultPath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}

	return &sandboxJob{name: opts.JobName, resultPath: resultPath, logPath: logPath}, nil
}

// solveBuckle estimates the elastic critical load of the web plate and
// spreads the requested mode count over a quadratic ladder. Frame
// values deliberately carry the frame index, matching solvers that do
// not store the eigenvalue there; the description and the text log do.
func (m *sandboxModel) solveBuckle(jobName string) (*archive, string) {
	g := m.spec.Geometry
	b := m.spec.Step.Buckle
	ref := b.Ref
	refMag := math.Sqrt(ref[0]*ref[0] + ref[1]*ref[1] + ref[2]*ref[2])
	if refMag == 0 {
		refMag = 1
	}

	// Plate buckling coefficient: uniform compression when the axial
	// component dominates, long-plate shear otherwise.
	k := 4.0
	if !(math.Abs(ref[2]) > math.Abs(ref[0]) && math.Abs(ref[2]) > math.Abs(ref[1])) {
		aspect := g.Length / g.TotalHeight
		k = 5.34 + 4.0/(aspect*aspect)
	}
	const nu = 0.3
	E := m.spec.Materials.Web.E
	ratio := g.WebThickness / g.TotalHeight
	sigmaCr := k * math.Pi * math.Pi * E / (12 * (1 - nu*nu)) * ratio * ratio
	area := g.TotalHeight * g.WebThickness
	base := sigmaCr * area / refMag

	frames := []archiveFrame{{Val: 0, Desc: "Increment 0: Base State"}}
	modes := make([]float64, b.NumEigen)
	for i := 1; i <= b.NumEigen; i++ {
		step := float64(i - 1)
		modes[i-1] = base * (1 + 0.35*step + 0.08*step*step)
		frames = append(frames, archiveFrame{
			Val:  float64(i),
			Desc: fmt.Sprintf("Mode %d: EigenValue = %.6E", i, modes[i-1]),
		})
	}

	log := renderEigenLog(jobName, modes)
	arch := &archive{
		Job: jobName,
		Steps: []archiveStep{{
			StepName: m.spec.Step.Name,
			Frames:   frames,
		}},
	}
	return arch, log
}

var imperfRe = regexp.MustCompile(`(?i)\*IMPERFECTION,\s*FILE=([^,\s]+),\s*STEP=(\d+)\s*\n\s*(\d+),\s*([0-9eE\+\-\.]+)`)

// solveRiks traces a load-deflection curve that rises to the plastic
// capacity and sheds load beyond it. A seeded imperfection knocks the
// peak down and its source file must exist, like a real restart read.
func (m *sandboxModel) solveRiks(jobName, workDir string) (*archive, string, error) {
	g := m.spec.Geometry
	r := m.spec.Step.Riks

	amp := 0.0
	if match := imperfRe.FindStringSubmatch(m.deck.String()); match != nil {
		src := filepath.Join(workDir, match[1]+".json")
		if _, err := os.Stat(src); err != nil {
			return nil, "", fmt.Errorf("engine: imperfection source %s not found: %w", match[1], err)
		}
		amp, _ = strconv.ParseFloat(match[4], 64)
	}

	webArea := g.TotalHeight * g.WebThickness
	fy := m.spec.Materials.Web.Fy
	var capacity float64
	if r.DOF == loadcase.AxisZ {
		capacity = fy * webArea
		if g.FlangeOn {
			capacity += 2 * m.spec.Materials.Flange.Fy * g.FlangeWidth * g.FlangeThickness
		}
	} else {
		capacity = fy / math.Sqrt(3) * webArea
	}
	peak := capacity
	if amp > 0 {
		peak /= 1 + 0.015*amp
	}

	const (
		n  = 48
		s0 = 0.45
	)
	sign := 1.0
	if r.MaxDisp < 0 {
		sign = -1.0
	}
	ctrl := r.DOF.Index()

	frames := []archiveFrame{{Val: 0, Desc: "Increment 0: Base State"}}
	var u [3][]Sample
	var rf [3][]Sample
	var lpf []Sample
	for i := 1; i <= n; i++ {
		s := float64(i) / n
		load := peak * (s / s0) * math.Exp(1-s/s0)
		frames = append(frames, archiveFrame{
			Val:  s,
			Desc: fmt.Sprintf("Increment %d: Arc Length = %.4f", i, s),
		})
		for a := 0; a < 3; a++ {
			var du float64
			if a == ctrl {
				du = r.MaxDisp * s
			}
			u[a] = append(u[a], Sample{Time: s, Value: du})
			var drf float64
			if a == ctrl {
				drf = sign * load
			}
			rf[a] = append(rf[a], Sample{Time: s, Value: drf})
		}
		lpf = append(lpf, Sample{Time: s, Value: load})
	}

	outputs := map[string][]Sample{}
	for a := 0; a < 3; a++ {
		outputs[fmt.Sprintf("U%d", a+1)] = u[a]
		outputs[fmt.Sprintf("UR%d", a+1)] = zeroSeries(n)
		outputs[fmt.Sprintf("RF%d", a+1)] = rf[a]
	}

	arch := &archive{
		Job: jobName,
		Steps: []archiveStep{{
			StepName: m.spec.Step.Name,
			Frames:   frames,
			Regions: []archiveRegion{
				{Label: "Node ASSEMBLY_RP_TOP", Series: outputs},
				{Label: "ASSEMBLY", Series: map[string][]Sample{"LPF": lpf}},
			},
		}},
	}
	log := fmt.Sprintf(" JOB %s\n\n THE ANALYSIS HAS BEEN COMPLETED\n", jobName)
	return arch, log, nil
}

func zeroSeries(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Time: float64(i+1) / float64(n)}
	}
	return out
}

func renderEigenLog(jobName string, modes []float64) string {
	log := fmt.Sprintf(" JOB %s\n\n", jobName)
	log += "                   E I G E N V A L U E    O U T P U T\n\n"
	log += " MODE NO      EIGENVALUE\n\n"
	for i, v := range modes {
		log += fmt.Sprintf(" %7d   %14.6E\n", i+1, v)
	}
	log += "\n THE ANALYSIS HAS BEEN COMPLETED\n"
	return log
}

type sandboxJob struct {
	name       string
	resultPath string
	logPath    string
}

func (j *sandboxJob) Name() string { return j.name }

// Wait is trivial: the sandbox solves during Submit.
func (j *sandboxJob) Wait(ctx context.Context) error { return ctx.Err() }

func (j *sandboxJob) ResultPath() string { return j.resultPath }
func (j *sandboxJob) LogPath() string    { return j.logPath }

// archive is the on-disk result database.
type archive struct {
	Job   string        `json:"job"`
	Steps []archiveStep `json:"steps"`
}

type archiveStep struct {
	StepName string          `json:"name"`
	Frames   []archiveFrame  `json:"frames"`
	Regions  []archiveRegion `json:"regions,omitempty"`
}

type archiveFrame struct {
	Val  float64 `json:"value"`
	Desc string  `json:"description,omitempty"`
}

type archiveRegion struct {
	Label  string              `json:"name"`
	Series map[string][]Sample `json:"outputs"`
}

func (a *archive) Step(name string) (Step, bool) {
	for i := range a.Steps {
		if a.Steps[i].StepName == name {
			return &a.Steps[i], true
		}
	}
	return nil, false
}

func (a *archive) Close() error { return nil }

func (s *archiveStep) NumFrames() int { return len(s.Frames) }

func (s *archiveStep) Frame(i int) Frame { return s.Frames[i] }

func (s *archiveStep) HistoryRegions() []HistoryRegion {
	out := make([]HistoryRegion, len(s.Regions))
	for i := range s.Regions {
		out[i] = &s.Regions[i]
	}
	return out
}

func (f archiveFrame) Value() float64      { return f.Val }
func (f archiveFrame) Description() string { return f.Desc }

func (r *archiveRegion) Name() string { return r.Label }

func (r *archiveRegion) Outputs() []string {
	names := make([]string, 0, len(r.Series))
	for name := range r.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *archiveRegion) Output(name string) ([]Sample, bool) {
	s, ok := r.Series[name]
	return s, ok
}
