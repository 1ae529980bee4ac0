// Package engine defines the solver contract the pipeline drives: an
// Engine builds models from specs, submits jobs and opens result
// databases. Backends register themselves by name; the sandbox backend
// ships in-process so the pipeline runs without a licensed solver.
package engine

import "context"

// Engine is one registered solver backend.
type Engine interface {
	Name() string
	// Available reports whether the backend can run on this host.
	Available() bool
	Build(ctx context.Context, spec ModelSpec) (Model, error)
	// Open loads a finished result database for extraction.
	Open(path string) (Results, error)
}

// Model is a built analysis model ready for submission. Deck exposes
// the keyword input for last-mile patching.
type Model interface {
	Deck() *Deck
	Submit(ctx context.Context, opts SubmitOptions) (Job, error)
}

// Job is a submitted solver run.
type Job interface {
	Name() string
	// Wait blocks until the run finishes or ctx is done.
	Wait(ctx context.Context) error
	// ResultPath locates the result database once the run finished.
	ResultPath() string
	// LogPath locates the solver text log, empty when the backend
	// writes none.
	LogPath() string
}

// SubmitOptions tie a run to an explicit scratch directory so
// concurrent cases never share files.
type SubmitOptions struct {
	JobName string
	WorkDir string
	NumCPUs int
}

// Results is an open result database.
type Results interface {
	Step(name string) (Step, bool)
	Close() error
}

// Step is one analysis step inside a result database.
type Step interface {
	NumFrames() int
	Frame(i int) Frame
	HistoryRegions() []HistoryRegion
}

// Frame is one increment or mode of a step.
type Frame interface {
	// Value is the frame scalar: the eigenvalue for buckling modes,
	// the arc parameter for collapse increments. Backends that only
	// store frame indices here are screened out downstream.
	Value() float64
	Description() string
}

// HistoryRegion groups history output series recorded at one location.
type HistoryRegion interface {
	Name() string
	Outputs() []string
	Output(name string) ([]Sample, bool)
}

// Sample is one history data point.
type Sample struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// ImperfectionSeeder is an optional Model capability: backends that can
// seed mode shapes natively implement it, everyone else gets the deck
// directive patched in.
type ImperfectionSeeder interface {
	SeedImperfection(seed Seed) error
}

// Viewer is an optional Engine capability for post-processing image
// export. Busy lets the pipeline wait out a shared viewer lock.
type Viewer interface {
	Busy(ctx context.Context) (bool, error)
	ExportImages(ctx context.Context, req ImageRequest) (int, error)
}

// ImageRequest asks the viewer to render deformed-shape plots: the
// first Modes buckling shapes, plus the collapse state at PeakFrame.
// PeakFrame 0 means no peak was selected (frame 0 is the base state).
type ImageRequest struct {
	ResultPath string
	OutDir     string
	Modes      int
	PeakFrame  int
}
