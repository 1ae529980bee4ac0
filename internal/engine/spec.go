package engine

import (
	"fmt"

	"github.com/steelspec/bucklab/internal/loadcase"
	"github.com/steelspec/bucklab/internal/params"
	"github.com/steelspec/bucklab/internal/section"
)

// DOFSet marks restrained degrees of freedom: U for translations,
// UR for rotations, indexed X, Y, Z. True means held.
type DOFSet struct {
	U  [3]bool
	UR [3]bool
}

// EndCoupling ties an end region of the mesh to a control point.
type EndCoupling struct {
	Name   string
	Point  [3]float64
	Region section.Box
}

// HistoryRequest asks the solver to record output series at a named
// point set during the step.
type HistoryRequest struct {
	Set     string
	Outputs []string
}

// BuckleStep describes the eigenvalue phase: reference load at the top
// control point and which top translations are freed so the load can do
// work.
type BuckleStep struct {
	NumEigen    int
	Ref         [3]float64
	FreeTopAxes [3]bool
}

// RiksStep describes the displacement-controlled collapse phase.
// MaxDisp carries the drive sign.
type RiksStep struct {
	DOF           loadcase.Axis
	MaxDisp       float64
	MaxIncrements int
	InitialArcInc float64
	MaxArcInc     float64
	MinArcInc     float64
}

// StepSpec selects exactly one analysis phase.
type StepSpec struct {
	Name   string
	Buckle *BuckleStep
	Riks   *RiksStep
}

// Materials carries the two zone curves. ElasticOnly suppresses the
// plastic tables, which the eigen phase requires.
type Materials struct {
	Web         params.Curve
	Flange      params.Curve
	ElasticOnly bool
}

// ModelSpec is everything a backend needs to build one analysis model.
// Couplings and Fixity are indexed bottom then top.
type ModelSpec struct {
	Name      string
	Geometry  section.Descriptor
	Materials Materials
	Couplings [2]EndCoupling
	Fixity    [2]DOFSet
	Step      StepSpec
	History   *HistoryRequest
}

// Validate rejects specs no backend could build.
func (m ModelSpec) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("engine: model spec needs a name")
	}
	if m.Step.Buckle == nil && m.Step.Riks == nil {
		return fmt.Errorf("engine: model %s defines no analysis step", m.Name)
	}
	if m.Step.Buckle != nil && m.Step.Riks != nil {
		return fmt.Errorf("engine: model %s defines both analysis phases", m.Name)
	}
	if b := m.Step.Buckle; b != nil && b.NumEigen < 1 {
		return fmt.Errorf("engine: model %s requests %d eigenmodes", m.Name, b.NumEigen)
	}
	if r := m.Step.Riks; r != nil && r.MaxDisp == 0 {
		return fmt.Errorf("engine: model %s drives zero displacement", m.Name)
	}
	return nil
}

// Seed is the imperfection applied before the collapse phase: scale the
// given mode shape from a previous buckling result file.
type Seed struct {
	File      string
	Step      int
	Mode      int
	Amplitude float64
}

// Directive renders the seed as the keyword block patched into decks
// for backends without native seeding support.
func (s Seed) Directive() string {
	return fmt.Sprintf("** ----------------------------------------------------------------\n*IMPERFECTION, FILE=%s, STEP=%d\n%d, %g\n**\n",
		s.File, s.Step, s.Mode, s.Amplitude)
}
