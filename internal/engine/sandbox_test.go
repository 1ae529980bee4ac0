package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/steelspec/bucklab/internal/loadcase"
	"github.com/steelspec/bucklab/internal/params"
	"github.com/steelspec/bucklab/internal/section"
)

func testGeometry() section.Descriptor {
	return section.Descriptor{
		SegmentHeight:   300,
		SegmentCount:    2,
		TotalHeight:     600,
		FlangeWidth:     20,
		WebThickness:    15,
		FlangeThickness: 5,
		Length:          3000,
		MeshSize:        20,
		FlangeOn:        true,
	}
}

func testMaterials() Materials {
	curve := params.Curve{E: 210184, Fy: 355.61, PlateauStrain: 0.023, Fu: 444, EpsU: 0.1576}
	return Materials{Web: curve, Flange: curve}
}

func testSpec(name string, step StepSpec) ModelSpec {
	g := testGeometry()
	return ModelSpec{
		Name:      name,
		Geometry:  g,
		Materials: testMaterials(),
		Couplings: [2]EndCoupling{
			{Name: "RP_BOT", Point: g.ControlPoint(false), Region: g.EndBox(false)},
			{Name: "RP_TOP", Point: g.ControlPoint(true), Region: g.EndBox(true)},
		},
		Fixity: [2]DOFSet{
			{U: [3]bool{true, true, true}, UR: [3]bool{true, true, true}},
			{U: [3]bool{true, false, false}, UR: [3]bool{true, true, true}},
		},
		Step: step,
	}
}

func buckleSpec(name string) ModelSpec {
	return testSpec(name, StepSpec{
		Name:   "Step-1",
		Buckle: &BuckleStep{NumEigen: 5, Ref: [3]float64{0, 1, 0}, FreeTopAxes: [3]bool{false, true, false}},
	})
}

func riksSpec(name string) ModelSpec {
	spec := testSpec(name, StepSpec{
		Name: "Step-1",
		Riks: &RiksStep{
			DOF: loadcase.AxisY, MaxDisp: 60,
			MaxIncrements: 1000, InitialArcInc: 0.001, MaxArcInc: 0.2, MinArcInc: 1e-6,
		},
	})
	spec.History = &HistoryRequest{
		Set:     "RP_TOP",
		Outputs: []string{"U1", "U2", "U3", "UR1", "UR2", "UR3", "RF1", "RF2", "RF3"},
	}
	return spec
}

func maxLPF(t *testing.T, resultPath string) float64 {
	t.Helper()
	res, err := NewSandbox().Open(resultPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer res.Close()
	step, ok := res.Step("Step-1")
	if !ok {
		t.Fatal("Step-1 missing from results")
	}
	for _, region := range step.HistoryRegions() {
		if samples, ok := region.Output("LPF"); ok {
			var peak float64
			for _, s := range samples {
				if s.Value > peak {
					peak = s.Value
				}
			}
			return peak
		}
	}
	t.Fatal("no LPF series in results")
	return 0
}

func TestSandboxBuckleRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	model, err := NewSandbox().Build(ctx, buckleSpec("buckle-rt"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	deck := model.Deck().String()
	if !strings.Contains(deck, "** STEP: Step-1") {
		t.Error("deck should carry the step banner anchor")
	}
	if !strings.Contains(deck, "*Buckle\n5, , LANCZOS") {
		t.Errorf("deck missing buckle card:\n%s", deck)
	}

	job, err := model.Submit(ctx, SubmitOptions{JobName: "Job_Buckle_rt", WorkDir: dir})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := job.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	for _, name := range []string{"Job_Buckle_rt.inp", "Job_Buckle_rt.dat", "Job_Buckle_rt.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	res, err := NewSandbox().Open(job.ResultPath())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer res.Close()
	step, ok := res.Step("Step-1")
	if !ok {
		t.Fatal("Step-1 missing")
	}
	if step.NumFrames() != 6 {
		t.Fatalf("NumFrames() = %d, want 6", step.NumFrames())
	}
	// Frame values hold the frame index, the description holds the
	// eigenvalue.
	if step.Frame(1).Value() != 1 {
		t.Errorf("Frame(1).Value() = %g, want 1", step.Frame(1).Value())
	}
	if !strings.Contains(step.Frame(1).Description(), "EigenValue =") {
		t.Errorf("Frame(1).Description() = %q", step.Frame(1).Description())
	}

	log, err := os.ReadFile(job.LogPath())
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	text := string(log)
	if !strings.Contains(text, "MODE NO") || !strings.Contains(text, "EIGENVALUE") {
		t.Errorf("log missing eigenvalue table header:\n%s", text)
	}
	if !strings.Contains(text, "THE ANALYSIS HAS BEEN COMPLETED") {
		t.Error("log missing completion banner")
	}
}

func TestSandboxRiksCurveShape(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	model, err := NewSandbox().Build(ctx, riksSpec("riks-shape"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	job, err := model.Submit(ctx, SubmitOptions{JobName: "Job_Riks_shape", WorkDir: dir})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	res, err := NewSandbox().Open(job.ResultPath())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer res.Close()
	step, _ := res.Step("Step-1")
	regions := step.HistoryRegions()
	if len(regions) != 2 {
		t.Fatalf("regions = %d, want control point and assembly", len(regions))
	}

	var u2, lpf []Sample
	for _, r := range regions {
		if s, ok := r.Output("U2"); ok {
			u2 = s
		}
		if s, ok := r.Output("LPF"); ok {
			lpf = s
		}
	}
	if len(u2) == 0 || len(lpf) == 0 {
		t.Fatal("missing U2 or LPF series")
	}
	if got := u2[len(u2)-1].Value; got != 60 {
		t.Errorf("final control displacement = %g, want 60", got)
	}
	var peak, last float64
	for _, s := range lpf {
		if s.Value > peak {
			peak = s.Value
		}
	}
	last = lpf[len(lpf)-1].Value
	if peak <= 0 {
		t.Fatal("curve never rises")
	}
	if last >= 0.8*peak {
		t.Errorf("curve should shed load after the peak: last %g, peak %g", last, peak)
	}
}

func TestSandboxSeedRequiresSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	model, err := NewSandbox().Build(ctx, riksSpec("riks-noseed"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	seed := Seed{File: "Job_Buckle_gone", Step: 1, Mode: 1, Amplitude: 6}
	if !model.Deck().InsertBefore("** STEP: Step-1", seed.Directive()) {
		t.Fatal("anchor not found")
	}
	if _, err := model.Submit(ctx, SubmitOptions{JobName: "Job_Riks_noseed", WorkDir: dir}); err == nil {
		t.Error("submit should fail when the imperfection source is missing")
	}
}

func TestSandboxSeedKnocksPeakDown(t *testing.T) {
	ctx := context.Background()

	plain, err := NewSandbox().Build(ctx, riksSpec("riks-plain"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	dirA := t.TempDir()
	jobA, err := plain.Submit(ctx, SubmitOptions{JobName: "Job_Riks_plain", WorkDir: dirA})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	peakPlain := maxLPF(t, jobA.ResultPath())

	seeded, err := NewSandbox().Build(ctx, riksSpec("riks-seeded"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	dirB := t.TempDir()
	if err := os.WriteFile(filepath.Join(dirB, "Job_Buckle_src.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	seed := Seed{File: "Job_Buckle_src", Step: 1, Mode: 1, Amplitude: 6}
	if !seeded.Deck().InsertBefore("** STEP: Step-1", seed.Directive()) {
		t.Fatal("anchor not found")
	}
	jobB, err := seeded.Submit(ctx, SubmitOptions{JobName: "Job_Riks_seeded", WorkDir: dirB})
	if err != nil {
		t.Fatalf("seeded Submit() error = %v", err)
	}
	peakSeeded := maxLPF(t, jobB.ResultPath())

	if peakSeeded >= peakPlain {
		t.Errorf("imperfection should reduce the peak: seeded %g, plain %g", peakSeeded, peakPlain)
	}
}

func TestSeedDirectiveFormat(t *testing.T) {
	s := Seed{File: "Job_Buckle_H600_LC4", Step: 1, Mode: 1, Amplitude: 6}
	want := "** ----------------------------------------------------------------\n" +
		"*IMPERFECTION, FILE=Job_Buckle_H600_LC4, STEP=1\n1, 6\n**\n"
	if got := s.Directive(); got != want {
		t.Errorf("Directive() = %q, want %q", got, want)
	}
}

func TestModelSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec ModelSpec
	}{
		{"empty name", ModelSpec{Step: StepSpec{Buckle: &BuckleStep{NumEigen: 1}}}},
		{"no step", ModelSpec{Name: "x"}},
		{"both steps", ModelSpec{Name: "x", Step: StepSpec{Buckle: &BuckleStep{NumEigen: 1}, Riks: &RiksStep{MaxDisp: 1}}}},
		{"zero modes", ModelSpec{Name: "x", Step: StepSpec{Buckle: &BuckleStep{}}}},
		{"zero drive", ModelSpec{Name: "x", Step: StepSpec{Riks: &RiksStep{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.spec.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
