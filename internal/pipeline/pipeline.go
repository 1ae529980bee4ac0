// Package pipeline drives the two-phase stability analysis: an
// eigenvalue buckling run seeds a geometric imperfection, then a
// displacement-controlled collapse run traces the load path. Results
// land in the store; scratch files are removed only after the durable
// outputs are verified.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/steelspec/bucklab/internal/engine"
	"github.com/steelspec/bucklab/internal/extract"
	"github.com/steelspec/bucklab/internal/loadcase"
	"github.com/steelspec/bucklab/internal/params"
	"github.com/steelspec/bucklab/internal/peak"
	"github.com/steelspec/bucklab/internal/report"
	"github.com/steelspec/bucklab/internal/section"
	"github.com/steelspec/bucklab/internal/store"
)

// Phase names the pipeline stages, recorded on failures.
type Phase string

const (
	PhaseBuildBuckle  Phase = "BuildBuckle"
	PhaseSubmitBuckle Phase = "SubmitBuckle"
	PhaseExtractEigen Phase = "ExtractEigen"
	PhaseBuildRiks    Phase = "BuildRiks"
	PhaseSubmitRiks   Phase = "SubmitRiks"
	PhaseExtractCurve Phase = "ExtractCurve"
	PhaseVisualize    Phase = "Visualize"
	PhaseCleanup      Phase = "Cleanup"
)

const (
	stepName    = "Step-1"
	stepAnchor  = "** STEP: Step-1"
	topPointSet = "RP_TOP"
	botPointSet = "RP_BOT"

	// The collapse run is always seeded with the first buckling mode.
	seedStep = 1
	seedMode = 1
)

var historyOutputs = []string{"U1", "U2", "U3", "UR1", "UR2", "UR3", "RF1", "RF2", "RF3"}

// Options tune one Runner.
type Options struct {
	// WorkRoot holds per-case scratch directories.
	WorkRoot string
	// KeepWorkFiles disables scratch removal entirely.
	KeepWorkFiles bool
	// NumCPUs overrides the per-record CPU count when positive.
	NumCPUs int
	// SaveModels archives the rendered decks next to the results.
	SaveModels bool
	Peak       peak.Options
	// MinImages is how many rendered images cleanup requires in the
	// case directory before scratch files may go.
	MinImages int
	// ImageModes is passed to viewer-capable engines.
	ImageModes int
	ViewerWait time.Duration
	ViewerPoll time.Duration
}

// Runner executes specimens against one engine and one store.
type Runner struct {
	eng  engine.Engine
	st   *store.Store
	opts Options
	sink Sink
}

// New builds a Runner. A nil sink discards events.
func New(eng engine.Engine, st *store.Store, opts Options, sink Sink) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	if opts.WorkRoot == "" {
		opts.WorkRoot = "work"
	}
	return &Runner{eng: eng, st: st, opts: opts, sink: sink}
}

func (r *Runner) publish(e Event) { r.sink.Publish(e) }

func (r *Runner) warn(specimen, caseID, msg string) {
	r.publish(Event{Kind: Warning, Specimen: specimen, Case: caseID, Message: msg})
}

// RunBatch normalizes and runs every record. A record that fails
// normalization becomes a failed pseudo-summary so the batch report
// stays complete, and the remaining records still run.
func (r *Runner) RunBatch(ctx context.Context, records []map[string]string) ([]store.Summary, error) {
	if len(records) == 0 {
		r.warn("", "", "no parameter records given; running the built-in defaults")
		records = []map[string]string{{}}
	}

	var sums []store.Summary
	for i, rec := range records {
		label := fmt.Sprintf("record-%d", i+1)
		set, warnings, err := params.Normalize(rec)
		for _, w := range warnings {
			r.warn(label, "", w)
		}
		if err != nil {
			r.warn(label, "", fmt.Sprintf("record rejected: %v", err))
			sums = append(sums, store.Summary{
				Specimen:  label,
				Generated: time.Now(),
				Cases: []store.CaseResult{{
					CaseID: "-",
					Status: store.StatusFailed,
					Phase:  "Normalize",
					Cause:  err.Error(),
				}},
			})
			continue
		}
		sum, err := r.RunSet(ctx, set)
		sums = append(sums, sum)
		if err != nil {
			return sums, err
		}
		if ctx.Err() != nil {
			return sums, ctx.Err()
		}
	}
	return sums, nil
}

// RunSet runs every resolved load case of one specimen and writes the
// summary. The summary is written even when cases fail; only a summary
// write failure is returned as an error.
func (r *Runner) RunSet(ctx context.Context, set params.Set) (store.Summary, error) {
	geo := section.Describe(set)
	specimen := geo.Name()
	sum := store.Summary{Specimen: specimen, Params: set, Generated: time.Now()}

	r.publish(Event{Kind: SpecimenStarted, Specimen: specimen})

	cases, warnings := loadcase.Resolve(set.EnableCases, loadcase.Hints{
		RefFX: set.RefFX, RefFY: set.RefFY, RefFZ: set.RefFZ,
	})
	for _, w := range warnings {
		r.warn(specimen, "", w)
	}
	if set.ImperfMode != seedMode {
		r.warn(specimen, "", fmt.Sprintf(
			"imperfection mode %d requested; only mode %d is supported and will be used",
			set.ImperfMode, seedMode))
	}

	for _, lc := range cases {
		if err := ctx.Err(); err != nil {
			sum.Cases = append(sum.Cases, store.CaseResult{
				CaseID: lc.ID, Status: store.StatusSkipped, Cause: err.Error(),
			})
			continue
		}
		res := r.runCase(ctx, set, geo, specimen, lc)
		sum.Cases = append(sum.Cases, res)
		r.publish(Event{Kind: CaseDone, Specimen: specimen, Case: lc.ID, Status: res.Status})
	}

	if err := r.st.WriteSummary(sum); err != nil {
		return sum, fmt.Errorf("failed to write summary for %s: %w", specimen, err)
	}
	r.publish(Event{Kind: SpecimenDone, Specimen: specimen})
	return sum, nil
}

func (r *Runner) runCase(ctx context.Context, set params.Set, geo section.Descriptor, specimen string, lc loadcase.Case) store.CaseResult {
	r.publish(Event{Kind: CaseStarted, Specimen: specimen, Case: lc.ID})
	res := store.CaseResult{CaseID: lc.ID, Status: store.StatusCompleted}

	caseDir, err := r.st.EnsureCaseDir(specimen, lc.ID)
	if err != nil {
		return r.fail(&res, specimen, PhaseBuildBuckle, err)
	}
	workDir := filepath.Join(r.opts.WorkRoot, specimen, lc.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return r.fail(&res, specimen, PhaseBuildBuckle, err)
	}

	out := r.casePhases(ctx, set, geo, specimen, lc, caseDir, workDir, &res)
	r.cleanup(specimen, lc.ID, caseDir, workDir)
	return out
}

// casePhases runs the analysis phases in order; the first failure
// stamps the result and stops. Eigen extraction shortfalls degrade to
// warnings because the collapse run can proceed unseeded.
func (r *Runner) casePhases(ctx context.Context, set params.Set, geo section.Descriptor, specimen string, lc loadcase.Case, caseDir, workDir string, res *store.CaseResult) store.CaseResult {
	buckleJob := "Job_Buckle_" + specimen + "_" + lc.ID
	riksJob := "Job_Riks_" + specimen + "_" + lc.ID

	r.phase(specimen, lc.ID, PhaseBuildBuckle)
	bModel, err := r.eng.Build(ctx, r.buckleSpec(set, geo, specimen, lc))
	if err != nil {
		return r.fail(res, specimen, PhaseBuildBuckle, err)
	}
	r.phaseDone(specimen, lc.ID, PhaseBuildBuckle)

	r.phase(specimen, lc.ID, PhaseSubmitBuckle)
	r.saveDeck(bModel, buckleJob, caseDir, specimen, lc.ID)
	bJob, err := r.submit(ctx, bModel, buckleJob, workDir, set)
	if err != nil {
		return r.fail(res, specimen, PhaseSubmitBuckle, err)
	}
	r.phaseDone(specimen, lc.ID, PhaseSubmitBuckle)

	r.phase(specimen, lc.ID, PhaseExtractEigen)
	eigen := r.extractEigen(specimen, lc.ID, bJob)
	if len(eigen.Modes) > 0 {
		if err := r.st.WriteEigen(specimen, lc.ID, eigen.Modes); err != nil {
			return r.fail(res, specimen, PhaseExtractEigen, err)
		}
	} else {
		tried := []string{
			string(extract.MethodFrameValue),
			string(extract.MethodDescription),
			string(extract.MethodSolverLog),
		}
		if err := r.st.WriteExtractionWarning(specimen, lc.ID, bJob.ResultPath(), tried); err != nil {
			return r.fail(res, specimen, PhaseExtractEigen, err)
		}
		r.warn(specimen, lc.ID, fmt.Sprintf(
			"no eigenvalues extracted from %s; collapse run proceeds unseeded", bJob.ResultPath()))
	}
	res.EigenMethod = string(eigen.Method)
	r.phaseDone(specimen, lc.ID, PhaseExtractEigen)

	r.phase(specimen, lc.ID, PhaseBuildRiks)
	rModel, err := r.eng.Build(ctx, r.riksSpec(set, geo, specimen, lc))
	if err != nil {
		return r.fail(res, specimen, PhaseBuildRiks, err)
	}
	if len(eigen.Modes) > 0 && set.ImperfAmp != 0 {
		r.applySeed(rModel, buckleJob, set.ImperfAmp, specimen, lc.ID)
	}
	r.phaseDone(specimen, lc.ID, PhaseBuildRiks)

	r.phase(specimen, lc.ID, PhaseSubmitRiks)
	r.saveDeck(rModel, riksJob, caseDir, specimen, lc.ID)
	rJob, err := r.submit(ctx, rModel, riksJob, workDir, set)
	if err != nil {
		return r.fail(res, specimen, PhaseSubmitRiks, err)
	}
	r.phaseDone(specimen, lc.ID, PhaseSubmitRiks)

	r.phase(specimen, lc.ID, PhaseExtractCurve)
	hist, err := r.extractCurve(rJob)
	if err != nil {
		return r.fail(res, specimen, PhaseExtractCurve, err)
	}
	if err := r.st.WriteCurve(specimen, lc.ID, hist); err != nil {
		return r.fail(res, specimen, PhaseExtractCurve, err)
	}
	res.MaxDisp, res.MaxForce, res.MaxLPF = extract.Metrics(hist, lc.Control.DOF)
	r.publish(Event{Kind: PhaseDone, Specimen: specimen, Case: lc.ID, Phase: PhaseExtractCurve, Curve: hist.LPF})

	r.phase(specimen, lc.ID, PhaseVisualize)
	r.visualize(ctx, specimen, lc, hist, eigen, caseDir, rJob, res)
	r.phaseDone(specimen, lc.ID, PhaseVisualize)

	return *res
}

// extractEigen opens the buckling results and runs tiered recovery.
// Open failures degrade to the solver log.
func (r *Runner) extractEigen(specimen, caseID string, job engine.Job) extract.EigenResult {
	res, err := r.eng.Open(job.ResultPath())
	if err != nil {
		r.warn(specimen, caseID, fmt.Sprintf("failed to open buckling results: %v", err))
		return extract.Eigenvalues(nil, stepName, job.LogPath())
	}
	defer res.Close()
	return extract.Eigenvalues(res, stepName, job.LogPath())
}

func (r *Runner) extractCurve(job engine.Job) (extract.History, error) {
	res, err := r.eng.Open(job.ResultPath())
	if err != nil {
		return extract.History{}, err
	}
	defer res.Close()
	return extract.Curve(res, stepName)
}

// visualize renders figures and, when the engine can, deformed-shape
// images. Nothing here fails the case; gaps surface as warnings and
// keep cleanup honest.
func (r *Runner) visualize(ctx context.Context, specimen string, lc loadcase.Case, hist extract.History, eigen extract.EigenResult, caseDir string, job engine.Job, res *store.CaseResult) {
	dec := peak.Select(hist.Time, hist.LPF, r.opts.Peak)
	res.PeakKind = string(dec.Kind)
	res.PeakFrame = dec.Index + 1

	title := specimen + " " + lc.ID
	if err := report.CurveFigure(hist.Time, hist.LPF, dec, title, filepath.Join(caseDir, "riks_curve.png")); err != nil {
		r.warn(specimen, lc.ID, fmt.Sprintf("curve figure: %v", err))
	}
	if len(eigen.Modes) > 0 {
		if err := report.EigenFigure(eigen.Modes, title, filepath.Join(caseDir, "buckling_modes.png")); err != nil {
			r.warn(specimen, lc.ID, fmt.Sprintf("eigen figure: %v", err))
		}
	}

	v, ok := r.eng.(engine.Viewer)
	if !ok || r.opts.ImageModes <= 0 {
		return
	}
	ready, err := WaitForViewer(ctx, v, r.opts.ViewerWait, r.opts.ViewerPoll)
	if err != nil {
		r.warn(specimen, lc.ID, fmt.Sprintf("viewer: %v", err))
		return
	}
	if !ready {
		r.warn(specimen, lc.ID, fmt.Sprintf("viewer still busy after %s; exporting anyway", r.opts.ViewerWait))
	}
	n, err := v.ExportImages(ctx, engine.ImageRequest{
		ResultPath: job.ResultPath(),
		OutDir:     caseDir,
		Modes:      r.opts.ImageModes,
		PeakFrame:  peak.NearestFrame(hist.Time, dec.Time) + 1,
	})
	if err != nil {
		r.warn(specimen, lc.ID, fmt.Sprintf("image export: %v", err))
		return
	}
	if n < r.opts.MinImages {
		r.warn(specimen, lc.ID, fmt.Sprintf("viewer exported %d of %d required images", n, r.opts.MinImages))
	}
}

// applySeed injects the mode-1 imperfection. Engines with native
// seeding get the capability call; everyone else gets the keyword
// directive anchored ahead of the step block.
func (r *Runner) applySeed(model engine.Model, sourceJob string, amplitude float64, specimen, caseID string) {
	seed := engine.Seed{File: sourceJob, Step: seedStep, Mode: seedMode, Amplitude: amplitude}
	if s, ok := model.(engine.ImperfectionSeeder); ok {
		err := s.SeedImperfection(seed)
		if err == nil {
			return
		}
		r.warn(specimen, caseID, fmt.Sprintf("native seeding failed, patching deck instead: %v", err))
	}
	if !model.Deck().InsertBefore(stepAnchor, seed.Directive()) {
		model.Deck().Append(seed.Directive())
		r.warn(specimen, caseID, "step anchor not found in deck; imperfection directive appended at the end")
	}
}

// saveDeck archives the rendered deck next to the results, including
// any patched directives. Saved just before submission so a failed job
// still leaves its input behind for a post-mortem.
func (r *Runner) saveDeck(m engine.Model, jobName, caseDir, specimen, caseID string) {
	if !r.opts.SaveModels {
		return
	}
	f, err := os.Create(filepath.Join(caseDir, jobName+".inp"))
	if err != nil {
		r.warn(specimen, caseID, fmt.Sprintf("failed to archive deck %s: %v", jobName, err))
		return
	}
	defer f.Close()
	if _, err := m.Deck().WriteTo(f); err != nil {
		r.warn(specimen, caseID, fmt.Sprintf("failed to archive deck %s: %v", jobName, err))
	}
}

func (r *Runner) submit(ctx context.Context, m engine.Model, jobName, workDir string, set params.Set) (engine.Job, error) {
	cpus := set.NumCPUs
	if r.opts.NumCPUs > 0 {
		cpus = r.opts.NumCPUs
	}
	job, err := m.Submit(ctx, engine.SubmitOptions{JobName: jobName, WorkDir: workDir, NumCPUs: cpus})
	if err != nil {
		return nil, err
	}
	if err := job.Wait(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *Runner) baseSpec(set params.Set, geo section.Descriptor, specimen, caseID, name string) engine.ModelSpec {
	bot, ok := DOFs(set.FixityBot)
	if !ok {
		r.warn(specimen, caseID, fmt.Sprintf("unknown bottom fixity %q, clamping fully", set.FixityBot))
	}
	top, ok := DOFs(set.FixityTop)
	if !ok {
		r.warn(specimen, caseID, fmt.Sprintf("unknown top fixity %q, clamping fully", set.FixityTop))
	}
	return engine.ModelSpec{
		Name:     name,
		Geometry: geo,
		Materials: engine.Materials{
			Web:    set.WebCurve(),
			Flange: set.FlangeCurve(),
		},
		Couplings: [2]engine.EndCoupling{
			{Name: botPointSet, Point: geo.ControlPoint(false), Region: geo.EndBox(false)},
			{Name: topPointSet, Point: geo.ControlPoint(true), Region: geo.EndBox(true)},
		},
		Fixity: [2]engine.DOFSet{bot, TopOverrides(top)},
	}
}

// buckleSpec builds the linear perturbation model: elastic material,
// reference load at the top point, loaded axes freed so the reference
// load can do work.
func (r *Runner) buckleSpec(set params.Set, geo section.Descriptor, specimen string, lc loadcase.Case) engine.ModelSpec {
	spec := r.baseSpec(set, geo, specimen, lc.ID, specimen+"_"+lc.ID+"_buckle")
	spec.Materials.ElasticOnly = true

	var free [3]bool
	for a := 0; a < 3; a++ {
		free[a] = math.Abs(lc.BucklingRef[a]) > 0
	}
	spec.Step = engine.StepSpec{
		Name: stepName,
		Buckle: &engine.BuckleStep{
			NumEigen:    set.NumEigen,
			Ref:         lc.BucklingRef,
			FreeTopAxes: free,
		},
	}
	return spec
}

// riksSpec builds the collapse model: full plasticity and the
// registry's displacement drive, with history output at the top point.
func (r *Runner) riksSpec(set params.Set, geo section.Descriptor, specimen string, lc loadcase.Case) engine.ModelSpec {
	spec := r.baseSpec(set, geo, specimen, lc.ID, specimen+"_"+lc.ID+"_riks")
	spec.Step = engine.StepSpec{
		Name: stepName,
		Riks: &engine.RiksStep{
			DOF:           lc.Control.DOF,
			MaxDisp:       lc.Control.MaxDisp * float64(lc.Control.Sign),
			MaxIncrements: 1000,
			InitialArcInc: 0.001,
			MaxArcInc:     0.2,
			MinArcInc:     1e-6,
		},
	}
	spec.History = &engine.HistoryRequest{Set: topPointSet, Outputs: historyOutputs}
	return spec
}

// cleanup removes the scratch directory once the durable outputs are
// verified. Anything missing keeps the scratch files for a post-mortem.
func (r *Runner) cleanup(specimen, caseID, caseDir, workDir string) {
	r.phase(specimen, caseID, PhaseCleanup)
	defer r.phaseDone(specimen, caseID, PhaseCleanup)

	if r.opts.KeepWorkFiles {
		return
	}
	if missing := r.verifyDurable(caseDir); len(missing) > 0 {
		r.warn(specimen, caseID, fmt.Sprintf(
			"retaining scratch %s: missing %s", workDir, strings.Join(missing, ", ")))
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		r.warn(specimen, caseID, fmt.Sprintf("failed to remove scratch %s: %v", workDir, err))
	}
}

// verifyDurable lists what the case directory still lacks. The
// extraction warning stands in for the eigen table: a documented gap is
// durable too.
func (r *Runner) verifyDurable(caseDir string) []string {
	var missing []string
	if _, err := os.Stat(filepath.Join(caseDir, store.EigenFileName)); err != nil {
		if _, err := os.Stat(filepath.Join(caseDir, store.WarningFileName)); err != nil {
			missing = append(missing, store.EigenFileName)
		}
	}
	if _, err := os.Stat(filepath.Join(caseDir, store.CurveFileName)); err != nil {
		missing = append(missing, store.CurveFileName)
	}
	if n := store.CountImages(caseDir); n < r.opts.MinImages {
		missing = append(missing, fmt.Sprintf("%d/%d images", n, r.opts.MinImages))
	}
	return missing
}

func (r *Runner) phase(specimen, caseID string, p Phase) {
	r.publish(Event{Kind: PhaseStarted, Specimen: specimen, Case: caseID, Phase: p})
}

func (r *Runner) phaseDone(specimen, caseID string, p Phase) {
	r.publish(Event{Kind: PhaseDone, Specimen: specimen, Case: caseID, Phase: p})
}

func (r *Runner) fail(res *store.CaseResult, specimen string, phase Phase, err error) store.CaseResult {
	res.Status = store.StatusFailed
	res.Phase = string(phase)
	res.Cause = err.Error()
	res.MaxDisp, res.MaxForce, res.MaxLPF = 0, 0, 0
	r.publish(Event{Kind: PhaseDone, Specimen: specimen, Case: res.CaseID, Phase: phase, Err: err})
	return *res
}
