// Package store owns the durable results tree: one directory per
// specimen, one per load case, with fixed CSV names the rest of the
// toolchain and the cleanup check both rely on.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/steelspec/bucklab/internal/extract"
	"github.com/steelspec/bucklab/internal/params"
)

// File names inside a case directory. Cleanup verifies these before
// scratch files are removed.
const (
	EigenFileName   = "buckling_eigen.csv"
	WarningFileName = "buckling_extract_warning.txt"
	CurveFileName   = "riks_curve.csv"
	SummaryFileName = "summary.txt"
)

// Store is rooted at the results directory.
type Store struct {
	root string
}

// New returns a store rooted at dir.
func New(dir string) *Store { return &Store{root: dir} }

// Root returns the results root.
func (s *Store) Root() string { return s.root }

// Init creates the results root.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create results root: %w", err)
	}
	return nil
}

// SpecimenDir locates one specimen's directory.
func (s *Store) SpecimenDir(specimen string) string {
	return filepath.Join(s.root, specimen)
}

// CaseDir locates one load case's directory.
func (s *Store) CaseDir(specimen, caseID string) string {
	return filepath.Join(s.root, specimen, caseID)
}

// EnsureCaseDir creates and returns the case directory.
func (s *Store) EnsureCaseDir(specimen, caseID string) (string, error) {
	dir := s.CaseDir(specimen, caseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create case dir: %w", err)
	}
	return dir, nil
}

// WriteEigen stores the extracted buckling modes. The critical factor
// column repeats the eigenvalue: unit reference loads make them equal
// and downstream sheets expect both.
func (s *Store) WriteEigen(specimen, caseID string, modes []extract.Mode) error {
	dir, err := s.EnsureCaseDir(specimen, caseID)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, EigenFileName))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", EigenFileName, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Mode", "Eigenvalue", "CriticalFactor"}); err != nil {
		return err
	}
	for _, m := range modes {
		v := fmt.Sprintf("%.6e", m.Eigenvalue)
		if err := w.Write([]string{strconv.Itoa(m.Number), v, v}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteExtractionWarning records that no eigenvalues could be
// recovered, with enough context to chase the result file by hand.
func (s *Store) WriteExtractionWarning(specimen, caseID, resultPath string, tried []string) error {
	dir, err := s.EnsureCaseDir(specimen, caseID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("WARNING: No eigenvalues extracted\nODB path: %s\nTried methods: %s\n",
		resultPath, strings.Join(tried, ", "))
	return os.WriteFile(filepath.Join(dir, WarningFileName), []byte(text), 0o644)
}

var curveHeader = []string{"i", "time", "LPF", "U1", "U2", "U3", "UR1", "UR2", "UR3", "RF1", "RF2", "RF3"}

// WriteCurve stores the aligned collapse history. A missing LPF series
// is written as zeros so the column layout never changes.
func (s *Store) WriteCurve(specimen, caseID string, h extract.History) error {
	dir, err := s.EnsureCaseDir(specimen, caseID)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, CurveFileName))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", CurveFileName, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(curveHeader); err != nil {
		return err
	}
	for i := 0; i < h.Len(); i++ {
		row := make([]string, 0, len(curveHeader))
		row = append(row, strconv.Itoa(i+1), ftoa(h.Time[i]))
		if len(h.LPF) > i {
			row = append(row, ftoa(h.LPF[i]))
		} else {
			row = append(row, "0")
		}
		for a := 0; a < 3; a++ {
			row = append(row, ftoa(h.U[a][i]))
		}
		for a := 0; a < 3; a++ {
			row = append(row, ftoa(h.UR[a][i]))
		}
		for a := 0; a < 3; a++ {
			row = append(row, ftoa(h.RF[a][i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCurve loads a stored collapse history. Malformed rows are
// skipped, not fatal: partial files from killed runs should still plot.
func (s *Store) ReadCurve(specimen, caseID string) (extract.History, error) {
	var h extract.History
	f, err := os.Open(filepath.Join(s.CaseDir(specimen, caseID), CurveFileName))
	if err != nil {
		return h, fmt.Errorf("failed to open %s: %w", CurveFileName, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return h, fmt.Errorf("failed to read %s: %w", CurveFileName, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) < len(curveHeader) {
			continue
		}
		vals := make([]float64, 0, len(curveHeader)-1)
		ok := true
		for _, cell := range row[1:len(curveHeader)] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				ok = false
				break
			}
			vals = append(vals, v)
		}
		if !ok {
			continue
		}
		h.Time = append(h.Time, vals[0])
		h.LPF = append(h.LPF, vals[1])
		for a := 0; a < 3; a++ {
			h.U[a] = append(h.U[a], vals[2+a])
			h.UR[a] = append(h.UR[a], vals[5+a])
			h.RF[a] = append(h.RF[a], vals[8+a])
		}
	}
	return h, nil
}

// ReadEigen loads stored buckling modes, skipping malformed rows.
func (s *Store) ReadEigen(specimen, caseID string) ([]extract.Mode, error) {
	f, err := os.Open(filepath.Join(s.CaseDir(specimen, caseID), EigenFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", EigenFileName, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", EigenFileName, err)
	}
	var modes []extract.Mode
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}
		modes = append(modes, extract.Mode{Number: num, Eigenvalue: v})
	}
	return modes, nil
}

// CaseStatus is the terminal state of one case run.
type CaseStatus string

const (
	StatusCompleted CaseStatus = "COMPLETED"
	StatusFailed    CaseStatus = "FAILED"
	StatusSkipped   CaseStatus = "SKIPPED"
)

// CaseResult is one row of a specimen summary.
type CaseResult struct {
	CaseID string
	Status CaseStatus
	// Phase and Cause describe where a failed case died.
	Phase string
	Cause string

	MaxDisp  float64
	MaxForce float64
	MaxLPF   float64

	EigenMethod string
	PeakKind    string
	PeakFrame   int
}

// Summary is everything recorded about one specimen run.
type Summary struct {
	Specimen  string
	Params    params.Set
	Cases     []CaseResult
	Generated time.Time
}

// WriteSummary renders the specimen summary file.
func (s *Store) WriteSummary(sum Summary) error {
	dir := s.SpecimenDir(sum.Specimen)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create specimen dir: %w", err)
	}

	var b strings.Builder
	line := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "%s\n ANALYSIS SUMMARY: %s\n Generated: %s\n%s\n\n",
		line, sum.Specimen, sum.Generated.Format("2006-01-02 15:04:05"), line)

	p := sum.Params
	fmt.Fprintf(&b, " Geometry:\n")
	fmt.Fprintf(&b, "   Web:    %g x %g x %g mm (L x H x t)\n",
		p.Length, p.SegmentHeight*float64(p.SegmentCount), p.WebThickness)
	fmt.Fprintf(&b, "   Flange: %g x %g mm, segments: %d x %g\n",
		p.FlangeWidth, p.FlangeThickness, p.SegmentCount, p.SegmentHeight)
	fmt.Fprintf(&b, " Material:\n")
	fmt.Fprintf(&b, "   Web fy/fu:    %g/%g MPa\n", p.FyWeb, p.FuWeb)
	fmt.Fprintf(&b, "   Flange fy/fu: %g/%g MPa\n", p.FyFlange, p.FuFlange)
	fmt.Fprintf(&b, " Imperfection: mode %d, amplitude %g mm\n\n", p.ImperfMode, p.ImperfAmp)

	fmt.Fprintf(&b, " %-25s %15s %15s %15s\n", "Load Case", "Max Disp", "Max Force", "Max LPF")
	fmt.Fprintf(&b, " %s\n", strings.Repeat("-", 73))
	completed := 0
	for _, c := range sum.Cases {
		switch c.Status {
		case StatusCompleted:
			completed++
			fmt.Fprintf(&b, " %-25s %15.4f %15.2f %15.4f\n", c.CaseID, c.MaxDisp, c.MaxForce, c.MaxLPF)
		case StatusSkipped:
			fmt.Fprintf(&b, " %-25s SKIPPED\n", c.CaseID)
		default:
			fmt.Fprintf(&b, " %-25s FAILED (%s: %s)\n", c.CaseID, c.Phase, c.Cause)
		}
	}
	fmt.Fprintf(&b, "\n Completed %d/%d cases\n", completed, len(sum.Cases))

	return os.WriteFile(filepath.Join(dir, SummaryFileName), []byte(b.String()), 0o644)
}

// ListSpecimens names the specimen directories under the root. The run
// manifest directory lives alongside them and is not a specimen.
func (s *Store) ListSpecimens() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list results root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != manifestDir {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListCases names the case directories of one specimen.
func (s *Store) ListCases(specimen string) ([]string, error) {
	entries, err := os.ReadDir(s.SpecimenDir(specimen))
	if err != nil {
		return nil, fmt.Errorf("failed to list specimen %s: %w", specimen, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CountImages counts rendered PNG files in a directory. Missing
// directories count as zero.
func CountImages(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			n++
		}
	}
	return n
}
