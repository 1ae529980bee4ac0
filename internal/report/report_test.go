package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/steelspec/bucklab/internal/extract"
	"github.com/steelspec/bucklab/internal/params"
	"github.com/steelspec/bucklab/internal/peak"
	"github.com/steelspec/bucklab/internal/store"
)

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Errorf("%s is empty", path)
	}
}

func TestCurveFigure(t *testing.T) {
	times := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5}
	lpf := []float64{0, 120, 250, 210, 150, 90}
	dec := peak.Select(times, lpf, peak.Options{})

	path := filepath.Join(t.TempDir(), "figs", "curve.png")
	if err := CurveFigure(times, lpf, dec, "LC4_ShearY", path); err != nil {
		t.Fatalf("CurveFigure() error = %v", err)
	}
	assertFile(t, path)
}

func TestCurveFigureEmptyDecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	dec := peak.Decision{Index: -1, Kind: peak.PeakNone}
	if err := CurveFigure(nil, nil, dec, "empty", path); err != nil {
		t.Fatalf("CurveFigure() on empty data error = %v", err)
	}
	assertFile(t, path)
}

func TestEigenFigure(t *testing.T) {
	modes := []extract.Mode{
		{Number: 1, Eigenvalue: 82310},
		{Number: 2, Eigenvalue: 94410},
		{Number: 3, Eigenvalue: 102100},
	}
	path := filepath.Join(t.TempDir(), "eigen.png")
	if err := EigenFigure(modes, "Buckling modes", path); err != nil {
		t.Fatalf("EigenFigure() error = %v", err)
	}
	assertFile(t, path)
}

func TestValidationFigure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation.png")
	if err := ValidationFigure(path); err != nil {
		t.Fatalf("ValidationFigure() error = %v", err)
	}
	assertFile(t, path)
}

func TestPDF(t *testing.T) {
	set, _, err := params.Normalize(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	sums := []store.Summary{
		{
			Specimen:  "H600_b20_t15_L3000",
			Params:    set,
			Generated: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
			Cases: []store.CaseResult{
				{CaseID: "LC4_ShearY", Status: store.StatusCompleted, MaxDisp: 12.3, MaxForce: 1.8e6, MaxLPF: 1843.2},
				{CaseID: "LC1_Axial", Status: store.StatusFailed, Phase: "SubmitRiks", Cause: "solver exited 1"},
			},
		},
		{
			Specimen:  "H900_b25_t12_L4200",
			Generated: time.Date(2026, 8, 25, 12, 5, 0, 0, time.UTC),
			Cases: []store.CaseResult{
				{CaseID: "LC5_ShearX", Status: store.StatusSkipped},
			},
		},
	}
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := PDF(sums, path); err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
	assertFile(t, path)
}
