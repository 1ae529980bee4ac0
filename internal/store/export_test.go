package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/steelspec/bucklab/internal/extract"
)

func exportHistory() extract.History {
	h := extract.History{
		Time: []float64{0.1, 0.2, 0.3},
		LPF:  []float64{10, 25, 18},
	}
	for a := 0; a < 3; a++ {
		h.U[a] = []float64{0.5, 1.0, 1.5}
		h.UR[a] = []float64{0, 0, 0}
		h.RF[a] = []float64{100, 250, 180}
	}
	return h
}

func TestExportCase(t *testing.T) {
	st := New(t.TempDir())
	if err := st.WriteCurve("spec", "LC4_ShearY", exportHistory()); err != nil {
		t.Fatalf("failed to write curve: %v", err)
	}
	if err := st.WriteEigen("spec", "LC4_ShearY", []extract.Mode{{Number: 1, Eigenvalue: 82310}}); err != nil {
		t.Fatalf("failed to write eigen: %v", err)
	}

	data, err := st.ExportCase("spec", "LC4_ShearY")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if data.Increments != 3 {
		t.Errorf("expected 3 increments, got %d", data.Increments)
	}
	if len(data.Modes) != 1 || data.Modes[0].Eigenvalue != 82310 {
		t.Errorf("modes not exported: %+v", data.Modes)
	}
	if data.LPF[1] != 25 || data.U[0][2] != 1.5 {
		t.Errorf("series not exported: %+v", data)
	}

	path := filepath.Join(t.TempDir(), "case.json")
	if err := ExportJSON(path, data); err != nil {
		t.Fatalf("failed to write export: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	var got CaseExport
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if got.Specimen != "spec" || got.Case != "LC4_ShearY" || got.Increments != 3 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestExportCaseWithoutEigenTable(t *testing.T) {
	st := New(t.TempDir())
	if err := st.WriteCurve("spec", "LC1_Axial", exportHistory()); err != nil {
		t.Fatalf("failed to write curve: %v", err)
	}

	data, err := st.ExportCase("spec", "LC1_Axial")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if len(data.Modes) != 0 {
		t.Errorf("expected no modes, got %+v", data.Modes)
	}
}

func TestExportCaseMissingCurve(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.ExportCase("spec", "LC1_Axial"); err == nil {
		t.Errorf("expected an error for a case with no stored curve")
	}
}
