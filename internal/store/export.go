package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/steelspec/bucklab/internal/extract"
)

// CaseExport bundles everything stored for one load case in a shape
// downstream scripts can consume without CSV parsing.
type CaseExport struct {
	Specimen   string         `json:"specimen"`
	Case       string         `json:"case"`
	Increments int            `json:"increments"`
	Modes      []extract.Mode `json:"modes,omitempty"`
	Times      []float64      `json:"times"`
	LPF        []float64      `json:"lpf"`
	U          [3][]float64   `json:"u"`
	UR         [3][]float64   `json:"ur"`
	RF         [3][]float64   `json:"rf"`
}

// ExportCase reads a case's stored curve and eigenvalues back into an
// export bundle. A missing eigen table is not an error; buckling
// extraction can legitimately come up empty.
func (s *Store) ExportCase(specimen, caseID string) (*CaseExport, error) {
	h, err := s.ReadCurve(specimen, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to read curve for %s/%s: %w", specimen, caseID, err)
	}
	modes, err := s.ReadEigen(specimen, caseID)
	if err != nil {
		modes = nil
	}

	return &CaseExport{
		Specimen:   specimen,
		Case:       caseID,
		Increments: h.Len(),
		Modes:      modes,
		Times:      h.Time,
		LPF:        h.LPF,
		U:          h.U,
		UR:         h.UR,
		RF:         h.RF,
	}, nil
}

// ExportJSON writes an export bundle to path.
func ExportJSON(path string, data *CaseExport) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSONStdout writes an export bundle to standard output.
func ExportJSONStdout(data *CaseExport) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
