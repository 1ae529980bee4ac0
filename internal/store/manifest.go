package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const manifestDir = "runs"

// RunManifest records one batch invocation: which engine ran, when,
// and every specimen summary it produced. Manifests make results
// re-reportable without rerunning the solver.
type RunManifest struct {
	ID        string    `json:"id"`
	Engine    string    `json:"engine"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Summaries []Summary `json:"summaries"`
}

// NewRunID derives a manifest ID from the wall clock.
func NewRunID(t time.Time) string {
	return fmt.Sprintf("run_%d", t.Unix())
}

// WriteManifest stores a manifest under the results root.
func (s *Store) WriteManifest(m RunManifest) error {
	dir := filepath.Join(s.root, manifestDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, m.ID+".json"))
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// LoadManifest reads one manifest by ID.
func (s *Store) LoadManifest(id string) (RunManifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, manifestDir, id+".json"))
	if err != nil {
		return RunManifest{}, fmt.Errorf("failed to read manifest %s: %w", id, err)
	}
	var m RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return RunManifest{}, fmt.Errorf("failed to parse manifest %s: %w", id, err)
	}
	return m, nil
}

// ListManifests returns every readable manifest, oldest first.
// Unparsable files are skipped.
func (s *Store) ListManifests() ([]RunManifest, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, manifestDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunManifest{}, nil
		}
		return nil, err
	}

	runs := make([]RunManifest, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, manifestDir, entry.Name()))
		if err != nil {
			continue
		}
		var m RunManifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		runs = append(runs, m)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}

// LatestManifest returns the most recent run, or false when the store
// has none.
func (s *Store) LatestManifest() (RunManifest, bool, error) {
	runs, err := s.ListManifests()
	if err != nil {
		return RunManifest{}, false, err
	}
	if len(runs) == 0 {
		return RunManifest{}, false, nil
	}
	return runs[len(runs)-1], true, nil
}
