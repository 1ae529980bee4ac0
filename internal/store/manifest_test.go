package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/steelspec/bucklab/internal/params"
)

func TestNewRunID(t *testing.T) {
	id := NewRunID(time.Unix(1700000000, 0))
	if id != "run_1700000000" {
		t.Errorf("expected run_1700000000, got %s", id)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	set, _, err := params.Normalize(map[string]string{})
	if err != nil {
		t.Fatalf("failed to normalize defaults: %v", err)
	}

	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	m := RunManifest{
		ID:       NewRunID(started),
		Engine:   "sandbox",
		Started:  started,
		Finished: started.Add(2 * time.Minute),
		Summaries: []Summary{{
			Specimen:  "H600_b20_t15_L3000",
			Params:    set,
			Generated: started.Add(2 * time.Minute),
			Cases: []CaseResult{{
				CaseID: "LC4_ShearY",
				Status: StatusCompleted,
				MaxLPF: 1849.2,
			}},
		}},
	}

	if err := st.WriteManifest(m); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	got, err := st.LoadManifest(m.ID)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}
	if got.Engine != "sandbox" || !got.Started.Equal(started) {
		t.Errorf("manifest header mismatch: %+v", got)
	}
	if len(got.Summaries) != 1 || got.Summaries[0].Specimen != "H600_b20_t15_L3000" {
		t.Fatalf("summaries not preserved: %+v", got.Summaries)
	}
	c := got.Summaries[0].Cases[0]
	if c.CaseID != "LC4_ShearY" || c.Status != StatusCompleted || c.MaxLPF != 1849.2 {
		t.Errorf("case row not preserved: %+v", c)
	}
	if got.Summaries[0].Params.NumEigen != set.NumEigen {
		t.Errorf("params not preserved")
	}
}

func TestListManifestsSortedAndLenient(t *testing.T) {
	st := New(t.TempDir())

	newer := RunManifest{ID: "run_200", Started: time.Unix(200, 0)}
	older := RunManifest{ID: "run_100", Started: time.Unix(100, 0)}
	if err := st.WriteManifest(newer); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := st.WriteManifest(older); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	// Garbage in the manifest directory must not break listing.
	junk := filepath.Join(st.Root(), manifestDir, "notes.json")
	if err := os.WriteFile(junk, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("failed to write junk: %v", err)
	}

	runs, err := st.ListManifests()
	if err != nil {
		t.Fatalf("failed to list manifests: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 manifests, got %d", len(runs))
	}
	if runs[0].ID != "run_100" || runs[1].ID != "run_200" {
		t.Errorf("expected oldest first, got %s then %s", runs[0].ID, runs[1].ID)
	}

	latest, ok, err := st.LatestManifest()
	if err != nil || !ok {
		t.Fatalf("expected a latest manifest, ok=%v err=%v", ok, err)
	}
	if latest.ID != "run_200" {
		t.Errorf("expected run_200 as latest, got %s", latest.ID)
	}
}

func TestLatestManifestEmptyStore(t *testing.T) {
	st := New(t.TempDir())
	_, ok, err := st.LatestManifest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected no manifest in an empty store")
	}
}
