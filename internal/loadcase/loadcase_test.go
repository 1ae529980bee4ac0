package loadcase

import (
	"strings"
	"testing"
)

func TestRegistryContents(t *testing.T) {
	all := All()
	if len(all) != 7 {
		t.Fatalf("registry holds %d cases, want 7", len(all))
	}
	lc1 := all[0]
	if lc1.ID != "LC1_Axial" || lc1.BucklingRef != [3]float64{0, 0, -1} {
		t.Errorf("LC1 = %+v", lc1)
	}
	if lc1.Control.DOF != AxisZ || lc1.Control.MaxDisp != 30 || lc1.Control.Sign != -1 {
		t.Errorf("LC1 control = %+v", lc1.Control)
	}
	lc6 := all[5]
	if lc6.ID != "LC6_Axial_ShearXY" || !lc6.HasAxial {
		t.Errorf("LC6 = %+v", lc6)
	}
	if lc6.BucklingRef != [3]float64{1, 1, -0.5} {
		t.Errorf("LC6 ref = %v", lc6.BucklingRef)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].ID = "mutated"
	if All()[0].ID != "LC1_Axial" {
		t.Error("All() must not expose the registry backing array")
	}
}

func TestAxisString(t *testing.T) {
	if AxisX.String() != "X" || AxisY.String() != "Y" || AxisZ.String() != "Z" {
		t.Errorf("axis names wrong: %s %s %s", AxisX, AxisY, AxisZ)
	}
	if AxisZ.Index() != 2 {
		t.Errorf("AxisZ.Index() = %d, want 2", AxisZ.Index())
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		token string
		want  string
		ok    bool
	}{
		{"LC1_Axial", "LC1_Axial", true},
		{"lc1_axial", "LC1_Axial", true},
		{"LC1Axial", "LC1_Axial", true},
		{"LC4", "LC4_ShearY", true},
		{"lc4", "LC4_ShearY", true},
		{"LC7", "LC7_AxialOnly_High", true},
		{" LC5 ", "LC5_ShearX", true},
		{"LC9", "", false},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			c, ok := Lookup(tt.token)
			if ok != tt.ok {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.token, ok, tt.ok)
			}
			if ok && c.ID != tt.want {
				t.Errorf("Lookup(%q) = %s, want %s", tt.token, c.ID, tt.want)
			}
		})
	}
}

func TestResolveOrderAndDedup(t *testing.T) {
	cases, warnings := Resolve("LC4, LC1_Axial, lc4, LC2", Hints{})
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	got := make([]string, len(cases))
	for i, c := range cases {
		got[i] = c.ID
	}
	want := []string{"LC4_ShearY", "LC1_Axial", "LC2_Axial_ShearY"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Resolve order = %v, want %v", got, want)
	}
}

func TestResolveUnknownTokenWarns(t *testing.T) {
	cases, warnings := Resolve("LC1,LC99", Hints{})
	if len(cases) != 1 || cases[0].ID != "LC1_Axial" {
		t.Errorf("cases = %v", cases)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "LC99") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestResolveInference(t *testing.T) {
	tests := []struct {
		name string
		h    Hints
		want string
	}{
		{"axial only", Hints{RefFZ: -1}, "LC1_Axial"},
		{"shear y only", Hints{RefFY: 1}, "LC4_ShearY"},
		{"axial plus y", Hints{RefFY: 1, RefFZ: -0.5}, "LC2_Axial_ShearY"},
		{"axial plus x", Hints{RefFX: 1, RefFZ: -0.5}, "LC3_Axial_ShearX"},
		{"below threshold", Hints{RefFX: 0.05, RefFY: 0.09}, "LC1_Axial"},
		{"nothing", Hints{}, "LC1_Axial"},
		{"ambiguous xy", Hints{RefFX: 1, RefFY: 1}, "LC1_Axial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases, warnings := Resolve("auto", tt.h)
			if len(cases) != 1 {
				t.Fatalf("got %d cases, want 1", len(cases))
			}
			if cases[0].ID != tt.want {
				t.Errorf("inferred %s, want %s", cases[0].ID, tt.want)
			}
			if len(warnings) != 1 {
				t.Errorf("inference should warn once, got %v", warnings)
			}
		})
	}
}

func TestResolveEmptySelectorInfers(t *testing.T) {
	cases, _ := Resolve("", Hints{RefFY: 2})
	if len(cases) != 1 || cases[0].ID != "LC4_ShearY" {
		t.Errorf("cases = %v, want inferred LC4_ShearY", cases)
	}
}
