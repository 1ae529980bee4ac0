// Package loadcase holds the static registry of stability load cases
// and resolves user selectors against it.
package loadcase

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Axis identifies a global translation axis, numbered like the solver
// degrees of freedom.
type Axis int

const (
	AxisX Axis = 1
	AxisY Axis = 2
	AxisZ Axis = 3
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Index returns the zero-based component index for the axis.
func (a Axis) Index() int { return int(a) - 1 }

// RiksControl describes the displacement-controlled collapse phase of a
// case: which DOF is driven, how far, and in which direction.
type RiksControl struct {
	DOF     Axis
	MaxDisp float64
	Sign    int
}

// Case is one registry entry. BucklingRef holds the reference load
// vector applied at the top control point during the eigen phase.
type Case struct {
	ID          string
	Description string
	BucklingRef [3]float64
	Control     RiksControl
	HasAxial    bool
}

var registry = []Case{
	{
		ID:          "LC1_Axial",
		Description: "Pure Axial Compression",
		BucklingRef: [3]float64{0, 0, -1},
		Control:     RiksControl{DOF: AxisZ, MaxDisp: 30, Sign: -1},
	},
	{
		ID:          "LC2_Axial_ShearY",
		Description: "Axial + Shear-Y (in-plane)",
		BucklingRef: [3]float64{0, 1, -0.5},
		Control:     RiksControl{DOF: AxisY, MaxDisp: 60, Sign: 1},
		HasAxial:    true,
	},
	{
		ID:          "LC3_Axial_ShearX",
		Description: "Axial + Shear-X (out-of-plane)",
		BucklingRef: [3]float64{1, 0, -0.5},
		Control:     RiksControl{DOF: AxisX, MaxDisp: 60, Sign: 1},
		HasAxial:    true,
	},
	{
		ID:          "LC4_ShearY",
		Description: "Pure Shear-Y",
		BucklingRef: [3]float64{0, 1, 0},
		Control:     RiksControl{DOF: AxisY, MaxDisp: 60, Sign: 1},
	},
	{
		ID:          "LC5_ShearX",
		Description: "Pure Shear-X (out-of-plane)",
		BucklingRef: [3]float64{1, 0, 0},
		Control:     RiksControl{DOF: AxisX, MaxDisp: 30, Sign: 1},
	},
	{
		ID:          "LC6_Axial_ShearXY",
		Description: "Axial + Biaxial shear (X+Y)",
		BucklingRef: [3]float64{1, 1, -0.5},
		Control:     RiksControl{DOF: AxisY, MaxDisp: 30, Sign: 1},
		HasAxial:    true,
	},
	{
		ID:          "LC7_AxialOnly_High",
		Description: "High axial compression (sensitivity)",
		BucklingRef: [3]float64{0, 0, -2},
		Control:     RiksControl{DOF: AxisZ, MaxDisp: 50, Sign: -1},
	},
}

// All returns the registry in declaration order.
func All() []Case {
	out := make([]Case, len(registry))
	copy(out, registry)
	return out
}

// Lookup resolves one selector token to a registry case: exact ID,
// then a relaxed match ignoring case and underscores, then a bare
// "LCn" prefix (unique in the registry).
func Lookup(id string) (Case, bool) {
	token := strings.TrimSpace(id)
	if token == "" {
		return Case{}, false
	}
	for _, c := range registry {
		if c.ID == token {
			return c, true
		}
	}
	squash := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", "")
	}
	st := squash(token)
	for _, c := range registry {
		if squash(c.ID) == st {
			return c, true
		}
	}
	for _, c := range registry {
		if strings.HasPrefix(strings.ToLower(c.ID), strings.ToLower(token)+"_") {
			return c, true
		}
	}
	return Case{}, false
}

// Hints carries the legacy per-record reference load components used to
// infer a case when no selector matches.
type Hints struct {
	RefFX float64
	RefFY float64
	RefFZ float64
}

// Components below this magnitude do not count toward inference.
const hintThreshold = 0.1

func (h Hints) active() (x, y, z bool) {
	return math.Abs(h.RefFX) > hintThreshold,
		math.Abs(h.RefFY) > hintThreshold,
		math.Abs(h.RefFZ) > hintThreshold
}

// infer maps legacy load components onto the closest registry case.
// Ambiguous combinations default to the axial case rather than failing.
func infer(h Hints) Case {
	x, y, z := h.active()
	switch {
	case z && !x && !y:
		return registry[0] // LC1_Axial
	case y && !x && !z:
		return registry[3] // LC4_ShearY
	case z && y:
		return registry[1] // LC2_Axial_ShearY
	case z && x:
		return registry[2] // LC3_Axial_ShearX
	}
	return registry[0]
}

// Resolve expands a comma-separated selector into registry cases,
// preserving token order and dropping duplicates. Unknown tokens
// produce warnings; when nothing matches (or the selector is empty or
// "auto") the legacy hints pick a single case.
func Resolve(selector string, h Hints) ([]Case, []string) {
	var cases []Case
	var warnings []string
	seen := make(map[string]struct{})

	add := func(c Case) {
		if _, dup := seen[c.ID]; dup {
			return
		}
		seen[c.ID] = struct{}{}
		cases = append(cases, c)
	}

	for _, token := range strings.Split(selector, ",") {
		token = strings.TrimSpace(token)
		if token == "" || strings.EqualFold(token, "auto") {
			continue
		}
		c, ok := Lookup(token)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown load case %q skipped (known: %s)",
				token, strings.Join(IDs(), ", ")))
			continue
		}
		add(c)
	}

	if len(cases) == 0 {
		c := infer(h)
		warnings = append(warnings, fmt.Sprintf("no load case matched %q, inferred %s from reference loads", selector, c.ID))
		cases = append(cases, c)
	}
	return cases, warnings
}

// IDs lists the registry case IDs sorted alphabetically, for display.
func IDs() []string {
	ids := make([]string, len(registry))
	for i, c := range registry {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	return ids
}
