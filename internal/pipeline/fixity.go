package pipeline

import (
	"strings"

	"github.com/steelspec/bucklab/internal/engine"
)

// End fixity names accepted in parameter sheets.
const (
	FixityFixed         = "FIXED"
	FixityPinned        = "PINNED"
	FixityRollerX       = "ROLLER_X"
	FixityRollerY       = "ROLLER_Y"
	FixityRollerZ       = "ROLLER_Z"
	FixityRotationFixed = "ROTATION_FIXED"
)

// DOFs maps a fixity name onto restrained degrees of freedom. Unknown
// names clamp everything and report false so callers can warn.
func DOFs(mode string) (engine.DOFSet, bool) {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case FixityFixed:
		return engine.DOFSet{U: [3]bool{true, true, true}, UR: [3]bool{true, true, true}}, true
	case FixityPinned:
		// Translations and torsion held, bending rotations free.
		return engine.DOFSet{U: [3]bool{true, true, true}, UR: [3]bool{false, false, true}}, true
	case FixityRollerX:
		return engine.DOFSet{U: [3]bool{false, true, true}}, true
	case FixityRollerY:
		return engine.DOFSet{U: [3]bool{true, false, true}}, true
	case FixityRollerZ:
		return engine.DOFSet{U: [3]bool{true, true, false}}, true
	case FixityRotationFixed:
		return engine.DOFSet{UR: [3]bool{true, true, true}}, true
	}
	return engine.DOFSet{U: [3]bool{true, true, true}, UR: [3]bool{true, true, true}}, false
}

// TopOverrides adjusts the top-end set for the loaded end: U1 is always
// held against sway and U3 freed so the drive can move the end along
// the member.
func TopOverrides(d engine.DOFSet) engine.DOFSet {
	d.U[0] = true
	d.U[2] = false
	return d
}
