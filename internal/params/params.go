// Package params defines the canonical specimen parameter set and the
// normalization of raw batch records into it: legacy column aliases are
// rewritten, numeric strings coerced, material zones backfilled and
// integer fields truncated before validation.
package params

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Set is one normalized specimen record. Lengths are mm, stresses MPa,
// forces N. Optional per-zone material fields hold NaN until Normalize
// backfills them.
type Set struct {
	SegmentHeight   float64
	SegmentCount    int
	FlangeWidth     float64
	WebThickness    float64
	FlangeThickness float64
	Length          float64
	AutoPlate       int
	PlateTol        float64
	MeshSize        float64
	NumEigen        int

	// Legacy shared steel curve; backfills the web zone when the per-zone
	// fields are absent from the record.
	Fy           float64
	YieldPlateau float64
	Fu           float64
	EpsU         float64

	FyWeb           float64
	FuWeb           float64
	EpsUWeb         float64
	EWeb            float64
	YieldPlateauWeb float64

	FyFlange           float64
	FuFlange           float64
	EpsUFlange         float64
	EFlange            float64
	YieldPlateauFlange float64

	ImperfMode int
	ImperfAmp  float64

	FixityTop string
	FixityBot string

	NumCPUs     int
	EnableCases string

	// Legacy hint fields. The load factors feed selector inference; the
	// displacement-control hints are accepted so old batch files keep
	// round-tripping, but the registry control always wins.
	RefFX, RefFY, RefFZ    float64
	CtrlUX, CtrlUY, CtrlUZ float64
	MaxCtrlDisp            float64
}

const (
	defaultFyFlange   = 325.2
	defaultFuFlange   = 474.3
	defaultEpsUFlange = 0.200
	defaultEWeb       = 210184.0
	defaultEFlange    = 211551.0

	// Library values applied at curve construction for zones that were
	// never measured nor backfilled (hand-built sets only; Normalize
	// always backfills).
	fallbackFyWeb   = 270.7
	fallbackFuWeb   = 352.5
	fallbackEpsUWeb = 0.234
)

var unset = math.NaN()

// Defaults returns the stock parameter set used when a batch record is
// absent or a field is not given.
func Defaults() Set {
	return Set{
		SegmentHeight:   300.0,
		SegmentCount:    2,
		FlangeWidth:     20.0,
		WebThickness:    15.0,
		FlangeThickness: 5.0,
		Length:          3000.0,
		AutoPlate:       1,
		PlateTol:        0.0,
		MeshSize:        20.0,
		NumEigen:        10,

		Fy:           355.61,
		YieldPlateau: 0.023,
		Fu:           444.0,
		EpsU:         0.1576,

		FyWeb:           unset,
		FuWeb:           unset,
		EpsUWeb:         unset,
		EWeb:            unset,
		YieldPlateauWeb: 0.023,

		FyFlange:           unset,
		FuFlange:           unset,
		EpsUFlange:         unset,
		EFlange:            unset,
		YieldPlateauFlange: 0.020,

		ImperfMode: 1,
		ImperfAmp:  6.0,

		FixityTop: "ROTATION_FIXED",
		FixityBot: "FIXED",

		NumCPUs:     4,
		EnableCases: "LC4",
	}
}

// legacyAliases maps the pre-rewrite batch column names onto canonical
// ones. Single letters come from the oldest spreadsheet layout.
var legacyAliases = map[string]string{
	"A":          "hSeg",
	"E":          "nSeg",
	"B":          "bFlange",
	"C":          "tWeb",
	"D":          "tFlangeSingle",
	"L":          "Lmember",
	"meshsz":     "meshSize",
	"cf1f":       "FrefX",
	"cf2f":       "FrefY",
	"cf3f":       "FrefZ",
	"u1u":        "UctrlX",
	"u2u":        "UctrlY",
	"u3u":        "UctrlZ",
	"trueu3":     "maxCtrlDisp",
	"nodedeform": "imperfAmp",
	"yfss":       "fy",
	"yfsn":       "eps_y_plateau",
	"yuss":       "fu",
	"yusn":       "eps_u",
}

// canonicalKeys lists every accepted record column in emission order.
var canonicalKeys = []string{
	"hSeg", "nSeg", "bFlange", "tWeb", "tFlangeSingle", "Lmember",
	"autoPlate", "bfPlateTol", "meshSize", "numEigen",
	"fy", "eps_y_plateau", "fu", "eps_u",
	"fy_web", "fu_web", "eps_u_web", "E_web", "eps_y_plateau_web",
	"fy_flg", "fu_flg", "eps_u_flg", "E_flg", "eps_y_plateau_flg",
	"imperfMode", "imperfAmp", "endFixityTop", "endFixityBot",
	"numCpus", "enableCases",
	"FrefX", "FrefY", "FrefZ",
	"UctrlX", "UctrlY", "UctrlZ", "maxCtrlDisp",
}

var (
	canonicalSet   = make(map[string]struct{}, len(canonicalKeys))
	lowerCanonical = make(map[string]string, len(canonicalKeys))
	lowerAliases   = make(map[string]string, len(legacyAliases))
)

func init() {
	for _, k := range canonicalKeys {
		canonicalSet[k] = struct{}{}
		lowerCanonical[strings.ToLower(k)] = k
	}
	for alias, canon := range legacyAliases {
		lowerAliases[strings.ToLower(alias)] = canon
	}
}

// resolveKey maps a raw record column onto its canonical name: exact
// canonical, exact alias, then case-insensitive variants of either.
func resolveKey(raw string) (string, bool) {
	k := strings.TrimSpace(raw)
	if k == "" {
		return "", false
	}
	if _, ok := canonicalSet[k]; ok {
		return k, true
	}
	if canon, ok := legacyAliases[k]; ok {
		return canon, true
	}
	lk := strings.ToLower(k)
	if canon, ok := lowerCanonical[lk]; ok {
		return canon, true
	}
	if canon, ok := lowerAliases[lk]; ok {
		return canon, true
	}
	return "", false
}

// Normalize builds a Set from one raw batch record. Unknown columns and
// unparsable numbers become warnings, not errors; empty cells keep the
// default. The returned set is fully backfilled and validated.
func Normalize(raw map[string]string) (Set, []string, error) {
	s := Defaults()
	var warnings []string

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val := strings.TrimSpace(raw[k])
		if val == "" {
			continue
		}
		canon, ok := resolveKey(k)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown field %q ignored", k))
			continue
		}
		if err := s.apply(canon, val); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	s.backfillMaterials()

	if err := s.Validate(); err != nil {
		return Set{}, warnings, err
	}
	return s, warnings, nil
}

func (s *Set) apply(key, val string) error {
	switch key {
	case "hSeg":
		return setFloat(&s.SegmentHeight, key, val)
	case "nSeg":
		return setInt(&s.SegmentCount, key, val)
	case "bFlange":
		return setFloat(&s.FlangeWidth, key, val)
	case "tWeb":
		return setFloat(&s.WebThickness, key, val)
	case "tFlangeSingle":
		return setFloat(&s.FlangeThickness, key, val)
	case "Lmember":
		return setFloat(&s.Length, key, val)
	case "autoPlate":
		return setInt(&s.AutoPlate, key, val)
	case "bfPlateTol":
		return setFloat(&s.PlateTol, key, val)
	case "meshSize":
		return setFloat(&s.MeshSize, key, val)
	case "numEigen":
		return setInt(&s.NumEigen, key, val)
	case "fy":
		return setFloat(&s.Fy, key, val)
	case "eps_y_plateau":
		return setFloat(&s.YieldPlateau, key, val)
	case "fu":
		return setFloat(&s.Fu, key, val)
	case "eps_u":
		return setFloat(&s.EpsU, key, val)
	case "fy_web":
		return setFloat(&s.FyWeb, key, val)
	case "fu_web":
		return setFloat(&s.FuWeb, key, val)
	case "eps_u_web":
		return setFloat(&s.EpsUWeb, key, val)
	case "E_web":
		return setFloat(&s.EWeb, key, val)
	case "eps_y_plateau_web":
		return setFloat(&s.YieldPlateauWeb, key, val)
	case "fy_flg":
		return setFloat(&s.FyFlange, key, val)
	case "fu_flg":
		return setFloat(&s.FuFlange, key, val)
	case "eps_u_flg":
		return setFloat(&s.EpsUFlange, key, val)
	case "E_flg":
		return setFloat(&s.EFlange, key, val)
	case "eps_y_plateau_flg":
		return setFloat(&s.YieldPlateauFlange, key, val)
	case "imperfMode":
		return setInt(&s.ImperfMode, key, val)
	case "imperfAmp":
		return setFloat(&s.ImperfAmp, key, val)
	case "endFixityTop":
		s.FixityTop = val
		return nil
	case "endFixityBot":
		s.FixityBot = val
		return nil
	case "numCpus":
		return setInt(&s.NumCPUs, key, val)
	case "enableCases":
		s.EnableCases = val
		return nil
	case "FrefX":
		return setFloat(&s.RefFX, key, val)
	case "FrefY":
		return setFloat(&s.RefFY, key, val)
	case "FrefZ":
		return setFloat(&s.RefFZ, key, val)
	case "UctrlX":
		return setFloat(&s.CtrlUX, key, val)
	case "UctrlY":
		return setFloat(&s.CtrlUY, key, val)
	case "UctrlZ":
		return setFloat(&s.CtrlUZ, key, val)
	case "maxCtrlDisp":
		return setFloat(&s.MaxCtrlDisp, key, val)
	}
	return fmt.Errorf("unknown field %q ignored", key)
}

func setFloat(dst *float64, key, val string) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("field %s: %q is not numeric, default kept", key, val)
	}
	*dst = f
	return nil
}

// setInt truncates fractional input the way the legacy tooling did.
func setInt(dst *int, key, val string) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("field %s: %q is not numeric, default kept", key, val)
	}
	*dst = int(f)
	return nil
}

func (s *Set) backfillMaterials() {
	if isUnset(s.FyWeb) {
		s.FyWeb = s.Fy
	}
	if isUnset(s.FuWeb) {
		s.FuWeb = s.Fu
	}
	if isUnset(s.EpsUWeb) {
		s.EpsUWeb = s.EpsU
	}
	if isUnset(s.FyFlange) {
		s.FyFlange = defaultFyFlange
	}
	if isUnset(s.FuFlange) {
		s.FuFlange = defaultFuFlange
	}
	if isUnset(s.EpsUFlange) {
		s.EpsUFlange = defaultEpsUFlange
	}
	if isUnset(s.EWeb) {
		s.EWeb = defaultEWeb
	}
	if isUnset(s.EFlange) {
		s.EFlange = defaultEFlange
	}
}

// Validate checks the invariants a run depends on.
func (s Set) Validate() error {
	if s.SegmentCount < 1 {
		return fmt.Errorf("params: segment count must be at least 1, got %d", s.SegmentCount)
	}
	if s.Length <= 0 {
		return fmt.Errorf("params: member length must be positive, got %g", s.Length)
	}
	if s.MeshSize <= 0 {
		return fmt.Errorf("params: mesh size must be positive, got %g", s.MeshSize)
	}
	if s.NumEigen < 1 {
		return fmt.Errorf("params: requested mode count must be at least 1, got %d", s.NumEigen)
	}
	if s.WebThickness <= 0 || s.FlangeThickness <= 0 {
		return fmt.Errorf("params: thicknesses must be positive, got web %g flange %g",
			s.WebThickness, s.FlangeThickness)
	}
	return nil
}

// Record renders the set as a canonical-name string record. Normalizing
// the result reproduces the set exactly.
func (s Set) Record() map[string]string {
	return map[string]string{
		"hSeg":              ftoa(s.SegmentHeight),
		"nSeg":              strconv.Itoa(s.SegmentCount),
		"bFlange":           ftoa(s.FlangeWidth),
		"tWeb":              ftoa(s.WebThickness),
		"tFlangeSingle":     ftoa(s.FlangeThickness),
		"Lmember":           ftoa(s.Length),
		"autoPlate":         strconv.Itoa(s.AutoPlate),
		"bfPlateTol":        ftoa(s.PlateTol),
		"meshSize":          ftoa(s.MeshSize),
		"numEigen":          strconv.Itoa(s.NumEigen),
		"fy":                ftoa(s.Fy),
		"eps_y_plateau":     ftoa(s.YieldPlateau),
		"fu":                ftoa(s.Fu),
		"eps_u":             ftoa(s.EpsU),
		"fy_web":            ftoa(s.FyWeb),
		"fu_web":            ftoa(s.FuWeb),
		"eps_u_web":         ftoa(s.EpsUWeb),
		"E_web":             ftoa(s.EWeb),
		"eps_y_plateau_web": ftoa(s.YieldPlateauWeb),
		"fy_flg":            ftoa(s.FyFlange),
		"fu_flg":            ftoa(s.FuFlange),
		"eps_u_flg":         ftoa(s.EpsUFlange),
		"E_flg":             ftoa(s.EFlange),
		"eps_y_plateau_flg": ftoa(s.YieldPlateauFlange),
		"imperfMode":        strconv.Itoa(s.ImperfMode),
		"imperfAmp":         ftoa(s.ImperfAmp),
		"endFixityTop":      s.FixityTop,
		"endFixityBot":      s.FixityBot,
		"numCpus":           strconv.Itoa(s.NumCPUs),
		"enableCases":       s.EnableCases,
		"FrefX":             ftoa(s.RefFX),
		"FrefY":             ftoa(s.RefFY),
		"FrefZ":             ftoa(s.RefFZ),
		"UctrlX":            ftoa(s.CtrlUX),
		"UctrlY":            ftoa(s.CtrlUY),
		"UctrlZ":            ftoa(s.CtrlUZ),
		"maxCtrlDisp":       ftoa(s.MaxCtrlDisp),
	}
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isUnset(v float64) bool {
	return math.IsNaN(v)
}

// Curve is one material zone's steel curve in the form the engine
// consumes: elastic modulus plus the yield plateau and ultimate point.
type Curve struct {
	E             float64
	Fy            float64
	PlateauStrain float64
	Fu            float64
	EpsU          float64
}

// WebCurve returns the web-zone curve. Zones still unset on hand-built
// sets fall back to the library plate values.
func (s Set) WebCurve() Curve {
	return Curve{
		E:             valueOr(s.EWeb, defaultEWeb),
		Fy:            valueOr(s.FyWeb, fallbackFyWeb),
		PlateauStrain: s.YieldPlateauWeb,
		Fu:            valueOr(s.FuWeb, fallbackFuWeb),
		EpsU:          valueOr(s.EpsUWeb, fallbackEpsUWeb),
	}
}

// FlangeCurve returns the flange-zone curve with the same fallback rule.
func (s Set) FlangeCurve() Curve {
	return Curve{
		E:             valueOr(s.EFlange, defaultEFlange),
		Fy:            valueOr(s.FyFlange, defaultFyFlange),
		PlateauStrain: s.YieldPlateauFlange,
		Fu:            valueOr(s.FuFlange, defaultFuFlange),
		EpsU:          valueOr(s.EpsUFlange, defaultEpsUFlange),
	}
}

func valueOr(v, def float64) float64 {
	if isUnset(v) {
		return def
	}
	return v
}
