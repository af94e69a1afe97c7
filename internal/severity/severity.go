// Package severity maps a cell's coverage index to presentation colours for
// the two map modes: raw coverage and medical-desert severity.
package severity

import (
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// Mode selects how a coverage index is rendered.
type Mode string

const (
	// ModeCoverage colours cells directly by coverage index (0 worst, 1 best).
	ModeCoverage Mode = "coverage"
	// ModeDesert colours cells by desert severity and fades out served cells.
	ModeDesert Mode = "desert"
)

// ParseMode returns the mode named by s, defaulting to ModeCoverage.
func ParseMode(s string) Mode {
	if Mode(s) == ModeDesert {
		return ModeDesert
	}
	return ModeCoverage
}

// DesertThreshold is the coverage index at and above which a cell is not a desert.
const DesertThreshold = 0.5

// CoverageStops is the red→orange→yellow→green→teal ramp keyed on coverage index.
var CoverageStops = geometry.MustStops(
	0.0, "#dc2626",
	0.25, "#f97316",
	0.5, "#facc15",
	0.75, "#22c55e",
	1.0, "#14b8a6",
)

// DesertStops is the amber→orange→red→dark red→crimson ramp keyed on severity.
var DesertStops = geometry.MustStops(
	0.0, "#f59e0b",
	0.25, "#ea580c",
	0.5, "#dc2626",
	0.75, "#991b1b",
	1.0, "#4c0519",
)

// Band is an inclusive opacity range scaled linearly by severity.
type Band struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// At returns the opacity for severity s in [0, 1].
func (b Band) At(s float64) float64 {
	return geometry.Lerp(b.Min, b.Max, s)
}

// Palette configures desert-mode styling.
type Palette struct {
	Fill          Band
	Border        Band
	NeutralColor  string
	NeutralFill   float64
	NeutralBorder float64
}

// DefaultPalette is the desert-mode palette used by the map.
var DefaultPalette = Palette{
	Fill:          Band{Min: 0.30, Max: 0.85},
	Border:        Band{Min: 0.25, Max: 0.85},
	NeutralColor:  "#94a3b8",
	NeutralFill:   0.08,
	NeutralBorder: 0.15,
}

// Style is the rendered appearance of one cell.
type Style struct {
	Color         string  `json:"color"`
	FillOpacity   float64 `json:"fillOpacity"`
	BorderOpacity float64 `json:"borderOpacity"`
}

// DesertSeverity returns clamp(1 - 2*coverageIndex, 0, 1).
func DesertSeverity(coverageIndex float64) float64 {
	return geometry.Clamp(1-coverageIndex*2, 0, 1)
}

// ColorForCoverage returns the coverage-mode colour for a coverage index.
func ColorForCoverage(coverageIndex float64) string {
	return geometry.InterpolateStops(CoverageStops, coverageIndex).Hex()
}

// ColorForDesertSeverity returns the desert-mode style for a coverage index
// using DefaultPalette.
func ColorForDesertSeverity(coverageIndex float64) Style {
	return DefaultPalette.Desert(coverageIndex)
}

// Desert returns the desert-mode style for a coverage index. Cells at or above
// DesertThreshold get the flat neutral fill.
func (p Palette) Desert(coverageIndex float64) Style {
	coverageIndex = geometry.Clamp(coverageIndex, 0, 1)
	if coverageIndex >= DesertThreshold {
		return Style{
			Color:         p.NeutralColor,
			FillOpacity:   p.NeutralFill,
			BorderOpacity: p.NeutralBorder,
		}
	}
	sev := DesertSeverity(coverageIndex)
	return Style{
		Color:         geometry.InterpolateStops(DesertStops, sev).Hex(),
		FillOpacity:   p.Fill.At(sev),
		BorderOpacity: p.Border.At(sev),
	}
}

// For returns the style for a coverage index in the given mode. Coverage mode
// uses a constant fill so colour alone carries the value.
func For(mode Mode, coverageIndex float64) Style {
	if mode == ModeDesert {
		return ColorForDesertSeverity(coverageIndex)
	}
	return Style{
		Color:         ColorForCoverage(coverageIndex),
		FillOpacity:   0.55,
		BorderOpacity: 0.35,
	}
}
