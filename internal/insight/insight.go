// Package insight scores coverage gaps and facility anomalies into ranked,
// human-readable statements. Every function is stateless and recomputes from
// its inputs.
package insight

import (
	"sort"

	"github.com/google/uuid"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

// Insight kinds.
const (
	KindRegionGap    = "region_gap"
	KindFacilityFlag = "facility_flag"
	KindMissingData  = "missing_data"
	KindOutreach     = "outreach"
)

// namespace seeds deterministic insight ids.
var namespace = uuid.MustParse("6f1c7f3e-2b8a-5d4e-9c61-0a7b3e5d2f90")

// Insight is one scored statement. Region gaps carry Score; facility insights
// carry Confidence.
type Insight struct {
	ID                   string   `json:"id"`
	Kind                 string   `json:"kind"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	NextStep             string   `json:"nextStep"`
	Score                int      `json:"score,omitempty"`
	Confidence           float64  `json:"confidence,omitempty"`
	Region               string   `json:"region,omitempty"`
	Specialty            string   `json:"specialty,omitempty"`
	Population           int      `json:"population,omitempty"`
	FacilityCount        int      `json:"facilityCount"`
	RelatedFacilityIDs   []string `json:"relatedFacilityIds"`
	RelatedFacilityNames []string `json:"relatedFacilityNames"`
}

func newID(parts ...string) string {
	var b []byte
	for i, p := range parts {
		if i > 0 {
			b = append(b, '|')
		}
		b = append(b, p...)
	}
	return uuid.NewSHA1(namespace, b).String()
}

// Options holds the scoring thresholds.
type Options struct {
	MaxResults          int
	CountThreshold      int // flag only when count is below this
	PopulationThreshold int // and population is above this
	MinScore            int
	MaxScore            int
	MaxRelated          int

	// Regions resolves free-text region names; nil uses facility.Default.
	Regions *facility.Table
}

// DefaultOptions returns the thresholds for the full region panel.
func DefaultOptions() Options {
	return Options{
		MaxResults:          30,
		CountThreshold:      15,
		PopulationThreshold: 200000,
		MinScore:            40,
		MaxScore:            95,
		MaxRelated:          3,
	}
}

// PanelOptions returns DefaultOptions capped for the per-facility panel.
func PanelOptions() Options {
	o := DefaultOptions()
	o.MaxResults = 6
	return o
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxResults <= 0 {
		o.MaxResults = d.MaxResults
	}
	if o.CountThreshold <= 0 {
		o.CountThreshold = d.CountThreshold
	}
	if o.PopulationThreshold <= 0 {
		o.PopulationThreshold = d.PopulationThreshold
	}
	if o.MaxScore <= 0 || o.MaxScore > 100 {
		o.MaxScore = d.MaxScore
	}
	if o.MinScore < 0 || o.MinScore > o.MaxScore {
		o.MinScore = d.MinScore
	}
	if o.MaxRelated <= 0 {
		o.MaxRelated = d.MaxRelated
	}
	if o.Regions == nil {
		o.Regions = facility.Default()
	}
	return o
}

// sortByScore orders insights by score descending, then specialty and
// region so equal scores come out in a stable order.
func sortByScore(in []Insight) {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Score != in[j].Score {
			return in[i].Score > in[j].Score
		}
		if in[i].Specialty != in[j].Specialty {
			return in[i].Specialty < in[j].Specialty
		}
		return in[i].Region < in[j].Region
	})
}
