package insight

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

// LowConfidence is the data-quality score below which a record is flagged.
const LowConfidence = 0.55

// Terms are matched against lower-cased text. "o2" must stand alone so
// that "co2" does not count as an oxygen source.
var (
	icuTerms     = regexp.MustCompile(`icu|intensive care|critical care`)
	oxygenTerms  = regexp.MustCompile(`oxygen|ventilator|\bo2\b`)
	surgeryTerms = regexp.MustCompile(`surg|operating thea(tre|ter)`)
	sterileTerms = regexp.MustCompile(`steril|autoclave`)
)

func mentions(lists [][]string, terms *regexp.Regexp) bool {
	for _, list := range lists {
		for _, item := range list {
			if terms.MatchString(strings.ToLower(item)) {
				return true
			}
		}
	}
	return false
}

// GenerateFacilityInsights returns the anomaly insights for one facility in
// priority order: structural flags, then missing data. When neither applies
// it returns a single outreach insight, so the result is never empty.
func GenerateFacilityInsights(f facility.Record) []Insight {
	id := f.Key()
	claims := [][]string{f.Specialties, f.Capabilities, f.Procedures}
	equipment := [][]string{f.Equipment}

	mk := func(kind, topic, title, desc, next string) Insight {
		return Insight{
			ID:                   newID(kind, id, topic),
			Kind:                 kind,
			Title:                title,
			Description:          desc,
			NextStep:             next,
			Confidence:           facility.Confidence(id, topic),
			Region:               f.Region,
			RelatedFacilityIDs:   []string{id},
			RelatedFacilityNames: []string{f.Name},
		}
	}

	var flags []Insight
	if mentions(claims, icuTerms) && !mentions(equipment, oxygenTerms) {
		flags = append(flags, mk(KindFacilityFlag, "icu-oxygen",
			"ICU claim without oxygen supply",
			fmt.Sprintf("%s lists intensive care but its equipment mentions no oxygen source.", f.Name),
			"Confirm oxygen availability before referring critical patients."))
	}
	if mentions(claims, surgeryTerms) && !mentions(equipment, sterileTerms) {
		flags = append(flags, mk(KindFacilityFlag, "surgery-sterile",
			"Surgery claim without sterilisation equipment",
			fmt.Sprintf("%s lists surgical services but its equipment mentions no sterilisation.", f.Name),
			"Verify theatre sterilisation capacity with the facility."))
	}
	if f.Confidence != nil && *f.Confidence < LowConfidence {
		flags = append(flags, mk(KindFacilityFlag, "low-confidence",
			"Low data confidence",
			fmt.Sprintf("The record for %s scores %.2f on data quality.", f.Name, *f.Confidence),
			"Re-verify the record against a primary source."))
	}

	var missing []Insight
	if len(nonEmpty(f.Specialties)) == 0 {
		missing = append(missing, mk(KindMissingData, "missing-specialties",
			"No specialties recorded",
			fmt.Sprintf("%s has no specialty information.", f.Name),
			"Collect the facility's specialty list."))
	}
	if len(nonEmpty(f.Capabilities)) == 0 {
		missing = append(missing, mk(KindMissingData, "missing-capabilities",
			"No capabilities recorded",
			fmt.Sprintf("%s has no capability information.", f.Name),
			"Collect the facility's service capabilities."))
	}

	out := append(flags, missing...)
	if len(out) == 0 {
		out = append(out, mk(KindOutreach, "outreach",
			"Opportunity to expand outreach",
			fmt.Sprintf("%s has complete, consistent records and could extend services to nearby underserved areas.", f.Name),
			"Explore mobile clinics or referral partnerships in neighbouring districts."))
	}
	return out
}

// Panel returns a facility's anomaly insights followed by the region gaps
// for its region, capped at limit. Regions are compared after resolving
// both names through regions; nil uses facility.Default. Gaps should be
// generated without a result cap so that a region outside the national top
// still contributes its own.
func Panel(f facility.Record, gaps []Insight, limit int, regions *facility.Table) []Insight {
	if regions == nil {
		regions = facility.Default()
	}
	out := GenerateFacilityInsights(f)
	home, ok := regions.Lookup(f.Region)
	if ok && !home.Legacy {
		for _, g := range gaps {
			if g.Kind != KindRegionGap {
				continue
			}
			if r, ok := regions.Lookup(g.Region); ok && r.Name == home.Name {
				out = append(out, g)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func nonEmpty(list []string) []string {
	var out []string
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
