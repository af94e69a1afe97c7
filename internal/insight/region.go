package insight

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// Score rates a (specialty, region) gap: population up to 500k earns up to
// 50 points, fewer than ten facilities up to 45, clamped to [min, max].
func Score(count, population, minScore, maxScore int) int {
	popFactor := math.Min(float64(population)/500000, 1)
	if popFactor < 0 {
		popFactor = 0
	}
	penalty := math.Max(0, 1-float64(count)/10)
	raw := math.Round(popFactor*50 + penalty*45)
	return int(geometry.Clamp(raw, float64(minScore), float64(maxScore)))
}

// GenerateRegionInsights flags every specialty in dist against every region
// in population where fewer than CountThreshold facilities list the
// specialty and more than PopulationThreshold people live. Region names in
// dist and on facilities are matched to population keys through
// opts.Regions; legacy and unknown names are left out rather than folded
// into a current region. The result is sorted by score and capped at
// MaxResults; empty inputs give an empty, non-nil slice.
func GenerateRegionInsights(dist SpecialtyDistribution, population map[string]int, facilities []facility.Record, opts Options) []Insight {
	opts = opts.normalized()
	out := []Insight{}
	if len(dist) == 0 || len(population) == 0 {
		return out
	}

	regions := make([]string, 0, len(population))
	for r := range population {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	canonical := func(name string) string {
		m, _ := opts.Regions.Canonical(name, regions)
		return m
	}

	byRegion := make(map[string][]facility.Record)
	for _, f := range facilities {
		if r := canonical(f.Region); r != "" {
			byRegion[r] = append(byRegion[r], f)
		}
	}

	for _, spec := range dist.Specialties() {
		counts := make(map[string]int)
		for r, n := range dist[spec].Regions {
			if c := canonical(r); c != "" {
				counts[c] += n
			}
		}

		for _, region := range regions {
			count, pop := counts[region], population[region]
			if count >= opts.CountThreshold || pop <= opts.PopulationThreshold {
				continue
			}
			ins := Insight{
				ID:            newID(KindRegionGap, spec, region),
				Kind:          KindRegionGap,
				Title:         fmt.Sprintf("%s coverage gap in %s", spec, region),
				Description:   gapDescription(spec, region, count, pop),
				NextStep:      gapNextStep(spec, region, count),
				Score:         Score(count, pop, opts.MinScore, opts.MaxScore),
				Region:        region,
				Specialty:     spec,
				Population:    pop,
				FacilityCount: count,
			}
			ins.RelatedFacilityIDs, ins.RelatedFacilityNames = related(byRegion[region], spec, opts.MaxRelated)
			out = append(out, ins)
		}
	}

	flagged := len(out)
	sortByScore(out)
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}

	zap.L().Info("insight: region gaps scored",
		zap.Int("specialties", len(dist)),
		zap.Int("regions", len(regions)),
		zap.Int("flagged", flagged),
		zap.Int("returned", len(out)),
	)
	return out
}

// related picks up to limit facilities, preferring those already listing
// spec and falling back to any facility in the region, in input order.
func related(inRegion []facility.Record, spec string, limit int) ([]string, []string) {
	ids, names := []string{}, []string{}
	pick := func(match func(facility.Record) bool) {
		for _, f := range inRegion {
			if len(ids) == limit {
				return
			}
			if match(f) {
				ids = append(ids, f.Key())
				names = append(names, f.Name)
			}
		}
	}
	pick(func(f facility.Record) bool { return f.HasSpecialty(spec) })
	if len(ids) == 0 {
		pick(func(facility.Record) bool { return true })
	}
	return ids, names
}

func gapDescription(spec, region string, count, pop int) string {
	switch count {
	case 0:
		return fmt.Sprintf("No facility in %s lists %s, for a population of about %s.", region, spec, people(pop))
	case 1:
		return fmt.Sprintf("Only one facility in %s lists %s, for a population of about %s.", region, spec, people(pop))
	default:
		return fmt.Sprintf("Only %d facilities in %s list %s, for a population of about %s.", count, region, spec, people(pop))
	}
}

func gapNextStep(spec, region string, count int) string {
	if count == 0 {
		return fmt.Sprintf("Assess demand for %s services in %s and identify a host facility.", spec, region)
	}
	return fmt.Sprintf("Verify %s capacity at the listed %s facilities and plan outreach to underserved districts.", spec, region)
}

func people(n int) string {
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1000:
		return fmt.Sprintf("%dk", n/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
