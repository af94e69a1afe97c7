package insight

import (
	"sort"
	"strings"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

// UnknownRegion keys records with no region.
const UnknownRegion = "Unknown"

// SpecialtyCount is one specialty's total and per-region facility counts.
type SpecialtyCount struct {
	Total   int            `json:"total"`
	Regions map[string]int `json:"regions"`
}

// SpecialtyDistribution maps specialty to its counts.
type SpecialtyDistribution map[string]SpecialtyCount

// Specialties returns the keys by descending total, then name.
func (d SpecialtyDistribution) Specialties() []string {
	out := make([]string, 0, len(d))
	for s := range d {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if d[out[i]].Total != d[out[j]].Total {
			return d[out[i]].Total > d[out[j]].Total
		}
		return out[i] < out[j]
	})
	return out
}

// BuildSpecialtyDistribution counts, per specialty, the facilities listing it
// overall and per region.
func BuildSpecialtyDistribution(records []facility.Record) SpecialtyDistribution {
	dist := SpecialtyDistribution{}
	for _, f := range records {
		region := regionKey(f.Region)
		for _, spec := range f.Specialties {
			spec = strings.TrimSpace(spec)
			if spec == "" {
				continue
			}
			c, ok := dist[spec]
			if !ok {
				c = SpecialtyCount{Regions: map[string]int{}}
			}
			c.Total++
			c.Regions[region]++
			dist[spec] = c
		}
	}
	return dist
}

// RegionStat aggregates the facilities reporting one region.
type RegionStat struct {
	Facilities      int            `json:"facilities"`
	Hospitals       int            `json:"hospitals"`
	Clinics         int            `json:"clinics"`
	NGOs            int            `json:"ngos"`
	DoctorsReported int            `json:"doctorsReported"`
	BedsReported    int            `json:"bedsReported"`
	Specialties     map[string]int `json:"specialties"`
	Population      int            `json:"population,omitempty"`
}

// RegionStats aggregates records by their region string. Population is
// attached where regions resolves the name to a population key; a nil
// table uses facility.Default.
func RegionStats(records []facility.Record, population map[string]int, regions *facility.Table) map[string]RegionStat {
	if regions == nil {
		regions = facility.Default()
	}
	stats := map[string]RegionStat{}
	for _, f := range records {
		key := regionKey(f.Region)
		s, ok := stats[key]
		if !ok {
			s = RegionStat{Specialties: map[string]int{}}
		}
		s.Facilities++
		switch strings.ToLower(f.Type) {
		case facility.TypeHospital:
			s.Hospitals++
		case facility.TypeClinic:
			s.Clinics++
		}
		if strings.EqualFold(f.OrgType, facility.OrgNGO) {
			s.NGOs++
		}
		if f.Doctors != nil && *f.Doctors > 0 {
			s.DoctorsReported += *f.Doctors
		}
		if f.Beds != nil && *f.Beds > 0 {
			s.BedsReported += *f.Beds
		}
		for _, spec := range f.Specialties {
			s.Specialties[spec]++
		}
		stats[key] = s
	}

	if len(population) > 0 {
		names := make([]string, 0, len(population))
		for r := range population {
			names = append(names, r)
		}
		sort.Strings(names)
		for key, s := range stats {
			if m, ok := regions.Canonical(key, names); ok {
				s.Population = population[m]
				stats[key] = s
			}
		}
	}
	return stats
}

func regionKey(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return UnknownRegion
	}
	return region
}
