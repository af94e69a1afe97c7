package facility

import (
	"sort"
	"strings"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// Region is an administrative region with its centroid and population.
type Region struct {
	Name       string          `json:"name" yaml:"name"`
	Center     geometry.LatLon `json:"center" yaml:"center"`
	Population int             `json:"population" yaml:"population"`
	Legacy     bool            `json:"legacy,omitempty" yaml:"legacy"`
}

// ghanaRegions lists the sixteen regions created in 2019 plus the legacy
// Brong Ahafo name still used by older records. Populations are 2021 census
// figures; Brong Ahafo is the sum of Bono, Bono East and Ahafo.
var ghanaRegions = []Region{
	{"Greater Accra", geometry.LatLon{Lat: 5.6037, Lon: -0.1870}, 5455692, false},
	{"Ashanti", geometry.LatLon{Lat: 6.7470, Lon: -1.5209}, 5440463, false},
	{"Western", geometry.LatLon{Lat: 5.0900, Lon: -1.9400}, 2060585, false},
	{"Western North", geometry.LatLon{Lat: 6.2000, Lon: -2.5000}, 880921, false},
	{"Central", geometry.LatLon{Lat: 5.3000, Lon: -1.1000}, 2859821, false},
	{"Eastern", geometry.LatLon{Lat: 6.2000, Lon: -0.5000}, 2925653, false},
	{"Volta", geometry.LatLon{Lat: 6.7000, Lon: 0.5000}, 1659040, false},
	{"Oti", geometry.LatLon{Lat: 8.0000, Lon: 0.5000}, 747248, false},
	{"Northern", geometry.LatLon{Lat: 9.5000, Lon: -1.0000}, 2310939, false},
	{"Savannah", geometry.LatLon{Lat: 9.0000, Lon: -1.8000}, 653266, false},
	{"North East", geometry.LatLon{Lat: 10.5000, Lon: -0.3000}, 658946, false},
	{"Upper East", geometry.LatLon{Lat: 10.8000, Lon: -0.8000}, 1301226, false},
	{"Upper West", geometry.LatLon{Lat: 10.3000, Lon: -2.4000}, 904695, false},
	{"Bono", geometry.LatLon{Lat: 7.5000, Lon: -2.3000}, 1208649, false},
	{"Bono East", geometry.LatLon{Lat: 7.8000, Lon: -1.5000}, 1203400, false},
	{"Ahafo", geometry.LatLon{Lat: 6.9000, Lon: -2.4000}, 564668, false},
	{"Brong Ahafo", geometry.LatLon{Lat: 7.5000, Lon: -1.7000}, 2976717, true},
}

// DefaultRegions returns a copy of the built-in Ghana region list.
func DefaultRegions() []Region {
	out := make([]Region, len(ghanaRegions))
	copy(out, ghanaRegions)
	return out
}

var defaultTable = NewTable(ghanaRegions)

// Default returns the table built from DefaultRegions.
func Default() *Table { return defaultTable }

// Table resolves free-text region names to regions. It is read-only after
// construction.
type Table struct {
	regions []Region
	names   []string
	byName  map[string]int
}

// NewTable builds a lookup table. Later entries with the same normalised name
// replace earlier ones, so overrides can simply be appended; a zero centre or
// population in the later entry keeps the earlier value.
func NewTable(regions []Region) *Table {
	t := &Table{byName: make(map[string]int, len(regions))}
	for _, r := range regions {
		key := NormalizeRegion(r.Name)
		if key == "" {
			continue
		}
		if i, ok := t.byName[key]; ok {
			prev := t.regions[i]
			if r.Center == (geometry.LatLon{}) {
				r.Center = prev.Center
			}
			if r.Population == 0 {
				r.Population = prev.Population
			}
			t.regions[i] = r
			t.names[i] = r.Name
			continue
		}
		t.byName[key] = len(t.regions)
		t.regions = append(t.regions, r)
		t.names = append(t.names, r.Name)
	}
	return t
}

// Merge returns a table of base with overrides applied by name.
func Merge(base, overrides []Region) *Table {
	all := make([]Region, 0, len(base)+len(overrides))
	all = append(all, base...)
	all = append(all, overrides...)
	return NewTable(all)
}

// Regions returns the table's regions in insertion order.
func (t *Table) Regions() []Region {
	out := make([]Region, len(t.regions))
	copy(out, t.regions)
	return out
}

// Lookup resolves a free-text region name.
func (t *Table) Lookup(name string) (Region, bool) {
	match, ok := MatchName(name, t.names)
	if !ok {
		return Region{}, false
	}
	return t.regions[t.byName[NormalizeRegion(match)]], true
}

// Population returns the population for a free-text region name, or zero.
func (t *Table) Population(name string) int {
	r, ok := t.Lookup(name)
	if !ok {
		return 0
	}
	return r.Population
}

// Populations returns population keyed by canonical region name, leaving
// out legacy regions that overlap current ones.
func (t *Table) Populations() map[string]int {
	out := make(map[string]int, len(t.regions))
	for _, r := range t.regions {
		if r.Legacy {
			continue
		}
		out[r.Name] = r.Population
	}
	return out
}

// Locate returns the record's coordinates, or a pseudo-coordinate around its
// region centroid when the record has none.
func (t *Table) Locate(r Record) Located {
	if r.HasCoordinates() {
		return Located{Record: r, Position: geometry.LatLon{Lat: *r.Lat, Lon: *r.Lon}}
	}
	center := geometry.GhanaCenter
	if reg, ok := t.Lookup(r.Region); ok {
		center = reg.Center
	}
	return Located{Record: r, Position: PseudoCoordinate(r.Key(), r.Region, center), Pseudo: true}
}

// LocateAll resolves every record, preserving order.
func (t *Table) LocateAll(records []Record) []Located {
	out := make([]Located, len(records))
	for i, r := range records {
		out[i] = t.Locate(r)
	}
	return out
}

// NormalizeRegion lower-cases, treats hyphens as spaces, collapses
// whitespace and strips a trailing "region" word.
func NormalizeRegion(name string) string {
	s := strings.ToLower(strings.ReplaceAll(name, "-", " "))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(strings.TrimSuffix(s, " region"))
}

// MatchName resolves name against candidates: an exact normalised match
// first, then the longest candidate that contains or is contained in name.
// Longest-first keeps "Western North" from resolving to "Western".
func MatchName(name string, candidates []string) (string, bool) {
	key := NormalizeRegion(name)
	if key == "" {
		return "", false
	}
	for _, c := range candidates {
		if NormalizeRegion(c) == key {
			return c, true
		}
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(NormalizeRegion(candidates[order[a]])) > len(NormalizeRegion(candidates[order[b]]))
	})
	for _, i := range order {
		c := NormalizeRegion(candidates[i])
		if c == "" {
			continue
		}
		if strings.Contains(key, c) || strings.Contains(c, key) {
			return candidates[i], true
		}
	}
	return "", false
}

// Canonical resolves name to one of keys through the table. An exact
// normalised match against keys wins; otherwise name is looked up in the
// table and its canonical name must equal a key after normalisation.
// Legacy and unknown regions do not resolve, so a legacy name never lands
// on a current region that merely shares a word with it.
func (t *Table) Canonical(name string, keys []string) (string, bool) {
	norm := NormalizeRegion(name)
	if norm == "" {
		return "", false
	}
	for _, k := range keys {
		if NormalizeRegion(k) == norm {
			return k, true
		}
	}
	r, ok := t.Lookup(name)
	if !ok || r.Legacy {
		return "", false
	}
	want := NormalizeRegion(r.Name)
	for _, k := range keys {
		if NormalizeRegion(k) == want {
			return k, true
		}
	}
	return "", false
}
