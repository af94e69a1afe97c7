// Package facility holds the canonical facility record, the Ghana region
// table and the deterministic placement fallback for records without
// coordinates.
package facility

import (
	"math"
	"strings"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// Facility and organisation type values used by the dataset.
const (
	TypeHospital = "hospital"
	TypeClinic   = "clinic"

	OrgFacility = "facility"
	OrgNGO      = "ngo"
)

// Record is one canonical facility as shipped in facilities.json.
type Record struct {
	ID           string   `json:"id"`
	UID          string   `json:"uid,omitempty"`
	Name         string   `json:"name"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	City         string   `json:"city,omitempty"`
	Region       string   `json:"region,omitempty"`
	Type         string   `json:"type,omitempty"`
	Operator     string   `json:"operator,omitempty"`
	Specialties  []string `json:"specialties"`
	Procedures   []string `json:"procedures"`
	Equipment    []string `json:"equipment"`
	Capabilities []string `json:"capabilities"`
	Doctors      *int     `json:"doctors"`
	Beds         *int     `json:"beds"`
	OrgType      string   `json:"orgType,omitempty"`
	Description  string   `json:"description,omitempty"`
	Website      string   `json:"website,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// Key returns the identifier used for highlight sets and lookups: id, then
// uid, then the name.
func (r Record) Key() string {
	switch {
	case r.ID != "":
		return r.ID
	case r.UID != "":
		return r.UID
	default:
		return r.Name
	}
}

// HasCoordinates reports whether the record carries a usable lat/lon.
func (r Record) HasCoordinates() bool {
	if r.Lat == nil || r.Lon == nil {
		return false
	}
	lat, lon := *r.Lat, *r.Lon
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// IsCareSite reports whether the record counts toward coverage: a hospital or
// clinic operated as a facility rather than an NGO.
func (r Record) IsCareSite() bool {
	t := strings.ToLower(r.Type)
	if t != TypeHospital && t != TypeClinic {
		return false
	}
	return r.OrgType == "" || strings.EqualFold(r.OrgType, OrgFacility)
}

// HasSpecialty reports whether the record lists spec, case-insensitively.
func (r Record) HasSpecialty(spec string) bool {
	for _, s := range r.Specialties {
		if strings.EqualFold(s, spec) {
			return true
		}
	}
	return false
}

// Located is a record paired with the coordinates it renders at.
type Located struct {
	Record
	Position geometry.LatLon `json:"position"`
	Pseudo   bool            `json:"pseudo"`
}

// Locate resolves the record's position against the default region table.
func Locate(r Record) Located {
	return Default().Locate(r)
}

// LocateAll resolves every record against the default region table.
func LocateAll(records []Record) []Located {
	return Default().LocateAll(records)
}

// Dedupe drops records repeating an earlier (name, city) pair, keeping the
// first occurrence and the input order.
func Dedupe(records []Record) []Record {
	type key struct{ name, city string }
	seen := make(map[key]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := key{r.Name, r.City}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Float returns a pointer to v, for building records in code.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
