// Package store loads the already-parsed inputs the engine works on:
// facility records and the precomputed analysis, from JSON files or
// Postgres, plus optional region overrides from YAML.
package store

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/insight"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/mesh"
)

// Source supplies facility records.
type Source interface {
	Facilities(ctx context.Context) ([]facility.Record, error)
}

// Desert is a populated place far from any hospital.
type Desert struct {
	City              string   `json:"city"`
	Lat               float64  `json:"lat"`
	Lon               float64  `json:"lon"`
	NearestHospitalKm *float64 `json:"nearestHospitalKm"`
	Population        *int     `json:"population"`
}

// Analysis is the precomputed analysis file. Every section is optional.
type Analysis struct {
	MedicalDeserts        []Desert                      `json:"medicalDeserts,omitempty"`
	CoverageGrid          []mesh.CoverageSample         `json:"coverageGrid,omitempty"`
	RegionStats           map[string]insight.RegionStat `json:"regionStats,omitempty"`
	SpecialtyDistribution insight.SpecialtyDistribution `json:"specialtyDistribution,omitempty"`
	RegionPopulation      map[string]int                `json:"regionPopulation,omitempty"`
}

// FileSource reads facilities from a JSON array file.
type FileSource struct {
	Path string
}

// Facilities implements Source.
func (s FileSource) Facilities(_ context.Context) ([]facility.Record, error) {
	return LoadFacilities(s.Path)
}

// LoadFacilities reads a JSON array of facility records.
func LoadFacilities(path string) ([]facility.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read facilities %s", path)
	}
	var records []facility.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "store: decode facilities %s", path)
	}
	if records == nil {
		records = []facility.Record{}
	}
	zap.L().Info("store: loaded facilities", zap.String("path", path), zap.Int("count", len(records)))
	return records, nil
}

// LoadAnalysis reads the analysis file. A missing file wraps fs.ErrNotExist.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read analysis %s", path)
	}
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrapf(err, "store: decode analysis %s", path)
	}
	zap.L().Info("store: loaded analysis",
		zap.String("path", path),
		zap.Int("coverage_samples", len(a.CoverageGrid)),
		zap.Int("specialties", len(a.SpecialtyDistribution)),
		zap.Int("regions", len(a.RegionPopulation)),
	)
	return &a, nil
}
