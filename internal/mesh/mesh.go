// Package mesh turns sparse coverage samples into a gap-free hexagonal mesh
// clipped to a country boundary.
package mesh

import (
	"sort"

	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// CoverageSample is one sampled point of the coverage surface.
type CoverageSample struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	CoverageIndex float64 `json:"coverageIndex"`
	FacilityCount int     `json:"facilityCount"`
}

// HexCell is an accumulated mesh cell. After Build returns, CoverageIndex is
// the mean over contributing samples, FacilityCount their sum and
// Contributions is at least one.
type HexCell struct {
	Cell          Cell    `json:"-"`
	ID            string  `json:"id"`
	CoverageIndex float64 `json:"coverageIndex"`
	FacilityCount int     `json:"facilityCount"`
	Contributions int     `json:"contributions"`
}

// Severity returns the cell's desert severity, clamp(1 - 2*coverage, 0, 1).
func (c HexCell) Severity() float64 {
	return geometry.Clamp(1-c.CoverageIndex*2, 0, 1)
}

// Builder builds meshes against a fixed cell index and boundary.
type Builder struct {
	index    CellIndex
	boundary *geometry.Boundary
	rings    int
	ringsSet bool
	spacing  float64
}

// Option configures a Builder.
type Option func(*Builder)

// WithRings fixes the neighbourhood expansion radius instead of deriving it.
// Zero maps each sample to its home cell only.
func WithRings(k int) Option {
	return func(b *Builder) {
		if k < 0 {
			k = 0
		}
		b.rings = k
		b.ringsSet = true
	}
}

// WithSampleSpacing sets the sample spacing in degrees used to derive the ring
// count. Zero means estimate it from the samples.
func WithSampleSpacing(deg float64) Option {
	return func(b *Builder) {
		b.spacing = deg
	}
}

// NewBuilder creates a Builder. A nil boundary accepts every point.
func NewBuilder(index CellIndex, boundary *geometry.Boundary, opts ...Option) *Builder {
	b := &Builder{index: index, boundary: boundary}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildCoverageMesh builds a mesh over Ghana with H3 cells and derived rings.
func BuildCoverageMesh(samples []CoverageSample, resolution int) []HexCell {
	return NewBuilder(H3Index{}, geometry.Ghana).Build(samples, resolution)
}

func (b *Builder) inside(lat, lon float64) bool {
	return b.boundary == nil || b.boundary.Contains(lat, lon)
}

type accumulator struct {
	sum           float64
	facilityCount int
	contributions int
}

// Build accumulates samples into cells at the given resolution. Samples
// outside the boundary are skipped, every surviving sample contributes to all
// cells within the ring radius of its home cell, and cells whose centre falls
// outside the boundary are dropped afterwards. Output is sorted by cell key.
// No samples (or none inside) yields an empty, non-nil mesh.
func (b *Builder) Build(samples []CoverageSample, resolution int) []HexCell {
	resolution = clampResolution(resolution)
	log := zap.L().With(zap.Int("resolution", resolution))

	kept := make([]CoverageSample, 0, len(samples))
	for _, s := range samples {
		if !b.inside(s.Lat, s.Lon) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		log.Debug("mesh: no samples inside boundary", zap.Int("samples", len(samples)))
		return []HexCell{}
	}

	rings := b.rings
	if !b.ringsSet {
		spacing := b.spacing
		if spacing <= 0 {
			spacing = EstimateSpacing(kept)
		}
		rings = RingsForSpacing(b.index, kept[0], spacing, resolution)
	}

	acc := make(map[Cell]*accumulator)
	for _, s := range kept {
		ci := geometry.Clamp(s.CoverageIndex, 0, 1)
		count := s.FacilityCount
		if count < 0 {
			count = 0
		}
		home := b.index.CellFor(s.Lat, s.Lon, resolution)
		for _, c := range b.index.NeighborsWithinRings(home, rings) {
			a, ok := acc[c]
			if !ok {
				a = &accumulator{}
				acc[c] = a
			}
			a.sum += ci
			a.facilityCount += count
			a.contributions++
		}
	}

	cells := make([]HexCell, 0, len(acc))
	dropped := 0
	for c, a := range acc {
		center := b.index.CenterOf(c)
		if !b.inside(center.Lat, center.Lon) {
			dropped++
			continue
		}
		cells = append(cells, HexCell{
			Cell:          c,
			ID:            b.index.Key(c),
			CoverageIndex: a.sum / float64(a.contributions),
			FacilityCount: a.facilityCount,
			Contributions: a.contributions,
		})
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].ID < cells[j].ID })

	log.Info("mesh: built",
		zap.Int("samples", len(samples)),
		zap.Int("samples_inside", len(kept)),
		zap.Int("rings", rings),
		zap.Int("cells", len(cells)),
		zap.Int("halo_dropped", dropped),
	)
	return cells
}
