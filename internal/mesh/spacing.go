package mesh

import (
	"math"
	"sort"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// distortionMargin inflates the ring requirement to absorb H3 cell-size
// variation across the region.
const distortionMargin = 1.1

// maxSpacingSamples bounds how many samples EstimateSpacing inspects.
const maxSpacingSamples = 500

// RingsForSpacing derives how many rings each sample must expand to so that a
// grid of samples at the given spacing (degrees) tessellates without gaps.
//
// With R the circumradius of a cell, any point lies within R of its cell
// centre and a sample within R of its home centre. A point in a square sample
// grid is at most h = spacing*sqrt(2)/2 from the nearest sample, so its cell
// centre is at most 2R+h from that sample's home centre. On a hex lattice every
// centre closer than (k+1)*1.5R is within k rings, hence
// k = floor(margin*(2R+h) / 1.5R), never less than one.
func RingsForSpacing(index CellIndex, ref CoverageSample, spacingDeg float64, resolution int) int {
	home := index.CellFor(ref.Lat, ref.Lon, resolution)
	center := index.CenterOf(home)

	var r float64
	for _, v := range index.BoundaryOf(home) {
		r = math.Max(r, geometry.HaversineKM(center.Lat, center.Lon, v.Lat, v.Lon))
	}
	if r <= 0 {
		return 1
	}

	h := math.Max(spacingDeg, 0) * geometry.KMPerDegreeLat * math.Sqrt2 / 2
	k := int(math.Floor(distortionMargin * (2*r + h) / (1.5 * r)))
	if k < 1 {
		return 1
	}
	return k
}

// EstimateSpacing returns the median nearest-neighbour distance between
// samples, in degrees of latitude. Fewer than two samples yields zero.
func EstimateSpacing(samples []CoverageSample) float64 {
	if len(samples) < 2 {
		return 0
	}

	head := samples
	if len(head) > maxSpacingSamples {
		head = head[:maxSpacingSamples]
	}

	nearest := make([]float64, 0, len(head))
	for i, p := range head {
		best := math.Inf(1)
		for j, q := range samples {
			if i == j {
				continue
			}
			d := geometry.HaversineKM(p.Lat, p.Lon, q.Lat, q.Lon)
			if d > 0 && d < best {
				best = d
			}
		}
		if !math.IsInf(best, 1) {
			nearest = append(nearest, best)
		}
	}
	if len(nearest) == 0 {
		return 0
	}

	sort.Float64s(nearest)
	return nearest[len(nearest)/2] / geometry.KMPerDegreeLat
}
