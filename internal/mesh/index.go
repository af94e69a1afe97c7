package mesh

import (
	"github.com/uber/h3-go/v3"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// Cell is an opaque hierarchical cell address.
type Cell uint64

// CellIndex is the narrow view of a hexagonal grid system the builder needs.
// Implementations must return stable addresses for the same input.
type CellIndex interface {
	// CellFor returns the cell containing (lat, lon) at resolution res.
	CellFor(lat, lon float64, res int) Cell
	// NeighborsWithinRings returns c and every cell within k rings of it.
	NeighborsWithinRings(c Cell, k int) []Cell
	// BoundaryOf returns the cell's vertices in order, not closed.
	BoundaryOf(c Cell) []geometry.LatLon
	// CenterOf returns the cell's geometric centre.
	CenterOf(c Cell) geometry.LatLon
	// Key returns the canonical string form of c.
	Key(c Cell) string
}

// MaxResolution is the finest resolution supported by H3.
const MaxResolution = 15

// H3Index implements CellIndex with Uber's H3.
type H3Index struct{}

// CellFor implements CellIndex.
func (H3Index) CellFor(lat, lon float64, res int) Cell {
	return Cell(h3.FromGeo(h3.GeoCoord{Latitude: lat, Longitude: lon}, clampResolution(res)))
}

// NeighborsWithinRings implements CellIndex.
func (H3Index) NeighborsWithinRings(c Cell, k int) []Cell {
	if k < 0 {
		k = 0
	}
	ring := h3.KRing(h3.H3Index(c), k)
	cells := make([]Cell, 0, len(ring))
	for _, h := range ring {
		if h == 0 {
			continue
		}
		cells = append(cells, Cell(h))
	}
	return cells
}

// BoundaryOf implements CellIndex.
func (H3Index) BoundaryOf(c Cell) []geometry.LatLon {
	gb := h3.ToGeoBoundary(h3.H3Index(c))
	out := make([]geometry.LatLon, len(gb))
	for i, v := range gb {
		out[i] = geometry.LatLon{Lat: v.Latitude, Lon: v.Longitude}
	}
	return out
}

// CenterOf implements CellIndex.
func (H3Index) CenterOf(c Cell) geometry.LatLon {
	g := h3.ToGeo(h3.H3Index(c))
	return geometry.LatLon{Lat: g.Latitude, Lon: g.Longitude}
}

// Key implements CellIndex.
func (H3Index) Key(c Cell) string {
	return h3.ToString(h3.H3Index(c))
}

func clampResolution(res int) int {
	if res < 0 {
		return 0
	}
	if res > MaxResolution {
		return MaxResolution
	}
	return res
}
