package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// KMPerDegreeLat is the length of one degree of latitude.
const KMPerDegreeLat = 111.32

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// BBox represents a geographic bounding box.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// ContainsPoint reports whether the point lies inside or on the box.
func (b BBox) ContainsPoint(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLng && lon <= b.MaxLng
}

// Boundary is a single closed ring used for point-in-country tests.
// Coordinates are stored lon/lat (XY) as go-geom and GeoJSON expect.
type Boundary struct {
	poly *geom.Polygon
	bbox BBox
}

// NewBoundary builds a boundary from an ordered [lat, lon] ring. The ring is
// closed automatically when the last vertex differs from the first.
func NewBoundary(ring [][2]float64) (*Boundary, error) {
	if len(ring) < 3 {
		return nil, eris.Errorf("geometry: boundary needs at least 3 vertices, got %d", len(ring))
	}

	coords := make([]geom.Coord, 0, len(ring)+1)
	for _, v := range ring {
		coords = append(coords, geom.Coord{v[1], v[0]})
	}
	first, last := ring[0], ring[len(ring)-1]
	if first != last {
		coords = append(coords, geom.Coord{first[1], first[0]})
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil, eris.Wrap(err, "geometry: build boundary polygon")
	}

	b := poly.Bounds()
	return &Boundary{
		poly: poly,
		bbox: BBox{MinLng: b.Min(0), MinLat: b.Min(1), MaxLng: b.Max(0), MaxLat: b.Max(1)},
	}, nil
}

// MustBoundary is NewBoundary for package-level tables; it panics on error.
func MustBoundary(ring [][2]float64) *Boundary {
	b, err := NewBoundary(ring)
	if err != nil {
		panic(err)
	}
	return b
}

// BBox returns the boundary's bounding box.
func (b *Boundary) BBox() BBox { return b.bbox }

// Polygon returns the underlying go-geom polygon (lon/lat order).
func (b *Boundary) Polygon() *geom.Polygon { return b.poly }

// Contains reports whether (lat, lon) is inside the boundary. It rejects on
// the bounding box first, then applies the even-odd ray-casting rule.
func (b *Boundary) Contains(lat, lon float64) bool {
	if b == nil || math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if !b.bbox.ContainsPoint(lat, lon) {
		return false
	}
	return rayCast(b.poly.LinearRing(0).FlatCoords(), lon, lat)
}

// IsInsideBoundary tests (lat, lon) against an ordered [lat, lon] ring without
// building a Boundary. Degenerate rings contain nothing.
func IsInsideBoundary(lat, lon float64, ring [][2]float64) bool {
	if len(ring) < 3 || math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}

	minLat, maxLat := ring[0][0], ring[0][0]
	minLon, maxLon := ring[0][1], ring[0][1]
	flat := make([]float64, 0, 2*len(ring))
	for _, v := range ring {
		minLat, maxLat = math.Min(minLat, v[0]), math.Max(maxLat, v[0])
		minLon, maxLon = math.Min(minLon, v[1]), math.Max(maxLon, v[1])
		flat = append(flat, v[1], v[0])
	}
	if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
		return false
	}
	return rayCast(flat, lon, lat)
}

// rayCast implements the even-odd rule over flat XY coordinates. The ring may
// be open or closed.
func rayCast(flat []float64, x, y float64) bool {
	n := len(flat) / 2
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[2*i], flat[2*i+1]
		xj, yj := flat[2*j], flat[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// HaversineKM returns the great-circle distance between two points in km.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
