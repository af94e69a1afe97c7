package mesh

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/severity"
)

// Properties written on every exported feature.
const (
	PropCoverageIndex = "coverageIndex"
	PropFacilityCount = "facilityCount"
	PropSeverity      = "severity"
)

// Polygons exports cells as a GeoJSON FeatureCollection. Each feature is a
// closed [lon, lat] ring annotated with coverageIndex, facilityCount and
// severity. Cells whose geometry cannot be built are skipped.
func (b *Builder) Polygons(cells []HexCell) *geojson.FeatureCollection {
	return MeshToPolygons(b.index, cells)
}

// MeshToPolygons exports cells using the given index for cell geometry.
func MeshToPolygons(index CellIndex, cells []HexCell) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(cells))}
	for _, c := range cells {
		poly, err := cellPolygon(index, c.Cell)
		if err != nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       c.ID,
			Geometry: poly,
			Properties: map[string]interface{}{
				PropCoverageIndex: c.CoverageIndex,
				PropFacilityCount: c.FacilityCount,
				PropSeverity:      c.Severity(),
			},
		})
	}
	return fc
}

// Style adds color, fillOpacity and borderOpacity to every feature for the
// given presentation mode, reading each feature's coverageIndex.
func Style(fc *geojson.FeatureCollection, mode severity.Mode) *geojson.FeatureCollection {
	if fc == nil {
		return nil
	}
	for _, f := range fc.Features {
		ci, _ := f.Properties[PropCoverageIndex].(float64)
		st := severity.For(mode, ci)
		f.Properties["color"] = st.Color
		f.Properties["fillOpacity"] = st.FillOpacity
		f.Properties["borderOpacity"] = st.BorderOpacity
	}
	return fc
}

func cellPolygon(index CellIndex, c Cell) (*geom.Polygon, error) {
	verts := index.BoundaryOf(c)
	if len(verts) < 3 {
		return nil, eris.Errorf("mesh: cell %s has %d vertices", index.Key(c), len(verts))
	}
	ring := make([]geom.Coord, 0, len(verts)+1)
	for _, v := range verts {
		ring = append(ring, geom.Coord{v.Lon, v.Lat})
	}
	ring = append(ring, geom.Coord{verts[0].Lon, verts[0].Lat})

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return nil, eris.Wrap(err, "mesh: build cell polygon")
	}
	return poly, nil
}
