package engine

import (
	"math"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/mesh"
)

// Grid parameters for CoverageGrid.
const (
	GridStepDeg     = 0.25
	GridRadiusKM    = 50.0
	GridSaturation  = 10
	gridMinLat      = 4.5
	gridMaxLat      = 11.5
	gridMinLon      = -3.5
	gridMaxLon      = 1.5
	coverageDecimal = 1000
)

// CoverageGrid samples Ghana's bounding box every GridStepDeg degrees and
// counts hospitals and clinics within GridRadiusKM of each sample. The
// coverage index saturates at GridSaturation facilities.
func CoverageGrid(located []facility.Located) []mesh.CoverageSample {
	var sites []geometry.LatLon
	for _, l := range located {
		if l.IsCareSite() {
			sites = append(sites, l.Position)
		}
	}

	rows := int(math.Round((gridMaxLat-gridMinLat)/GridStepDeg)) + 1
	cols := int(math.Round((gridMaxLon-gridMinLon)/GridStepDeg)) + 1
	out := make([]mesh.CoverageSample, 0, rows*cols)
	for i := 0; i < rows; i++ {
		lat := gridMinLat + float64(i)*GridStepDeg
		for j := 0; j < cols; j++ {
			lon := gridMinLon + float64(j)*GridStepDeg
			count := 0
			for _, s := range sites {
				if geometry.HaversineKM(lat, lon, s.Lat, s.Lon) <= GridRadiusKM {
					count++
				}
			}
			index := math.Min(float64(count)/GridSaturation, 1)
			out = append(out, mesh.CoverageSample{
				Lat:           lat,
				Lon:           lon,
				CoverageIndex: math.Round(index*coverageDecimal) / coverageDecimal,
				FacilityCount: count,
			})
		}
	}
	return out
}
