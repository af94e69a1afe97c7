package facility

import (
	"unicode/utf16"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
)

// JitterDeg bounds how far a pseudo-coordinate strays from its centroid.
const JitterDeg = 0.25

// Hash is the 31-multiplier string hash over UTF-16 code units, folded to
// a non-negative value. Characters outside the Basic Multilingual Plane
// contribute both surrogates, so pseudo-coordinates match those computed
// by browser clients. It is stable across runs and platforms.
func Hash(s string) uint32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(u)
	}
	if h < 0 {
		// -MinInt32 overflows back to itself; its magnitude fits in uint32.
		return uint32(-int64(h))
	}
	return uint32(h)
}

// PseudoCoordinate places a record deterministically near center using a
// hash of its id and region. The same inputs always yield the same point,
// within JitterDeg of center on each axis.
func PseudoCoordinate(id, region string, center geometry.LatLon) geometry.LatLon {
	h := Hash(id + "|" + region)
	u := float64(h%1000) / 999
	v := float64((h/1000)%1000) / 999
	return geometry.LatLon{
		Lat: center.Lat + (u*2-1)*JitterDeg,
		Lon: center.Lon + (v*2-1)*JitterDeg,
	}
}

// Confidence maps id and topic onto the repeatable range [0.52, 0.91].
func Confidence(id, topic string) float64 {
	return 0.52 + float64(Hash(id+topic)%40)/100
}
