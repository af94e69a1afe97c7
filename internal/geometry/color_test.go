package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
}

func TestLerp_ClampsT(t *testing.T) {
	assert.InDelta(t, 5.0, Lerp(0, 10, 0.5), 1e-9)
	assert.InDelta(t, 0.0, Lerp(0, 10, -3), 1e-9)
	assert.InDelta(t, 10.0, Lerp(0, 10, 7), 1e-9)
}

func TestHexRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want RGB
		out  string
	}{
		{"#dc2626", RGB{220, 38, 38}, "#dc2626"},
		{"14B8A6", RGB{20, 184, 166}, "#14b8a6"},
		{"#fff", RGB{255, 255, 255}, "#ffffff"},
		{"not-a-colour", RGB{}, "#000000"},
		{"", RGB{}, "#000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := HexToRGB(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.out, RGBToHex(got))
		})
	}
}

func TestInterpolateStops_Endpoints(t *testing.T) {
	stops := MustStops(0.0, "#000000", 0.5, "#808080", 1.0, "#ffffff")

	assert.Equal(t, "#000000", InterpolateStops(stops, 0).Hex())
	assert.Equal(t, "#808080", InterpolateStops(stops, 0.5).Hex())
	assert.Equal(t, "#ffffff", InterpolateStops(stops, 1).Hex())
	assert.Equal(t, "#000000", InterpolateStops(stops, -4).Hex())
	assert.Equal(t, "#ffffff", InterpolateStops(stops, 9).Hex())
}

func TestInterpolateStops_Midpoint(t *testing.T) {
	stops := MustStops(0.0, "#000000", 1.0, "#c864ff")
	got := InterpolateStops(stops, 0.5)
	assert.Equal(t, RGB{100, 50, 128}, got)
}

func TestInterpolateStops_LastStopBelowOne(t *testing.T) {
	stops := MustStops(0.0, "#000000", 0.8, "#ff0000")
	assert.Equal(t, "#ff0000", InterpolateStops(stops, 0.95).Hex())
}

func TestInterpolateStops_Degenerate(t *testing.T) {
	assert.Equal(t, RGB{}, InterpolateStops(nil, 0.3))
	single := MustStops(0.4, "#123456")
	assert.Equal(t, "#123456", InterpolateStops(single, 0.9).Hex())
}

func TestInterpolateStops_NoOvershoot(t *testing.T) {
	stops := MustStops(
		0.0, "#dc2626",
		0.25, "#f97316",
		0.5, "#facc15",
		0.75, "#22c55e",
		1.0, "#14b8a6",
	)
	within := func(v, a, b uint8) bool {
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		return v >= lo && v <= hi
	}
	for i := 0; i <= 1000; i++ {
		v := float64(i) / 1000
		got := InterpolateStops(stops, v)

		var s, e Stop
		for k := 0; k < len(stops)-1; k++ {
			if v >= stops[k].T && v <= stops[k+1].T {
				s, e = stops[k], stops[k+1]
				break
			}
		}
		assert.Truef(t, within(got.R, s.Color.R, e.Color.R), "R overshoot at %.3f", v)
		assert.Truef(t, within(got.G, s.Color.G, e.Color.G), "G overshoot at %.3f", v)
		assert.Truef(t, within(got.B, s.Color.B, e.Color.B), "B overshoot at %.3f", v)
	}
}

func TestMustStops_PanicsOnOddPairs(t *testing.T) {
	assert.Panics(t, func() { MustStops(0.0) })
	assert.Panics(t, func() { MustStops(0, "#fff") })
}
