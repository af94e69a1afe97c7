// Package geometry holds the numeric, colour and boundary primitives shared by
// the mesh, severity and clustering packages.
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is a colour with 8-bit channels.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Stop is a colour anchored at position T in [0, 1].
type Stop struct {
	T     float64
	Color RGB
}

// Clamp restricts v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp interpolates between a and b. t is clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	t = Clamp(t, 0, 1)
	return a + (b-a)*t
}

// HexToRGB parses "#rrggbb" or "rrggbb". Shorthand "#rgb" is expanded.
// Unparseable input yields black.
func HexToRGB(hex string) RGB {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// RGBToHex formats c as lowercase "#rrggbb".
func RGBToHex(c RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Hex is shorthand for RGBToHex.
func (c RGB) Hex() string { return RGBToHex(c) }

// MustStops builds a stop list from alternating position/hex pairs in order.
func MustStops(pairs ...any) []Stop {
	if len(pairs)%2 != 0 {
		panic("geometry: MustStops needs position/colour pairs")
	}
	stops := make([]Stop, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		t, ok := pairs[i].(float64)
		if !ok {
			panic(fmt.Sprintf("geometry: stop %d position is %T, want float64", i/2, pairs[i]))
		}
		hex, ok := pairs[i+1].(string)
		if !ok {
			panic(fmt.Sprintf("geometry: stop %d colour is %T, want string", i/2, pairs[i+1]))
		}
		stops = append(stops, Stop{T: t, Color: HexToRGB(hex)})
	}
	return stops
}

// InterpolateStops returns the colour at value along an ordered stop list.
//
// value is clamped to [0, 1]. Each channel is interpolated linearly between
// the bracketing stops, so the result never overshoots either of them. A list
// with fewer than two stops is a configuration error: a single stop is
// returned as-is and an empty list yields black.
func InterpolateStops(stops []Stop, value float64) RGB {
	switch len(stops) {
	case 0:
		return RGB{}
	case 1:
		return stops[0].Color
	}

	value = Clamp(value, 0, 1)
	if value <= stops[0].T {
		return stops[0].Color
	}

	for i := 0; i < len(stops)-1; i++ {
		s, e := stops[i], stops[i+1]
		if value < s.T || value > e.T {
			continue
		}
		span := e.T - s.T
		if span <= 0 {
			return e.Color
		}
		t := (value - s.T) / span
		return RGB{
			R: channel(s.Color.R, e.Color.R, t),
			G: channel(s.Color.G, e.Color.G, t),
			B: channel(s.Color.B, e.Color.B, t),
		}
	}

	return stops[len(stops)-1].Color
}

func channel(a, b uint8, t float64) uint8 {
	return uint8(math.Round(Lerp(float64(a), float64(b), t)))
}
