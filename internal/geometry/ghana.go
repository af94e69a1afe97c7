package geometry

// GhanaRing is a simplified [lat, lon] outline of Ghana, walked clockwise from
// the south-western coast. Coastal vertices sit roughly 0.05-0.1 degrees inland
// of the true shoreline so that hex centres near the coast are not taken for
// ocean; the land borders follow the true line closely.
var GhanaRing = [][2]float64{
	{5.15, -3.02},
	{5.00, -2.75},
	{4.92, -2.35},
	{4.82, -2.05},
	{4.95, -1.70},
	{5.12, -1.25},
	{5.32, -0.80},
	{5.50, -0.35},
	{5.58, 0.00},
	{5.72, 0.45},
	{5.85, 0.85},
	{6.05, 1.12},
	{6.45, 0.95},
	{6.95, 0.60},
	{7.50, 0.55},
	{8.00, 0.55},
	{8.50, 0.45},
	{9.00, 0.45},
	{9.50, 0.30},
	{10.00, 0.30},
	{10.50, 0.35},
	{11.00, 0.05},
	{11.05, -0.40},
	{10.95, -0.70},
	{11.05, -1.20},
	{10.95, -2.00},
	{10.95, -2.75},
	{10.50, -2.85},
	{10.00, -2.75},
	{9.50, -2.70},
	{9.00, -2.70},
	{8.20, -2.85},
	{7.80, -2.95},
	{7.20, -3.15},
	{6.60, -3.15},
	{6.00, -3.15},
	{5.60, -3.00},
}

// GhanaCenter is the approximate geographic centre of Ghana.
var GhanaCenter = LatLon{Lat: 7.95, Lon: -1.03}

// Ghana is the prebuilt boundary for GhanaRing.
var Ghana = MustBoundary(GhanaRing)
