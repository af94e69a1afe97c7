package cluster

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

// minFitSpanDeg keeps a fit box around a single highlighted point from
// collapsing to zero area.
const minFitSpanDeg = 0.05

// Config holds the adapter settings on top of the index options.
type Config struct {
	Options
	HighlightRadius float64 // radius used while a highlight set is active
	FitPadding      float64 // fraction of the highlight span added per side
}

// DefaultConfig returns the marker layer defaults.
func DefaultConfig() Config {
	return Config{Options: DefaultOptions(), HighlightRadius: 40, FitPadding: 0.3}
}

// FacilityNode is a cluster node with its facility attached when it is a leaf.
type FacilityNode struct {
	Node
	Facility *facility.Located `json:"facility,omitempty"`
}

// Result is the render set for one zoom level.
type Result struct {
	Clusters       []FacilityNode     `json:"clusters"`
	AlwaysRendered []facility.Located `json:"alwaysRendered"`
	Fit            *Bounds            `json:"fit,omitempty"`

	index     *Index
	clustered []facility.Located
}

// ExpansionZoom returns the zoom at which the aggregate id splits.
func (r *Result) ExpansionZoom(id int) int {
	if r.index == nil {
		return DefaultOptions().MaxZoom + 1
	}
	return r.index.ExpansionZoom(id)
}

// Members returns the facilities folded into the aggregate id. Leaf and
// unknown ids have none.
func (r *Result) Members(id int) []facility.Located {
	if r.index == nil || !r.index.IsCluster(id) {
		return nil
	}
	refs := r.index.Leaves(id)
	out := make([]facility.Located, 0, len(refs))
	for _, ref := range refs {
		out = append(out, r.clustered[ref])
	}
	return out
}

// Facilities clusters the located facilities for zoom. Facilities whose Key
// is in highlighted never enter the index: they are returned in
// AlwaysRendered at every zoom, and Fit covers just them. An active highlight
// set tightens the clustering radius.
func Facilities(records []facility.Located, zoom int, highlighted map[string]struct{}, cfg Config) *Result {
	return build(records, zoom, highlighted, cfg, nil)
}

// FacilitiesWithin is Facilities restricted to the nodes whose position lies
// in view. Highlighted facilities are always rendered, inside view or not.
func FacilitiesWithin(records []facility.Located, view orb.Bound, zoom int, highlighted map[string]struct{}, cfg Config) *Result {
	return build(records, zoom, highlighted, cfg, &view)
}

func build(records []facility.Located, zoom int, highlighted map[string]struct{}, cfg Config, view *orb.Bound) *Result {
	opts := cfg.Options
	if len(highlighted) > 0 && cfg.HighlightRadius > 0 {
		opts.Radius = cfg.HighlightRadius
	}

	res := &Result{
		Clusters:       []FacilityNode{},
		AlwaysRendered: []facility.Located{},
	}
	var inputs []Input
	for _, f := range records {
		if _, ok := highlighted[f.Key()]; ok {
			res.AlwaysRendered = append(res.AlwaysRendered, f)
			continue
		}
		inputs = append(inputs, Input{Lat: f.Position.Lat, Lon: f.Position.Lon, Ref: len(res.clustered)})
		res.clustered = append(res.clustered, f)
	}

	res.index = NewIndex(inputs, opts)
	var nodes []Node
	if view != nil {
		nodes = res.index.ClustersWithin(*view, zoom)
	} else {
		nodes = res.index.Clusters(zoom)
	}
	for _, n := range nodes {
		fn := FacilityNode{Node: n}
		if !n.Cluster {
			f := res.clustered[n.Ref]
			fn.Facility = &f
		}
		res.Clusters = append(res.Clusters, fn)
	}

	if b, ok := HighlightBounds(res.AlwaysRendered, cfg.FitPadding); ok {
		res.Fit = &b
	}

	zap.L().Debug("cluster: built",
		zap.Int("zoom", zoom),
		zap.Int("facilities", len(records)),
		zap.Int("highlighted", len(res.AlwaysRendered)),
		zap.Int("nodes", len(res.Clusters)),
		zap.Float64("radius", opts.Radius),
		zap.Bool("viewport", view != nil),
	)
	return res
}

// Bounds is a south-west / north-east box in the [lat, lon] order map
// widgets expect.
type Bounds struct {
	SouthWest [2]float64 `json:"southWest"`
	NorthEast [2]float64 `json:"northEast"`
}

// HighlightBounds returns the box to fit the map to: the bounds of the
// highlighted facilities, grown by padding times the span on each side. It
// reports false for an empty set.
func HighlightBounds(highlighted []facility.Located, padding float64) (Bounds, bool) {
	if len(highlighted) == 0 {
		return Bounds{}, false
	}
	mp := make(orb.MultiPoint, 0, len(highlighted))
	for _, f := range highlighted {
		mp = append(mp, orb.Point{f.Position.Lon, f.Position.Lat})
	}
	b := PadBound(mp.Bound(), padding)
	return Bounds{
		SouthWest: [2]float64{b.Bottom(), b.Left()},
		NorthEast: [2]float64{b.Top(), b.Right()},
	}, true
}

// PadBound grows b by ratio of its width and height on each side. Degenerate
// spans are first widened to minFitSpanDeg.
func PadBound(b orb.Bound, ratio float64) orb.Bound {
	if ratio < 0 {
		ratio = 0
	}
	w, h := b.Right()-b.Left(), b.Top()-b.Bottom()
	if w < minFitSpanDeg || h < minFitSpanDeg {
		b = b.Pad(minFitSpanDeg / 2)
		w, h = b.Right()-b.Left(), b.Top()-b.Bottom()
	}
	dx, dy := w*ratio, h*ratio
	return orb.Bound{
		Min: orb.Point{b.Left() - dx, b.Bottom() - dy},
		Max: orb.Point{b.Right() + dx, b.Top() + dy},
	}
}
