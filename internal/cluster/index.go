// Package cluster groups facility markers into zoom-dependent clusters using
// the supercluster scheme: points are projected to unit Web Mercator space
// and greedily merged level by level from the deepest zoom upward.
package cluster

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Options controls the clustering hierarchy.
type Options struct {
	MinZoom   int     // shallowest level clustered
	MaxZoom   int     // deepest level clustered; leaves live one below
	MinPoints int     // minimum points to form a cluster
	Radius    float64 // cluster radius in pixels
	Extent    float64 // tile extent the radius is measured against
}

// DefaultOptions mirrors the marker layer defaults.
func DefaultOptions() Options {
	return Options{MinZoom: 0, MaxZoom: 16, MinPoints: 2, Radius: 60, Extent: 512}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxZoom <= 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.MinZoom < 0 || o.MinZoom > o.MaxZoom {
		o.MinZoom = 0
	}
	if o.MinPoints < 2 {
		o.MinPoints = d.MinPoints
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.Extent <= 0 {
		o.Extent = d.Extent
	}
	return o
}

// Input is one point to cluster. Ref is returned unchanged on leaf nodes.
type Input struct {
	Lat, Lon float64
	Ref      int
}

// Node is a leaf or an aggregate at one zoom level.
type Node struct {
	ID         int     `json:"id"`
	Cluster    bool    `json:"cluster"`
	PointCount int     `json:"pointCount"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Ref        int     `json:"-"`
}

type point struct {
	x, y      float64
	id        int
	numPoints int
	ref       int
	visited   int
}

// Index is an immutable clustering hierarchy over a fixed point set.
type Index struct {
	opts     Options
	levels   [][]point // levels[z] holds the nodes visible at zoom z
	children map[int][]point
	origin   map[int]int // cluster id -> level its children live on
	leaves   int
}

// NewIndex clusters the inputs. Leaf ids are input positions; aggregate ids
// follow them.
func NewIndex(inputs []Input, opts Options) *Index {
	opts = opts.normalized()
	idx := &Index{
		opts:     opts,
		levels:   make([][]point, opts.MaxZoom+2),
		children: make(map[int][]point),
		origin:   make(map[int]int),
		leaves:   len(inputs),
	}

	leaves := make([]point, len(inputs))
	for i, in := range inputs {
		leaves[i] = point{
			x:         lngX(in.Lon),
			y:         latY(in.Lat),
			id:        i,
			numPoints: 1,
			ref:       in.Ref,
			visited:   math.MaxInt,
		}
	}
	idx.levels[opts.MaxZoom+1] = leaves

	next := len(inputs)
	for z := opts.MaxZoom; z >= opts.MinZoom; z-- {
		idx.levels[z] = idx.clusterLevel(idx.levels[z+1], z, &next)
	}
	return idx
}

func (idx *Index) clusterLevel(src []point, zoom int, next *int) []point {
	r := idx.opts.Radius / (idx.opts.Extent * math.Pow(2, float64(zoom)))
	grid := newGrid(src, r)
	out := make([]point, 0, len(src))

	for i := range src {
		p := &src[i]
		if p.visited <= zoom {
			continue
		}
		p.visited = zoom

		neighbors := grid.within(src, p.x, p.y, r)
		total := p.numPoints
		for _, j := range neighbors {
			if src[j].visited > zoom {
				total += src[j].numPoints
			}
		}

		if total > p.numPoints && total >= idx.opts.MinPoints {
			id := *next
			*next++
			wx := p.x * float64(p.numPoints)
			wy := p.y * float64(p.numPoints)
			members := []point{*p}
			for _, j := range neighbors {
				b := &src[j]
				if b.visited <= zoom {
					continue
				}
				b.visited = zoom
				wx += b.x * float64(b.numPoints)
				wy += b.y * float64(b.numPoints)
				members = append(members, *b)
			}
			idx.children[id] = members
			idx.origin[id] = zoom + 1
			out = append(out, point{
				x: wx / float64(total), y: wy / float64(total),
				id: id, numPoints: total, ref: -1, visited: math.MaxInt,
			})
			continue
		}

		out = append(out, fresh(*p))
		if total > 1 {
			for _, j := range neighbors {
				b := &src[j]
				if b.visited <= zoom {
					continue
				}
				b.visited = zoom
				out = append(out, fresh(*b))
			}
		}
	}
	return out
}

func fresh(p point) point {
	p.visited = math.MaxInt
	return p
}

// Options returns the normalised options the index was built with.
func (idx *Index) Options() Options { return idx.opts }

func (idx *Index) limitZoom(z int) int {
	if z < idx.opts.MinZoom {
		return idx.opts.MinZoom
	}
	if z > idx.opts.MaxZoom+1 {
		return idx.opts.MaxZoom + 1
	}
	return z
}

// Clusters returns every node visible at zoom.
func (idx *Index) Clusters(zoom int) []Node {
	level := idx.levels[idx.limitZoom(zoom)]
	out := make([]Node, 0, len(level))
	for _, p := range level {
		out = append(out, idx.node(p))
	}
	return out
}

// ClustersWithin returns the nodes visible at zoom whose position lies in b.
func (idx *Index) ClustersWithin(b orb.Bound, zoom int) []Node {
	var out []Node
	for _, n := range idx.Clusters(zoom) {
		if b.Contains(orb.Point{n.Lon, n.Lat}) {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the nodes an aggregate splits into one level deeper. A
// leaf or unknown id has none.
func (idx *Index) Children(id int) []Node {
	members := idx.children[id]
	out := make([]Node, 0, len(members))
	for _, p := range members {
		out = append(out, idx.node(p))
	}
	return out
}

// Leaves returns the input refs under id, in clustering order.
func (idx *Index) Leaves(id int) []int {
	if !idx.IsCluster(id) {
		if id >= 0 && id < idx.leaves {
			return []int{idx.levels[idx.opts.MaxZoom+1][id].ref}
		}
		return nil
	}
	var refs []int
	for _, c := range idx.children[id] {
		refs = append(refs, idx.Leaves(c.id)...)
	}
	return refs
}

// IsCluster reports whether id names an aggregate.
func (idx *Index) IsCluster(id int) bool {
	_, ok := idx.children[id]
	return ok
}

// ExpansionZoom returns the shallowest zoom at which the aggregate splits
// into its children, capped at MaxZoom+1 where every leaf is separate.
// Leaves and unknown ids return the cap.
func (idx *Index) ExpansionZoom(id int) int {
	limit := idx.opts.MaxZoom + 1
	origin, ok := idx.origin[id]
	if !ok || origin > limit {
		return limit
	}
	return origin
}

func (idx *Index) node(p point) Node {
	return Node{
		ID:         p.id,
		Cluster:    idx.IsCluster(p.id),
		PointCount: p.numPoints,
		Lat:        yLat(p.y),
		Lon:        xLng(p.x),
		Ref:        p.ref,
	}
}

// grid buckets points into square cells of side r for radius queries.
type grid struct {
	size  float64
	cells map[[2]int][]int
}

func newGrid(points []point, r float64) *grid {
	g := &grid{size: r, cells: make(map[[2]int][]int)}
	for i, p := range points {
		k := g.key(p.x, p.y)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) key(x, y float64) [2]int {
	return [2]int{int(math.Floor(x / g.size)), int(math.Floor(y / g.size))}
}

// within returns indices of points within r of (x, y), in input order.
func (g *grid) within(points []point, x, y, r float64) []int {
	k := g.key(x, y)
	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, i := range g.cells[[2]int{k[0] + dx, k[1] + dy}] {
				px, py := points[i].x-x, points[i].y-y
				if px*px+py*py <= r*r {
					out = append(out, i)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

// Spherical Mercator projection onto the unit square.

func lngX(lng float64) float64 {
	return lng/360 + 0.5
}

func latY(lat float64) float64 {
	s := math.Sin(lat * math.Pi / 180)
	y := 0.5 - 0.25*math.Log((1+s)/(1-s))/math.Pi
	switch {
	case y < 0:
		return 0
	case y > 1:
		return 1
	default:
		return y
	}
}

func xLng(x float64) float64 {
	return (x - 0.5) * 360
}

func yLat(y float64) float64 {
	y2 := (180 - y*360) * math.Pi / 180
	return 360*math.Atan(math.Exp(y2))/math.Pi - 90
}
