// Package engine composes the pure geospatial components into the
// operations served to callers: mesh layers, cluster frames, insights and
// highlight resolution over one loaded snapshot of facility data.
package engine

import (
	"context"
	"errors"
	"io/fs"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/cluster"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/geometry"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/insight"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/mesh"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/resolve"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/severity"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/store"
)

// Config tunes the engine's components.
type Config struct {
	Resolution    int
	SampleSpacing float64 // degrees; zero estimates it from the samples
	Rings         int     // zero derives the ring count from spacing
	Cluster       cluster.Config
	Insight       insight.Options
	PanelInsight  insight.Options
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Resolution:    5,
		SampleSpacing: GridStepDeg,
		Cluster:       cluster.DefaultConfig(),
		Insight:       insight.DefaultOptions(),
		PanelInsight:  insight.PanelOptions(),
	}
}

// Engine runs the derivations. It holds configuration only.
type Engine struct {
	cfg      Config
	index    mesh.CellIndex
	boundary *geometry.Boundary
}

// New creates an Engine over H3 cells and the Ghana boundary.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, index: mesh.H3Index{}, boundary: geometry.Ghana}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) builder() *mesh.Builder {
	opts := []mesh.Option{mesh.WithSampleSpacing(e.cfg.SampleSpacing)}
	if e.cfg.Rings > 0 {
		opts = append(opts, mesh.WithRings(e.cfg.Rings))
	}
	return mesh.NewBuilder(e.index, e.boundary, opts...)
}

// Snapshot is one immutable load of facility and analysis data.
type Snapshot struct {
	Records  []facility.Record
	Located  []facility.Located
	Analysis *store.Analysis
	Regions  *facility.Table

	byKey map[string]int
}

// NewSnapshot dedupes records and resolves their positions. A nil analysis
// or region table is replaced with an empty analysis and the default table.
func NewSnapshot(records []facility.Record, analysis *store.Analysis, regions *facility.Table) *Snapshot {
	if analysis == nil {
		analysis = &store.Analysis{}
	}
	if regions == nil {
		regions = facility.Default()
	}
	records = facility.Dedupe(records)
	s := &Snapshot{
		Records:  records,
		Located:  regions.LocateAll(records),
		Analysis: analysis,
		Regions:  regions,
		byKey:    make(map[string]int, len(records)),
	}
	for i, r := range records {
		if _, dup := s.byKey[r.Key()]; !dup {
			s.byKey[r.Key()] = i
		}
	}
	return s
}

// Load reads facilities from src and the analysis file concurrently. A
// missing analysis file is not an error; derivations then fall back to
// values computed from the facilities.
func Load(ctx context.Context, src store.Source, analysisPath string, regions *facility.Table) (*Snapshot, error) {
	var (
		records  []facility.Record
		analysis *store.Analysis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = src.Facilities(gctx)
		return err
	})
	g.Go(func() error {
		if analysisPath == "" {
			return nil
		}
		a, err := store.LoadAnalysis(analysisPath)
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("engine: analysis file missing, deriving from facilities",
				zap.String("path", analysisPath))
			return nil
		}
		if err != nil {
			return err
		}
		analysis = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: load snapshot")
	}

	s := NewSnapshot(records, analysis, regions)
	zap.L().Info("engine: snapshot loaded",
		zap.Int("facilities", len(s.Records)),
		zap.Int("duplicates_dropped", len(records)-len(s.Records)),
	)
	return s, nil
}

// Facility returns the record with the given key.
func (s *Snapshot) Facility(key string) (facility.Record, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return facility.Record{}, false
	}
	return s.Records[i], true
}

// CoverageSamples returns the analysis coverage grid, or one computed from
// the facilities when the analysis has none.
func (s *Snapshot) CoverageSamples() []mesh.CoverageSample {
	if len(s.Analysis.CoverageGrid) > 0 {
		return s.Analysis.CoverageGrid
	}
	return CoverageGrid(s.Located)
}

// Distribution returns the analysis specialty distribution, or one built
// from the facilities.
func (s *Snapshot) Distribution() insight.SpecialtyDistribution {
	if len(s.Analysis.SpecialtyDistribution) > 0 {
		return s.Analysis.SpecialtyDistribution
	}
	return insight.BuildSpecialtyDistribution(s.Records)
}

// Population returns the analysis region populations, or the region
// table's.
func (s *Snapshot) Population() map[string]int {
	if len(s.Analysis.RegionPopulation) > 0 {
		return s.Analysis.RegionPopulation
	}
	return s.Regions.Populations()
}

// RegionStats returns the analysis region stats, or ones computed from the
// facilities.
func (s *Snapshot) RegionStats() map[string]insight.RegionStat {
	if len(s.Analysis.RegionStats) > 0 {
		return s.Analysis.RegionStats
	}
	return insight.RegionStats(s.Records, s.Population(), s.Regions)
}

// Mesh builds the coverage mesh for the snapshot.
func (e *Engine) Mesh(s *Snapshot) []mesh.HexCell {
	return e.builder().Build(s.CoverageSamples(), e.cfg.Resolution)
}

// MeshFeatures exports cells as styled GeoJSON for mode.
func (e *Engine) MeshFeatures(cells []mesh.HexCell, mode severity.Mode) *geojson.FeatureCollection {
	return mesh.Style(e.builder().Polygons(cells), mode)
}

// Clusters clusters the snapshot's facilities at zoom, rendering every
// highlighted facility individually.
func (e *Engine) Clusters(s *Snapshot, zoom int, highlight *resolve.HighlightSet) *cluster.Result {
	return cluster.Facilities(s.Located, zoom, highlight.Set(), e.cfg.Cluster)
}

// ClustersWithin is Clusters limited to the nodes inside the viewport.
func (e *Engine) ClustersWithin(s *Snapshot, view orb.Bound, zoom int, highlight *resolve.HighlightSet) *cluster.Result {
	return cluster.FacilitiesWithin(s.Located, view, zoom, highlight.Set(), e.cfg.Cluster)
}

// RegionInsights ranks the region/specialty coverage gaps.
func (e *Engine) RegionInsights(s *Snapshot) []insight.Insight {
	opts := e.cfg.Insight
	opts.Regions = s.Regions
	return insight.GenerateRegionInsights(s.Distribution(), s.Population(), s.Records, opts)
}

// FacilityInsights returns the panel for one facility: its anomalies
// followed by the gaps in its region.
func (e *Engine) FacilityInsights(s *Snapshot, key string) ([]insight.Insight, bool) {
	f, ok := s.Facility(key)
	if !ok {
		return nil, false
	}
	dist, pop := s.Distribution(), s.Population()

	// Every gap is scored before the panel filters to the facility's region;
	// the panel limit applies only afterwards.
	opts := e.cfg.PanelInsight
	opts.Regions = s.Regions
	opts.MaxResults = max(len(dist)*len(pop), 1)
	gaps := insight.GenerateRegionInsights(dist, pop, s.Records, opts)

	limit := e.cfg.PanelInsight.MaxResults
	if limit <= 0 {
		limit = insight.PanelOptions().MaxResults
	}
	return insight.Panel(f, gaps, limit, s.Regions), true
}

// Highlight resolves free-text facility names against the snapshot,
// returning the highlight set and the match behind each resolved name.
func (e *Engine) Highlight(s *Snapshot, names []string) (*resolve.HighlightSet, []resolve.Match) {
	set, matches := resolve.ResolveHighlightedFacilities(names, s.Records)
	zap.L().Debug("engine: highlight resolved",
		zap.Int("names", len(names)),
		zap.Int("highlighted", set.Len()),
	)
	return set, matches
}

// Derived bundles the independent derivations of one snapshot.
type Derived struct {
	Cells          []mesh.HexCell
	RegionInsights []insight.Insight
	Distribution   insight.SpecialtyDistribution
	RegionStats    map[string]insight.RegionStat
}

// Derive computes the mesh, region insights, distribution and region stats
// concurrently. Every derivation is pure so they share the snapshot.
func (e *Engine) Derive(ctx context.Context, s *Snapshot) (*Derived, error) {
	var d Derived

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		d.Cells = e.Mesh(s)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		d.RegionInsights = e.RegionInsights(s)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		d.Distribution = s.Distribution()
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		d.RegionStats = s.RegionStats()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: derive")
	}

	zap.L().Info("engine: derived",
		zap.Int("cells", len(d.Cells)),
		zap.Int("region_insights", len(d.RegionInsights)),
		zap.Int("specialties", len(d.Distribution)),
	)
	return &d, nil
}
