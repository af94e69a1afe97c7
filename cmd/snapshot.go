package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/cluster"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/config"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/engine"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/insight"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/store"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/pkg/chat"
)

// engineConfig maps the loaded configuration onto the engine's settings.
func engineConfig(c *config.Config) engine.Config {
	ec := engine.DefaultConfig()
	ec.Resolution = c.Mesh.Resolution
	ec.SampleSpacing = c.Mesh.SampleSpacingDeg
	ec.Rings = c.Mesh.Rings

	ec.Cluster = cluster.Config{
		Options: cluster.Options{
			MinZoom:   0,
			MaxZoom:   c.Cluster.MaxZoom,
			MinPoints: c.Cluster.MinPoints,
			Radius:    c.Cluster.Radius,
			Extent:    c.Cluster.Extent,
		},
		HighlightRadius: c.Cluster.HighlightRadius,
		FitPadding:      c.Cluster.FitPadding,
	}

	ec.Insight = insightOptions(c.Insight, c.Insight.MaxRegionInsights)
	ec.PanelInsight = insightOptions(c.Insight, c.Insight.MaxPanelInsights)
	return ec
}

func insightOptions(ic config.InsightConfig, maxResults int) insight.Options {
	o := insight.DefaultOptions()
	o.MaxResults = maxResults
	o.CountThreshold = ic.CountThreshold
	o.PopulationThreshold = ic.PopulationThreshold
	o.MinScore = ic.MinScore
	o.MaxScore = ic.MaxScore
	return o
}

// openSource returns the facility source named by the data config. The
// returned close func releases the database pool when one was opened.
func openSource(ctx context.Context, dc config.DataConfig) (store.Source, func(), error) {
	if dc.DatabaseURL == "" {
		return store.FileSource{Path: dc.FacilitiesPath}, func() {}, nil
	}

	pg, err := store.NewPostgres(ctx, dc.DatabaseURL, &store.PoolConfig{MaxConns: dc.MaxConns})
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("using postgres facility store")
	return pg, func() {
		if err := pg.Close(); err != nil {
			zap.L().Warn("close postgres store", zap.Error(err))
		}
	}, nil
}

// loadSnapshot reads facilities, the analysis file and the region table
// named by the data config.
func loadSnapshot(ctx context.Context, dc config.DataConfig) (*engine.Snapshot, error) {
	regions, err := store.RegionTable(dc.RegionsPath)
	if err != nil {
		return nil, err
	}

	src, closeSrc, err := openSource(ctx, dc)
	if err != nil {
		return nil, eris.Wrap(err, "open facility source")
	}
	defer closeSrc()

	return engine.Load(ctx, src, dc.AnalysisPath, regions)
}

// newChatClient returns nil when no chat backend is configured.
func newChatClient(cc config.ChatConfig) chat.Client {
	if cc.BaseURL == "" {
		return nil
	}
	opts := []chat.Option{
		chat.WithRateLimit(cc.RateLimit),
		chat.WithBreaker(cc.BreakerThreshold, cc.BreakerReset),
	}
	if cc.TimeoutSecs > 0 {
		opts = append(opts, chat.WithTimeout(time.Duration(cc.TimeoutSecs)*time.Second))
	}
	return chat.NewClient(cc.BaseURL, opts...)
}

// writeJSONFile writes v to the file at path. The close error is returned
// since a failed close can lose buffered output.
func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	return writeAndClose(f, path, v)
}

func writeAndClose(wc io.WriteCloser, name string, v any) error {
	if err := writeJSONTo(wc, v); err != nil {
		wc.Close() //nolint:errcheck
		return err
	}
	if err := wc.Close(); err != nil {
		return eris.Wrapf(err, "close %s", name)
	}
	return nil
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}
