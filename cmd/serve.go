package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/api"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/engine"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mesh, cluster and insight HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		snap, err := loadSnapshot(ctx, cfg.Data)
		if err != nil {
			return err
		}

		metrics, err := api.NewMetrics(nil)
		if err != nil {
			return eris.Wrap(err, "register metrics")
		}

		var cache *api.Cache
		if cfg.Cache.MaxEntries > 0 {
			cache = api.NewCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		}

		e := engine.New(engineConfig(cfg))
		if err := warmSnapshot(ctx, e, snap); err != nil {
			return err
		}

		server := api.NewServer(e, snap, api.Options{
			Cache:       cache,
			Metrics:     metrics,
			Chat:        newChatClient(cfg.Chat),
			CORSOrigins: cfg.Server.CORSOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("facilities", len(snap.Records)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// warmSnapshot runs every derivation once before serving so a snapshot
// that cannot be derived fails at startup, and logs what it produced.
func warmSnapshot(ctx context.Context, e *engine.Engine, snap *engine.Snapshot) error {
	d, err := e.Derive(ctx, snap)
	if err != nil {
		return eris.Wrap(err, "warm snapshot")
	}
	top := ""
	if len(d.RegionInsights) > 0 {
		top = d.RegionInsights[0].Title
	}
	zap.L().Info("snapshot warmed",
		zap.Int("cells", len(d.Cells)),
		zap.Int("region_insights", len(d.RegionInsights)),
		zap.Int("regions", len(d.RegionStats)),
		zap.String("top_gap", top),
	)
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
