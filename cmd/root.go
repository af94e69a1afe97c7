package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/config"
)

var cfg *config.Config

// Overrides applied on top of config.yaml and HEALTHMAP_* variables.
var (
	flagLogLevel   string
	flagFacilities string
	flagAnalysis   string
)

var rootCmd = &cobra.Command{
	Use:   "healthmap",
	Short: "Geospatial coverage and insight engine for Ghana healthcare facilities",
	Long:  "Builds hex coverage meshes, clusters facility markers, ranks coverage-gap insights and resolves chat answers to facilities.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyOverrides(c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.L().Debug("config loaded",
			zap.String("facilities", cfg.Data.FacilitiesPath),
			zap.Bool("database", cfg.Data.DatabaseURL != ""),
			zap.Int("resolution", cfg.Mesh.Resolution),
		)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func applyOverrides(c *config.Config) {
	if flagLogLevel != "" {
		c.Log.Level = flagLogLevel
	}
	if flagFacilities != "" {
		c.Data.FacilitiesPath = flagFacilities
	}
	if flagAnalysis != "" {
		c.Data.AnalysisPath = flagAnalysis
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&flagFacilities, "facilities", "", "facilities JSON path override")
	pf.StringVar(&flagAnalysis, "analysis", "", "analysis JSON path override")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
