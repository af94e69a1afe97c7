package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/engine"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/severity"
)

var (
	meshMode string
	meshOut  string
)

var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Build the coverage hex mesh and write it as GeoJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("mesh"); err != nil {
			return err
		}
		mode := severity.Mode(meshMode)
		if mode != severity.ModeCoverage && mode != severity.ModeDesert {
			return eris.Errorf("invalid --mode %q, want coverage or desert", meshMode)
		}

		snap, err := loadSnapshot(cmd.Context(), cfg.Data)
		if err != nil {
			return err
		}

		e := engine.New(engineConfig(cfg))
		cells := e.Mesh(snap)
		fc := e.MeshFeatures(cells, mode)

		if meshOut != "" && meshOut != "-" {
			err = writeJSONFile(meshOut, fc)
		} else {
			err = writeJSONTo(cmd.OutOrStdout(), fc)
		}
		if err != nil {
			return err
		}
		zap.L().Info("mesh written",
			zap.Int("cells", len(cells)),
			zap.String("mode", meshMode),
			zap.String("out", meshOut),
		)
		return nil
	},
}

func init() {
	meshCmd.Flags().StringVar(&meshMode, "mode", string(severity.ModeCoverage), "color mode: coverage or desert")
	meshCmd.Flags().StringVar(&meshOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(meshCmd)
}
