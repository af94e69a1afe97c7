package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/store"
)

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a facilities JSON file into the Postgres facility store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Data.DatabaseURL == "" {
			return eris.New("data.database_url is required for import")
		}
		path := importPath
		if path == "" {
			path = cfg.Data.FacilitiesPath
		}

		records, err := store.LoadFacilities(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pg, err := store.NewPostgres(ctx, cfg.Data.DatabaseURL, &store.PoolConfig{MaxConns: cfg.Data.MaxConns})
		if err != nil {
			return err
		}
		defer pg.Close() //nolint:errcheck

		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		n, err := pg.UpsertFacilities(ctx, records)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("path", path),
			zap.Int("records", len(records)),
			zap.Int64("upserted", n),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "facilities JSON file (default data.facilities_path)")
	rootCmd.AddCommand(importCmd)
}
