package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/engine"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/insight"
)

var (
	insightsLimit    int
	insightsFacility string
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print ranked coverage-gap insights as JSON",
	Long:  "Prints region/specialty gap insights, or the insight panel for one facility when --facility is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("insights"); err != nil {
			return err
		}

		snap, err := loadSnapshot(cmd.Context(), cfg.Data)
		if err != nil {
			return err
		}
		e := engine.New(engineConfig(cfg))

		var out []insight.Insight
		if insightsFacility != "" {
			got, ok := e.FacilityInsights(snap, insightsFacility)
			if !ok {
				return eris.Errorf("facility %q not found", insightsFacility)
			}
			out = got
		} else {
			out = e.RegionInsights(snap)
		}

		if insightsLimit > 0 && len(out) > insightsLimit {
			out = out[:insightsLimit]
		}
		if out == nil {
			out = []insight.Insight{}
		}
		return writeJSONTo(cmd.OutOrStdout(), out)
	},
}

func init() {
	insightsCmd.Flags().IntVar(&insightsLimit, "limit", 0, "max insights to print (0 = all)")
	insightsCmd.Flags().StringVar(&insightsFacility, "facility", "", "facility id for the per-facility panel")
	rootCmd.AddCommand(insightsCmd)
}
