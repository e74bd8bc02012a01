package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azybler/route_impact/pkg/analysis"
	"github.com/azybler/route_impact/pkg/api"
	"github.com/azybler/route_impact/pkg/config"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Print the strong and weak baseline nodes as GeoJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		g, err := loadNetwork(cfg)
		if err != nil {
			return err
		}
		base, err := analysis.NewBaseline(g, analysis.Options{
			BBox:       cfg.Area(),
			Centrality: cfg.CentralityOptions(),
		})
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}

		out, _ := cmd.Flags().GetString("output")
		return writeOutput(out, api.BaselineResponse{Centrality: api.BandsCollection(base.Bands())})
	},
}

func init() {
	baselineCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(baselineCmd)
}
