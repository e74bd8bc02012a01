package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/azybler/route_impact/pkg/api"
	"github.com/azybler/route_impact/pkg/config"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <routes.geojson>",
	Short: "Report the centrality change caused by proposed routes",
	Long: "analyze reads a GeoJSON FeatureCollection of proposed routes (LineString " +
		"or MultiPoint features, or loose Point stops) from a file or \"-\" for " +
		"stdin and prints the changed nodes with their percent_change.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		body, err := readInput(args[0])
		if err != nil {
			return err
		}
		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			return fmt.Errorf("parse routes: %w", err)
		}
		routes, err := api.RoutesFromFeatures(fc, cfg.Route.MaxStops)
		if err != nil {
			return fmt.Errorf("parse routes: %w", err)
		}

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		res, err := engine.Analyze(cmd.Context(), routes, cfg.Service())
		if err != nil {
			return err
		}
		log.Printf("Added %d stops along %.0f m; %d nodes, %d edges; %d changed nodes in %s",
			res.NewStops, res.RouteMeters, res.NumNodes, res.NumEdges, len(res.Records), res.Elapsed)

		out, _ := cmd.Flags().GetString("output")
		return writeOutput(out, api.ImpactCollection(res.Records))
	},
}

func init() {
	analyzeCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(analyzeCmd)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes: %w", err)
	}
	return body, nil
}
