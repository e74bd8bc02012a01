package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azybler/route_impact/pkg/analysis"
	"github.com/azybler/route_impact/pkg/api"
	"github.com/azybler/route_impact/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compute the baseline and serve the analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		handlers := api.NewHandlers(engine, api.HandlerConfig{
			Service:  cfg.Service(),
			MaxStops: cfg.Route.MaxStops,
		}, api.NewStatsResponse(engine.Baseline().Stats()))

		srv := api.NewServer(api.ServerConfig{
			Addr:           cfg.Server.Addr,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxConcurrent:  cfg.Server.MaxConcurrent,
			CORSOrigin:     cfg.Server.CORSOrigin,
		}, handlers)
		return api.ListenAndServe(srv)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("cors-origin", "", "allowed CORS origin (empty disables CORS)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.cors_origin", serveCmd.Flags().Lookup("cors-origin"))
	rootCmd.AddCommand(serveCmd)
}

// newEngine loads the network, computes its baseline and wires the analysis
// engine from cfg.
func newEngine(cfg config.Config) (*analysis.Engine, error) {
	g, err := loadNetwork(cfg)
	if err != nil {
		return nil, err
	}
	base, err := analysis.NewBaseline(g, analysis.Options{
		BBox:       cfg.Area(),
		Centrality: cfg.CentralityOptions(),
	})
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	impactOpts, err := cfg.ImpactOptions()
	if err != nil {
		return nil, err
	}
	return analysis.NewEngine(base, analysis.EngineConfig{
		Merge:  cfg.MergeOptions(),
		Impact: impactOpts,
	}), nil
}
