package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azybler/route_impact/pkg/config"
	"github.com/azybler/route_impact/pkg/graph"
)

var rootCmd = &cobra.Command{
	Use:   "route-impact",
	Short: "Transit route impact analysis",
	Long: "route-impact builds a walk and transit network, computes the baseline " +
		"betweenness centrality of its nodes and reports how proposed routes change it.",
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().String("config", "", "config file (default route-impact.yaml)")
	rootCmd.PersistentFlags().String("graph", "", "network snapshot path (overrides network.graph_path)")
	_ = viper.BindPFlag("network.graph_path", rootCmd.PersistentFlags().Lookup("graph"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("route-impact")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	// A missing config file is fine; defaults and environment still apply.
	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config file %s", viper.ConfigFileUsed())
	}
}

// initLogging keeps logs on stderr so command output on stdout stays
// machine readable.
func initLogging() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

// loadNetwork reads the snapshot named by the config, keeping only its
// largest connected component when asked to.
func loadNetwork(cfg config.Config) (*graph.Graph, error) {
	start := time.Now()
	log.Printf("Loading network from %s...", cfg.Network.GraphPath)
	g, err := graph.ReadBinary(cfg.Network.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	log.Printf("Network: %d nodes, %d edges (%s)", g.NumNodes(), g.NumEdges(), time.Since(start).Round(time.Millisecond))

	if cfg.Network.LargestComponent {
		ids := graph.LargestComponent(g)
		g = graph.Subgraph(g, ids)
		log.Printf("Largest component: %d nodes, %d edges", g.NumNodes(), g.NumEdges())
	}
	return g, nil
}
