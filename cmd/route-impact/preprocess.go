package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azybler/route_impact/pkg/config"
	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/graph"
	"github.com/azybler/route_impact/pkg/gtfs"
	osmparser "github.com/azybler/route_impact/pkg/osm"
	"github.com/azybler/route_impact/pkg/spatial"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Build a network snapshot from OSM and GTFS inputs",
	Long: "preprocess parses the walkable OSM ways and, when given, a GTFS feed, " +
		"links every transit stop to its nearest walk node and writes the " +
		"combined network as a binary snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		pp := cfg.Preprocess
		if pp.OSMPath == "" && pp.GTFSPath == "" {
			return fmt.Errorf("nothing to do: set --osm and/or --gtfs")
		}
		clip, _ := cmd.Flags().GetBool("clip")

		start := time.Now()
		g := graph.New()

		// Step 1: Walking network.
		if pp.OSMPath != "" {
			opts := osmparser.ParseOptions{WalkSpeedKPH: pp.WalkSpeedKPH}
			if clip {
				opts.BBox = cfg.Area()
				logBBox(opts.BBox)
			}
			walk, err := parseOSM(cmd, pp.OSMPath, opts)
			if err != nil {
				return err
			}
			if err := g.Union(walk); err != nil {
				return err
			}
		}

		// Step 2: Transit network.
		if pp.GTFSPath != "" {
			log.Printf("Reading GTFS feed %s...", pp.GTFSPath)
			feed, err := gtfs.Open(pp.GTFSPath)
			if err != nil {
				return fmt.Errorf("failed to read GTFS feed: %w", err)
			}
			transit, err := feed.Build(gtfs.BuildOptions{IDPrefix: pp.GTFSPrefix})
			if err != nil {
				return fmt.Errorf("failed to build transit graph: %w", err)
			}
			if clip {
				transit = graph.Trim(transit, cfg.Area())
			}
			if err := g.Union(transit); err != nil {
				return fmt.Errorf("failed to merge transit graph: %w", err)
			}

			// Step 3: Walk transfers between stops and streets.
			if pp.OSMPath != "" && pp.ConnectRadiusMeters > 0 {
				log.Println("Linking stops to the walking network...")
				walkIdx := spatial.NewIndex(g, isMode(graph.ModeWalk))
				linked, err := spatial.Connect(g, walkIdx, isMode(graph.ModeTransit), pp.ConnectRadiusMeters, pp.WalkSpeedKPH)
				if err != nil {
					return fmt.Errorf("failed to link stops: %w", err)
				}
				log.Printf("Linked %d stops within %.0f m", linked, pp.ConnectRadiusMeters)
			}
		}
		log.Printf("Graph: %d nodes, %d edges", g.NumNodes(), g.NumEdges())
		b := g.Bounds()
		log.Printf("Network extent: lat [%.4f, %.4f], lng [%.4f, %.4f]", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)

		// Step 4: Extract largest connected component.
		if cfg.Network.LargestComponent && g.NumNodes() > 0 {
			log.Println("Extracting largest connected component...")
			ids := graph.LargestComponent(g)
			log.Printf("Largest component: %d nodes (%.1f%%)", len(ids), float64(len(ids))/float64(g.NumNodes())*100)
			g = graph.Subgraph(g, ids)
			log.Printf("Filtered graph: %d nodes, %d edges", g.NumNodes(), g.NumEdges())
		}

		// Step 5: Serialize to binary.
		out := cfg.Network.GraphPath
		log.Printf("Writing binary to %s...", out)
		if err := graph.WriteBinary(out, g); err != nil {
			return fmt.Errorf("failed to write binary: %w", err)
		}

		info, err := os.Stat(out)
		if err != nil {
			return err
		}
		log.Printf("Done in %s. Output: %s (%.1f MB)", time.Since(start).Round(time.Second), out, float64(info.Size())/(1024*1024))
		return nil
	},
}

func init() {
	f := preprocessCmd.Flags()
	f.String("osm", "", "path to .osm.pbf file")
	f.String("gtfs", "", "path to GTFS zip")
	f.String("gtfs-prefix", gtfs.DefaultIDPrefix, "node ID prefix for GTFS stops")
	f.Float64("connect-radius", 250, "stop-to-street link radius in meters (0 disables)")
	f.Bool("largest-component", false, "keep only the largest connected component")
	f.Bool("clip", false, "keep only the configured bbox")
	_ = viper.BindPFlag("preprocess.osm_path", f.Lookup("osm"))
	_ = viper.BindPFlag("preprocess.gtfs_path", f.Lookup("gtfs"))
	_ = viper.BindPFlag("preprocess.gtfs_prefix", f.Lookup("gtfs-prefix"))
	_ = viper.BindPFlag("preprocess.connect_radius_meters", f.Lookup("connect-radius"))
	_ = viper.BindPFlag("network.largest_component", f.Lookup("largest-component"))
	rootCmd.AddCommand(preprocessCmd)
}

func parseOSM(cmd *cobra.Command, path string, opts osmparser.ParseOptions) (*graph.Graph, error) {
	log.Println("Opening OSM file...")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	log.Println("Parsing OSM data...")
	res, err := osmparser.Parse(cmd.Context(), f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OSM data: %w", err)
	}
	log.Printf("Parsed %d edges, %d nodes", len(res.Edges), len(res.NodeLat))

	log.Println("Building graph...")
	g := graph.Build(res)
	log.Printf("Walk graph: %d nodes, %d edges", g.NumNodes(), g.NumEdges())
	return g, nil
}

func isMode(m graph.Mode) spatial.Filter {
	return func(n graph.Node) bool { return n.Mode == m }
}

func logBBox(b geo.BBox) {
	log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
}
