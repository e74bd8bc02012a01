package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/azybler/route_impact/pkg/geo"
)

// DefaultWalkSpeedKPH is the pedestrian speed used to turn way lengths into
// traversal times.
const DefaultWalkSpeedKPH = 4.5

// RawEdge represents a directed walkable edge parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Meters     float64
	Seconds    float64
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// walkHighways lists highway tag values a pedestrian may use.
var walkHighways = map[string]bool{
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
	"pedestrian":     true,
	"footway":        true,
	"path":           true,
	"steps":          true,
	"track":          true,
	"corridor":       true,
	"crossing":       true,
}

// isWalkable returns true if a pedestrian may use the way.
func isWalkable(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !walkHighways[hw] {
		return false
	}

	// Skip area highways (plazas are polygons, not paths).
	if tags.Find("area") == "yes" {
		return false
	}

	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	switch tags.Find("foot") {
	case "no", "private":
		return false
	}
	if tags.Find("sidewalk") == "separate" && hw != "footway" {
		// Mapped sidewalks carry the pedestrian traffic instead.
		return false
	}

	return true
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs []osm.NodeID
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox         geo.BBox // if non-zero, keep only edges with both endpoints inside
	WalkSpeedKPH float64  // defaults to DefaultWalkSpeedKPH
}

// Parse reads an OSM PBF file and returns bidirectional walking edges.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.WalkSpeedKPH <= 0 {
		opt.WalkSpeedKPH = DefaultWalkSpeedKPH
	}
	metersPerSecond := opt.WalkSpeedKPH / 3.6
	useBBox := !opt.BBox.IsZero()

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isWalkable(w.Tags) || len(w.Nodes) < 2 {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: nodeIDs})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d walkable ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	edges, skipped, filtered := buildEdges(ways, nodeLat, nodeLon, opt.BBox, useBBox, metersPerSecond)

	if skipped > 0 {
		log.Printf("Warning: skipped %d segments due to missing node coordinates", skipped)
	}
	if filtered > 0 {
		log.Printf("Filtered %d segments outside bounding box", filtered)
	}
	log.Printf("Built %d directed walking edges", len(edges))

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}, nil
}

// buildEdges splits ways into consecutive node pairs and emits one edge per
// direction. Pedestrians ignore oneway restrictions.
func buildEdges(ways []wayInfo, nodeLat, nodeLon map[osm.NodeID]float64, box geo.BBox, useBBox bool, metersPerSecond float64) (edges []RawEdge, skipped, filtered int) {
	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]
			if fromID == toID {
				continue
			}

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]

			if !fromOk || !toOk {
				skipped++
				continue
			}

			if useBBox && (!box.Contains(fromLat, fromLon) || !box.Contains(toLat, toLon)) {
				filtered++
				continue
			}

			meters := geo.Haversine(fromLat, fromLon, toLat, toLon)
			seconds := meters / metersPerSecond

			edges = append(edges,
				RawEdge{FromNodeID: fromID, ToNodeID: toID, Meters: meters, Seconds: seconds},
				RawEdge{FromNodeID: toID, ToNodeID: fromID, Meters: meters, Seconds: seconds},
			)
		}
	}
	return edges, skipped, filtered
}
