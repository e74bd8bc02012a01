package graph

import (
	"testing"

	"github.com/paulmach/osm"

	osmparser "github.com/azybler/route_impact/pkg/osm"
)

func TestBuildWalkGraph(t *testing.T) {
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 100, ToNodeID: 200, Meters: 100, Seconds: 80},
			{FromNodeID: 200, ToNodeID: 100, Meters: 100, Seconds: 80},
			{FromNodeID: 200, ToNodeID: 300, Meters: 50, Seconds: 40},
			{FromNodeID: 300, ToNodeID: 200, Meters: 50, Seconds: 40},
		},
		NodeLat: map[osm.NodeID]float64{100: 37.80, 200: 37.81, 300: 37.82},
		NodeLon: map[osm.NodeID]float64{100: -122.27, 200: -122.27, 300: -122.26},
	}

	g := Build(result)

	if g.NumNodes() != 3 {
		t.Fatalf("NumNodes = %d, want 3", g.NumNodes())
	}
	if g.NumEdges() != 4 {
		t.Fatalf("NumEdges = %d, want 4", g.NumEdges())
	}

	n, ok := g.Node(OSMNodeID(300))
	if !ok {
		t.Fatalf("node %s missing", OSMNodeID(300))
	}
	if n.Lat != 37.82 || n.Lon != -122.26 || n.Mode != ModeWalk {
		t.Errorf("node 300 = %+v", n)
	}

	// Insertion order follows first reference.
	for i, want := range []osm.NodeID{100, 200, 300} {
		if g.Nodes()[i].ID != OSMNodeID(want) {
			t.Errorf("Nodes()[%d] = %s, want %s", i, g.Nodes()[i].ID, OSMNodeID(want))
		}
	}

	var total float64
	for _, e := range g.Edges() {
		total += e.Weight
	}
	if total != 240 {
		t.Errorf("total weight = %f, want 240", total)
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	g := Build(&osmparser.ParseResult{
		NodeLat: map[osm.NodeID]float64{},
		NodeLon: map[osm.NodeID]float64{},
	})
	if g.NumNodes() != 0 || g.NumEdges() != 0 {
		t.Errorf("expected empty graph, got %d nodes, %d edges", g.NumNodes(), g.NumEdges())
	}
}

func TestOSMNodeID(t *testing.T) {
	if got := OSMNodeID(123456789); got != "osm_123456789" {
		t.Errorf("OSMNodeID = %q", got)
	}
}
