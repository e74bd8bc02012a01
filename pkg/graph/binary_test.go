package graph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/azybler/route_impact/pkg/graph"
)

func buildSnapshotGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	nodes := []graph.Node{
		{ID: "osm_1", Lat: 37.80, Lon: -122.27, Mode: graph.ModeWalk},
		{ID: "osm_2", Lat: 37.81, Lon: -122.26, Mode: graph.ModeWalk},
		{ID: "act_5012", Lat: 37.805, Lon: -122.265, Mode: graph.ModeTransit, StopID: "5012", Name: "Broadway & 14th"},
		{ID: "isolated", Lat: 37.79, Lon: -122.30},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	edges := []graph.Edge{
		{From: "osm_1", To: "osm_2", Weight: 80.5, Mode: graph.ModeWalk},
		{From: "osm_2", To: "osm_1", Weight: 80.5, Mode: graph.ModeWalk},
		{From: "act_5012", To: "osm_1", Weight: 0, Mode: graph.ModeWalk},
		{From: "act_5012", To: "osm_2", Weight: 120, Mode: graph.ModeTransit, RouteID: "NL"},
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildSnapshotGraph(t)

	path := filepath.Join(t.TempDir(), "test.graph.bin")
	if err := graph.WriteBinary(path, original); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	loaded, err := graph.ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}

	if diff := cmp.Diff(original.Nodes(), loaded.Nodes()); diff != "" {
		t.Errorf("nodes differ (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(original.Edges(), loaded.Edges()); diff != "" {
		t.Errorf("edges differ (-want +got):\n%s", diff)
	}
}

func TestBinaryRoundTripEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.graph.bin")
	if err := graph.WriteBinary(path, graph.New()); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	loaded, err := graph.ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if loaded.NumNodes() != 0 || loaded.NumEdges() != 0 {
		t.Errorf("got %d nodes, %d edges", loaded.NumNodes(), loaded.NumEdges())
	}
}

func TestBinaryInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.graph.bin")
	os.WriteFile(path, []byte("NOT_RTIMPACT_HEADER_BLAH_BLAH_BLAH_MORE_DATA"), 0644)

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected error for invalid magic bytes")
	}
}

func TestBinaryTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.graph.bin")
	os.WriteFile(path, []byte("RTIMPACT"), 0644)

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestBinaryCorruptedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.graph.bin")
	if err := graph.WriteBinary(path, buildSnapshotGraph(t)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the latitude column, past the 20-byte header.
	data[24] ^= 0xFF
	os.WriteFile(path, data, 0644)

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected CRC32 mismatch")
	}
}
