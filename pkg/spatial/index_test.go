package spatial

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/azybler/route_impact/pkg/graph"
)

func buildNodes(t *testing.T, nodes ...graph.Node) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestNearest(t *testing.T) {
	g := buildNodes(t,
		graph.Node{ID: "a", Lat: 37.800, Lon: -122.270, Mode: graph.ModeWalk},
		graph.Node{ID: "b", Lat: 37.801, Lon: -122.270, Mode: graph.ModeWalk},
		graph.Node{ID: "c", Lat: 37.810, Lon: -122.260, Mode: graph.ModeWalk},
	)
	idx := NewIndex(g, nil)
	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}

	tests := []struct {
		name     string
		lat, lon float64
		radius   float64
		wantID   graph.NodeID
		wantErr  bool
	}{
		{"close to a", 37.8002, -122.270, 100, "a", false},
		{"close to b", 37.8008, -122.270, 100, "b", false},
		{"exactly on c", 37.810, -122.260, 1, "c", false},
		{"outside radius", 37.8002, -122.270, 10, "", true},
		{"far away", 38.5, -121.0, 500, "", true},
		{"negative radius", 37.800, -122.270, -1, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := idx.Nearest(tt.lat, tt.lon, tt.radius)
			if tt.wantErr {
				if !errors.Is(err, ErrNoNodeInRadius) {
					t.Errorf("err = %v, want ErrNoNodeInRadius", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.ID != tt.wantID {
				t.Errorf("ID = %s, want %s", m.ID, tt.wantID)
			}
			if m.Dist > tt.radius {
				t.Errorf("Dist = %f exceeds radius %f", m.Dist, tt.radius)
			}
		})
	}
}

func TestNearestDistance(t *testing.T) {
	g := buildNodes(t, graph.Node{ID: "a", Lat: 37.800, Lon: -122.270})
	idx := NewIndex(g, nil)

	m, err := idx.Nearest(37.801, -122.270, 200)
	if err != nil {
		t.Fatal(err)
	}
	// 0.001° of latitude is ~111 m.
	if math.Abs(m.Dist-111.2) > 1 {
		t.Errorf("Dist = %f, want ~111.2", m.Dist)
	}
	if m.Lat != 37.800 || m.Lon != -122.270 {
		t.Errorf("coordinates = (%f, %f), want node a's", m.Lat, m.Lon)
	}
}

func TestNearestTieBreaksOnID(t *testing.T) {
	g := buildNodes(t,
		graph.Node{ID: "west", Lat: 0, Lon: -0.25},
		graph.Node{ID: "east", Lat: 0, Lon: 0.25},
	)
	idx := NewIndex(g, nil)

	m, err := idx.Nearest(0, 0, 50_000)
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "east" {
		t.Errorf("ID = %s, want east (smaller ID on equal distance)", m.ID)
	}
}

func TestNewIndexFilter(t *testing.T) {
	g := buildNodes(t,
		graph.Node{ID: "walk", Lat: 37.800, Lon: -122.270, Mode: graph.ModeWalk},
		graph.Node{ID: "stop", Lat: 37.8001, Lon: -122.270, Mode: graph.ModeTransit},
	)
	idx := NewIndex(g, func(n graph.Node) bool { return n.Mode == graph.ModeWalk })

	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}
	m, err := idx.Nearest(37.8001, -122.270, 100)
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "walk" {
		t.Errorf("ID = %s, want walk (transit nodes filtered out)", m.ID)
	}
}

func TestNearestEmptyIndex(t *testing.T) {
	idx := NewIndex(graph.New(), nil)
	if _, err := idx.Nearest(0, 0, 1000); !errors.Is(err, ErrNoNodeInRadius) {
		t.Errorf("err = %v, want ErrNoNodeInRadius", err)
	}
}

func BenchmarkNearest(b *testing.B) {
	g := graph.New()
	for i := range 100 {
		for j := range 100 {
			id := graph.NodeID(fmt.Sprintf("n%d_%d", i, j))
			_ = g.AddNode(graph.Node{ID: id, Lat: 37.78 + float64(i)*0.0005, Lon: -122.34 + float64(j)*0.0005})
		}
	}
	idx := NewIndex(g, nil)

	for b.Loop() {
		_, _ = idx.Nearest(37.805, -122.315, 300)
	}
}
