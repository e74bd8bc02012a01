package graph

import (
	"errors"
	"math"
	"testing"
)

// buildLine creates A(0,0) -> B(1,0) -> C(2,0) -> D(3,0) with unit weights.
// Coordinates are (lon, lat).
func buildLine(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for i, id := range []NodeID{"A", "B", "C", "D"} {
		if err := g.AddNode(Node{ID: id, Lat: 0, Lon: float64(i), Mode: ModeWalk}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for _, e := range [][2]NodeID{{"A", "B"}, {"B", "C"}, {"C", "D"}} {
		if err := g.AddEdge(Edge{From: e[0], To: e[1], Weight: 1}); err != nil {
			t.Fatalf("AddEdge(%s->%s): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestAddNodeDuplicate(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{ID: "x"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	err := g.AddNode(Node{ID: "x", Lat: 1})
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("err = %v, want ErrDuplicateNode", err)
	}
	if g.NumNodes() != 1 {
		t.Errorf("NumNodes = %d, want 1", g.NumNodes())
	}
}

func TestAddEdgeValidation(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})

	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"unknown source", Edge{From: "z", To: "b", Weight: 1}, ErrUnknownNode},
		{"unknown target", Edge{From: "a", To: "z", Weight: 1}, ErrUnknownNode},
		{"negative weight", Edge{From: "a", To: "b", Weight: -1}, ErrInvalidWeight},
		{"NaN weight", Edge{From: "a", To: "b", Weight: math.NaN()}, ErrInvalidWeight},
		{"Inf weight", Edge{From: "a", To: "b", Weight: math.Inf(1)}, ErrInvalidWeight},
		{"zero weight is fine", Edge{From: "a", To: "b", Weight: 0}, nil},
		{"self loop is fine", Edge{From: "a", To: "a", Weight: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.edge)
			if tt.want == nil {
				if err != nil {
					t.Errorf("AddEdge: unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("AddEdge err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParallelEdgesAllowed(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	if err := g.AddEdge(Edge{From: "a", To: "b", Weight: 5, Mode: ModeWalk}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "b", Weight: 2, Mode: ModeTransit, RouteID: "72"}); err != nil {
		t.Fatal(err)
	}
	if g.NumEdges() != 2 {
		t.Errorf("NumEdges = %d, want 2", g.NumEdges())
	}
}

func TestCloneIsolation(t *testing.T) {
	g := buildLine(t)
	c := g.Clone()

	if err := c.AddNode(Node{ID: "E", Lat: 5, Lon: 5}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddEdge(Edge{From: "D", To: "E", Weight: 3}); err != nil {
		t.Fatal(err)
	}

	if g.NumNodes() != 4 || g.NumEdges() != 3 {
		t.Errorf("original changed: %d nodes, %d edges", g.NumNodes(), g.NumEdges())
	}
	if g.HasNode("E") {
		t.Error("original graph sees node added to clone")
	}
	if c.NumNodes() != 5 || c.NumEdges() != 4 {
		t.Errorf("clone: %d nodes, %d edges, want 5, 4", c.NumNodes(), c.NumEdges())
	}
}

func TestUnion(t *testing.T) {
	g := buildLine(t)
	other := New()
	other.AddNode(Node{ID: "S1", Mode: ModeTransit})
	other.AddNode(Node{ID: "S2", Mode: ModeTransit})
	other.AddEdge(Edge{From: "S1", To: "S2", Weight: 60, Mode: ModeTransit})

	if err := g.Union(other); err != nil {
		t.Fatalf("Union: %v", err)
	}
	if g.NumNodes() != 6 || g.NumEdges() != 4 {
		t.Errorf("after union: %d nodes, %d edges, want 6, 4", g.NumNodes(), g.NumEdges())
	}

	if err := g.Union(other); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("second Union err = %v, want ErrDuplicateNode", err)
	}
}

func TestNodeLookup(t *testing.T) {
	g := buildLine(t)
	n, ok := g.Node("C")
	if !ok {
		t.Fatal("Node(C) not found")
	}
	if n.Lon != 2 || n.Lat != 0 {
		t.Errorf("Node(C) = %+v, want lon 2 lat 0", n)
	}
	if _, ok := g.Node("nope"); ok {
		t.Error("Node(nope) should not be found")
	}
}
