package graph

import "testing"

func TestCompactCSRInvariants(t *testing.T) {
	g := buildLine(t)
	c := g.Compact()

	if c.NumNodes != 4 {
		t.Fatalf("NumNodes = %d, want 4", c.NumNodes)
	}
	if c.NumEdges != 3 {
		t.Fatalf("NumEdges = %d, want 3", c.NumEdges)
	}

	// CSR invariant: FirstOut is monotonically non-decreasing.
	for i := uint32(1); i <= c.NumNodes; i++ {
		if c.FirstOut[i] < c.FirstOut[i-1] {
			t.Errorf("FirstOut[%d]=%d < FirstOut[%d]=%d, not monotonic", i, c.FirstOut[i], i-1, c.FirstOut[i-1])
		}
	}
	if c.FirstOut[c.NumNodes] != c.NumEdges {
		t.Errorf("FirstOut[%d]=%d != NumEdges=%d", c.NumNodes, c.FirstOut[c.NumNodes], c.NumEdges)
	}
	for i, h := range c.Head {
		if h >= c.NumNodes {
			t.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, c.NumNodes)
		}
	}
	for _, w := range c.Weight {
		if w != 1000 {
			t.Errorf("Weight = %d ms, want 1000", w)
		}
	}
}

func TestCompactSortedByID(t *testing.T) {
	g := New()
	for _, id := range []NodeID{"z", "m", "a"} {
		g.AddNode(Node{ID: id})
	}
	c := g.Compact()

	want := []NodeID{"a", "m", "z"}
	for i, id := range want {
		if c.IDs[i] != id {
			t.Errorf("IDs[%d] = %s, want %s", i, c.IDs[i], id)
		}
		idx, ok := c.Index(id)
		if !ok || idx != uint32(i) {
			t.Errorf("Index(%s) = %d, %v, want %d", id, idx, ok, i)
		}
	}
	if _, ok := c.Index("q"); ok {
		t.Error("Index(q) should not be found")
	}
}

func TestCompactCollapsesParallelEdgesAndSelfLoops(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	g.AddEdge(Edge{From: "a", To: "b", Weight: 9})
	g.AddEdge(Edge{From: "a", To: "b", Weight: 2.5})
	g.AddEdge(Edge{From: "a", To: "b", Weight: 4})
	g.AddEdge(Edge{From: "a", To: "a", Weight: 1})

	c := g.Compact()
	if c.NumEdges != 1 {
		t.Fatalf("NumEdges = %d, want 1", c.NumEdges)
	}
	if c.Weight[0] != 2500 {
		t.Errorf("Weight = %d, want 2500 (cheapest parallel edge)", c.Weight[0])
	}
}

func TestCompactEmpty(t *testing.T) {
	c := New().Compact()
	if c.NumNodes != 0 || c.NumEdges != 0 {
		t.Errorf("empty CSR has %d nodes, %d edges", c.NumNodes, c.NumEdges)
	}
	if len(c.FirstOut) != 1 {
		t.Errorf("len(FirstOut) = %d, want 1", len(c.FirstOut))
	}
}

func TestQuantizeSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want uint32
	}{
		{0, 0},
		{0.0004, 0},
		{0.0005, 1},
		{1, 1000},
		{0.1 + 0.2, 300},
		{1e12, maxWeightMillis},
	}
	for _, tt := range tests {
		if got := QuantizeSeconds(tt.in); got != tt.want {
			t.Errorf("QuantizeSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
