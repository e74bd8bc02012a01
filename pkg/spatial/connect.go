package spatial

import (
	"errors"
	"fmt"

	"github.com/azybler/route_impact/pkg/graph"
)

// Connect links every node of g accepted by from to its nearest node in idx
// with a pair of walking edges weighted by distance / (walkKPH / 3.6).
// Nodes with nothing within radius are left unconnected. It returns the
// number of nodes linked.
func Connect(g *graph.Graph, idx *Index, from Filter, radius, walkKPH float64) (int, error) {
	if walkKPH <= 0 {
		return 0, fmt.Errorf("walk speed must be positive, got %v", walkKPH)
	}
	mps := walkKPH / 3.6

	// Collect first: AddEdge must not run while ranging over g.Nodes().
	var sources []graph.Node
	for _, n := range g.Nodes() {
		if from == nil || from(n) {
			sources = append(sources, n)
		}
	}

	linked := 0
	for _, n := range sources {
		m, err := idx.Nearest(n.Lat, n.Lon, radius)
		if errors.Is(err, ErrNoNodeInRadius) {
			continue
		}
		if err != nil {
			return linked, err
		}
		if m.ID == n.ID {
			continue
		}
		w := m.Dist / mps
		if err := g.AddEdge(graph.Edge{From: n.ID, To: m.ID, Weight: w, Mode: graph.ModeWalk}); err != nil {
			return linked, err
		}
		if err := g.AddEdge(graph.Edge{From: m.ID, To: n.ID, Weight: w, Mode: graph.ModeWalk}); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}
