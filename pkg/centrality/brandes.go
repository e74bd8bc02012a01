// Package centrality computes exact betweenness centrality on weighted
// directed graphs.
//
// The engine runs Brandes' dependency accumulation from every node, using
// Dijkstra over the graph's CSR view for the single-source phase. Weights are
// integer milliseconds (see graph.QuantizeSeconds), so equal-cost paths tie
// exactly and share credit in proportion to their path counts.
package centrality

import (
	"math"

	"github.com/azybler/route_impact/pkg/graph"
)

// Scores maps every node of a graph to its betweenness centrality.
type Scores map[graph.NodeID]float64

// Options configures a centrality run.
type Options struct {
	// Normalized divides raw scores by (n-1)(n-2), the directed-graph
	// normalization, when the graph has more than two nodes.
	Normalized bool
	// Workers fans the per-source traversals out over this many goroutines.
	// Values below 2 run on the calling goroutine. Results are bit-for-bit
	// identical for every worker count.
	Workers int
}

// Compute returns the betweenness centrality of every node in g.
// A graph with no nodes yields an empty mapping.
func Compute(g *graph.Graph, opts Options) Scores {
	c := g.Compact()
	raw := ComputeCSR(c, opts)

	scores := make(Scores, c.NumNodes)
	for i, id := range c.IDs {
		scores[id] = raw[i]
	}
	return scores
}

// ComputeCSR returns betweenness centrality indexed by CSR node index.
func ComputeCSR(c *graph.CSR, opts Options) []float64 {
	n := c.NumNodes
	if n == 0 {
		return []float64{}
	}

	cb := accumulate(c, opts.Workers)

	if opts.Normalized && n > 2 {
		scale := 1 / (float64(n-1) * float64(n-2))
		for i := range cb {
			cb[i] *= scale
		}
	}
	return cb
}

const unreached = math.MaxUint64

// sourceState is the per-source scratch space, reused across sources.
// Only touched entries are reset between runs.
type sourceState struct {
	dist    []uint64
	sigma   []float64 // number of shortest paths from the source
	delta   []float64 // dependency of the source on each node
	settled []bool
	pred    [][]uint32 // shortest-path predecessors
	stack   []uint32   // nodes in settle order
	touched []uint32
	pq      minHeap
	grp     group
}

func newSourceState(n uint32) *sourceState {
	dist := make([]uint64, n)
	for i := range dist {
		dist[i] = unreached
	}
	slot := make([]int32, n)
	for i := range slot {
		slot[i] = -1
	}
	return &sourceState{
		dist:    dist,
		sigma:   make([]float64, n),
		delta:   make([]float64, n),
		settled: make([]bool, n),
		pred:    make([][]uint32, n),
		stack:   make([]uint32, 0, n),
		touched: make([]uint32, 0, n),
		pq:      minHeap{items: make([]pqItem, 0, 256)},
		grp:     group{slot: slot},
	}
}

func (s *sourceState) reset() {
	for _, v := range s.touched {
		s.dist[v] = unreached
		s.sigma[v] = 0
		s.delta[v] = 0
		s.settled[v] = false
		s.pred[v] = s.pred[v][:0]
	}
	s.touched = s.touched[:0]
	s.stack = s.stack[:0]
	s.pq.Reset()
	s.grp.clear()
}

// run adds the dependencies of source src to cb.
//
// Nodes settle in groups of equal distance. A group's path counts are final
// only once every zero-weight edge inside it has been followed, so positive
// edges are relaxed after the whole group is counted. This keeps the set of
// counted paths independent of node numbering.
func (s *sourceState) run(c *graph.CSR, src uint32, cb []float64) {
	s.reset()

	s.dist[src] = 0
	s.sigma[src] = 1
	s.touched = append(s.touched, src)
	s.pq.Push(src, 0)

	g := &s.grp
	for s.pq.Len() > 0 {
		item := s.pq.Pop()
		if s.settled[item.node] || item.dist > s.dist[item.node] {
			continue // stale entry
		}
		d := item.dist
		g.add(item.node)
		for s.pq.Len() > 0 && s.pq.PeekDist() == d {
			it := s.pq.Pop()
			if s.settled[it.node] || it.dist > s.dist[it.node] || g.has(it.node) {
				continue
			}
			g.add(it.node)
		}

		// Pull in everything reachable from the group at zero cost. Such
		// nodes had only longer tentative paths, which are discarded.
		zero := false
		for i := 0; i < len(g.members); i++ {
			start, end := c.EdgesFrom(g.members[i])
			for e := start; e < end; e++ {
				if c.Weight[e] != 0 {
					continue
				}
				v := c.Head[e]
				if s.settled[v] {
					continue
				}
				zero = true
				if g.has(v) {
					continue
				}
				if s.dist[v] == unreached {
					s.touched = append(s.touched, v)
				}
				s.dist[v] = d
				s.sigma[v] = 0
				s.pred[v] = s.pred[v][:0]
				g.add(v)
			}
		}

		order := g.members
		if zero {
			order = s.countZeroPaths(c, src)
		}

		for _, u := range order {
			s.settled[u] = true
			s.stack = append(s.stack, u)
		}
		for _, u := range order {
			start, end := c.EdgesFrom(u)
			for e := start; e < end; e++ {
				w := c.Weight[e]
				v := c.Head[e]
				if w == 0 || s.settled[v] {
					continue
				}
				nd := d + uint64(w)
				switch dv := s.dist[v]; {
				case dv == unreached:
					s.touched = append(s.touched, v)
					fallthrough
				case nd < dv:
					s.dist[v] = nd
					s.sigma[v] = s.sigma[u]
					s.pred[v] = append(s.pred[v][:0], u)
					s.pq.Push(v, nd)
				case nd == dv:
					s.sigma[v] += s.sigma[u]
					s.pred[v] = append(s.pred[v], u)
				}
			}
		}
		g.clear()
	}

	// Back-propagate dependencies in reverse settle order.
	for i := len(s.stack) - 1; i >= 0; i-- {
		w := s.stack[i]
		coeff := (1 + s.delta[w]) / s.sigma[w]
		for _, v := range s.pred[w] {
			s.delta[v] += s.sigma[v] * coeff
		}
		if w != src {
			cb[w] += s.delta[w]
		}
	}
}

// countZeroPaths adds the paths that run along zero-weight edges inside the
// current group and returns the group in an order where every predecessor
// comes first.
//
// Edges between different strongly connected components of the group's
// zero-weight subgraph are all counted. Inside a component, where paths could
// circle forever, an edge counts only if it is a breadth-first step away from
// the points where paths enter the component.
func (s *sourceState) countZeroPaths(c *graph.CSR, src uint32) []uint32 {
	g := &s.grp
	n := len(g.members)

	g.off = g.off[:0]
	g.adj = g.adj[:0]
	for _, u := range g.members {
		g.off = append(g.off, int32(len(g.adj)))
		start, end := c.EdgesFrom(u)
		for e := start; e < end; e++ {
			if c.Weight[e] != 0 {
				continue
			}
			if j := g.slot[c.Head[e]]; j >= 0 {
				g.adj = append(g.adj, j)
			}
		}
	}
	g.off = append(g.off, int32(len(g.adj)))

	g.components()

	// Entry points: the source, nodes with predecessors in earlier groups and
	// targets of edges from another component.
	g.level = grow(g.level, n)
	g.queue = g.queue[:0]
	for i, u := range g.members {
		g.level[i] = -1
		if u == src || len(s.pred[u]) > 0 {
			g.level[i] = 0
		}
	}
	for i := range n {
		for _, j := range g.adj[g.off[i]:g.off[i+1]] {
			if g.comp[i] != g.comp[j] {
				g.level[j] = 0
			}
		}
	}
	for i := range n {
		if g.level[i] == 0 {
			g.queue = append(g.queue, int32(i))
		}
	}
	for h := 0; h < len(g.queue); h++ {
		i := g.queue[h]
		for _, j := range g.adj[g.off[i]:g.off[i+1]] {
			if g.comp[i] == g.comp[j] && g.level[j] < 0 {
				g.level[j] = g.level[i] + 1
				g.queue = append(g.queue, j)
			}
		}
	}

	keep := func(i, j int32) bool {
		return g.comp[i] != g.comp[j] || g.level[j] == g.level[i]+1
	}

	// Kahn's algorithm over the kept edges, which form a DAG.
	g.indeg = grow(g.indeg, n)
	clear(g.indeg)
	for i := range n {
		for _, j := range g.adj[g.off[i]:g.off[i+1]] {
			if keep(int32(i), j) {
				g.indeg[j]++
			}
		}
	}
	g.queue = g.queue[:0]
	for i := range n {
		if g.indeg[i] == 0 {
			g.queue = append(g.queue, int32(i))
		}
	}
	g.order = g.order[:0]
	for h := 0; h < len(g.queue); h++ {
		i := g.queue[h]
		u := g.members[i]
		g.order = append(g.order, u)
		for _, j := range g.adj[g.off[i]:g.off[i+1]] {
			if !keep(i, j) {
				continue
			}
			v := g.members[j]
			s.sigma[v] += s.sigma[u]
			s.pred[v] = append(s.pred[v], u)
			if g.indeg[j]--; g.indeg[j] == 0 {
				g.queue = append(g.queue, j)
			}
		}
	}
	return g.order
}
