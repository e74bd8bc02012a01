package graph

import (
	"math"
	"slices"
	"sort"
)

// CSR is an immutable compressed-sparse-row view of a Graph used by the
// shortest-path algorithms.
//
// Node indices follow ascending NodeID order, so two graphs with the same
// node and edge sets produce identical CSRs no matter how they were built.
// Parallel edges collapse to their cheapest weight and self loops are
// dropped; neither can lie on a shortest path between distinct nodes.
type CSR struct {
	NumNodes uint32
	NumEdges uint32
	IDs      []NodeID // len: NumNodes; index -> node ID
	FirstOut []uint32 // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Head     []uint32 // len: NumEdges; target node for each edge
	Weight   []uint32 // len: NumEdges; traversal time in milliseconds
}

// maxWeightMillis caps quantized weights so path sums in uint64 never overflow.
const maxWeightMillis = math.MaxUint32 - 1

// QuantizeSeconds converts a weight in seconds to integer milliseconds.
// Integer weights make equal-cost paths compare exactly equal, which the
// path counting in betweenness depends on. Positive weights under 0.5 ms
// round to 0 and behave as zero-weight edges.
func QuantizeSeconds(seconds float64) uint32 {
	ms := math.Round(seconds * 1000)
	if ms <= 0 {
		return 0
	}
	if ms >= maxWeightMillis {
		return maxWeightMillis
	}
	return uint32(ms)
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (c *CSR) EdgesFrom(u uint32) (start, end uint32) {
	return c.FirstOut[u], c.FirstOut[u+1]
}

// Index returns the CSR index of id.
func (c *CSR) Index(id NodeID) (uint32, bool) {
	i, ok := slices.BinarySearch(c.IDs, id)
	if !ok {
		return 0, false
	}
	return uint32(i), true
}

// Compact builds the CSR view of g.
func (g *Graph) Compact() *CSR {
	numNodes := uint32(len(g.nodes))
	if numNodes == 0 {
		return &CSR{FirstOut: []uint32{0}}
	}

	// Step 1: Sorted ID table and ID -> index mapping.
	ids := make([]NodeID, numNodes)
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	slices.Sort(ids)
	idx := make(map[NodeID]uint32, numNodes)
	for i, id := range ids {
		idx[id] = uint32(i)
	}

	// Step 2: Remap edges, dropping self loops.
	type compactEdge struct {
		from, to, weight uint32
	}
	compact := make([]compactEdge, 0, len(g.edges))
	for _, e := range g.edges {
		from, to := idx[e.From], idx[e.To]
		if from == to {
			continue
		}
		compact = append(compact, compactEdge{from: from, to: to, weight: QuantizeSeconds(e.Weight)})
	}

	// Step 3: Sort by (source, target, weight) so the cheapest parallel edge
	// comes first.
	sort.Slice(compact, func(i, j int) bool {
		if compact[i].from != compact[j].from {
			return compact[i].from < compact[j].from
		}
		if compact[i].to != compact[j].to {
			return compact[i].to < compact[j].to
		}
		return compact[i].weight < compact[j].weight
	})

	// Step 4: Keep the first edge of every (source, target) run.
	dedup := compact[:0]
	for _, e := range compact {
		if n := len(dedup); n > 0 && dedup[n-1].from == e.from && dedup[n-1].to == e.to {
			continue
		}
		dedup = append(dedup, e)
	}

	// Step 5: Build CSR arrays.
	numEdges := uint32(len(dedup))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]uint32, numEdges)

	for i, e := range dedup {
		head[i] = e.to
		weight[i] = e.weight
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	return &CSR{
		NumNodes: numNodes,
		NumEdges: numEdges,
		IDs:      ids,
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
	}
}
