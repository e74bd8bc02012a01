package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient, max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the IDs of the nodes in the largest weakly
// connected component, in graph insertion order. Ties go to the component
// whose first node was inserted first.
func LargestComponent(g *Graph) []NodeID {
	if len(g.nodes) == 0 {
		return nil
	}

	uf := NewUnionFind(uint32(len(g.nodes)))
	for _, e := range g.edges {
		uf.Union(uint32(g.index[e.From]), uint32(g.index[e.To]))
	}

	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := range uint32(len(g.nodes)) {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	ids := make([]NodeID, 0, bestSize)
	for i := range uint32(len(g.nodes)) {
		if uf.Find(i) == bestRoot {
			ids = append(ids, g.nodes[i].ID)
		}
	}
	return ids
}

// Subgraph returns a new graph holding only the listed nodes and the edges
// between them. Unknown IDs are ignored.
func Subgraph(g *Graph, ids []NodeID) *Graph {
	want := make(map[NodeID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return filter(g, func(n Node) bool {
		_, ok := want[n.ID]
		return ok
	})
}
