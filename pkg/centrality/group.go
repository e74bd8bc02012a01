package centrality

// group holds the nodes that settle at one distance, with scratch space for
// ordering them along zero-weight edges.
type group struct {
	slot    []int32 // node -> position in members, -1 outside the group
	members []uint32

	// Zero-weight edges between members, as a local CSR over positions.
	off []int32
	adj []int32

	// Tarjan state.
	index   []int32
	low     []int32
	comp    []int32
	onStack []bool
	tstack  []int32
	call    []tarjanFrame

	level []int32
	indeg []int32
	queue []int32
	order []uint32
}

type tarjanFrame struct {
	node int32
	next int32 // next position in adj to visit
}

func (g *group) add(u uint32) {
	g.slot[u] = int32(len(g.members))
	g.members = append(g.members, u)
}

func (g *group) has(u uint32) bool { return g.slot[u] >= 0 }

func (g *group) clear() {
	for _, u := range g.members {
		g.slot[u] = -1
	}
	g.members = g.members[:0]
}

// components labels every member with its strongly connected component in
// the local zero-weight graph.
func (g *group) components() {
	n := len(g.members)
	g.index = grow(g.index, n)
	g.low = grow(g.low, n)
	g.comp = grow(g.comp, n)
	g.onStack = grow(g.onStack, n)
	for i := range n {
		g.index[i] = -1
		g.onStack[i] = false
	}
	g.tstack = g.tstack[:0]

	var next, ncomp int32
	visit := func(v int32) {
		g.index[v] = next
		g.low[v] = next
		next++
		g.tstack = append(g.tstack, v)
		g.onStack[v] = true
		g.call = append(g.call, tarjanFrame{node: v, next: g.off[v]})
	}

	for root := range int32(n) {
		if g.index[root] >= 0 {
			continue
		}
		g.call = g.call[:0]
		visit(root)
		for len(g.call) > 0 {
			top := len(g.call) - 1
			v := g.call[top].node
			if p := g.call[top].next; p < g.off[v+1] {
				g.call[top].next++
				w := g.adj[p]
				if g.index[w] < 0 {
					visit(w)
				} else if g.onStack[w] {
					g.low[v] = min(g.low[v], g.index[w])
				}
				continue
			}

			g.call = g.call[:top]
			if top > 0 {
				parent := g.call[top-1].node
				g.low[parent] = min(g.low[parent], g.low[v])
			}
			if g.low[v] == g.index[v] {
				for {
					w := g.tstack[len(g.tstack)-1]
					g.tstack = g.tstack[:len(g.tstack)-1]
					g.onStack[w] = false
					g.comp[w] = ncomp
					if w == v {
						break
					}
				}
				ncomp++
			}
		}
	}
}

func grow[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
