package graph

import "github.com/azybler/route_impact/pkg/geo"

// Trim returns a new graph holding exactly the nodes of g that lie inside
// the closed box, and exactly the edges whose endpoints both survive.
// Node and edge order is preserved. g is not modified.
func Trim(g *Graph, box geo.BBox) *Graph {
	return filter(g, func(n Node) bool {
		return box.Contains(n.Lat, n.Lon)
	})
}

// filter copies the nodes accepted by keep and the edges between them.
func filter(g *Graph, keep func(Node) bool) *Graph {
	kept := make(map[NodeID]struct{}, len(g.nodes))
	for _, n := range g.nodes {
		if keep(n) {
			kept[n.ID] = struct{}{}
		}
	}

	out := NewWithCapacity(len(kept), 0)
	for _, n := range g.nodes {
		if _, ok := kept[n.ID]; ok {
			out.index[n.ID] = len(out.nodes)
			out.nodes = append(out.nodes, n)
		}
	}

	for _, e := range g.edges {
		_, fromOK := kept[e.From]
		_, toOK := kept[e.To]
		if fromOK && toOK {
			out.edges = append(out.edges, e)
		}
	}

	return out
}

// Bounds returns the smallest box covering every node. The zero box is
// returned for an empty graph.
func (g *Graph) Bounds() geo.BBox {
	if len(g.nodes) == 0 {
		return geo.BBox{}
	}
	b := geo.BBox{
		MinLng: g.nodes[0].Lon, MaxLng: g.nodes[0].Lon,
		MinLat: g.nodes[0].Lat, MaxLat: g.nodes[0].Lat,
	}
	for _, n := range g.nodes[1:] {
		b.MinLng = min(b.MinLng, n.Lon)
		b.MaxLng = max(b.MaxLng, n.Lon)
		b.MinLat = min(b.MinLat, n.Lat)
		b.MaxLat = max(b.MaxLat, n.Lat)
	}
	return b
}
