package graph

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownNode is returned when an operation references a node ID that
	// is not in the graph (or not in a score mapping derived from it).
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateNode is returned when adding a node whose ID already exists.
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrInvalidWeight is returned for negative, NaN or infinite edge weights.
	ErrInvalidWeight = errors.New("invalid edge weight")
)

// NodeID identifies a node. IDs are stable across clones, trims and snapshots.
type NodeID string

// Mode tags what kind of network element a node or edge belongs to.
type Mode uint8

const (
	ModeUnknown Mode = iota
	ModeWalk
	ModeTransit
	ModeSynthetic
)

func (m Mode) String() string {
	switch m {
	case ModeWalk:
		return "walk"
	case ModeTransit:
		return "transit"
	case ModeSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// Node is a located vertex. StopID, RouteID and Name are optional and only
// set for transit and synthetic stops.
type Node struct {
	ID      NodeID
	Lat     float64
	Lon     float64
	Mode    Mode
	StopID  string
	RouteID string
	Name    string
}

// Edge is a directed connection weighted by traversal time in seconds.
// Several edges may join the same pair of nodes (one per mode or route).
type Edge struct {
	From    NodeID
	To      NodeID
	Weight  float64
	Mode    Mode
	RouteID string
}

// Graph is a directed multigraph whose nodes carry coordinates.
//
// Nodes and edges keep insertion order, which makes every derived structure
// (trims, clones, snapshots) reproducible. A Graph is not safe for concurrent
// mutation; a graph that is no longer mutated may be read concurrently.
type Graph struct {
	nodes []Node
	index map[NodeID]int
	edges []Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[NodeID]int)}
}

// NewWithCapacity creates an empty graph with preallocated storage.
func NewWithCapacity(nodes, edges int) *Graph {
	return &Graph{
		nodes: make([]Node, 0, nodes),
		index: make(map[NodeID]int, nodes),
		edges: make([]Edge, 0, edges),
	}
}

// AddNode inserts n. Adding an ID twice returns ErrDuplicateNode.
func (g *Graph) AddNode(n Node) error {
	if g.index == nil {
		g.index = make(map[NodeID]int)
	}
	if _, ok := g.index[n.ID]; ok {
		return fmt.Errorf("add node %q: %w", n.ID, ErrDuplicateNode)
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// AddEdge inserts e. Both endpoints must already exist.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.index[e.From]; !ok {
		return fmt.Errorf("add edge %q->%q: source %w", e.From, e.To, ErrUnknownNode)
	}
	if _, ok := g.index[e.To]; !ok {
		return fmt.Errorf("add edge %q->%q: target %w", e.From, e.To, ErrUnknownNode)
	}
	if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
		return fmt.Errorf("add edge %q->%q: %w: %v", e.From, e.To, ErrInvalidWeight, e.Weight)
	}
	g.edges = append(g.edges, e)
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns the nodes in insertion order. The slice is owned by the
// graph and must not be modified.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns the edges in insertion order. The slice is owned by the
// graph and must not be modified.
func (g *Graph) Edges() []Edge { return g.edges }

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Clone returns a deep copy. Mutating the copy never affects g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes: make([]Node, len(g.nodes)),
		index: make(map[NodeID]int, len(g.nodes)),
		edges: make([]Edge, len(g.edges)),
	}
	copy(c.nodes, g.nodes)
	copy(c.edges, g.edges)
	for id, i := range g.index {
		c.index[id] = i
	}
	return c
}

// Union copies every node and edge of other into g. Node IDs must not
// collide.
func (g *Graph) Union(other *Graph) error {
	for _, n := range other.nodes {
		if err := g.AddNode(n); err != nil {
			return err
		}
	}
	for _, e := range other.edges {
		if err := g.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}
