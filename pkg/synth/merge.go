// Package synth merges proposed transit routes into a copy of a network.
//
// A route is a polyline of stop coordinates served at a uniform headway and
// speed. Merging resamples the polyline to the configured stop spacing, adds
// one synthetic node per stop and a pair of directed edges between
// consecutive stops, and optionally connects each stop to the nearest
// existing node with walking connectors. The input graph is never modified.
package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/graph"
	"github.com/azybler/route_impact/pkg/spatial"
)

// ErrInvalidRoute is returned for routes or service parameters that cannot
// be merged.
var ErrInvalidRoute = errors.New("invalid route")

const (
	DefaultHeadwaySeconds = 900.0
	DefaultSpeedKPH       = 16.0
	DefaultSpacingMeters  = 402.0
	DefaultWaitFactor     = 0.5
	DefaultWalkSpeedKPH   = 4.5
	DefaultIDPrefix       = "synthetic"
)

// Route is a candidate transit line: an ordered list of stop positions.
type Route struct {
	ID    string
	Stops []geo.Point
}

// Service holds the operating parameters applied uniformly along a route.
type Service struct {
	HeadwaySeconds float64
	SpeedKPH       float64
	// SpacingMeters is the target distance between stops. Zero keeps the
	// given stops as they are.
	SpacingMeters float64
}

// DefaultService returns the parameters used when a request does not carry
// its own.
func DefaultService() Service {
	return Service{
		HeadwaySeconds: DefaultHeadwaySeconds,
		SpeedKPH:       DefaultSpeedKPH,
		SpacingMeters:  DefaultSpacingMeters,
	}
}

// Snapper finds the nearest existing node to a stop.
type Snapper interface {
	Nearest(lat, lon, radius float64) (spatial.Match, error)
}

// Options controls how a route is attached to the network.
type Options struct {
	// WaitFactor scales the headway into an expected boarding wait that is
	// added to every stop-to-stop edge.
	WaitFactor float64
	// SnapRadiusMeters bounds the connector search. Zero leaves the route
	// unconnected.
	SnapRadiusMeters float64
	WalkSpeedKPH     float64
	// IDPrefix names new nodes "<prefix>_<n>".
	IDPrefix string
	Snapper  Snapper
}

// DefaultOptions returns Options with the default wait factor, walking speed
// and ID prefix and snapping disabled.
func DefaultOptions() Options {
	return Options{
		WaitFactor:   DefaultWaitFactor,
		WalkSpeedKPH: DefaultWalkSpeedKPH,
		IDPrefix:     DefaultIDPrefix,
	}
}

// Merge returns a copy of g with route added.
func Merge(g *graph.Graph, route Route, svc Service, opts Options) (*graph.Graph, error) {
	return MergeAll(g, []Route{route}, svc, opts)
}

// MergeAll returns a copy of g with every route added. Routes are validated
// before the copy is made; one invalid route fails the whole merge.
func MergeAll(g *graph.Graph, routes []Route, svc Service, opts Options) (*graph.Graph, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: no routes", ErrInvalidRoute)
	}
	if err := validateService(svc, opts); err != nil {
		return nil, err
	}

	stops := make([][]geo.Point, len(routes))
	for i, r := range routes {
		if err := validateRoute(r); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		pts := resample(r.Stops, svc.SpacingMeters)
		if len(pts) < 2 {
			return nil, fmt.Errorf("route %d: %w: stops collapse to a single point", i, ErrInvalidRoute)
		}
		stops[i] = pts
	}

	m := &merger{
		g:    g.Clone(),
		svc:  svc,
		opts: opts,
	}
	if m.opts.IDPrefix == "" {
		m.opts.IDPrefix = DefaultIDPrefix
	}
	if m.opts.WalkSpeedKPH <= 0 {
		m.opts.WalkSpeedKPH = DefaultWalkSpeedKPH
	}

	for i, r := range routes {
		routeID := r.ID
		if routeID == "" {
			routeID = fmt.Sprintf("route_%d", i+1)
		}
		if err := m.addRoute(routeID, stops[i]); err != nil {
			return nil, fmt.Errorf("merge route %q: %w", routeID, err)
		}
	}
	return m.g, nil
}

// EdgeCost returns the stop-to-stop traversal cost in seconds for a segment
// of the given length: in-vehicle time plus the expected wait.
func EdgeCost(meters float64, svc Service, waitFactor float64) float64 {
	return meters/(svc.SpeedKPH/3.6) + waitFactor*svc.HeadwaySeconds
}

func validateService(svc Service, opts Options) error {
	switch {
	case !finite(svc.SpeedKPH) || svc.SpeedKPH <= 0:
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidRoute, svc.SpeedKPH)
	case !finite(svc.HeadwaySeconds) || svc.HeadwaySeconds < 0:
		return fmt.Errorf("%w: headway must be non-negative, got %v", ErrInvalidRoute, svc.HeadwaySeconds)
	case !finite(svc.SpacingMeters) || svc.SpacingMeters < 0:
		return fmt.Errorf("%w: stop spacing must be non-negative, got %v", ErrInvalidRoute, svc.SpacingMeters)
	case !finite(opts.WaitFactor) || opts.WaitFactor < 0:
		return fmt.Errorf("%w: wait factor must be non-negative, got %v", ErrInvalidRoute, opts.WaitFactor)
	case !finite(opts.SnapRadiusMeters) || opts.SnapRadiusMeters < 0:
		return fmt.Errorf("%w: snap radius must be non-negative, got %v", ErrInvalidRoute, opts.SnapRadiusMeters)
	}
	return nil
}

func validateRoute(r Route) error {
	if len(r.Stops) < 2 {
		return fmt.Errorf("%w: need at least 2 stops, got %d", ErrInvalidRoute, len(r.Stops))
	}
	for i, p := range r.Stops {
		if !p.Valid() {
			return fmt.Errorf("%w: stop %d has invalid coordinates (%v, %v)", ErrInvalidRoute, i, p.Lat, p.Lng)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type merger struct {
	g    *graph.Graph
	svc  Service
	opts Options
	seq  int
}

// nextID returns the next "<prefix>_<n>" not already used in the graph.
func (m *merger) nextID() graph.NodeID {
	for {
		m.seq++
		id := graph.NodeID(fmt.Sprintf("%s_%d", m.opts.IDPrefix, m.seq))
		if !m.g.HasNode(id) {
			return id
		}
	}
}

func (m *merger) addRoute(routeID string, stops []geo.Point) error {
	ids := make([]graph.NodeID, len(stops))
	for i, p := range stops {
		ids[i] = m.nextID()
		err := m.g.AddNode(graph.Node{
			ID:      ids[i],
			Lat:     p.Lat,
			Lon:     p.Lng,
			Mode:    graph.ModeSynthetic,
			StopID:  string(ids[i]),
			RouteID: routeID,
		})
		if err != nil {
			return err
		}
	}

	for i := 1; i < len(stops); i++ {
		w := EdgeCost(stops[i-1].DistanceTo(stops[i]), m.svc, m.opts.WaitFactor)
		if err := m.addPair(ids[i-1], ids[i], w, graph.ModeSynthetic, routeID); err != nil {
			return err
		}
	}

	if m.opts.Snapper == nil || m.opts.SnapRadiusMeters <= 0 {
		return nil
	}
	walkMPS := m.opts.WalkSpeedKPH / 3.6
	for i, p := range stops {
		match, err := m.opts.Snapper.Nearest(p.Lat, p.Lng, m.opts.SnapRadiusMeters)
		if errors.Is(err, spatial.ErrNoNodeInRadius) {
			continue
		}
		if err != nil {
			return fmt.Errorf("snap stop %s: %w", ids[i], err)
		}
		if err := m.addPair(ids[i], match.ID, match.Dist/walkMPS, graph.ModeWalk, ""); err != nil {
			return fmt.Errorf("connect stop %s: %w", ids[i], err)
		}
	}
	return nil
}

func (m *merger) addPair(a, b graph.NodeID, w float64, mode graph.Mode, routeID string) error {
	if err := m.g.AddEdge(graph.Edge{From: a, To: b, Weight: w, Mode: mode, RouteID: routeID}); err != nil {
		return err
	}
	return m.g.AddEdge(graph.Edge{From: b, To: a, Weight: w, Mode: mode, RouteID: routeID})
}
