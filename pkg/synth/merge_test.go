package synth

import (
	"errors"
	"math"
	"testing"

	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/graph"
	"github.com/azybler/route_impact/pkg/spatial"
)

// baseline returns the path A-B-C-D along latitude 37.80 in Oakland.
func baseline(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	ids := []graph.NodeID{"A", "B", "C", "D"}
	for i, id := range ids {
		n := graph.Node{ID: id, Lat: 37.80, Lon: -122.28 + float64(i)*0.001, Mode: graph.ModeWalk}
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i < len(ids); i++ {
		if err := g.AddEdge(graph.Edge{From: ids[i-1], To: ids[i], Weight: 60, Mode: graph.ModeWalk}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

// farRoute lies ~10 km north of the baseline.
func farRoute() Route {
	return Route{ID: "r1", Stops: []geo.Point{
		{Lat: 37.90, Lng: -122.28},
		{Lat: 37.901, Lng: -122.28},
	}}
}

func TestMergeLeavesBaselineUntouched(t *testing.T) {
	g := baseline(t)
	merged, err := Merge(g, farRoute(), Service{HeadwaySeconds: 600, SpeedKPH: 20}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if g.NumNodes() != 4 || g.NumEdges() != 3 {
		t.Errorf("baseline mutated: %d nodes, %d edges", g.NumNodes(), g.NumEdges())
	}
	if g.HasNode("synthetic_1") {
		t.Error("baseline gained a synthetic node")
	}
	if merged.NumNodes() != 6 {
		t.Errorf("merged NumNodes = %d, want 6", merged.NumNodes())
	}
	if merged.NumEdges() != 5 {
		t.Errorf("merged NumEdges = %d, want 5 (3 baseline + 2 route)", merged.NumEdges())
	}
	for _, id := range []graph.NodeID{"A", "B", "C", "D"} {
		if !merged.HasNode(id) {
			t.Errorf("merged graph lost baseline node %s", id)
		}
	}
}

func TestMergeNodeFields(t *testing.T) {
	merged, err := Merge(baseline(t), farRoute(), Service{SpeedKPH: 20}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	n, ok := merged.Node("synthetic_1")
	if !ok {
		t.Fatal("synthetic_1 missing")
	}
	if n.Mode != graph.ModeSynthetic {
		t.Errorf("Mode = %v, want synthetic", n.Mode)
	}
	if n.RouteID != "r1" {
		t.Errorf("RouteID = %q, want r1", n.RouteID)
	}
	if n.Lat != 37.90 || n.Lon != -122.28 {
		t.Errorf("position = (%v, %v), want first stop", n.Lat, n.Lon)
	}
}

func TestMergeAvoidsIDCollisions(t *testing.T) {
	g := baseline(t)
	if err := g.AddNode(graph.Node{ID: "synthetic_1", Lat: 37.8, Lon: -122.3}); err != nil {
		t.Fatal(err)
	}

	merged, err := Merge(g, farRoute(), Service{SpeedKPH: 20}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []graph.NodeID{"synthetic_2", "synthetic_3"} {
		if n, ok := merged.Node(id); !ok || n.Mode != graph.ModeSynthetic {
			t.Errorf("expected new synthetic node %s", id)
		}
	}
	if n, _ := merged.Node("synthetic_1"); n.Mode == graph.ModeSynthetic {
		t.Error("existing node synthetic_1 was overwritten")
	}
}

func TestMergeEdgeCost(t *testing.T) {
	route := farRoute()
	svc := Service{HeadwaySeconds: 100, SpeedKPH: 36} // 10 m/s
	opts := Options{WaitFactor: 0.5, IDPrefix: "x"}

	merged, err := Merge(graph.New(), route, svc, opts)
	if err != nil {
		t.Fatal(err)
	}

	d := route.Stops[0].DistanceTo(route.Stops[1])
	want := d/10 + 50
	edges := merged.Edges()
	if len(edges) != 2 {
		t.Fatalf("len(edges) = %d, want 2 (both directions)", len(edges))
	}
	for _, e := range edges {
		if math.Abs(e.Weight-want) > 1e-9 {
			t.Errorf("%s->%s weight = %v, want %v", e.From, e.To, e.Weight, want)
		}
		if e.Mode != graph.ModeSynthetic || e.RouteID != "r1" {
			t.Errorf("edge %s->%s tagged %v/%q", e.From, e.To, e.Mode, e.RouteID)
		}
	}
	if edges[0].From != edges[1].To || edges[0].To != edges[1].From {
		t.Errorf("edges are not a reverse pair: %+v", edges)
	}
	if got := EdgeCost(d, svc, 0.5); math.Abs(got-want) > 1e-9 {
		t.Errorf("EdgeCost = %v, want %v", got, want)
	}
}

func TestMergeInvalid(t *testing.T) {
	good := farRoute()
	svc := DefaultService()
	tests := []struct {
		name   string
		routes []Route
		svc    Service
		opts   Options
	}{
		{"no routes", nil, svc, DefaultOptions()},
		{"one stop", []Route{{Stops: good.Stops[:1]}}, svc, DefaultOptions()},
		{"no stops", []Route{{}}, svc, DefaultOptions()},
		{"NaN coordinate", []Route{{Stops: []geo.Point{{Lat: math.NaN(), Lng: 0}, {Lat: 1, Lng: 1}}}}, svc, DefaultOptions()},
		{"latitude out of range", []Route{{Stops: []geo.Point{{Lat: 91, Lng: 0}, {Lat: 1, Lng: 1}}}}, svc, DefaultOptions()},
		{"duplicate stops only", []Route{{Stops: []geo.Point{good.Stops[0], good.Stops[0]}}}, svc, DefaultOptions()},
		{"zero speed", []Route{good}, Service{HeadwaySeconds: 900}, DefaultOptions()},
		{"negative speed", []Route{good}, Service{SpeedKPH: -5}, DefaultOptions()},
		{"infinite speed", []Route{good}, Service{SpeedKPH: math.Inf(1)}, DefaultOptions()},
		{"negative headway", []Route{good}, Service{SpeedKPH: 16, HeadwaySeconds: -1}, DefaultOptions()},
		{"negative spacing", []Route{good}, Service{SpeedKPH: 16, SpacingMeters: -1}, DefaultOptions()},
		{"negative wait factor", []Route{good}, svc, Options{WaitFactor: -0.5}},
		{"second route invalid", []Route{good, {Stops: good.Stops[:1]}}, svc, DefaultOptions()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := baseline(t)
			merged, err := MergeAll(g, tt.routes, tt.svc, tt.opts)
			if !errors.Is(err, ErrInvalidRoute) {
				t.Errorf("err = %v, want ErrInvalidRoute", err)
			}
			if merged != nil {
				t.Error("merged graph returned alongside error")
			}
			if g.NumNodes() != 4 {
				t.Errorf("baseline mutated on error: %d nodes", g.NumNodes())
			}
		})
	}
}

func TestMergeAllUniqueIDs(t *testing.T) {
	r1 := farRoute()
	r2 := Route{Stops: []geo.Point{{Lat: 37.70, Lng: -122.20}, {Lat: 37.701, Lng: -122.20}, {Lat: 37.702, Lng: -122.20}}}

	merged, err := MergeAll(baseline(t), []Route{r1, r2}, Service{SpeedKPH: 16}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if merged.NumNodes() != 4+2+3 {
		t.Fatalf("NumNodes = %d, want 9", merged.NumNodes())
	}
	routeOf := make(map[string]int)
	for _, n := range merged.Nodes() {
		if n.Mode == graph.ModeSynthetic {
			routeOf[n.RouteID]++
		}
	}
	if routeOf["r1"] != 2 || routeOf["route_2"] != 3 {
		t.Errorf("stops per route = %v, want r1:2 route_2:3", routeOf)
	}
}

func TestMergeSnapping(t *testing.T) {
	g := baseline(t)
	idx := spatial.NewIndex(g, nil)

	// First stop ~11 m north of B, second stop far from everything.
	route := Route{ID: "r", Stops: []geo.Point{
		{Lat: 37.8001, Lng: -122.279},
		{Lat: 37.85, Lng: -122.279},
	}}
	svc := Service{SpeedKPH: 16}

	tests := []struct {
		name       string
		radius     float64
		snapper    Snapper
		connectors int
	}{
		{"snap within radius", 50, idx, 2},
		{"radius too small", 5, idx, 0},
		{"radius zero disables", 0, idx, 0},
		{"no snapper", 50, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.SnapRadiusMeters = tt.radius
			opts.Snapper = tt.snapper

			merged, err := Merge(g, route, svc, opts)
			if err != nil {
				t.Fatal(err)
			}

			var connectors []graph.Edge
			for _, e := range merged.Edges() {
				if e.Mode == graph.ModeWalk && (e.From == "synthetic_1" || e.To == "synthetic_1") {
					connectors = append(connectors, e)
				}
			}
			if len(connectors) != tt.connectors {
				t.Fatalf("connectors = %d, want %d", len(connectors), tt.connectors)
			}
			if tt.connectors == 0 {
				return
			}

			wantW := geo.Haversine(37.8001, -122.279, 37.80, -122.279) / (DefaultWalkSpeedKPH / 3.6)
			for _, e := range connectors {
				if e.From != "B" && e.To != "B" {
					t.Errorf("connector %s->%s does not reach B", e.From, e.To)
				}
				if math.Abs(e.Weight-wantW) > 1e-6 {
					t.Errorf("connector weight = %v, want %v", e.Weight, wantW)
				}
			}
		})
	}
}

func TestResample(t *testing.T) {
	a := geo.Point{Lat: 37.80, Lng: -122.27}
	b := geo.Point{Lat: 37.809, Lng: -122.27} // ~1000 m north of a

	tests := []struct {
		name    string
		stops   []geo.Point
		spacing float64
		want    int
	}{
		{"no spacing keeps stops", []geo.Point{a, b}, 0, 2},
		{"spacing 402 over ~1 km", []geo.Point{a, b}, 402, 4},
		{"spacing longer than segment", []geo.Point{a, b}, 5000, 2},
		{"duplicates collapse", []geo.Point{a, a, b, b}, 0, 2},
		{"single point", []geo.Point{a}, 402, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resample(tt.stops, tt.spacing)
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			if got[0] != tt.stops[0] || got[len(got)-1] != tt.stops[len(tt.stops)-1] {
				t.Errorf("endpoints changed: %v", got)
			}
			for i := 1; tt.spacing > 0 && i < len(got); i++ {
				if d := got[i-1].DistanceTo(got[i]); d > tt.spacing+1e-6 {
					t.Errorf("gap %d = %f m exceeds spacing %f", i, d, tt.spacing)
				}
			}
		})
	}
}
