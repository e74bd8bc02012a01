package api

import (
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/route_impact/pkg/analysis"
)

// BaselineResponse is the JSON response for GET /api/v1/baseline.
type BaselineResponse struct {
	Centrality *geojson.FeatureCollection `json:"centrality"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes int `json:"num_nodes"`
	NumEdges int `json:"num_edges"`
	// BBox is the network extent as [min_lon, min_lat, max_lon, max_lat].
	BBox            [4]float64 `json:"bbox"`
	P10             float64    `json:"p10"`
	P50             float64    `json:"p50"`
	P90             float64    `json:"p90"`
	BaselineSeconds float64    `json:"baseline_seconds"`
}

// NewStatsResponse reports a baseline's size and score distribution.
func NewStatsResponse(st analysis.Stats) StatsResponse {
	return StatsResponse{
		NumNodes:        st.NumNodes,
		NumEdges:        st.NumEdges,
		BBox:            [4]float64{st.Bounds.MinLng, st.Bounds.MinLat, st.Bounds.MaxLng, st.Bounds.MaxLat},
		P10:             st.Percentiles.P10,
		P50:             st.Percentiles.P50,
		P90:             st.Percentiles.P90,
		BaselineSeconds: st.Elapsed.Seconds(),
	}
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
