package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"mime"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/route_impact/pkg/analysis"
	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/impact"
	"github.com/azybler/route_impact/pkg/synth"
)

const defaultMaxBodyBytes = 1 << 20

// HandlerConfig holds the request-level settings.
type HandlerConfig struct {
	// Service is applied to every proposed route.
	Service synth.Service
	// MaxStops truncates each route's coordinate list. Zero keeps all.
	MaxStops     int
	MaxBodyBytes int64
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	analyzer analysis.Analyzer
	cfg      HandlerConfig
	stats    StatsResponse
	baseline BaselineResponse
}

// NewHandlers creates handlers around analyzer. The baseline response is
// built once here.
func NewHandlers(analyzer analysis.Analyzer, cfg HandlerConfig, stats StatsResponse) *Handlers {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handlers{
		analyzer: analyzer,
		cfg:      cfg,
		stats:    stats,
		baseline: BaselineResponse{Centrality: BandsCollection(analyzer.Baseline().Bands())},
	}
}

// HandleAnalyze handles POST /api/v1/analyze.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Enforce Content-Type. GeoJSON clients may send either media type.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" && mediaType != "application/geo+json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "content_type", "")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body", "")
		return
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body", "")
		return
	}

	routes, err := RoutesFromFeatures(fc, h.cfg.MaxStops)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "geometry", err.Error())
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), routes, h.cfg.Service)
	if err != nil {
		switch {
		case errors.Is(err, synth.ErrInvalidRoute):
			writeError(w, http.StatusUnprocessableEntity, "invalid_route", "", err.Error())
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "", "")
		default:
			log.Printf("analyze: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "", "")
		}
		return
	}

	writeJSON(w, ImpactCollection(result.Records))
}

// HandleBaseline handles GET /api/v1/baseline.
func (h *Handlers) HandleBaseline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.baseline)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleHealthy handles GET /healthy, the plain-text liveness check.
func (h *Handlers) HandleHealthy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "healthy")
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats)
}

// RoutesFromFeatures turns each LineString or MultiPoint feature into a
// route. Point features, in order, together form one more route.
func RoutesFromFeatures(fc *geojson.FeatureCollection, maxStops int) ([]synth.Route, error) {
	var routes []synth.Route
	var loose []geo.Point

	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			routes = append(routes, synth.Route{ID: featureID(f), Stops: toPoints(g, maxStops)})
		case orb.MultiPoint:
			routes = append(routes, synth.Route{ID: featureID(f), Stops: toPoints(g, maxStops)})
		case orb.Point:
			loose = append(loose, geo.Point{Lat: g.Lat(), Lng: g.Lon()})
		case nil:
			return nil, fmt.Errorf("feature %d has no geometry", i)
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry %s", i, g.GeoJSONType())
		}
	}
	if len(loose) > 0 {
		if maxStops > 0 && len(loose) > maxStops {
			loose = loose[:maxStops]
		}
		routes = append(routes, synth.Route{Stops: loose})
	}
	return routes, nil
}

func featureID(f *geojson.Feature) string {
	if id := f.Properties.MustString("route_id", ""); id != "" {
		return id
	}
	if s, ok := f.ID.(string); ok {
		return s
	}
	return ""
}

func toPoints(pts []orb.Point, maxStops int) []geo.Point {
	if maxStops > 0 && len(pts) > maxStops {
		pts = pts[:maxStops]
	}
	out := make([]geo.Point, len(pts))
	for i, p := range pts {
		out[i] = geo.Point{Lat: p.Lat(), Lng: p.Lon()}
	}
	return out
}

// ImpactCollection renders impact records as Point features carrying
// percent_change.
func ImpactCollection(records []impact.Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		f := geojson.NewFeature(orb.Point{r.Lon, r.Lat})
		f.ID = string(r.NodeID)
		f.Properties["percent_change"] = r.Change
		fc.Append(f)
	}
	return fc
}

// BandsCollection renders strong and weak baseline nodes as Point features
// carrying centrality (distance from the median) and type.
func BandsCollection(bands []impact.BandRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range bands {
		f := geojson.NewFeature(orb.Point{b.Lon, b.Lat})
		f.ID = string(b.NodeID)
		f.Properties["centrality"] = round5(b.Magnitude)
		f.Properties["type"] = string(b.Band)
		fc.Append(f)
	}
	return fc
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field, Message: msg})
}
