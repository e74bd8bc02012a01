// Package config loads route-impact settings from the config file,
// ROUTE_IMPACT_* environment variables and command-line flags.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/azybler/route_impact/pkg/centrality"
	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/impact"
	"github.com/azybler/route_impact/pkg/synth"
)

// EnvPrefix prefixes environment overrides, e.g. ROUTE_IMPACT_SERVER_ADDR.
const EnvPrefix = "ROUTE_IMPACT"

type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
	MaxConcurrent  int           `mapstructure:"max_concurrent" yaml:"max_concurrent" validate:"gte=1"`
	CORSOrigin     string        `mapstructure:"cors_origin" yaml:"cors_origin"`
}

type NetworkConfig struct {
	GraphPath        string `mapstructure:"graph_path" yaml:"graph_path" validate:"required"`
	LargestComponent bool   `mapstructure:"largest_component" yaml:"largest_component"`
}

// BBoxConfig is the analysis area. All four zero disables trimming.
type BBoxConfig struct {
	XMin float64 `mapstructure:"xmin" yaml:"xmin" validate:"gte=-180,lte=180"`
	XMax float64 `mapstructure:"xmax" yaml:"xmax" validate:"gte=-180,lte=180,gtefield=XMin"`
	YMin float64 `mapstructure:"ymin" yaml:"ymin" validate:"gte=-90,lte=90"`
	YMax float64 `mapstructure:"ymax" yaml:"ymax" validate:"gte=-90,lte=90,gtefield=YMin"`
}

type CentralityConfig struct {
	Normalized bool `mapstructure:"normalized" yaml:"normalized"`
	Workers    int  `mapstructure:"workers" yaml:"workers" validate:"gte=0"`
}

// RouteConfig holds the service parameters and merge settings applied to
// every proposed route.
type RouteConfig struct {
	HeadwaySeconds   float64 `mapstructure:"headway_seconds" yaml:"headway_seconds" validate:"gte=0"`
	SpeedKPH         float64 `mapstructure:"speed_kph" yaml:"speed_kph" validate:"gt=0"`
	SpacingMeters    float64 `mapstructure:"spacing_meters" yaml:"spacing_meters" validate:"gte=0"`
	WaitFactor       float64 `mapstructure:"wait_factor" yaml:"wait_factor" validate:"gte=0"`
	MaxStops         int     `mapstructure:"max_stops" yaml:"max_stops" validate:"gte=2"`
	SnapRadiusMeters float64 `mapstructure:"snap_radius_meters" yaml:"snap_radius_meters" validate:"gte=0"`
	WalkSpeedKPH     float64 `mapstructure:"walk_speed_kph" yaml:"walk_speed_kph" validate:"gt=0"`
	IDPrefix         string  `mapstructure:"id_prefix" yaml:"id_prefix" validate:"required"`
}

type ImpactConfig struct {
	Policy    string  `mapstructure:"policy" yaml:"policy" validate:"oneof=increase all"`
	MinChange float64 `mapstructure:"min_change" yaml:"min_change" validate:"gte=0"`
}

// PreprocessConfig controls how raw OSM and GTFS inputs become a network
// snapshot.
type PreprocessConfig struct {
	OSMPath             string  `mapstructure:"osm_path" yaml:"osm_path"`
	GTFSPath            string  `mapstructure:"gtfs_path" yaml:"gtfs_path"`
	GTFSPrefix          string  `mapstructure:"gtfs_prefix" yaml:"gtfs_prefix"`
	WalkSpeedKPH        float64 `mapstructure:"walk_speed_kph" yaml:"walk_speed_kph" validate:"gt=0"`
	ConnectRadiusMeters float64 `mapstructure:"connect_radius_meters" yaml:"connect_radius_meters" validate:"gte=0"`
}

// Config holds all runtime configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
	BBox       BBoxConfig       `mapstructure:"bbox" yaml:"bbox"`
	Centrality CentralityConfig `mapstructure:"centrality" yaml:"centrality"`
	Route      RouteConfig      `mapstructure:"route" yaml:"route"`
	Impact     ImpactConfig     `mapstructure:"impact" yaml:"impact"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess"`
}

// SetDefaults registers the built-in default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.request_timeout", time.Minute)
	v.SetDefault("server.max_concurrent", runtime.NumCPU())
	v.SetDefault("server.cors_origin", "")

	v.SetDefault("network.graph_path", "data/network.bin")
	v.SetDefault("network.largest_component", false)

	// Downtown Oakland.
	v.SetDefault("bbox.xmin", -122.344887)
	v.SetDefault("bbox.xmax", -122.215516)
	v.SetDefault("bbox.ymin", 37.782774)
	v.SetDefault("bbox.ymax", 37.835123)

	v.SetDefault("centrality.normalized", false)
	v.SetDefault("centrality.workers", runtime.NumCPU())

	v.SetDefault("route.headway_seconds", synth.DefaultHeadwaySeconds)
	v.SetDefault("route.speed_kph", synth.DefaultSpeedKPH)
	v.SetDefault("route.spacing_meters", synth.DefaultSpacingMeters)
	v.SetDefault("route.wait_factor", synth.DefaultWaitFactor)
	v.SetDefault("route.max_stops", 5)
	v.SetDefault("route.snap_radius_meters", 0.0)
	v.SetDefault("route.walk_speed_kph", synth.DefaultWalkSpeedKPH)
	v.SetDefault("route.id_prefix", synth.DefaultIDPrefix)

	v.SetDefault("impact.policy", impact.PolicyIncrease.String())
	v.SetDefault("impact.min_change", 0.0)

	v.SetDefault("preprocess.osm_path", "")
	v.SetDefault("preprocess.gtfs_path", "")
	v.SetDefault("preprocess.gtfs_prefix", "gtfs")
	v.SetDefault("preprocess.walk_speed_kph", synth.DefaultWalkSpeedKPH)
	v.SetDefault("preprocess.connect_radius_meters", 250.0)
}

// BindEnv makes ROUTE_IMPACT_<SECTION>_<KEY> override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the global viper instance, applying
// built-in defaults for any values not set by config file, environment, or
// flags, and validates the result.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for a specific viper instance.
func LoadFrom(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Area returns the analysis bounding box.
func (c Config) Area() geo.BBox {
	return geo.BBox{MinLng: c.BBox.XMin, MaxLng: c.BBox.XMax, MinLat: c.BBox.YMin, MaxLat: c.BBox.YMax}
}

// CentralityOptions returns the options for the baseline centrality run.
func (c Config) CentralityOptions() centrality.Options {
	return centrality.Options{Normalized: c.Centrality.Normalized, Workers: c.Centrality.Workers}
}

// Service returns the service parameters applied to proposed routes.
func (c Config) Service() synth.Service {
	return synth.Service{
		HeadwaySeconds: c.Route.HeadwaySeconds,
		SpeedKPH:       c.Route.SpeedKPH,
		SpacingMeters:  c.Route.SpacingMeters,
	}
}

// MergeOptions returns the route merge settings. The snapper is left for the
// caller to supply.
func (c Config) MergeOptions() synth.Options {
	return synth.Options{
		WaitFactor:       c.Route.WaitFactor,
		SnapRadiusMeters: c.Route.SnapRadiusMeters,
		WalkSpeedKPH:     c.Route.WalkSpeedKPH,
		IDPrefix:         c.Route.IDPrefix,
	}
}

// ImpactOptions returns the diff reporting settings.
func (c Config) ImpactOptions() (impact.Options, error) {
	p, err := impact.ParsePolicy(c.Impact.Policy)
	if err != nil {
		return impact.Options{}, err
	}
	return impact.Options{Policy: p, MinChange: c.Impact.MinChange}, nil
}
