// Package config loads the server configuration from an optional TOML file
// and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ironsheep/label-segment-mcp/internal/detection"
	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// Environment variables read by Load.
const (
	EnvConfig   = "SEGMENT_MCP_CONFIG"
	EnvLogLevel = "SEGMENT_MCP_LOG_LEVEL"
	EnvLogFile  = "SEGMENT_MCP_LOG_FILE"
)

// Config is the full server configuration.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Segment   SegmentConfig   `toml:"segment"`
	Detection DetectionConfig `toml:"detection"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `toml:"-"`
}

// LogConfig controls logging. An empty File logs to stderr.
type LogConfig struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	MaxSize int    `toml:"max_size"` // megabytes
	MaxAge  int    `toml:"max_age"`  // days
}

// SegmentConfig holds defaults for engine calls and tiled detection.
type SegmentConfig struct {
	Connectivity       int `toml:"connectivity"`
	TileSize           int `toml:"tile_size"`
	TileOverlap        int `toml:"tile_overlap"`
	MaxConcurrentTiles int `toml:"max_concurrent_tiles"`
}

// DetectionConfig holds defaults for segment_detect_objects.
type DetectionConfig struct {
	SmoothSigma float64 `toml:"smooth_sigma"`
	MinArea     int     `toml:"min_area"`
	MaxArea     int     `toml:"max_area"`
	H           float64 `toml:"h"`
	Expansion   float64 `toml:"expansion"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:   "info",
			MaxSize: 10,
			MaxAge:  7,
		},
		Segment: SegmentConfig{
			Connectivity:       8,
			TileSize:           512,
			TileOverlap:        32,
			MaxConcurrentTiles: 4,
		},
		Detection: DetectionConfig{
			H: 1,
		},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (or
// at $SEGMENT_MCP_CONFIG when path is empty), then environment overrides.
// Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
		cfg.Source = path
		if cfg.Log.File != "" && !filepath.IsAbs(cfg.Log.File) {
			cfg.Log.File = filepath.Join(filepath.Dir(path), cfg.Log.File)
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Log.File = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.MaxSize < 0 || c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_size and log.max_age must not be negative")
	}
	if _, err := raster.ParseConnectivity(c.Segment.Connectivity); err != nil {
		return fmt.Errorf("segment.connectivity: %w", err)
	}
	if err := c.TileOptions().Validate(); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	opts := c.DetectionOptions()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	return nil
}

// Conn returns the configured default connectivity.
func (c *Config) Conn() raster.Connectivity {
	conn, _ := raster.ParseConnectivity(c.Segment.Connectivity)
	return conn
}

// DetectionOptions returns detection defaults built from the configuration.
func (c *Config) DetectionOptions() detection.Options {
	opts := detection.DefaultOptions()
	opts.Connectivity = c.Conn()
	opts.SmoothSigma = c.Detection.SmoothSigma
	opts.MinArea = c.Detection.MinArea
	opts.MaxArea = c.Detection.MaxArea
	opts.H = c.Detection.H
	opts.Expansion = c.Detection.Expansion
	return opts
}

// TileOptions returns tiling defaults built from the configuration.
func (c *Config) TileOptions() detection.TileOptions {
	return detection.TileOptions{
		Size:    c.Segment.TileSize,
		Overlap: c.Segment.TileOverlap,
		Workers: c.Segment.MaxConcurrentTiles,
	}
}
