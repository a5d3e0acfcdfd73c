// Package config loads the pipeline configuration from TOML.
package config

import (
	_ "embed"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

//go:embed sample_config.toml
var sampleConfig string

// Tracking contains point-tracker configuration.
type Tracking struct {
	Detector    string  `toml:"detector"`
	MaxFeatures int     `toml:"max_features"`
	MinTracks   int     `toml:"min_tracks"`
	PatternSize float64 `toml:"pattern_size"`
	SearchSize  float64 `toml:"search_size"`
}

// Quality contains track filtering thresholds.
type Quality struct {
	MinCorrelation float64 `toml:"min_correlation"`
	MinFrames      int     `toml:"min_frames"`
}

// Solving contains intrinsics-refinement toggles for the solve backend.
type Solving struct {
	RefineFocalLength    bool `toml:"refine_focal_length"`
	RefinePrincipalPoint bool `toml:"refine_principal_point"`
	RefineRadial         bool `toml:"refine_radial"`
	RefineTangential     bool `toml:"refine_tangential"`
}

// Stabilization contains 0-1 smoothing strengths.
type Stabilization struct {
	SmoothTranslation float64 `toml:"smooth_translation"`
	SmoothRotation    float64 `toml:"smooth_rotation"`
	SmoothScale       float64 `toml:"smooth_scale"`
	Invert            bool    `toml:"invert"`
}

// Camera names the lens profile and where extra profile files live.
type Camera struct {
	Profile    string `toml:"profile"`
	ProfileDir string `toml:"profile_dir"`
}

// Config is the root pipeline configuration.
type Config struct {
	Tracking      Tracking      `toml:"tracking"`
	Quality       Quality       `toml:"quality"`
	Solving       Solving       `toml:"solving"`
	Stabilization Stabilization `toml:"stabilization"`
	Camera        Camera        `toml:"camera"`
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	// The embedded sample is the single source of defaults.
	if err := toml.Unmarshal([]byte(sampleConfig), &cfg); err != nil {
		panic(errors.Wrap(err, "embedded sample config is malformed"))
	}
	return cfg
}

// Sample returns the embedded sample configuration text.
func Sample() string {
	return sampleConfig
}

// Load reads a TOML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "can't parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Tracking.MaxFeatures <= 0 {
		return errors.Errorf("tracking.max_features must be positive, got %d", c.Tracking.MaxFeatures)
	}
	if c.Tracking.MinTracks <= 0 {
		return errors.Errorf("tracking.min_tracks must be positive, got %d", c.Tracking.MinTracks)
	}
	for name, v := range map[string]float64{
		"stabilization.smooth_translation": c.Stabilization.SmoothTranslation,
		"stabilization.smooth_rotation":    c.Stabilization.SmoothRotation,
		"stabilization.smooth_scale":       c.Stabilization.SmoothScale,
	} {
		if v < 0 || v > 1 {
			return errors.Errorf("%s must be in [0, 1], got %f", name, v)
		}
	}
	if c.Quality.MinCorrelation < 0 || c.Quality.MinCorrelation > 1 {
		return errors.Errorf("quality.min_correlation must be in [0, 1], got %f", c.Quality.MinCorrelation)
	}
	return nil
}
