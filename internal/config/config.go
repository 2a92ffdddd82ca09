// Package config holds the command-line tool's configuration and loads it
// from files, environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phanxgames/probedeform"
)

// Config is the complete CLI configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose"`

	Mesh   MeshConfig   `mapstructure:"mesh" yaml:"mesh"`
	Render RenderConfig `mapstructure:"render" yaml:"render"`
	Bench  BenchConfig  `mapstructure:"bench" yaml:"bench"`
}

// MeshConfig selects the grid and models. Model names are the strings
// accepted by probedeform.ParseWeightModel and ParseDeformModel.
type MeshConfig struct {
	VerticalDivisions   int     `mapstructure:"vertical_divisions" yaml:"vertical_divisions"`
	HorizontalDivisions int     `mapstructure:"horizontal_divisions" yaml:"horizontal_divisions"`
	WeightModel         string  `mapstructure:"weight_model" yaml:"weight_model"`
	DeformModel         string  `mapstructure:"deform_model" yaml:"deform_model"`
	ProbeRadius         float64 `mapstructure:"probe_radius" yaml:"probe_radius"`
	SizeMultiplier      float64 `mapstructure:"size_multiplier" yaml:"size_multiplier"`
	ConstraintWeight    float64 `mapstructure:"constraint_weight" yaml:"constraint_weight"`
	EuclideanFloor      float64 `mapstructure:"euclidean_floor" yaml:"euclidean_floor"`
	MLSAlpha            float64 `mapstructure:"mls_alpha" yaml:"mls_alpha"`
}

// RenderConfig controls the render command's output.
type RenderConfig struct {
	Output     string  `mapstructure:"output" yaml:"output"`
	Background string  `mapstructure:"background" yaml:"background"` // hex RGB or RGBA, e.g. "#202020"
	Scale      float64 `mapstructure:"scale" yaml:"scale"`
	Wireframe  bool    `mapstructure:"wireframe" yaml:"wireframe"`
}

// BenchConfig controls the bench command.
type BenchConfig struct {
	Iterations int `mapstructure:"iterations" yaml:"iterations"`
	Probes     int `mapstructure:"probes" yaml:"probes"`
	Size       int `mapstructure:"size" yaml:"size"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Mesh: MeshConfig{
			VerticalDivisions:   probedeform.DefaultDivisions,
			HorizontalDivisions: probedeform.DefaultDivisions,
			WeightModel:         probedeform.WeightHarmonic.String(),
			DeformModel:         probedeform.DeformDCN.String(),
			SizeMultiplier:      probedeform.DefaultSizeMultiplier,
			ConstraintWeight:    probedeform.DefaultConstraintWeight,
			MLSAlpha:            probedeform.DefaultMLSAlpha,
		},
		Render: RenderConfig{
			Output:     "out.png",
			Background: "#00000000",
			Scale:      1,
		},
		Bench: BenchConfig{
			Iterations: 20,
			Probes:     8,
			Size:       512,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.ZapLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := probedeform.ParseWeightModel(c.Mesh.WeightModel); err != nil {
		errs = append(errs, err)
	}
	if _, err := probedeform.ParseDeformModel(c.Mesh.DeformModel); err != nil {
		errs = append(errs, err)
	}
	if c.Mesh.VerticalDivisions <= 0 || c.Mesh.HorizontalDivisions <= 0 {
		errs = append(errs, fmt.Errorf("mesh divisions must be positive, got %dx%d",
			c.Mesh.VerticalDivisions, c.Mesh.HorizontalDivisions))
	}
	if c.Render.Scale <= 0 {
		errs = append(errs, fmt.Errorf("render.scale must be positive, got %g", c.Render.Scale))
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		errs = append(errs, err)
	}
	if c.Bench.Iterations <= 0 || c.Bench.Probes < 0 || c.Bench.Size <= 0 {
		errs = append(errs, fmt.Errorf("bench settings must be positive: %+v", c.Bench))
	}
	return errors.Join(errs...)
}

// ZapLevel returns the configured log level. Verbose forces debug.
func (c *Config) ZapLevel() (zapcore.Level, error) {
	if c.Verbose {
		return zapcore.DebugLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// Logger builds the CLI logger: console output on stderr at the configured
// level.
func (c *Config) Logger() (*zap.Logger, error) {
	lvl, err := c.ZapLevel()
	if err != nil {
		return nil, err
	}
	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	return zc.Build()
}

// Deformer converts the mesh section into a deformer configuration for an
// image of the given size.
func (m MeshConfig) Deformer(width, height float64) (probedeform.Config, error) {
	cfg := probedeform.DefaultConfig(width, height)
	wm, err := probedeform.ParseWeightModel(m.WeightModel)
	if err != nil {
		return cfg, err
	}
	dm, err := probedeform.ParseDeformModel(m.DeformModel)
	if err != nil {
		return cfg, err
	}
	cfg.VerticalDivisions = m.VerticalDivisions
	cfg.HorizontalDivisions = m.HorizontalDivisions
	cfg.WeightModel = wm
	cfg.DeformModel = dm
	cfg.ProbeRadius = m.ProbeRadius
	cfg.SizeMultiplier = m.SizeMultiplier
	cfg.ConstraintWeight = m.ConstraintWeight
	cfg.EuclideanFloor = m.EuclideanFloor
	cfg.MLSAlpha = m.MLSAlpha
	return cfg, cfg.Validate()
}
