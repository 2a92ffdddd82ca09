package probedeform

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Default configuration values.
const (
	DefaultDivisions        = 40
	DefaultConstraintWeight = 1e-6
	DefaultSizeMultiplier   = 1.0
	DefaultMLSAlpha         = 1.0
	MinProbeRadius          = 0.1
)

// Config configures a Deformer. The zero value is not usable; start from
// DefaultConfig and override fields.
type Config struct {
	VerticalDivisions   int     `mapstructure:"vertical_divisions" yaml:"vertical_divisions"`
	HorizontalDivisions int     `mapstructure:"horizontal_divisions" yaml:"horizontal_divisions"`
	ImageWidth          float64 `mapstructure:"image_width" yaml:"image_width"`
	ImageHeight         float64 `mapstructure:"image_height" yaml:"image_height"`

	WeightModel WeightModel `mapstructure:"-" yaml:"-"`
	DeformModel DeformModel `mapstructure:"-" yaml:"-"`

	// ProbeRadius is the radius given to new probes. Zero picks a quarter of
	// the shorter image side.
	ProbeRadius    float64 `mapstructure:"probe_radius" yaml:"probe_radius"`
	SizeMultiplier float64 `mapstructure:"size_multiplier" yaml:"size_multiplier"`

	// ConstraintWeight is the Tikhonov term added to the biharmonic system.
	ConstraintWeight float64 `mapstructure:"constraint_weight" yaml:"constraint_weight"`

	// EuclideanFloor is the weight a probe keeps beyond its effective radius.
	EuclideanFloor float64 `mapstructure:"euclidean_floor" yaml:"euclidean_floor"`

	// MLSAlpha is the inverse distance exponent used by the MLS models.
	MLSAlpha float64 `mapstructure:"mls_alpha" yaml:"mls_alpha"`

	Logger  *zap.Logger `mapstructure:"-" yaml:"-"`
	Metrics *Metrics    `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns a configuration for a square 40x40 grid over an
// image of the given size.
func DefaultConfig(width, height float64) Config {
	return Config{
		VerticalDivisions:   DefaultDivisions,
		HorizontalDivisions: DefaultDivisions,
		ImageWidth:          width,
		ImageHeight:         height,
		WeightModel:         WeightHarmonic,
		DeformModel:         DeformDCN,
		SizeMultiplier:      DefaultSizeMultiplier,
		ConstraintWeight:    DefaultConstraintWeight,
		MLSAlpha:            DefaultMLSAlpha,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.VerticalDivisions <= 0 || c.HorizontalDivisions <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDivisions, c.VerticalDivisions, c.HorizontalDivisions)
	}
	if !(c.ImageWidth > 0) || !(c.ImageHeight > 0) || math.IsInf(c.ImageWidth, 0) || math.IsInf(c.ImageHeight, 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidImageSize, c.ImageWidth, c.ImageHeight)
	}
	if c.WeightModel > WeightBiharmonic {
		return fmt.Errorf("%w: weight model %d", ErrInvalidConfig, c.WeightModel)
	}
	if c.DeformModel > DeformMLSSimilarity {
		return fmt.Errorf("%w: deform model %d", ErrInvalidConfig, c.DeformModel)
	}
	if c.ProbeRadius < 0 || math.IsNaN(c.ProbeRadius) {
		return fmt.Errorf("%w: probe radius %g", ErrInvalidRadius, c.ProbeRadius)
	}
	if !(c.SizeMultiplier > 0) {
		return fmt.Errorf("%w: size multiplier %g", ErrInvalidConfig, c.SizeMultiplier)
	}
	if c.ConstraintWeight < 0 || math.IsNaN(c.ConstraintWeight) {
		return fmt.Errorf("%w: constraint weight %g", ErrInvalidConfig, c.ConstraintWeight)
	}
	if c.EuclideanFloor < 0 || c.EuclideanFloor >= 1 {
		return fmt.Errorf("%w: euclidean floor %g not in [0, 1)", ErrInvalidConfig, c.EuclideanFloor)
	}
	if !(c.MLSAlpha > 0) {
		return fmt.Errorf("%w: mls alpha %g", ErrInvalidConfig, c.MLSAlpha)
	}
	return nil
}

// defaultRadius returns the radius given to new probes.
func (c Config) defaultRadius() float64 {
	if c.ProbeRadius > 0 {
		return c.ProbeRadius
	}
	return math.Max(math.Min(c.ImageWidth, c.ImageHeight)/4, MinProbeRadius)
}
