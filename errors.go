package probedeform

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned synchronously by the mutating call
// and leave the deformer unchanged.
var (
	ErrInvalidDivisions = errors.New("probedeform: grid divisions must be positive")
	ErrInvalidImageSize = errors.New("probedeform: image size must be positive")
	ErrInvalidPoint     = errors.New("probedeform: point is not finite")
	ErrInvalidRadius    = errors.New("probedeform: radius must be positive")
	ErrInvalidConfig    = errors.New("probedeform: invalid configuration")
	ErrProbeIndex       = errors.New("probedeform: probe index out of range")
	ErrProbeNotFound    = errors.New("probedeform: probe does not belong to this deformer")
)

// Numerical errors. The deformer recovers from these on its own and reports
// them through Status.
var (
	ErrCoincidentAnchors = errors.New("probedeform: probes share a closest vertex")
	ErrSingularSystem    = errors.New("probedeform: diffusion system is not positive definite")
	ErrSystemTooLarge    = errors.New("probedeform: diffusion system exceeds the band storage limit")
	ErrWeightLength      = errors.New("probedeform: weight vector does not match the grid")
)

// ModelError reports an unknown weight or deform model name.
type ModelError struct {
	Kind string // "weight" or "deform"
	Name string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("probedeform: unknown %s model %q", e.Kind, e.Name)
}

// Is lets errors.Is(err, ErrInvalidConfig) match unknown model names.
func (e *ModelError) Is(target error) bool {
	return target == ErrInvalidConfig
}
