package probedeform

import "math"

// Vec2 is a 2D vector used for positions, offsets and texture coordinates
// throughout the API.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Cross returns the z component of the 3D cross product of v and o.
func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Len2 returns the squared length of v.
func (v Vec2) Len2() float64 { return v.X*v.X + v.Y*v.Y }

// Rotate returns v rotated counter-clockwise (in a y-up frame) by theta radians.
func (v Vec2) Rotate(theta float64) Vec2 {
	sin, cos := math.Sincos(theta)
	return Vec2{cos*v.X - sin*v.Y, sin*v.X + cos*v.Y}
}

// WeightModel selects how per-vertex probe influence is computed.
type WeightModel uint8

const (
	WeightEuclidean  WeightModel = iota // compactly supported distance falloff
	WeightHarmonic                      // Laplace diffusion with Dirichlet anchors
	WeightBiharmonic                    // squared-Laplacian diffusion with Dirichlet anchors
)

// String returns the lower-case model name.
func (m WeightModel) String() string {
	switch m {
	case WeightEuclidean:
		return "euclidean"
	case WeightHarmonic:
		return "harmonic"
	case WeightBiharmonic:
		return "biharmonic"
	default:
		return "unknown"
	}
}

// diffusion reports whether the model needs a sparse solve.
func (m WeightModel) diffusion() bool {
	return m == WeightHarmonic || m == WeightBiharmonic
}

// ParseWeightModel maps a model name (as returned by String) to a WeightModel.
func ParseWeightModel(s string) (WeightModel, error) {
	for m := WeightEuclidean; m <= WeightBiharmonic; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, &ModelError{Kind: "weight", Name: s}
}

// DeformModel selects how probe transforms are blended into vertex positions.
type DeformModel uint8

const (
	DeformDCN           DeformModel = iota // dual complex number blending (default)
	DeformLinear                           // linear blend skinning
	DeformMLSRigid                         // moving least squares, rigid
	DeformMLSSimilarity                    // moving least squares, similarity
)

// String returns the lower-case model name.
func (m DeformModel) String() string {
	switch m {
	case DeformDCN:
		return "dcn"
	case DeformLinear:
		return "linear"
	case DeformMLSRigid:
		return "mls-rigid"
	case DeformMLSSimilarity:
		return "mls-sim"
	default:
		return "unknown"
	}
}

// mls reports whether the model supplies its own weights.
func (m DeformModel) mls() bool {
	return m == DeformMLSRigid || m == DeformMLSSimilarity
}

// ParseDeformModel maps a model name (as returned by String) to a DeformModel.
func ParseDeformModel(s string) (DeformModel, error) {
	for m := DeformDCN; m <= DeformMLSSimilarity; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, &ModelError{Kind: "deform", Name: s}
}
