package probedeform

import (
	"math"
	"math/cmplx"
)

// Motion is a planar rigid motion (rotation followed by translation) stored
// as a unit dual complex number. The real part is e^(iθ/2); the dual part is
// ½·conj(real)·t where t is the translation written as a complex number.
//
// Motion values are immutable. The zero value is not a valid motion; use
// Identity or FromPose.
type Motion struct {
	real complex128
	dual complex128
}

// Identity returns the motion that leaves every point in place.
func Identity() Motion {
	return Motion{real: 1}
}

// FromPose returns the motion that rotates by theta radians about the origin
// and then translates by (x, y).
func FromPose(x, y, theta float64) Motion {
	r := cmplx.Rect(1, theta/2)
	return Motion{real: r, dual: 0.5 * cmplx.Conj(r) * complex(x, y)}
}

// Pose returns the translation and rotation angle of m. The angle is
// normalized to (-π, π].
func (m Motion) Pose() (x, y, theta float64) {
	t := 2 * m.real * m.dual
	return real(t), imag(t), wrapAngle(2 * cmplx.Phase(m.real))
}

// Apply rotates then translates p.
func (m Motion) Apply(p Vec2) Vec2 {
	z := m.real*m.real*complex(p.X, p.Y) + 2*m.real*m.dual
	return Vec2{real(z), imag(z)}
}

// Compose returns the motion that applies o first and then m:
//
//	m.Compose(o).Apply(p) == m.Apply(o.Apply(p))
func (m Motion) Compose(o Motion) Motion {
	return Motion{
		real: m.real * o.real,
		dual: m.real*o.dual + m.dual*cmplx.Conj(o.real),
	}
}

// Inverse returns the motion that undoes m.
func (m Motion) Inverse() Motion {
	return Motion{real: cmplx.Conj(m.real), dual: -m.dual}
}

// ApproxEqual reports whether m and o describe the same motion within tol,
// treating the antipodal representations (q and -q) as equal.
func (m Motion) ApproxEqual(o Motion, tol float64) bool {
	same := cmplx.Abs(m.real-o.real) <= tol && cmplx.Abs(m.dual-o.dual) <= tol
	flip := cmplx.Abs(m.real+o.real) <= tol && cmplx.Abs(m.dual+o.dual) <= tol
	return same || flip
}

// Blend returns the normalized weighted sum of motions. Each motion is first
// aligned to the hemisphere of the most heavily weighted one so that q and -q
// reinforce instead of cancelling. If every weight is zero, or the weighted
// rotations cancel out, the identity is returned.
//
// motions and weights must have the same length.
func Blend(motions []Motion, weights []float64) Motion {
	pivot := -1
	best := 0.0
	for i, w := range weights {
		if a := math.Abs(w); a > best {
			best = a
			pivot = i
		}
	}
	if pivot < 0 {
		return Identity()
	}
	ref := motions[pivot].real

	var accReal, accDual complex128
	for i, w := range weights {
		if w == 0 {
			continue
		}
		m := motions[i]
		if real(cmplx.Conj(ref)*m.real) < 0 {
			w = -w
		}
		wc := complex(w, 0)
		accReal += wc * m.real
		accDual += wc * m.dual
	}

	norm := cmplx.Abs(accReal)
	if norm < 1e-12 {
		return Identity()
	}
	inv := complex(1/norm, 0)
	return Motion{real: accReal * inv, dual: accDual * inv}
}

// wrapAngle maps theta into (-π, π].
func wrapAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta <= -math.Pi {
		theta += 2 * math.Pi
	} else if theta > math.Pi {
		theta -= 2 * math.Pi
	}
	return theta
}
