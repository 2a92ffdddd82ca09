package probedeform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// probeTexCoords maps the handle quad corners onto the full handle texture.
var probeTexCoords = [4]Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// Probe is a control handle with a rigid pose and an influence radius.
//
// The initial pose is where the probe was created (or last frozen); the
// current pose is where the user has dragged it. The probe's rigid motion is
// the map taking the initial pose onto the current one. Probes are created by
// Deformer.AddProbe and stay owned by that deformer.
type Probe struct {
	owner *Deformer

	ix, iy, itheta float64
	x, y, theta    float64
	radius, size   float64

	closest int
	weights []float64

	// corners is the handle quad in triangle-strip order: TL, TR, BL, BR.
	corners [4]Vec2

	// shapeDirty is set when radius or size changes; distance weights depend on both.
	shapeDirty bool
}

func newProbe(owner *Deformer, x, y, radius, size float64, closest int) *Probe {
	p := &Probe{
		owner:   owner,
		ix:      x,
		iy:      y,
		x:       x,
		y:       y,
		radius:  radius,
		size:    size,
		closest: closest,
	}
	p.computeCorners()
	return p
}

// Initial returns the rest pose the probe's motion is measured from.
func (p *Probe) Initial() (x, y, theta float64) { return p.ix, p.iy, p.itheta }

// Pose returns the current pose.
func (p *Probe) Pose() (x, y, theta float64) { return p.x, p.y, p.theta }

// Position returns the current centre.
func (p *Probe) Position() Vec2 { return Vec2{p.x, p.y} }

// InitialPosition returns the initial centre.
func (p *Probe) InitialPosition() Vec2 { return Vec2{p.ix, p.iy} }

// Radius returns the influence radius.
func (p *Probe) Radius() float64 { return p.radius }

// SizeMultiplier returns the global scale applied to the radius.
func (p *Probe) SizeMultiplier() float64 { return p.size }

// EffectiveRadius returns Radius * SizeMultiplier.
func (p *Probe) EffectiveRadius() float64 { return p.radius * p.size }

// ClosestPt returns the index of the grid vertex nearest the initial position.
func (p *Probe) ClosestPt() int { return p.closest }

// Weights returns a read-only view of the probe's per-vertex influence.
func (p *Probe) Weights() Weights { return Weights{w: p.weights} }

// SetPose sets the current pose. Weights are unaffected. A non-finite
// component leaves the pose unchanged and returns ErrInvalidPoint.
func (p *Probe) SetPose(x, y, theta float64) error {
	if !finite(x) || !finite(y) || !finite(theta) {
		return fmt.Errorf("%w: pose (%g, %g, %g)", ErrInvalidPoint, x, y, theta)
	}
	p.x, p.y, p.theta = x, y, theta
	p.computeCorners()
	return nil
}

// Move offsets the current pose. Weights are unaffected.
func (p *Probe) Move(dx, dy, dtheta float64) error {
	return p.SetPose(p.x+dx, p.y+dy, p.theta+dtheta)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// SetRadius sets the influence radius, clamped to MinProbeRadius.
func (p *Probe) SetRadius(r float64) error {
	if !(r > 0) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidRadius, r)
	}
	p.radius = math.Max(r, MinProbeRadius)
	p.shapeDirty = true
	p.computeCorners()
	return nil
}

// SetSizeMultiplier sets the scale applied to the radius.
func (p *Probe) SetSizeMultiplier(m float64) error {
	if !(m > 0) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: size multiplier %g", ErrInvalidConfig, m)
	}
	p.size = m
	p.shapeDirty = true
	p.computeCorners()
	return nil
}

// Freeze makes the current pose the new initial pose, so the probe's motion
// becomes the identity.
func (p *Probe) Freeze() {
	p.ix, p.iy, p.itheta = p.x, p.y, p.theta
}

// Motion returns the rigid motion taking the initial pose to the current pose.
func (p *Probe) Motion() Motion {
	return FromPose(p.x, p.y, p.theta).Compose(FromPose(p.ix, p.iy, p.itheta).Inverse())
}

// Corners returns the handle quad at the current pose in triangle-strip
// order (top-left, top-right, bottom-left, bottom-right).
func (p *Probe) Corners() [4]Vec2 { return p.corners }

// TexCoords returns the texture coordinates matching Corners.
func (p *Probe) TexCoords() [4]Vec2 { return probeTexCoords }

// Distance2 returns the squared distance from the current centre to (x, y).
func (p *Probe) Distance2(x, y float64) float64 {
	dx, dy := p.x-x, p.y-y
	return dx*dx + dy*dy
}

func (p *Probe) computeCorners() {
	p.corners = quadCorners(p.x, p.y, p.theta, p.EffectiveRadius())
}

// initialCorners returns the handle quad at the initial pose.
func (p *Probe) initialCorners() [4]Vec2 {
	return quadCorners(p.ix, p.iy, p.itheta, p.EffectiveRadius())
}

func quadCorners(x, y, theta, h float64) [4]Vec2 {
	c := Vec2{x, y}
	return [4]Vec2{
		c.Add(Vec2{-h, -h}.Rotate(theta)),
		c.Add(Vec2{h, -h}.Rotate(theta)),
		c.Add(Vec2{-h, h}.Rotate(theta)),
		c.Add(Vec2{h, h}.Rotate(theta)),
	}
}

// Weights is a read-only view of a probe's weight vector. The view is only
// valid until the next weight recomputation.
type Weights struct {
	w []float64
}

// Len returns the number of vertices covered, or 0 if weights have not been
// computed.
func (w Weights) Len() int { return len(w.w) }

// At returns the weight at vertex i.
func (w Weights) At(i int) float64 { return w.w[i] }

// Sum returns the total weight over all vertices.
func (w Weights) Sum() float64 { return floats.Sum(w.w) }

// AppendTo appends the weights to dst and returns the extended slice.
func (w Weights) AppendTo(dst []float64) []float64 { return append(dst, w.w...) }
