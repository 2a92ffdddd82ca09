package probedeform

import (
	"fmt"
	"math"
)

// Hit test factors for Deformer.ProbeAt.
const (
	SelectFactor = 3 // grabbing a probe to drag, rotate or pinch it
	RemoveFactor = 5 // double-tapping a probe away
)

// pairEpsilon is the squared distance within which a probe counts as the
// mirror image of another.
const pairEpsilon = 1e-6

// Editor turns gesture events into probe edits. It does no input capture of
// its own; the host feeds it image-space positions and deltas.
//
// With Symmetric set, every edit on a probe is mirrored onto its partner
// across the vertical centre line of the image. With FixRadius set, pinches
// are ignored.
type Editor struct {
	Symmetric bool
	FixRadius bool

	d        *Deformer
	selected *Probe
	pair     *Probe
}

// NewEditor returns an editor driving d.
func NewEditor(d *Deformer) *Editor {
	return &Editor{d: d}
}

// Deformer returns the deformer being edited.
func (e *Editor) Deformer() *Deformer { return e.d }

// mirrorX reflects x across the vertical centre line.
func (e *Editor) mirrorX(x float64) float64 {
	w, _ := e.d.grid.Size()
	return w - x
}

// Begin starts a gesture at (x, y), selecting the probe under it and, in
// symmetric mode, the probe at the mirrored position.
func (e *Editor) Begin(x, y float64) *Probe {
	e.selected, e.pair = nil, nil
	p, _ := e.d.ProbeAt(x, y, SelectFactor)
	if p == nil {
		return nil
	}
	e.selected = p
	if e.Symmetric {
		mx := e.mirrorX(p.x)
		for _, q := range e.d.probes {
			if q != p && q.Distance2(mx, p.y) < pairEpsilon {
				e.pair = q
				break
			}
		}
	}
	return p
}

// Selected returns the selected probe and its mirrored partner, either of
// which may be nil.
func (e *Editor) Selected() (probe, pair *Probe) { return e.selected, e.pair }

// End finishes the current gesture.
func (e *Editor) End() { e.selected, e.pair = nil, nil }

// Pan drags the selected probe by (dx, dy). Without a selection every probe
// moves. Non-finite offsets leave the probes where they are.
func (e *Editor) Pan(dx, dy float64) {
	switch {
	case e.selected != nil:
		e.selected.Move(dx, dy, 0)
		if e.pair != nil {
			e.pair.Move(-dx, dy, 0)
		}
	default:
		for _, p := range e.d.probes {
			p.Move(dx, dy, 0)
		}
	}
	e.d.Deform()
}

// Rotate turns the selected probe by dtheta. MLS models ignore probe
// rotation, so it is a no-op under them.
func (e *Editor) Rotate(dtheta float64) {
	if e.d.deformModel.mls() {
		return
	}
	if e.selected != nil {
		e.selected.Move(0, 0, dtheta)
		if e.pair != nil {
			e.pair.Move(0, 0, -dtheta)
		}
	}
	e.d.Deform()
}

// Pinch scales the radius of the selected probe, or of every probe without a
// selection. Radii never drop below MinProbeRadius.
func (e *Editor) Pinch(scale float64) error {
	if e.FixRadius {
		return nil
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: pinch scale %g", ErrInvalidRadius, scale)
	}
	if e.selected != nil {
		if err := e.selected.SetRadius(e.selected.radius * scale); err != nil {
			return err
		}
		if e.pair != nil {
			if err := e.pair.SetRadius(e.selected.radius); err != nil {
				return err
			}
		}
	} else {
		for _, p := range e.d.probes {
			if err := p.SetRadius(p.radius * scale); err != nil {
				return err
			}
		}
	}
	e.d.Deform()
	return nil
}

// DoubleTap freezes the current deformation, then removes the probe under
// (x, y) if there is one, or adds a probe there otherwise. In symmetric mode
// a mirrored probe is added too unless (x, y) is within one probe radius of
// the centre line.
func (e *Editor) DoubleTap(x, y float64) (added []*Probe, removed *Probe, err error) {
	e.d.FreezeProbes()
	e.End()

	if p, i := e.d.ProbeAt(x, y, RemoveFactor); p != nil {
		if err := e.d.RemoveProbeAt(i); err != nil {
			return nil, nil, err
		}
		return nil, p, nil
	}

	p, err := e.d.AddProbe(x, y)
	if err != nil {
		return nil, nil, err
	}
	added = append(added, p)

	mx := e.mirrorX(x)
	if e.Symmetric && math.Abs(mx-x)/2 > e.d.ProbeRadius() {
		q, err := e.d.AddProbe(mx, y)
		if err != nil {
			return added, nil, err
		}
		added = append(added, q)
	}
	return added, nil, nil
}

// RemoveAll banks the current deformation and removes every probe.
func (e *Editor) RemoveAll() {
	e.d.FreezeProbes()
	e.d.ClearProbes()
	e.End()
}
