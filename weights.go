package probedeform

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// WeightStatus describes the most recent weight computation.
type WeightStatus struct {
	Requested WeightModel // model selected on the deformer
	Used      WeightModel // model the current weights were produced by
	Fallback  bool        // true if Used differs from a clean Requested solve
	Err       error       // why the requested model failed, if it did
}

// euclideanWeight is the compactly supported falloff (1-d²)³ lifted by floor.
// d is the distance divided by the effective radius.
func euclideanWeight(d, floor float64) float64 {
	if d >= 1 {
		return floor
	}
	s := 1 - d*d
	return floor + (1-floor)*s*s*s
}

// euclideanWeights fills dst with the falloff around rest[anchor].
func euclideanWeights(rest []Vec2, anchor int, radius, floor float64, dst []float64) {
	c := rest[anchor]
	inv := 1 / radius
	for i, v := range rest {
		dst[i] = euclideanWeight(v.Sub(c).Len()*inv, floor)
	}
}

// anchors returns the closest grid vertex of every probe, in probe order.
func (d *Deformer) anchors() []int {
	a := make([]int, len(d.probes))
	for i, p := range d.probes {
		a[i] = p.closest
	}
	return a
}

// weightsStale reports whether Deform must recompute weights first.
func (d *Deformer) weightsStale() bool {
	if d.stale {
		return true
	}
	n := d.grid.NumVertices()
	for _, p := range d.probes {
		if len(p.weights) != n {
			return true
		}
		if p.shapeDirty && d.weightModel == WeightEuclidean {
			return true
		}
	}
	return false
}

// updateWeights recomputes every probe's weight vector for the current
// weight model. Diffusion failures fall back to the previous weights when
// they still fit the grid and to Euclidean weights otherwise.
func (d *Deformer) updateWeights() {
	n := d.grid.NumVertices()
	model := d.weightModel
	next := make([][]float64, len(d.probes))
	for i := range next {
		next[i] = make([]float64, n)
	}

	status := WeightStatus{Requested: model, Used: model}
	switch {
	case len(d.probes) == 0:
	case len(d.probes) == 1:
		for i := range next[0] {
			next[0][i] = 1
		}
	case model == WeightEuclidean:
		d.fillEuclidean(next)
	default:
		if err := d.fillDiffusion(model, next); err != nil {
			status.Fallback = true
			status.Err = err
			reason := "singular_system"
			switch {
			case errors.Is(err, ErrCoincidentAnchors):
				reason = "coincident_anchors"
			case errors.Is(err, ErrSystemTooLarge):
				reason = "system_too_large"
			}
			d.metrics.weightFellBack(reason)

			if d.previousWeightsFit(n) {
				status.Used = d.status.Used
				for i, p := range d.probes {
					copy(next[i], p.weights)
				}
			} else {
				status.Used = WeightEuclidean
				d.fillEuclidean(next)
			}
			d.log.Warn("weight solve failed, using fallback",
				zap.Stringer("requested", model),
				zap.Stringer("used", status.Used),
				zap.Int("probes", len(d.probes)),
				zap.Error(err),
			)
		}
	}

	for i, p := range d.probes {
		p.weights = next[i]
		p.shapeDirty = false
	}
	d.stale = false
	d.status = status
	d.metrics.weightRecomputed(status.Used)
	d.log.Debug("weights recomputed",
		zap.Stringer("model", status.Used),
		zap.Int("probes", len(d.probes)),
		zap.Int("vertices", n),
	)
}

// previousWeightsFit reports whether every probe still holds a weight vector
// of length n from a successful earlier computation.
func (d *Deformer) previousWeightsFit(n int) bool {
	for _, p := range d.probes {
		if len(p.weights) != n {
			return false
		}
	}
	return len(d.probes) > 0
}

func (d *Deformer) fillEuclidean(dst [][]float64) {
	for i, p := range d.probes {
		euclideanWeights(d.rest, p.closest, p.EffectiveRadius(), d.cfg.EuclideanFloor, dst[i])
	}
}

// fillDiffusion solves the harmonic or biharmonic weights, reusing the cached
// factorization when the anchor set and parameters are unchanged.
func (d *Deformer) fillDiffusion(model WeightModel, dst [][]float64) error {
	anchors := d.anchors()
	key := factorKey(model, d.grid, anchors, d.constraintWeight)
	if d.factor == nil || d.factor.key != key {
		start := time.Now()
		f, err := newFactorization(model, d.lap, anchors, d.constraintWeight, key)
		if err != nil {
			return err
		}
		d.metrics.factored(model, time.Since(start))
		d.factor = f
	}
	for i := range d.probes {
		if err := d.factor.solve(i, dst[i]); err != nil {
			d.factor = nil
			return err
		}
	}
	return nil
}
