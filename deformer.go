package probedeform

import (
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Deformer owns a vertex grid laid over an image and the probes that bend
// it. Adding, removing or resizing probes marks the probe weights stale;
// Deform brings them up to date and recomputes every vertex position.
//
// A Deformer is not safe for concurrent use.
type Deformer struct {
	cfg     Config
	log     *zap.Logger
	metrics *Metrics

	grid *Grid
	lap  *Laplacian

	// rest is the undeformed state Deform starts from. It equals the grid's
	// pristine positions until FreezeProbes banks a deformation.
	rest    []Vec2
	current []Vec2
	banked  bool

	weightModel      WeightModel
	deformModel      DeformModel
	constraintWeight float64
	sizeMultiplier   float64

	probes []*Probe
	stale  bool
	factor *factorization
	status WeightStatus
}

// NewDeformer builds a deformer from cfg.
func NewDeformer(cfg Config) (*Deformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, err := NewGrid(cfg.VerticalDivisions, cfg.HorizontalDivisions, cfg.ImageWidth, cfg.ImageHeight)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := &Deformer{
		cfg:              cfg,
		log:              log,
		metrics:          cfg.Metrics,
		weightModel:      cfg.WeightModel,
		deformModel:      cfg.DeformModel,
		constraintWeight: cfg.ConstraintWeight,
		sizeMultiplier:   cfg.SizeMultiplier,
		status:           WeightStatus{Requested: cfg.WeightModel, Used: cfg.WeightModel},
	}
	d.install(g, NewLaplacian(g))
	return d, nil
}

// install swaps in a new grid and resets the rest state to it.
func (d *Deformer) install(g *Grid, lap *Laplacian) {
	d.grid = g
	d.lap = lap
	d.rest = slices.Clone(g.positions)
	d.current = slices.Clone(g.positions)
	d.banked = false
	d.factor = nil
	d.stale = true
	// Weights from the old grid must never come back as a fallback.
	for _, p := range d.probes {
		p.closest = g.Nearest(p.InitialPosition())
		p.weights = nil
		p.shapeDirty = false
	}
}

// SetDivisions re-divides the grid. Banked deformation is discarded and
// every probe's closest vertex is recomputed from its initial position.
func (d *Deformer) SetDivisions(vertical, horizontal int) error {
	w, h := d.grid.Size()
	return d.rebuild(vertical, horizontal, w, h)
}

// SetImageSize changes the image the grid covers, keeping the divisions.
func (d *Deformer) SetImageSize(width, height float64) error {
	return d.rebuild(d.grid.vdiv, d.grid.hdiv, width, height)
}

func (d *Deformer) rebuild(vdiv, hdiv int, width, height float64) error {
	g, err := NewGrid(vdiv, hdiv, width, height)
	if err != nil {
		return err
	}
	lap := d.lap
	if vdiv != d.grid.vdiv || hdiv != d.grid.hdiv {
		lap = NewLaplacian(g)
	}
	d.install(g, lap)
	d.cfg.VerticalDivisions, d.cfg.HorizontalDivisions = vdiv, hdiv
	d.cfg.ImageWidth, d.cfg.ImageHeight = width, height
	d.log.Debug("grid rebuilt",
		zap.Int("vertical_divisions", vdiv),
		zap.Int("horizontal_divisions", hdiv),
		zap.Float64("width", width),
		zap.Float64("height", height),
	)
	return nil
}

// Grid returns the current vertex grid.
func (d *Deformer) Grid() *Grid { return d.grid }

// Laplacian returns the grid's Laplacian as a read-only banded matrix.
func (d *Deformer) Laplacian() mat.SymBanded { return d.lap.Matrix() }

// WeightModel returns the selected weight model.
func (d *Deformer) WeightModel() WeightModel { return d.weightModel }

// DeformModel returns the selected deformation model.
func (d *Deformer) DeformModel() DeformModel { return d.deformModel }

// ConstraintWeight returns the biharmonic regularization weight.
func (d *Deformer) ConstraintWeight() float64 { return d.constraintWeight }

// SizeMultiplier returns the multiplier applied to every probe's radius.
func (d *Deformer) SizeMultiplier() float64 { return d.sizeMultiplier }

// ProbeRadius returns the radius given to new probes.
func (d *Deformer) ProbeRadius() float64 { return d.cfg.defaultRadius() }

// Status reports how the current weights were produced.
func (d *Deformer) Status() WeightStatus { return d.status }

// SetWeightModel selects the weight model. Weights are recomputed on the next
// Deform.
func (d *Deformer) SetWeightModel(m WeightModel) error {
	if m > WeightBiharmonic {
		return fmt.Errorf("%w: weight model %d", ErrInvalidConfig, m)
	}
	if m != d.weightModel {
		d.weightModel = m
		d.stale = true
	}
	return nil
}

// SetDeformModel selects the deformation model. Weights are left alone.
func (d *Deformer) SetDeformModel(m DeformModel) error {
	if m > DeformMLSSimilarity {
		return fmt.Errorf("%w: deform model %d", ErrInvalidConfig, m)
	}
	d.deformModel = m
	return nil
}

// SetConstraintWeight sets the biharmonic regularization weight.
func (d *Deformer) SetConstraintWeight(c float64) error {
	if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
		return fmt.Errorf("%w: constraint weight %g", ErrInvalidConfig, c)
	}
	if c != d.constraintWeight {
		d.constraintWeight = c
		if d.weightModel == WeightBiharmonic {
			d.stale = true
		}
	}
	return nil
}

// SetSizeMultiplier scales the radius of every probe, present and future.
func (d *Deformer) SetSizeMultiplier(m float64) error {
	if !(m > 0) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: size multiplier %g", ErrInvalidConfig, m)
	}
	d.sizeMultiplier = m
	for _, p := range d.probes {
		// m was validated above
		_ = p.SetSizeMultiplier(m)
	}
	return nil
}

// NumProbes returns the number of probes.
func (d *Deformer) NumProbes() int { return len(d.probes) }

// Probe returns the i-th probe, or nil if i is out of range.
func (d *Deformer) Probe(i int) *Probe {
	if i < 0 || i >= len(d.probes) {
		return nil
	}
	return d.probes[i]
}

// Probes returns the probes in insertion order. The slice is a copy.
func (d *Deformer) Probes() []*Probe { return slices.Clone(d.probes) }

// AddProbe places a probe at (x, y) in image space. Its initial and current
// poses coincide and it gets the default radius.
func (d *Deformer) AddProbe(x, y float64) (*Probe, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return nil, fmt.Errorf("%w: (%g, %g)", ErrInvalidPoint, x, y)
	}
	p := newProbe(d, x, y, d.cfg.defaultRadius(), d.sizeMultiplier, d.nearestRest(Vec2{x, y}))
	d.probes = append(d.probes, p)
	d.stale = true
	return p, nil
}

// nearestRest returns the vertex whose rest position is closest to pt.
func (d *Deformer) nearestRest(pt Vec2) int {
	if !d.banked {
		return d.grid.Nearest(pt)
	}
	best, bestD := 0, math.Inf(1)
	for i, v := range d.rest {
		if dd := v.Sub(pt).Len2(); dd < bestD {
			best, bestD = i, dd
		}
	}
	return best
}

// RemoveProbe removes p.
func (d *Deformer) RemoveProbe(p *Probe) error {
	if p == nil || p.owner != d {
		return ErrProbeNotFound
	}
	return d.RemoveProbeAt(slices.Index(d.probes, p))
}

// RemoveProbeAt removes the i-th probe.
func (d *Deformer) RemoveProbeAt(i int) error {
	if i < 0 || i >= len(d.probes) {
		return fmt.Errorf("%w: %d of %d", ErrProbeIndex, i, len(d.probes))
	}
	d.probes[i].owner = nil
	d.probes = slices.Delete(d.probes, i, i+1)
	d.stale = true
	return nil
}

// ClearProbes removes every probe. The mesh keeps its rest state.
func (d *Deformer) ClearProbes() {
	for _, p := range d.probes {
		p.owner = nil
	}
	d.probes = d.probes[:0]
	d.stale = true
}

// ProbeAt returns the probe nearest (x, y) among those closer than
// sqrt(r²·m·factor), where r is the default probe radius and m the size
// multiplier, together with its index. It returns nil, -1 if none is hit.
func (d *Deformer) ProbeAt(x, y, factor float64) (*Probe, int) {
	r := d.cfg.defaultRadius()
	limit := r * r * d.sizeMultiplier * factor
	idx := -1
	for i, p := range d.probes {
		if d2 := p.Distance2(x, y); d2 < limit {
			limit = d2
			idx = i
		}
	}
	if idx < 0 {
		return nil, -1
	}
	return d.probes[idx], idx
}

// FreezeProbes banks the current deformation: the deformed vertices become the
// rest state and every probe's current pose becomes its initial pose.
func (d *Deformer) FreezeProbes() {
	d.Deform()
	copy(d.rest, d.current)
	d.banked = true
	for _, p := range d.probes {
		p.Freeze()
	}
	if d.weightModel == WeightEuclidean {
		d.stale = true
	}
}

// ResetMesh discards all probes and any banked deformation, restoring the
// pristine grid.
func (d *Deformer) ResetMesh() {
	d.ClearProbes()
	copy(d.rest, d.grid.positions)
	copy(d.current, d.grid.positions)
	d.banked = false
}

// RecomputeWeights recomputes every probe's weights now and returns the
// resulting status.
func (d *Deformer) RecomputeWeights() WeightStatus {
	d.updateWeights()
	return d.status
}

// Deform recomputes every vertex position from the rest state, the probe
// weights and the probe poses. Stale weights are recomputed first, except
// under the MLS models which do not use them.
func (d *Deformer) Deform() {
	start := time.Now()
	switch {
	case len(d.probes) == 0:
		copy(d.current, d.rest)
	case d.deformModel.mls():
		mlsDeform(mlsHandles(d.probes), d.cfg.MLSAlpha, d.deformModel == DeformMLSSimilarity, d.rest, d.current)
	default:
		if d.weightsStale() {
			d.updateWeights()
		}
		motions := make([]Motion, len(d.probes))
		weights := make([][]float64, len(d.probes))
		for i, p := range d.probes {
			motions[i] = p.Motion()
			weights[i] = p.weights
		}
		b := newBlender(motions, weights)
		if d.deformModel == DeformLinear {
			b.linear(d.rest, d.current)
		} else {
			b.dcn(d.rest, d.current)
		}
	}
	d.metrics.deformed(d.deformModel, time.Since(start))
}

// Vertices returns the deformed vertex positions as of the last Deform. The
// slice is owned by the deformer and overwritten by the next Deform.
func (d *Deformer) Vertices() []Vec2 { return d.current }

// RestVertices returns the rest positions Deform starts from.
func (d *Deformer) RestVertices() []Vec2 { return d.rest }

// TexCoords returns the per-vertex texture coordinates.
func (d *Deformer) TexCoords() []Vec2 { return d.grid.texCoords }

// Indices returns the triangle list of the grid.
func (d *Deformer) Indices() []uint32 { return d.grid.indices }

// StripIndices returns the triangle strip of one cell row.
func (d *Deformer) StripIndices(row int) []uint32 { return d.grid.StripIndices(row) }
