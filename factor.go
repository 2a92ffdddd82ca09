package probedeform

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"
)

// maxBandEntries caps the storage of a reduced system, n·(k+1) floats. The
// biharmonic bandwidth is twice the harmonic one, so a grid that fits
// maxVertices can still exceed it.
var maxBandEntries = 1 << 27

// factorization is the reusable part of a diffusion weight solve: the
// boundary-reduced system matrix for one anchor set, factored once. Each
// probe's weights then cost a single pair of band triangular solves.
type factorization struct {
	key     uint64
	model   WeightModel
	anchors []int // anchor vertex per probe, in probe order
	free    []int // vertex index of each free row
	freeOf  []int // free row of each vertex, -1 for anchors
	system  sparseRows

	chol mat.BandCholesky
	rhs  *mat.VecDense
	x    *mat.VecDense
}

// factorKey identifies a factorization by everything that shapes its matrix.
func factorKey(model WeightModel, g *Grid, anchors []int, constraintWeight float64) uint64 {
	buf := make([]byte, 0, 8*(len(anchors)+6))
	buf = append(buf, byte(model))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(g.vdiv))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(g.hdiv))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(constraintWeight))
	for _, a := range anchors {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(a))
	}
	return xxhash.Sum64(buf)
}

// checkAnchors reports the first pair of probes sharing an anchor vertex.
func checkAnchors(anchors []int) error {
	seen := make(map[int]int, len(anchors))
	for i, a := range anchors {
		if j, ok := seen[a]; ok {
			return fmt.Errorf("%w: probes %d and %d at vertex %d", ErrCoincidentAnchors, j, i, a)
		}
		seen[a] = i
	}
	return nil
}

// newFactorization assembles and factors the reduced system for model over
// lap with the given anchors. Harmonic solves L; biharmonic solves L·L plus
// constraintWeight on the diagonal.
func newFactorization(model WeightModel, lap *Laplacian, anchors []int, constraintWeight float64, key uint64) (*factorization, error) {
	if err := checkAnchors(anchors); err != nil {
		return nil, err
	}

	f := &factorization{
		key:     key,
		model:   model,
		anchors: append([]int(nil), anchors...),
		freeOf:  make([]int, lap.n),
	}
	for _, a := range anchors {
		f.freeOf[a] = -1
	}
	f.free = make([]int, 0, lap.n-len(anchors))
	for v, fi := range f.freeOf {
		if fi < 0 {
			continue
		}
		f.freeOf[v] = len(f.free)
		f.free = append(f.free, v)
	}

	k := lap.k
	switch model {
	case WeightHarmonic:
	case WeightBiharmonic:
		k *= 2
	default:
		return nil, fmt.Errorf("%w: %s has no diffusion system", ErrInvalidConfig, model)
	}

	nf := len(f.free)
	if nf == 0 {
		return f, nil
	}
	k = min(k, nf-1)
	if nf*(k+1) > maxBandEntries {
		return nil, fmt.Errorf("%w: %s system needs %d band entries, limit %d",
			ErrSystemTooLarge, model, nf*(k+1), maxBandEntries)
	}

	var diag float64
	f.system = lap.rows
	if model == WeightBiharmonic {
		f.system = lap.square()
		diag = constraintWeight
	}

	reduced := mat.NewSymBandDense(nf, k, nil)
	for fi, v := range f.free {
		for _, e := range f.system[v] {
			fj := f.freeOf[e.col]
			if fj < fi { // anchor column or lower triangle
				continue
			}
			val := e.val
			if fj == fi {
				val += diag
			}
			reduced.SetSymBand(fi, fj, val)
		}
	}
	if !f.chol.Factorize(reduced) {
		return nil, fmt.Errorf("%w: %s system with %d anchors", ErrSingularSystem, model, len(anchors))
	}
	f.rhs = mat.NewVecDense(nf, nil)
	f.x = mat.NewVecDense(nf, nil)
	return f, nil
}

// solve writes the weights of probe p into dst: 1 at its own anchor, 0 at
// every other anchor and the diffusion solution elsewhere.
func (f *factorization) solve(p int, dst []float64) error {
	for _, a := range f.anchors {
		dst[a] = 0
	}
	own := f.anchors[p]
	dst[own] = 1
	if len(f.free) == 0 {
		return nil
	}

	f.rhs.Zero()
	for _, e := range f.system[own] {
		if fi := f.freeOf[e.col]; fi >= 0 {
			f.rhs.SetVec(fi, -e.val)
		}
	}
	if err := f.chol.SolveVecTo(f.x, f.rhs); err != nil {
		return fmt.Errorf("%w: probe %d: %v", ErrSingularSystem, p, err)
	}
	for fi, v := range f.free {
		dst[v] = f.x.AtVec(fi)
	}
	return nil
}
