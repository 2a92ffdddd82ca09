package probedeform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if !approxEqual(got, want, epsilon) {
		t.Errorf("%s = %.12f, want %.12f", name, got, want)
	}
}

func assertVecNear(t *testing.T, name string, got, want Vec2, eps float64) {
	t.Helper()
	if !approxEqual(got.X, want.X, eps) || !approxEqual(got.Y, want.Y, eps) {
		t.Errorf("%s = (%.9f, %.9f), want (%.9f, %.9f)", name, got.X, got.Y, want.X, want.Y)
	}
}

// newTestDeformer builds a deformer over a size x size image with div x div
// cells.
func newTestDeformer(t *testing.T, div int, size float64, wm WeightModel, dm DeformModel) *Deformer {
	t.Helper()
	cfg := DefaultConfig(size, size)
	cfg.VerticalDivisions = div
	cfg.HorizontalDivisions = div
	cfg.WeightModel = wm
	cfg.DeformModel = dm
	d, err := NewDeformer(cfg)
	require.NoError(t, err)
	return d
}

func mustAddProbe(t *testing.T, d *Deformer, x, y float64) *Probe {
	t.Helper()
	p, err := d.AddProbe(x, y)
	require.NoError(t, err)
	return p
}
