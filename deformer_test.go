package probedeform

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeformerValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"divisions", func(c *Config) { c.VerticalDivisions = 0 }, ErrInvalidDivisions},
		{"image size", func(c *Config) { c.ImageWidth = math.Inf(1) }, ErrInvalidImageSize},
		{"probe radius", func(c *Config) { c.ProbeRadius = -1 }, ErrInvalidRadius},
		{"size multiplier", func(c *Config) { c.SizeMultiplier = 0 }, ErrInvalidConfig},
		{"constraint weight", func(c *Config) { c.ConstraintWeight = -1 }, ErrInvalidConfig},
		{"floor", func(c *Config) { c.EuclideanFloor = 1 }, ErrInvalidConfig},
		{"weight model", func(c *Config) { c.WeightModel = 9 }, ErrInvalidConfig},
		{"deform model", func(c *Config) { c.DeformModel = 9 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(100, 100)
			tt.mutate(&cfg)
			_, err := NewDeformer(cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseModels(t *testing.T) {
	wm, err := ParseWeightModel("biharmonic")
	require.NoError(t, err)
	assert.Equal(t, WeightBiharmonic, wm)

	dm, err := ParseDeformModel("mls-sim")
	require.NoError(t, err)
	assert.Equal(t, DeformMLSSimilarity, dm)

	_, err = ParseDeformModel("bezier")
	var me *ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "deform", me.Kind)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAddProbe(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	p := mustAddProbe(t, d, 33, 48)

	x, y, theta := p.Initial()
	assert.Equal(t, [3]float64{33, 48, 0}, [3]float64{x, y, theta})
	x, y, theta = p.Pose()
	assert.Equal(t, [3]float64{33, 48, 0}, [3]float64{x, y, theta})
	assert.Equal(t, d.Grid().Index(5, 3), p.ClosestPt())
	assertNear(t, "default radius", p.Radius(), 25)
	assert.Equal(t, 1, d.NumProbes())
	assert.Same(t, p, d.Probe(0))
	assert.Nil(t, d.Probe(1))

	_, err := d.AddProbe(math.NaN(), 0)
	assert.ErrorIs(t, err, ErrInvalidPoint)
	assert.Equal(t, 1, d.NumProbes())
}

func TestRemoveProbe(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	a := mustAddProbe(t, d, 10, 10)
	b := mustAddProbe(t, d, 50, 50)
	c := mustAddProbe(t, d, 90, 90)

	require.NoError(t, d.RemoveProbe(b))
	assert.Equal(t, []*Probe{a, c}, d.Probes())
	assert.ErrorIs(t, d.RemoveProbe(b), ErrProbeNotFound)

	other := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	stranger := mustAddProbe(t, other, 10, 10)
	assert.ErrorIs(t, d.RemoveProbe(stranger), ErrProbeNotFound)
	assert.ErrorIs(t, d.RemoveProbe(nil), ErrProbeNotFound)

	assert.ErrorIs(t, d.RemoveProbeAt(2), ErrProbeIndex)
	assert.ErrorIs(t, d.RemoveProbeAt(-1), ErrProbeIndex)
	require.NoError(t, d.RemoveProbeAt(0))
	assert.Equal(t, []*Probe{c}, d.Probes())

	d.ClearProbes()
	assert.Zero(t, d.NumProbes())
	d.Deform()
	assert.Equal(t, d.RestVertices(), d.Vertices())
}

func TestProbeAt(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN) // default radius 25
	a := mustAddProbe(t, d, 20, 20)
	b := mustAddProbe(t, d, 80, 80)

	p, i := d.ProbeAt(25, 20, SelectFactor)
	assert.Same(t, a, p)
	assert.Equal(t, 0, i)

	// Squared hit radius is 25² * 3 = 1875; (110, 80) is 900 away.
	p, i = d.ProbeAt(110, 80, SelectFactor)
	assert.Same(t, b, p)
	assert.Equal(t, 1, i)

	p, i = d.ProbeAt(50, 50, 1)
	assert.Nil(t, p)
	assert.Equal(t, -1, i)
}

func TestProbeHandleCorners(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	p := mustAddProbe(t, d, 50, 50)
	require.NoError(t, p.SetRadius(10))

	c := p.Corners()
	assertVecNear(t, "tl", c[0], Vec2{40, 40}, epsilon)
	assertVecNear(t, "tr", c[1], Vec2{60, 40}, epsilon)
	assertVecNear(t, "bl", c[2], Vec2{40, 60}, epsilon)
	assertVecNear(t, "br", c[3], Vec2{60, 60}, epsilon)
	assert.Equal(t, [4]Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, p.TexCoords())

	p.SetPose(50, 50, math.Pi/2)
	c = p.Corners()
	assertVecNear(t, "rotated tl", c[0], Vec2{60, 40}, epsilon)

	require.NoError(t, d.SetSizeMultiplier(2))
	assertNear(t, "effective radius", p.EffectiveRadius(), 20)
	c = p.Corners()
	assertVecNear(t, "scaled tl", c[0], Vec2{70, 30}, epsilon)
}

func TestProbeRadiusLimits(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	p := mustAddProbe(t, d, 50, 50)

	require.NoError(t, p.SetRadius(0.01))
	assertNear(t, "clamped", p.Radius(), MinProbeRadius)
	assert.ErrorIs(t, p.SetRadius(0), ErrInvalidRadius)
	assert.ErrorIs(t, p.SetRadius(math.NaN()), ErrInvalidRadius)
	assert.ErrorIs(t, d.SetSizeMultiplier(-2), ErrInvalidConfig)
	assertNear(t, "untouched", p.Radius(), MinProbeRadius)
}

func TestSetDivisionsInvalidatesWeights(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	a := mustAddProbe(t, d, 20, 20)
	mustAddProbe(t, d, 80, 80)
	d.Deform()
	require.Equal(t, 121, a.Weights().Len())

	require.NoError(t, d.SetDivisions(4, 5))
	assert.Equal(t, 30, d.Grid().NumVertices())
	assert.Equal(t, d.Grid().Index(1, 1), a.ClosestPt())
	assert.True(t, d.weightsStale())
	assert.Len(t, d.Vertices(), 30)

	d.Deform()
	assert.Equal(t, 30, a.Weights().Len())
	assertNear(t, "anchor weight", a.Weights().At(a.ClosestPt()), 1)
	_, k := d.Laplacian().SymBand()
	assert.Equal(t, 6, k)
}

func TestRedivideDropsStaleWeights(t *testing.T) {
	cfg := DefaultConfig(100, 100)
	cfg.VerticalDivisions, cfg.HorizontalDivisions = 4, 9
	d, err := NewDeformer(cfg)
	require.NoError(t, err)

	a := mustAddProbe(t, d, 0, 50)
	b := mustAddProbe(t, d, 12, 50)
	d.Deform()
	require.False(t, d.Status().Fallback)
	require.NotEqual(t, a.ClosestPt(), b.ClosestPt())

	// Four columns put both probes on the same vertex. The 50-entry weights
	// from the old grid happen to match the new vertex count and must not be
	// reused.
	require.NoError(t, d.SetDivisions(9, 4))
	require.Equal(t, a.ClosestPt(), b.ClosestPt())
	d.Deform()

	st := d.Status()
	assert.True(t, st.Fallback)
	assert.ErrorIs(t, st.Err, ErrCoincidentAnchors)
	assert.Equal(t, WeightEuclidean, st.Used)
	assertNear(t, "anchor weight", a.Weights().At(a.ClosestPt()), 1)
	for _, v := range d.Vertices() {
		require.False(t, math.IsNaN(v.X) || math.IsNaN(v.Y))
	}
}

func TestAddProbeFarOutsideClamps(t *testing.T) {
	d, err := NewDeformer(DefaultConfig(400, 400))
	require.NoError(t, err)

	tests := []struct {
		name string
		x, y float64
		want int
	}{
		{"right edge", 1e300, 0, d.Grid().Index(0, DefaultDivisions)},
		{"bottom left", -1e300, 1e300, d.Grid().Index(DefaultDivisions, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustAddProbe(t, d, tt.x, tt.y)
			assert.Equal(t, tt.want, p.ClosestPt())
		})
	}
	assert.Equal(t, 40, d.Probe(0).ClosestPt())
}

func TestPoseRejectsNonFinite(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	p := mustAddProbe(t, d, 30, 50)
	mustAddProbe(t, d, 70, 50)
	require.NoError(t, p.Move(5, -5, 0.2))
	x0, y0, th0 := p.Pose()

	tests := []struct {
		name string
		set  func() error
	}{
		{"set nan x", func() error { return p.SetPose(math.NaN(), 0, 0) }},
		{"set inf theta", func() error { return p.SetPose(10, 10, math.Inf(1)) }},
		{"move inf y", func() error { return p.Move(0, math.Inf(-1), 0) }},
		{"move nan theta", func() error { return p.Move(1, 1, math.NaN()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.set(), ErrInvalidPoint)
			x, y, th := p.Pose()
			assert.Equal(t, [3]float64{x0, y0, th0}, [3]float64{x, y, th})
		})
	}

	d.Deform()
	for i, v := range d.Vertices() {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			t.Fatalf("vertex %d = %v", i, v)
		}
	}
}

func TestFailedResizeLeavesDeformerIntact(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	g := d.Grid()

	assert.ErrorIs(t, d.SetDivisions(0, 3), ErrInvalidDivisions)
	assert.ErrorIs(t, d.SetImageSize(-5, 10), ErrInvalidImageSize)
	assert.Same(t, g, d.Grid())
}

func TestSetImageSizeKeepsLaplacian(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	lap := d.Laplacian()
	require.NoError(t, d.SetImageSize(200, 50))

	w, h := d.Grid().Size()
	assert.Equal(t, [2]float64{200, 50}, [2]float64{w, h})
	assert.Same(t, lap, d.Laplacian())
	assertVecNear(t, "last vertex", d.Vertices()[d.Grid().NumVertices()-1], Vec2{200, 50}, epsilon)
}

func TestFreezeProbesBanksDeformation(t *testing.T) {
	d := newTestDeformer(t, 10, 100, WeightHarmonic, DeformDCN)
	a := mustAddProbe(t, d, 20, 50)
	mustAddProbe(t, d, 80, 50)
	a.Move(0, 10, 0)
	d.FreezeProbes()

	banked := append([]Vec2(nil), d.Vertices()...)
	assert.Equal(t, banked, d.RestVertices())
	assertVecNear(t, "banked anchor", banked[a.ClosestPt()], Vec2{20, 60}, 1e-9)
	assert.True(t, a.Motion().ApproxEqual(Identity(), 1e-12))

	// Deforming again with identity motions reproduces the banked mesh.
	d.Deform()
	for i, v := range d.Vertices() {
		assertVecNear(t, "vertex", v, banked[i], 1e-9)
	}

	// New probes anchor against the banked mesh.
	c := mustAddProbe(t, d, 20, 60)
	assert.Equal(t, a.ClosestPt(), c.ClosestPt())
	require.NoError(t, d.RemoveProbe(c))

	d.ResetMesh()
	assert.Zero(t, d.NumProbes())
	assert.Equal(t, d.Grid().positions, d.RestVertices())
	assert.Equal(t, d.Grid().positions, d.Vertices())
}

func TestSetConstraintWeight(t *testing.T) {
	d := newTestDeformer(t, 6, 60, WeightBiharmonic, DeformDCN)
	mustAddProbe(t, d, 10, 10)
	mustAddProbe(t, d, 50, 50)
	d.Deform()

	require.NoError(t, d.SetConstraintWeight(1e-3))
	assert.True(t, d.weightsStale())
	assert.True(t, errors.Is(d.SetConstraintWeight(-1), ErrInvalidConfig))
	assertNear(t, "kept", d.ConstraintWeight(), 1e-3)

	assert.ErrorIs(t, d.SetWeightModel(WeightModel(7)), ErrInvalidConfig)
	assert.ErrorIs(t, d.SetDeformModel(DeformModel(7)), ErrInvalidConfig)
}
