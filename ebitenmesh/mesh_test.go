package ebitenmesh

import (
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/probedeform"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func newDeformer(t *testing.T) *probedeform.Deformer {
	t.Helper()
	cfg := probedeform.DefaultConfig(64, 32)
	cfg.VerticalDivisions, cfg.HorizontalDivisions = 2, 4
	d, err := probedeform.NewDeformer(cfg)
	require.NoError(t, err)
	return d
}

func TestMeshMirrorsGrid(t *testing.T) {
	d := newDeformer(t)
	m := New(d, nil)

	require.Len(t, m.Vertices(), 15)
	assert.Len(t, m.Indices(), 2*4*6)

	last := m.Vertices()[14]
	assert.Equal(t, float32(64), last.DstX)
	assert.Equal(t, float32(32), last.DstY)
	assert.Equal(t, float32(64), last.SrcX, "source spans the image size")
	assert.Equal(t, float32(32), last.SrcY)
	assert.Equal(t, Rect{0, 0, 64, 32}, m.Bounds())
}

func TestMeshSyncFollowsDeformation(t *testing.T) {
	d := newDeformer(t)
	m := New(d, nil)

	p, err := d.AddProbe(32, 16)
	require.NoError(t, err)
	p.Move(3, -2, 0)
	d.Deform()
	m.Sync()

	v := m.Vertices()[d.Grid().Index(1, 2)]
	assert.Equal(t, float32(35), v.DstX)
	assert.Equal(t, float32(14), v.DstY)
	assert.Equal(t, Rect{3, -2, 64, 32}, m.Bounds())
}

func TestMeshSyncRebuildsAfterRedivide(t *testing.T) {
	d := newDeformer(t)
	m := New(d, nil)

	require.NoError(t, d.SetDivisions(4, 4))
	m.Sync()
	assert.Len(t, m.Vertices(), 25)
	assert.Len(t, m.Indices(), 4*4*6)
}

func TestTransformVertices(t *testing.T) {
	src := []ebiten.Vertex{{DstX: 1, DstY: 2, SrcX: 5, SrcY: 6, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1}}
	dst := make([]ebiten.Vertex, 1)

	// Scale by 2 then shift by (10, 20), half alpha.
	transformVertices(src, dst, [6]float64{2, 0, 0, 2, 10, 20}, Color{1, 1, 1, 0.5})
	assert.Equal(t, float32(12), dst[0].DstX)
	assert.Equal(t, float32(24), dst[0].DstY)
	assert.Equal(t, float32(5), dst[0].SrcX)
	assert.Equal(t, float32(0.5), dst[0].ColorR, "premultiplied")
	assert.Equal(t, float32(0.5), dst[0].ColorA)
}

func TestHandlesBuild(t *testing.T) {
	d := newDeformer(t)
	a, err := d.AddProbe(16, 16)
	require.NoError(t, err)
	require.NoError(t, a.SetRadius(4))
	_, err = d.AddProbe(48, 16)
	require.NoError(t, err)

	h := NewHandles(nil)
	verts, inds := h.Build(d.Probes(), Identity)
	require.Len(t, verts, 8)
	assert.Equal(t, []uint16{0, 2, 1, 1, 2, 3, 4, 6, 5, 5, 6, 7}, inds)

	assert.True(t, approxEqual(float64(verts[0].DstX), 12, 1e-6))
	assert.True(t, approxEqual(float64(verts[3].DstY), 20, 1e-6))
	assert.Equal(t, float32(1), verts[3].SrcX)
}
