package raster

import (
	"image"
	"image/color"

	"github.com/phanxgames/probedeform"
)

// triangleMask is an alpha mask that is opaque where a pixel centre lies
// inside a triangle, in either winding. Pixels on a shared edge belong to
// both neighbours, so adjacent triangles leave no gaps.
type triangleMask struct {
	a, b, c probedeform.Vec2
	bounds  image.Rectangle
}

func newTriangleMask(tri [3]probedeform.Vec2) *triangleMask {
	return &triangleMask{
		a:      tri[0],
		b:      tri[1],
		c:      tri[2],
		bounds: boundsOf(tri),
	}
}

func (m *triangleMask) ColorModel() color.Model { return color.Alpha16Model }

func (m *triangleMask) Bounds() image.Rectangle { return m.bounds }

func (m *triangleMask) At(x, y int) color.Color {
	if m.inside(probedeform.Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5}) {
		return color.Opaque
	}
	return color.Transparent
}

func (m *triangleMask) inside(p probedeform.Vec2) bool {
	w0 := m.c.Sub(m.b).Cross(p.Sub(m.b))
	w1 := m.a.Sub(m.c).Cross(p.Sub(m.c))
	w2 := m.b.Sub(m.a).Cross(p.Sub(m.a))
	return (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0)
}
