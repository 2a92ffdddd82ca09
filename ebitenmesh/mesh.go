// Package ebitenmesh draws a probedeform.Deformer with Ebitengine.
//
// A [Mesh] mirrors the deformer's vertex grid as [ebiten.Vertex] values and
// submits it with DrawTriangles32. Call [Mesh.Sync] after every
// Deformer.Deform and [Mesh.Draw] from the game's Draw method.
package ebitenmesh

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/probedeform"
)

// Color is an RGBA tint with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Identity is the transform that leaves image-space positions unchanged.
var Identity = [6]float64{1, 0, 0, 1, 0, 0}

// Mesh is the drawable form of a deformer's grid.
type Mesh struct {
	// Transform maps image space to the destination.
	// Layout: [0]=a, [1]=b, [2]=c, [3]=d, [4]=tx, [5]=ty
	Transform [6]float64
	Tint      Color

	d    *probedeform.Deformer
	img  *ebiten.Image
	grid *probedeform.Grid

	verts       []ebiten.Vertex
	transformed []ebiten.Vertex
	inds        []uint32

	aabb      Rect
	aabbDirty bool
}

// New returns a mesh drawing d textured with img. img may be nil, in which
// case source coordinates are laid out over the deformer's image size.
func New(d *probedeform.Deformer, img *ebiten.Image) *Mesh {
	m := &Mesh{
		Transform: Identity,
		Tint:      ColorWhite,
		d:         d,
		img:       img,
	}
	m.Sync()
	return m
}

// sourceSize returns the texture size source coordinates are scaled to.
func (m *Mesh) sourceSize() (w, h float64) {
	if m.img != nil {
		b := m.img.Bounds()
		return float64(b.Dx()), float64(b.Dy())
	}
	return m.d.Grid().Size()
}

// rebuild reallocates buffers for a new grid.
func (m *Mesh) rebuild() {
	g := m.d.Grid()
	m.grid = g
	n := g.NumVertices()
	m.verts = make([]ebiten.Vertex, n)
	m.transformed = m.transformed[:0]
	m.inds = append(m.inds[:0], g.Indices()...)

	sw, sh := m.sourceSize()
	for i := range m.verts {
		uv := g.TexCoord(i)
		m.verts[i] = ebiten.Vertex{
			SrcX: float32(uv.X * sw), SrcY: float32(uv.Y * sh),
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		}
	}
}

// Sync copies the deformer's current vertex positions into the mesh,
// rebuilding the buffers if the grid was re-divided or resized.
func (m *Mesh) Sync() {
	if m.grid != m.d.Grid() {
		m.rebuild()
	}
	for i, v := range m.d.Vertices() {
		m.verts[i].DstX = float32(v.X)
		m.verts[i].DstY = float32(v.Y)
	}
	m.aabbDirty = true
}

// SetImage replaces the texture. Source coordinates are recomputed.
func (m *Mesh) SetImage(img *ebiten.Image) {
	m.img = img
	m.grid = nil
	m.Sync()
}

// Vertices returns the untransformed vertices in image space.
func (m *Mesh) Vertices() []ebiten.Vertex { return m.verts }

// Indices returns the triangle list.
func (m *Mesh) Indices() []uint32 { return m.inds }

// Bounds returns the image-space bounding box of the deformed mesh.
func (m *Mesh) Bounds() Rect {
	if m.aabbDirty {
		m.aabb = computeMeshAABB(m.verts)
		m.aabbDirty = false
	}
	return m.aabb
}

// Draw renders the mesh onto dst.
func (m *Mesh) Draw(dst *ebiten.Image) {
	if m.img == nil || len(m.verts) == 0 {
		return
	}
	m.transformed = ensureLen(m.transformed, len(m.verts))
	transformVertices(m.verts, m.transformed, m.Transform, m.Tint)

	var op ebiten.DrawTrianglesOptions
	op.Filter = ebiten.FilterLinear
	dst.DrawTriangles32(m.transformed, m.inds, m.img, &op)
}

func ensureLen(buf []ebiten.Vertex, n int) []ebiten.Vertex {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]ebiten.Vertex, n)
}

// transformVertices writes src mapped through the affine t and tinted into
// dst, which must be at least as long as src. The tint is premultiplied.
func transformVertices(src, dst []ebiten.Vertex, t [6]float64, tint Color) {
	alpha := float32(tint.A)
	r, g, b := float32(tint.R)*alpha, float32(tint.G)*alpha, float32(tint.B)*alpha
	for i, v := range src {
		x, y := float64(v.DstX), float64(v.DstY)
		v.DstX = float32(t[0]*x + t[2]*y + t[4])
		v.DstY = float32(t[1]*x + t[3]*y + t[5])
		v.ColorR *= r
		v.ColorG *= g
		v.ColorB *= b
		v.ColorA *= alpha
		dst[i] = v
	}
}

// computeMeshAABB returns the bounding box of the vertices' destination
// positions.
func computeMeshAABB(verts []ebiten.Vertex) Rect {
	if len(verts) == 0 {
		return Rect{}
	}
	minX, minY := float64(verts[0].DstX), float64(verts[0].DstY)
	maxX, maxY := minX, minY
	for _, v := range verts[1:] {
		x, y := float64(v.DstX), float64(v.DstY)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
