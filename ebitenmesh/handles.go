package ebitenmesh

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/probedeform"
)

// handleIndices turns a strip-ordered quad (TL, TR, BL, BR) into two
// triangles.
var handleIndices = [6]uint16{0, 2, 1, 1, 2, 3}

// Handles draws probe handle quads. Buffers are reused between frames.
type Handles struct {
	// Image is the handle texture, stretched over each probe's quad.
	Image *ebiten.Image
	Tint  Color

	verts []ebiten.Vertex
	inds  []uint16
}

// NewHandles returns a handle renderer using img as the handle texture.
func NewHandles(img *ebiten.Image) *Handles {
	return &Handles{Image: img, Tint: ColorWhite}
}

// Build fills the vertex and index buffers for probes under transform and
// returns them.
func (h *Handles) Build(probes []*probedeform.Probe, transform [6]float64) ([]ebiten.Vertex, []uint16) {
	var sw, sh float64 = 1, 1
	if h.Image != nil {
		b := h.Image.Bounds()
		sw, sh = float64(b.Dx()), float64(b.Dy())
	}

	h.verts = h.verts[:0]
	h.inds = h.inds[:0]
	quad := make([]ebiten.Vertex, 4)
	for _, p := range probes {
		corners := p.Corners()
		uvs := p.TexCoords()
		for k := range quad {
			quad[k] = ebiten.Vertex{
				DstX: float32(corners[k].X), DstY: float32(corners[k].Y),
				SrcX: float32(uvs[k].X * sw), SrcY: float32(uvs[k].Y * sh),
				ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
			}
		}
		base := uint16(len(h.verts))
		h.verts = append(h.verts, quad...)
		transformVertices(quad, h.verts[base:], transform, h.Tint)
		for _, i := range handleIndices {
			h.inds = append(h.inds, base+i)
		}
	}
	return h.verts, h.inds
}

// Draw renders a handle for every probe onto dst.
func (h *Handles) Draw(dst *ebiten.Image, probes []*probedeform.Probe, transform [6]float64) {
	if h.Image == nil || len(probes) == 0 {
		return
	}
	verts, inds := h.Build(probes, transform)
	var op ebiten.DrawTrianglesOptions
	op.Filter = ebiten.FilterLinear
	dst.DrawTriangles(verts, inds, h.Image, &op)
}
