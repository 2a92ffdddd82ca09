package probedeform

import (
	"fmt"
	"math"
)

// maxVertices bounds the grid size so index arithmetic stays within uint32.
// It does not bound solver memory: a biharmonic system stores
// n·(2(hdiv+1)+1) floats, which newFactorization checks against
// maxBandEntries.
const maxVertices = 1 << 22

// Grid is the undeformed vertex lattice laid over an image. Vertices are
// stored row-major: row r, column c lives at index r*(HorizontalDivisions+1)+c.
// Positions are in image space with the origin at the top-left corner and Y
// increasing downward. A Grid never changes after construction.
type Grid struct {
	vdiv, hdiv    int
	width, height float64

	positions []Vec2
	texCoords []Vec2 // normalized [0,1] UVs
	indices   []uint32
}

// NewGrid builds a grid of vdiv x hdiv cells covering a width x height image.
func NewGrid(vdiv, hdiv int, width, height float64) (*Grid, error) {
	if vdiv <= 0 || hdiv <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDivisions, vdiv, hdiv)
	}
	if (vdiv+1) > maxVertices/(hdiv+1) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d vertices", ErrInvalidDivisions, vdiv, hdiv, maxVertices)
	}
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidImageSize, width, height)
	}

	vcols := hdiv + 1
	vrows := vdiv + 1
	n := vcols * vrows

	g := &Grid{
		vdiv:      vdiv,
		hdiv:      hdiv,
		width:     width,
		height:    height,
		positions: make([]Vec2, n),
		texCoords: make([]Vec2, n),
		indices:   make([]uint32, vdiv*hdiv*6),
	}

	cellW := width / float64(hdiv)
	cellH := height / float64(vdiv)
	for r := 0; r < vrows; r++ {
		for c := 0; c < vcols; c++ {
			idx := r*vcols + c
			g.positions[idx] = Vec2{X: float64(c) * cellW, Y: float64(r) * cellH}
			g.texCoords[idx] = Vec2{X: float64(c) / float64(hdiv), Y: float64(r) / float64(vdiv)}
		}
	}

	ii := 0
	for r := 0; r < vdiv; r++ {
		for c := 0; c < hdiv; c++ {
			tl := uint32(r*vcols + c)
			tr := tl + 1
			bl := uint32((r+1)*vcols + c)
			br := bl + 1
			g.indices[ii+0] = tl
			g.indices[ii+1] = bl
			g.indices[ii+2] = tr
			g.indices[ii+3] = tr
			g.indices[ii+4] = bl
			g.indices[ii+5] = br
			ii += 6
		}
	}
	return g, nil
}

// VerticalDivisions returns the number of cell rows.
func (g *Grid) VerticalDivisions() int { return g.vdiv }

// HorizontalDivisions returns the number of cell columns.
func (g *Grid) HorizontalDivisions() int { return g.hdiv }

// Size returns the image size the grid covers.
func (g *Grid) Size() (width, height float64) { return g.width, g.height }

// NumVertices returns (VerticalDivisions+1) * (HorizontalDivisions+1).
func (g *Grid) NumVertices() int { return len(g.positions) }

// CellSize returns the width and height of one grid cell.
func (g *Grid) CellSize() (w, h float64) {
	return g.width / float64(g.hdiv), g.height / float64(g.vdiv)
}

// Index returns the vertex index of (row, col).
func (g *Grid) Index(row, col int) int { return row*(g.hdiv+1) + col }

// Position returns the undeformed position of vertex i.
func (g *Grid) Position(i int) Vec2 { return g.positions[i] }

// TexCoord returns the normalized texture coordinate of vertex i.
func (g *Grid) TexCoord(i int) Vec2 { return g.texCoords[i] }

// Nearest returns the index of the grid vertex closest to p. Points outside
// the image clamp to the border.
func (g *Grid) Nearest(p Vec2) int {
	cellW, cellH := g.CellSize()
	col := clampCell(p.X/cellW, g.hdiv)
	row := clampCell(p.Y/cellH, g.vdiv)
	return g.Index(row, col)
}

// Indices returns the triangle list, two triangles per cell. The slice is
// shared; callers must not modify it.
func (g *Grid) Indices() []uint32 { return g.indices }

// StripIndices returns the triangle strip for cell row `row`, alternating the
// top and bottom vertex of each column: 2*(HorizontalDivisions+1) indices.
func (g *Grid) StripIndices(row int) []uint32 {
	if row < 0 || row >= g.vdiv {
		return nil
	}
	vcols := g.hdiv + 1
	strip := make([]uint32, 0, 2*vcols)
	for c := 0; c < vcols; c++ {
		strip = append(strip, uint32(row*vcols+c), uint32((row+1)*vcols+c))
	}
	return strip
}

// clampCell rounds a position measured in cells to the nearest lattice line
// in [0, hi]. Clamping happens before the int conversion so huge finite
// coordinates land on the far border.
func clampCell(v float64, hi int) int {
	return int(math.Max(0, math.Min(float64(hi), math.Round(v))))
}
