// Package raster warps images through a deformed probedeform mesh on the CPU,
// one affine-mapped triangle at a time.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	// Extra decoders for Load.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/phanxgames/probedeform"
)

// degenerate is the smallest doubled triangle area, in square pixels, that
// is still drawn.
const degenerate = 1e-9

// Options controls Warp.
type Options struct {
	// Background fills the canvas before drawing. Nil means transparent.
	Background color.Color
	// Scale multiplies the output size. Zero means 1.
	Scale float64
	// Interpolator samples the source. Nil means bilinear.
	Interpolator draw.Interpolator
	// Wireframe, if set, outlines every deformed triangle in this colour.
	Wireframe color.Color
}

// Stats reports what Warp drew.
type Stats struct {
	Triangles int
	Skipped   int // degenerate or fully off canvas
}

// Load decodes an image file, honouring EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("raster: load %s: %w", path, err)
	}
	return img, nil
}

// Save encodes img in the format implied by the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("raster: save %s: %w", path, err)
	}
	return nil
}

// Fit shrinks img so neither side exceeds maxSide. Smaller images and a
// non-positive maxSide return img unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// Warp draws src through d's current deformation. The canvas has the size of
// d's grid times the scale; vertices pushed outside it are clipped. Source
// texels come from each vertex's texture coordinate times the size of src,
// so src need not match the grid size.
func Warp(src image.Image, d *probedeform.Deformer, opts Options) (*image.NRGBA, Stats) {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	interp := opts.Interpolator
	if interp == nil {
		interp = draw.BiLinear
	}
	bg := opts.Background
	if bg == nil {
		bg = color.Transparent
	}

	gw, gh := d.Grid().Size()
	dst := imaging.New(int(math.Ceil(gw*scale)), int(math.Ceil(gh*scale)), bg)

	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	verts := d.Vertices()
	uvs := d.TexCoords()
	inds := d.Indices()

	var st Stats
	for t := 0; t+2 < len(inds); t += 3 {
		var tri, from [3]probedeform.Vec2
		for k := range 3 {
			i := inds[t+k]
			tri[k] = verts[i].Scale(scale)
			from[k] = probedeform.Vec2{
				X: float64(sb.Min.X) + uvs[i].X*sw,
				Y: float64(sb.Min.Y) + uvs[i].Y*sh,
			}
		}
		if drawTriangle(dst, src, from, tri, interp) {
			st.Triangles++
		} else {
			st.Skipped++
		}
	}

	if opts.Wireframe != nil {
		c := color.NRGBAModel.Convert(opts.Wireframe).(color.NRGBA)
		for t := 0; t+2 < len(inds); t += 3 {
			for k := range 3 {
				a := verts[inds[t+k]].Scale(scale)
				b := verts[inds[t+(k+1)%3]].Scale(scale)
				line(dst, a, b, c)
			}
		}
	}
	return dst, st
}

// drawTriangle maps the source triangle from onto the destination triangle
// to, masking the destination to the triangle's interior.
func drawTriangle(dst draw.Image, src image.Image, from, to [3]probedeform.Vec2, interp draw.Interpolator) bool {
	s2d, ok := triangleAffine(from, to)
	if !ok {
		return false
	}
	mask := newTriangleMask(to)
	if mask.bounds.Intersect(dst.Bounds()).Empty() {
		return false
	}

	sr := boundsOf(from).Inset(-1).Intersect(src.Bounds())
	if sr.Empty() {
		return false
	}
	interp.Transform(dst, s2d, src, sr, draw.Over, &draw.Options{DstMask: mask})
	return true
}

// triangleAffine solves for the affine map taking from onto to.
func triangleAffine(from, to [3]probedeform.Vec2) (f64.Aff3, bool) {
	s1, s2 := from[1].Sub(from[0]), from[2].Sub(from[0])
	d1, d2 := to[1].Sub(to[0]), to[2].Sub(to[0])

	det := s1.Cross(s2)
	if math.Abs(det) < degenerate || math.Abs(d1.Cross(d2)) < degenerate {
		return f64.Aff3{}, false
	}

	// M = D * S^-1, with S and D holding the edge vectors as columns.
	inv := [4]float64{s2.Y / det, -s2.X / det, -s1.Y / det, s1.X / det}
	m00 := d1.X*inv[0] + d2.X*inv[2]
	m01 := d1.X*inv[1] + d2.X*inv[3]
	m10 := d1.Y*inv[0] + d2.Y*inv[2]
	m11 := d1.Y*inv[1] + d2.Y*inv[3]

	tx := to[0].X - (m00*from[0].X + m01*from[0].Y)
	ty := to[0].Y - (m10*from[0].X + m11*from[0].Y)
	return f64.Aff3{m00, m01, tx, m10, m11, ty}, true
}

func boundsOf(pts [3]probedeform.Vec2) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// line draws a one pixel line from a to b.
func line(dst *image.NRGBA, a, b probedeform.Vec2, c color.NRGBA) {
	steps := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	if steps == 0 {
		steps = 1
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		x := int(math.Floor(a.X + (b.X-a.X)*t))
		y := int(math.Floor(a.Y + (b.Y-a.Y)*t))
		if image.Pt(x, y).In(dst.Rect) {
			dst.SetNRGBA(x, y, c)
		}
	}
}
