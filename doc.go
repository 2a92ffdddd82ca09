// Package probedeform deforms a textured 2D mesh through rigid control
// handles called probes.
//
// A [Deformer] lays a regular vertex grid over an image. Each [Probe] carries
// a rigid pose (position and angle) and an influence radius; dragging or
// turning a probe bends the image around it. Per-vertex influence comes from
// one of three weight models and the vertex positions from one of four
// deformation models:
//
//   - [WeightEuclidean]: compactly supported falloff around each probe.
//   - [WeightHarmonic], [WeightBiharmonic]: diffusion over the grid with the
//     probes as fixed anchors, solved once per anchor set with a banded
//     Cholesky factorization.
//   - [DeformDCN]: dual complex number blending of the probe motions.
//   - [DeformLinear]: linear blend skinning.
//   - [DeformMLSRigid], [DeformMLSSimilarity]: moving least squares driven by
//     the probes' handle corners.
//
// # Quick start
//
//	d, err := probedeform.NewDeformer(probedeform.DefaultConfig(512, 512))
//	if err != nil {
//		return err
//	}
//	p, _ := d.AddProbe(128, 256)
//	d.AddProbe(384, 256)
//	p.Move(0, 40, math.Pi/6)
//	d.Deform()
//	verts := d.Vertices() // deformed positions, row-major
//
// Positions are in image space: origin at the top-left, x to the right and y
// down. Texture coordinates are normalized to [0, 1].
//
// # Rendering
//
// The core does no drawing. The ebitenmesh subpackage converts deformer
// output into [ebiten.Vertex] slices and draws them with DrawTriangles32.
//
// # Errors
//
// Invalid arguments return sentinel errors (see [ErrInvalidDivisions] and
// friends) and leave the deformer unchanged. Numerical trouble in the
// diffusion solve is not returned: the deformer falls back to earlier or
// Euclidean weights, logs a warning through the configured [zap.Logger] and
// records what happened in [Deformer.Status].
//
// A Deformer is single-threaded. Use one per goroutine.
//
// [ebiten.Vertex]: https://pkg.go.dev/github.com/hajimehoshi/ebiten/v2#Vertex
// [zap.Logger]: https://pkg.go.dev/go.uber.org/zap#Logger
package probedeform
