package probedeform

// restBlend normalizes the probe weights of one vertex in place. If they sum
// to more than one they are scaled down to one; otherwise the remainder is
// returned as the weight of the implicit rest (identity) transform.
func restBlend(w []float64) float64 {
	var sum float64
	for _, x := range w {
		sum += x
	}
	if sum > 1 {
		inv := 1 / sum
		for i := range w {
			w[i] *= inv
		}
		return 0
	}
	return 1 - sum
}

// blender deforms rest positions by blending per-probe motions. The motion
// and weight slices carry one extra slot for the identity.
type blender struct {
	motions []Motion
	weights [][]float64
	w       []float64
}

func newBlender(motions []Motion, weights [][]float64) *blender {
	b := &blender{
		motions: append(append(make([]Motion, 0, len(motions)+1), motions...), Identity()),
		weights: weights,
		w:       make([]float64, len(motions)+1),
	}
	return b
}

// vertex loads the effective weights of vertex v into b.w.
func (b *blender) vertex(v int) {
	n := len(b.weights)
	for p := 0; p < n; p++ {
		b.w[p] = b.weights[p][v]
	}
	b.w[n] = restBlend(b.w[:n])
}

// dcn blends the motions as dual complex numbers and applies the result.
func (b *blender) dcn(rest, out []Vec2) {
	for v, pos := range rest {
		b.vertex(v)
		out[v] = Blend(b.motions, b.w).Apply(pos)
	}
}

// linear applies every motion and averages the resulting positions.
func (b *blender) linear(rest, out []Vec2) {
	for v, pos := range rest {
		b.vertex(v)
		var acc Vec2
		for p, m := range b.motions {
			if w := b.w[p]; w != 0 {
				acc = acc.Add(m.Apply(pos).Scale(w))
			}
		}
		out[v] = acc
	}
}
