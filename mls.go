package probedeform

import "math"

// mlsSnap is the squared distance under which a vertex counts as sitting on
// a probe centre.
const mlsSnap = 1e-12

// mlsHandle is one probe seen by the moving least squares solver: its four
// handle corners at the initial pose (from) and at the current pose (to).
type mlsHandle struct {
	origin Vec2 // initial centre
	centre Vec2 // current centre
	from   [4]Vec2
	to     [4]Vec2
}

func mlsHandles(probes []*Probe) []mlsHandle {
	hs := make([]mlsHandle, len(probes))
	for i, p := range probes {
		hs[i] = mlsHandle{
			origin: p.InitialPosition(),
			centre: p.Position(),
			from:   p.initialCorners(),
			to:     p.corners,
		}
	}
	return hs
}

// mlsDeform moves every rest position by the weighted rigid (or similarity)
// transform that best maps the handle corners from their initial to their
// current poses, with weights falling off as 1/d^(2*alpha) from each probe's
// initial centre.
func mlsDeform(hs []mlsHandle, alpha float64, similarity bool, rest, out []Vec2) {
	w := make([]float64, len(hs))
	for v, pos := range rest {
		out[v] = mlsPoint(hs, w, alpha, similarity, pos)
	}
}

func mlsPoint(hs []mlsHandle, w []float64, alpha float64, similarity bool, v Vec2) Vec2 {
	var total float64
	var pStar, qStar Vec2
	for i, h := range hs {
		d2 := v.Sub(h.origin).Len2()
		if d2 < mlsSnap {
			return h.centre
		}
		w[i] = 1 / math.Pow(d2, alpha)
		total += 4 * w[i]
		for k := range h.from {
			pStar = pStar.Add(h.from[k].Scale(w[i]))
			qStar = qStar.Add(h.to[k].Scale(w[i]))
		}
	}
	pStar = pStar.Scale(1 / total)
	qStar = qStar.Scale(1 / total)

	var dot, cross, spread float64
	for i, h := range hs {
		for k := range h.from {
			ph := h.from[k].Sub(pStar)
			qh := h.to[k].Sub(qStar)
			dot += w[i] * ph.Dot(qh)
			cross += w[i] * ph.Cross(qh)
			spread += w[i] * ph.Len2()
		}
	}
	if spread == 0 {
		return v.Sub(pStar).Add(qStar)
	}

	f := v.Sub(pStar).Rotate(math.Atan2(cross, dot))
	if similarity {
		f = f.Scale(math.Hypot(dot, cross) / spread)
	}
	return f.Add(qStar)
}
