package probedeform

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// sparseEntry is one nonzero of a sparse symmetric matrix row.
type sparseEntry struct {
	col int
	val float64
}

// sparseRows holds each row's nonzeros sorted by column. It is used for
// products and right-hand sides where the band layout would waste work.
type sparseRows [][]sparseEntry

// at returns entry (i, j) or zero.
func (s sparseRows) at(i, j int) float64 {
	row := s[i]
	k := sort.Search(len(row), func(k int) bool { return row[k].col >= j })
	if k < len(row) && row[k].col == j {
		return row[k].val
	}
	return 0
}

// Laplacian is the graph Laplacian L = D - A of a grid's 4-neighbour
// connectivity with unit edge weights. Each diagonal entry equals the degree
// of its vertex, so every row sums to zero.
type Laplacian struct {
	n, k int // dimension and half-bandwidth
	rows sparseRows
	band *mat.SymBandDense

	squared *sparseRows // L·L, built on first biharmonic use
}

// gridGraph returns the connectivity graph of g: each vertex joined to its
// horizontal and vertical neighbours.
func gridGraph(g *Grid) *simple.WeightedUndirectedGraph {
	gr := simple.NewWeightedUndirectedGraph(0, 0)
	vcols := g.hdiv + 1
	vrows := g.vdiv + 1
	for i := 0; i < g.NumVertices(); i++ {
		gr.AddNode(simple.Node(i))
	}
	for r := 0; r < vrows; r++ {
		for c := 0; c < vcols; c++ {
			id := simple.Node(r*vcols + c)
			if c+1 < vcols {
				gr.SetWeightedEdge(simple.WeightedEdge{F: id, T: simple.Node(r*vcols + c + 1), W: 1})
			}
			if r+1 < vrows {
				gr.SetWeightedEdge(simple.WeightedEdge{F: id, T: simple.Node((r+1)*vcols + c), W: 1})
			}
		}
	}
	return gr
}

// NewLaplacian builds the Laplacian of g.
func NewLaplacian(g *Grid) *Laplacian {
	gr := gridGraph(g)
	n := g.NumVertices()

	rows := make(sparseRows, n)
	for i := 0; i < n; i++ {
		id := int64(i)
		var deg float64
		row := make([]sparseEntry, 0, 5)
		to := gr.From(id)
		for to.Next() {
			j := to.Node().ID()
			w, _ := gr.Weight(id, j)
			deg += w
			row = append(row, sparseEntry{col: int(j), val: -w})
		}
		row = append(row, sparseEntry{col: i, val: deg})
		sort.Slice(row, func(a, b int) bool { return row[a].col < row[b].col })
		rows[i] = row
	}

	k := min(g.hdiv+1, n-1)
	return &Laplacian{n: n, k: k, rows: rows, band: rows.toBand(n, k)}
}

// toBand copies the upper triangle of s into band storage with half-bandwidth k.
func (s sparseRows) toBand(n, k int) *mat.SymBandDense {
	b := mat.NewSymBandDense(n, k, nil)
	for i, row := range s {
		for _, e := range row {
			if e.col >= i && e.col-i <= k {
				b.SetSymBand(i, e.col, e.val)
			}
		}
	}
	return b
}

// Dim returns the number of rows (and columns).
func (l *Laplacian) Dim() int { return l.n }

// Bandwidth returns the half-bandwidth of L.
func (l *Laplacian) Bandwidth() int { return l.k }

// Matrix returns a read-only view of L.
func (l *Laplacian) Matrix() mat.SymBanded { return l.band }

// At returns entry (i, j) of L.
func (l *Laplacian) At(i, j int) float64 { return l.rows.at(i, j) }

// RowSum returns the sum of row i, which is zero for a well-formed Laplacian.
func (l *Laplacian) RowSum(i int) float64 {
	var s float64
	for _, e := range l.rows[i] {
		s += e.val
	}
	return s
}

// square returns L·L in sparse row form. It is computed once and cached.
func (l *Laplacian) square() sparseRows {
	if l.squared != nil {
		return *l.squared
	}
	sq := make(sparseRows, l.n)
	acc := make(map[int]float64, 16)
	for i, row := range l.rows {
		clear(acc)
		for _, a := range row {
			for _, b := range l.rows[a.col] {
				acc[b.col] += a.val * b.val
			}
		}
		out := make([]sparseEntry, 0, len(acc))
		for j, v := range acc {
			if v != 0 {
				out = append(out, sparseEntry{col: j, val: v})
			}
		}
		sort.Slice(out, func(a, b int) bool { return out[a].col < out[b].col })
		sq[i] = out
	}
	l.squared = &sq
	return sq
}
