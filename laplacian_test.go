package probedeform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLaplacianRowsSumToZero(t *testing.T) {
	g, err := NewGrid(5, 7, 70, 50)
	require.NoError(t, err)
	lap := NewLaplacian(g)

	for i := 0; i < lap.Dim(); i++ {
		assertNear(t, "row sum", lap.RowSum(i), 0)
	}
}

func TestLaplacianDegrees(t *testing.T) {
	g, err := NewGrid(3, 3, 30, 30)
	require.NoError(t, err)
	lap := NewLaplacian(g)

	assert.Equal(t, 2.0, lap.At(g.Index(0, 0), g.Index(0, 0)), "corner")
	assert.Equal(t, 3.0, lap.At(g.Index(0, 1), g.Index(0, 1)), "edge")
	assert.Equal(t, 4.0, lap.At(g.Index(1, 1), g.Index(1, 1)), "interior")

	c := g.Index(1, 1)
	assert.Equal(t, -1.0, lap.At(c, g.Index(1, 2)))
	assert.Equal(t, -1.0, lap.At(c, g.Index(2, 1)))
	assert.Equal(t, 0.0, lap.At(c, g.Index(2, 2)), "diagonal neighbours are not connected")
}

func TestLaplacianMatrixMatchesRows(t *testing.T) {
	g, err := NewGrid(3, 4, 40, 30)
	require.NoError(t, err)
	lap := NewLaplacian(g)

	m := lap.Matrix()
	n, k := m.SymBand()
	assert.Equal(t, lap.Dim(), n)
	assert.Equal(t, 5, k, "half-bandwidth is one row of vertices")

	dense := mat.DenseCopyOf(m)
	assert.True(t, mat.EqualApprox(dense, dense.T(), 0), "symmetric")
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if dense.At(i, j) != lap.At(i, j) {
				t.Fatalf("band(%d,%d) = %g, rows = %g", i, j, dense.At(i, j), lap.At(i, j))
			}
		}
	}
}

func TestLaplacianSquare(t *testing.T) {
	g, err := NewGrid(3, 3, 30, 30)
	require.NoError(t, err)
	lap := NewLaplacian(g)

	dense := mat.DenseCopyOf(lap.Matrix())
	var want mat.Dense
	want.Mul(dense, dense)

	sq := lap.square()
	n := lap.Dim()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !approxEqual(sq.at(i, j), want.At(i, j), epsilon) {
				t.Fatalf("L²(%d,%d) = %g, want %g", i, j, sq.at(i, j), want.At(i, j))
			}
		}
	}
	assert.Same(t, &sq[0][0], &lap.square()[0][0], "square is cached")
}
