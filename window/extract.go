package window

import (
	"fmt"
	"math"

	"github.com/uestcxi/ihog/featgrid"
	"github.com/uestcxi/ihog/pairdict"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Eps guards the normalization of all-zero windows.
const Eps = 2.220446049250313e-16

// GridLayout is the layout of the d.Ny x d.Nx windows of g.
func GridLayout(g *featgrid.Grid, d *pairdict.Dict) Layout {
	return NewLayout(g.Height(), g.Width(), g.Batch(), d.Ny, d.Nx)
}

// Extract takes every window of the grid in the order of layout
// and returns them as the columns of a matrix.
// Each window is vectorized with d.HOGIndex,
// made zero-mean and scaled to unit norm.
//
// The grid must already have d.Channels() channels
// and layout must equal GridLayout(g, d).
// Returns nil if there are no windows.
func Extract(g *featgrid.Grid, d *pairdict.Dict, layout Layout) *mat.Dense {
	if want := GridLayout(g, d); layout != want {
		panic(fmt.Sprintf("layout %+v does not match grid: want %+v", layout, want))
	}
	n := layout.Len()
	if n == 0 {
		return nil
	}
	dim := d.Ny * d.Nx * g.Channels()
	windows := mat.NewDense(dim, n, nil)
	x := make([]float64, dim)
	for i := 0; i < n; i++ {
		At(x, g, d, layout.At(i))
		Normalize(x)
		windows.SetCol(i, x)
	}
	return windows
}

// At copies one window into x.
func At(x []float64, g *featgrid.Grid, d *pairdict.Dict, p Pos) {
	for u := 0; u < d.Ny; u++ {
		for v := 0; v < d.Nx; v++ {
			for k := 0; k < g.Channels(); k++ {
				x[d.HOGIndex(u, v, k)] = g.At(p.Y+u, p.X+v, k, p.Batch)
			}
		}
	}
}

// Normalize subtracts the mean and divides by sqrt(|x|^2 + Eps) in-place.
func Normalize(x []float64) {
	floats.AddConst(-stat.Mean(x, nil), x)
	floats.Scale(1/math.Sqrt(floats.Dot(x, x)+Eps), x)
}
