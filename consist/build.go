package consist

import (
	"math"

	"github.com/pkg/errors"
	"github.com/uestcxi/ihog/pairdict"
	"gonum.org/v1/gonum/mat"
)

// Mask lists the rows of a problem which are active for each column.
// Rows [0, Shared) are active for every column.
// Extra[j] lists the rows beyond Shared which are active for column j.
type Mask struct {
	Shared int
	Extra  [][]int
}

// Active gives all active rows of column j in increasing order.
func (m Mask) Active(j int) []int {
	extra := m.ExtraRows(j)
	rows := make([]int, 0, m.Shared+len(extra))
	for i := 0; i < m.Shared; i++ {
		rows = append(rows, i)
	}
	return append(rows, extra...)
}

// ExtraRows gives the rows beyond Shared which are active for column j.
func (m Mask) ExtraRows(j int) []int {
	if m.Extra == nil {
		return nil
	}
	return m.Extra[j]
}

// Problem is a batch of sparse coding problems, one per column of X.
// Column j is coded over the rows Mask.Active(j) of X and D.
type Problem struct {
	// Windows, rows x windows.
	X *mat.Dense
	// Dictionary, rows x atoms.
	D    *mat.Dense
	Mask Mask
	// Length of a window before extension.
	HOGDim int
	// Number of previous passes in the extension.
	Passes int
}

// Windows gives the number of columns.
func (p *Problem) Windows() int {
	_, n := p.X.Dims()
	return n
}

// Atoms gives the length of a code.
func (p *Problem) Atoms() int {
	_, n := p.D.Dims()
	return n
}

// Lambda scales the base regularization by the number of rows
// relative to the length of an unextended problem.
func (p *Problem) Lambda(base float64) float64 {
	rows, _ := p.X.Dims()
	return base * float64(rows) / float64(p.HOGDim+p.Passes)
}

// Build returns the coding problem for windows x (one per column)
// against the HOG atoms of d, extended with the codes in prev.
//
// For prev with N passes of M windows, X gains N*M zero rows and D gains
// N*M rows: row i*M+j is sqrt(gam) * (column j of pass i)' * B' * B
// where B is the blurred gray dictionary, and it is active only for column j.
func Build(x *mat.Dense, d *pairdict.Dict, prev *State) (*Problem, error) {
	dim, n := x.Dims()
	if dim != d.HOGDim() {
		return nil, errors.Errorf("window length %d, dictionary has %d", dim, d.HOGDim())
	}
	if err := prev.Check(d.Atoms(), n); err != nil {
		return nil, err
	}
	numPasses := prev.Passes()
	p := &Problem{X: x, D: d.HOG, Mask: Mask{Shared: dim}, HOGDim: dim, Passes: numPasses}
	if numPasses == 0 {
		return p, nil
	}

	blur := Blur(d, prev.Sig)
	var gram mat.Dense
	gram.Mul(blur.T(), blur)
	gram.Scale(math.Sqrt(prev.Gam), &gram)

	atoms := d.Atoms()
	extra := numPasses * n
	p.X = mat.NewDense(dim+extra, n, nil)
	p.X.Slice(0, dim, 0, n).(*mat.Dense).Copy(x)
	p.D = mat.NewDense(dim+extra, atoms, nil)
	p.D.Slice(0, dim, 0, atoms).(*mat.Dense).Copy(d.HOG)
	for i, a := range prev.A {
		rows := p.D.Slice(dim+i*n, dim+(i+1)*n, 0, atoms).(*mat.Dense)
		rows.Mul(a.T(), &gram)
	}

	p.Mask.Extra = make([][]int, n)
	for j := range p.Mask.Extra {
		for i := 0; i < numPasses; i++ {
			p.Mask.Extra[j] = append(p.Mask.Extra[j], dim+i*n+j)
		}
	}
	return p, nil
}
