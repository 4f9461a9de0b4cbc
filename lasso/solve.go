// Package lasso solves batches of non-negative LASSO problems.
//
// Column j of a problem is solved for
//	min_a 1/2 |x_R - D_R a|^2 + lambda |a|_1  subject to  a >= 0
// where R is the set of rows active for column j.
package lasso

import (
	"log"
	"math"
	"runtime"

	"github.com/pkg/errors"
	"github.com/uestcxi/ihog/consist"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNonconvergence is returned when a column is not solved
// within the iteration limit.
var ErrNonconvergence = errors.New("lasso: did not converge")

type Opts struct {
	// Largest change in a coefficient during a sweep at convergence.
	Tol float64
	// Maximum number of sweeps over the coefficients.
	MaxIter int
	// Number of columns solved concurrently.
	Workers int
}

func DefaultOpts() Opts {
	return Opts{Tol: 1e-8, MaxIter: 2000, Workers: runtime.GOMAXPROCS(0)}
}

// Solve returns the codes of every column of p, atoms x windows.
// A column which fails is logged and given a zero code.
func Solve(p *consist.Problem, lambda float64, opts Opts) *mat.Dense {
	s := newSystem(p)
	n := p.Windows()
	codes := mat.NewDense(p.Atoms(), n, nil)

	var g errgroup.Group
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for j := 0; j < n; j++ {
		j := j
		g.Go(func() error {
			a := make([]float64, p.Atoms())
			if err := s.solve(a, j, lambda, opts); err != nil {
				log.Printf("window %d: %v: use zero code", j, err)
				return nil
			}
			// Columns are disjoint.
			codes.SetCol(j, a)
			return nil
		})
	}
	// Workers log failures and never return an error.
	_ = g.Wait()
	return codes
}

// SolveCol solves a single column of p.
func SolveCol(p *consist.Problem, j int, lambda float64, opts Opts) ([]float64, error) {
	a := make([]float64, p.Atoms())
	if err := newSystem(p).solve(a, j, lambda, opts); err != nil {
		return nil, err
	}
	return a, nil
}

// Normal equations of the shared rows.
// The extra rows of each column are added as rank-one terms.
type system struct {
	p *consist.Problem
	// D_s' D_s, atoms x atoms.
	gram *mat.Dense
	// D_s' X_s, atoms x windows.
	corr *mat.Dense
}

func newSystem(p *consist.Problem) *system {
	atoms, n := p.Atoms(), p.Windows()
	ds := p.D.Slice(0, p.Mask.Shared, 0, atoms)
	xs := p.X.Slice(0, p.Mask.Shared, 0, n)
	s := &system{p: p, gram: mat.NewDense(atoms, atoms, nil), corr: mat.NewDense(atoms, n, nil)}
	s.gram.Mul(ds.T(), ds)
	s.corr.Mul(ds.T(), xs)
	return s
}

// Coordinate descent from a = 0.
// The gradient of the smooth part, H a - c, is kept in q.
func (s *system) solve(a []float64, j int, lambda float64, opts Opts) error {
	k := len(a)
	extra := s.p.Mask.ExtraRows(j)
	rows := make([][]float64, len(extra))
	c := mat.Col(nil, j, s.corr)
	diag := make([]float64, k)
	for i := range diag {
		diag[i] = s.gram.At(i, i)
	}
	for r, row := range extra {
		rows[r] = mat.Row(nil, row, s.p.D)
		floats.AddScaled(c, s.p.X.At(row, j), rows[r])
		for i, v := range rows[r] {
			diag[i] += v * v
		}
	}

	q := make([]float64, k)
	floats.ScaleTo(q, -1, c)
	for iter := 0; iter < opts.MaxIter; iter++ {
		var change float64
		for i := 0; i < k; i++ {
			if diag[i] <= 0 {
				// Atom is zero on every active row.
				continue
			}
			next := math.Max(0, a[i]-(q[i]+lambda)/diag[i])
			delta := next - a[i]
			if delta == 0 {
				continue
			}
			a[i] = next
			floats.AddScaled(q, delta, s.gram.RawRowView(i))
			for _, row := range rows {
				floats.AddScaled(q, delta*row[i], row)
			}
			change = math.Max(change, math.Abs(delta))
		}
		if math.IsNaN(change) || math.IsInf(change, 0) {
			zero(a)
			return errors.Errorf("non-finite coefficient after %d sweeps", iter+1)
		}
		if change <= opts.Tol {
			return nil
		}
	}
	zero(a)
	return errors.Wrapf(ErrNonconvergence, "%d sweeps", opts.MaxIter)
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
