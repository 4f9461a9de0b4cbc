// Package consist couples successive inversions of the same features.
//
// The codes of earlier passes, re-projected through a blurred copy of
// the gray dictionary, are appended to the sparse coding problem as extra
// rows. Each extra row is active for exactly one window.
package consist

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Default coefficients of a new State.
const (
	DefaultGam = 10
	DefaultSig = 1
)

// State is the result of all previous passes.
// It is passed to the next inversion and returned, extended, by it.
// A State is never modified once created.
type State struct {
	// Codes of each pass, atoms x windows.
	A []*mat.Dense
	// Weight of the consistency penalty.
	Gam float64
	// Bandwidth of the blur applied to the dictionary.
	// Positive keeps low frequencies, negative keeps high frequencies,
	// zero disables blurring.
	Sig float64
}

// DefaultState returns a State with no passes.
func DefaultState() *State {
	return &State{Gam: DefaultGam, Sig: DefaultSig}
}

// Passes gives the number of code matrices in the state.
// A nil State has no passes.
func (s *State) Passes() int {
	if s == nil {
		return 0
	}
	return len(s.A)
}

// Windows gives the number of windows in each pass, or zero if there are none.
func (s *State) Windows() int {
	if s.Passes() == 0 {
		return 0
	}
	_, n := s.A[0].Dims()
	return n
}

// Append returns a new state with one more pass.
// The receiver is unchanged. A nil receiver is treated as DefaultState().
func (s *State) Append(a *mat.Dense) *State {
	if s == nil {
		s = DefaultState()
	}
	dst := &State{Gam: s.Gam, Sig: s.Sig}
	dst.A = make([]*mat.Dense, len(s.A), len(s.A)+1)
	copy(dst.A, s.A)
	dst.A = append(dst.A, a)
	return dst
}

// Check returns an error if the state cannot be combined with
// a dictionary of the given number of atoms and a problem
// with the given number of windows.
func (s *State) Check(atoms, windows int) error {
	if s.Passes() == 0 {
		return nil
	}
	if s.Gam < 0 {
		return errors.Errorf("negative consistency weight: %g", s.Gam)
	}
	for i, a := range s.A {
		m, n := a.Dims()
		if m != atoms {
			return errors.Errorf("pass %d: codes have %d atoms, dictionary has %d", i, m, atoms)
		}
		if n != windows {
			return errors.Errorf("pass %d: codes have %d windows, problem has %d", i, n, windows)
		}
	}
	return nil
}

// Tensor gives the codes as a tensor of shape [atoms, windows, passes].
// It returns nil if there are no passes.
func (s *State) Tensor() *tensor.Dense {
	n := s.Passes()
	if n == 0 {
		return nil
	}
	atoms, windows := s.A[0].Dims()
	elems := make([]float64, atoms*windows*n)
	for p, a := range s.A {
		for k := 0; k < atoms; k++ {
			for j := 0; j < windows; j++ {
				elems[(k*windows+j)*n+p] = a.At(k, j)
			}
		}
	}
	return tensor.New(tensor.WithShape(atoms, windows, n), tensor.WithBacking(elems))
}
