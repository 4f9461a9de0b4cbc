// Package pairdict describes paired dictionaries for HOG inversion.
//
// A paired dictionary has two sets of atoms with the same number of columns.
// Column i of HOG is a window of HOG features and column i of Gray is the
// grayscale patch which produced it.
//
// A HOG atom is a window of Ny x Nx cells with Channels() channels,
// vectorized with HOGIndex.
// A gray atom is a patch of (Ny+2)*Sbin x (Nx+2)*Sbin pixels,
// vectorized with PixIndex.
package pairdict

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrMissing is returned when no dictionary is available.
var ErrMissing = errors.New("paired dictionary not available")

type Dict struct {
	// HOG is (Ny*Nx*channels) x atoms.
	HOG *mat.Dense
	// Gray is (patch height * patch width) x atoms.
	Gray *mat.Dense
	// Size of a window in cells.
	Ny, Nx int
	// Size of a cell in pixels.
	Sbin int
	// Base regularization coefficient.
	Lambda float64
}

// Atoms gives the number of columns in each half of the dictionary.
func (d *Dict) Atoms() int {
	_, n := d.HOG.Dims()
	return n
}

// HOGDim gives the length of a HOG atom.
func (d *Dict) HOGDim() int {
	m, _ := d.HOG.Dims()
	return m
}

// Channels gives the number of feature channels per cell.
func (d *Dict) Channels() int {
	return d.HOGDim() / (d.Ny * d.Nx)
}

// PatchSize gives the height and width of a gray atom in pixels.
func (d *Dict) PatchSize() (height, width int) {
	return (d.Ny + 2) * d.Sbin, (d.Nx + 2) * d.Sbin
}

// HOGIndex gives the position of cell (y, x), channel k in a HOG atom.
func (d *Dict) HOGIndex(y, x, k int) int {
	return (y*d.Nx+x)*d.Channels() + k
}

// PixIndex gives the position of pixel (y, x) in a gray atom.
func (d *Dict) PixIndex(y, x int) int {
	_, w := d.PatchSize()
	return y*w + x
}

// Validate checks the sizes and the pairing of the two halves.
func (d *Dict) Validate() error {
	if d == nil {
		return ErrMissing
	}
	if d.HOG == nil || d.Gray == nil {
		return errors.New("dictionary: missing atoms")
	}
	if d.Ny <= 0 || d.Nx <= 0 || d.Sbin <= 0 {
		return errors.Errorf("dictionary: invalid geometry: window %dx%d, sbin %d", d.Ny, d.Nx, d.Sbin)
	}
	if d.Lambda < 0 {
		return errors.Errorf("dictionary: negative lambda: %g", d.Lambda)
	}
	m, k := d.HOG.Dims()
	p, l := d.Gray.Dims()
	if k != l {
		return errors.Errorf("dictionary: atoms differ: hog %d, gray %d", k, l)
	}
	if m%(d.Ny*d.Nx) != 0 {
		return errors.Errorf("dictionary: hog dimension %d not divisible by window %dx%d", m, d.Ny, d.Nx)
	}
	ph, pw := d.PatchSize()
	if p != ph*pw {
		return errors.Errorf("dictionary: gray dimension %d, want %dx%d = %d", p, ph, pw, ph*pw)
	}
	return nil
}

// Permute returns a copy whose gray atoms are reordered:
// column i of the result is column perm[i] of d.Gray.
// The HOG atoms are not moved, so the pairing is broken
// unless perm is the identity.
func (d *Dict) Permute(perm []int) *Dict {
	if len(perm) != d.Atoms() {
		panic(fmt.Sprintf("permutation length %d, atoms %d", len(perm), d.Atoms()))
	}
	p, _ := d.Gray.Dims()
	gray := mat.NewDense(p, len(perm), nil)
	col := make([]float64, p)
	for i, j := range perm {
		mat.Col(col, j, d.Gray)
		gray.SetCol(i, col)
	}
	dst := *d
	dst.Gray = gray
	return &dst
}
