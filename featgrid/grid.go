// Package featgrid holds batches of HOG feature images.
//
// A Grid is a 4-D tensor indexed [y, x, channel, batch].
// Every element of the batch has the same size and number of channels.
package featgrid

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Grid is a batch of feature images backed by a float64 tensor
// of shape [height, width, channels, batch].
type Grid struct {
	T *tensor.Dense

	elems                        []float64
	height, width, channels, num int
}

// New allocates a zero grid.
func New(height, width, channels, batch int) *Grid {
	elems := make([]float64, height*width*channels*batch)
	t := tensor.New(tensor.WithShape(height, width, channels, batch), tensor.WithBacking(elems))
	return &Grid{t, elems, height, width, channels, batch}
}

// FromTensor wraps an existing tensor without copying it.
// The tensor must be a 4-D float64 tensor.
func FromTensor(t *tensor.Dense) (*Grid, error) {
	if t.Dtype() != tensor.Float64 {
		return nil, errors.Errorf("feature grid: want float64 elements, got %v", t.Dtype())
	}
	shape := t.Shape()
	if shape.Dims() != 4 {
		return nil, errors.Errorf("feature grid: want 4 dimensions, got shape %v", shape)
	}
	elems := t.Float64s()
	if len(elems) != shape.TotalSize() {
		return nil, errors.Errorf("feature grid: tensor is a view (%d elements for shape %v)", len(elems), shape)
	}
	return &Grid{t, elems, shape[0], shape[1], shape[2], shape[3]}, nil
}

func (g *Grid) Height() int   { return g.height }
func (g *Grid) Width() int    { return g.width }
func (g *Grid) Channels() int { return g.channels }
func (g *Grid) Batch() int    { return g.num }

func (g *Grid) index(y, x, k, b int) int {
	return ((y*g.width+x)*g.channels+k)*g.num + b
}

func (g *Grid) At(y, x, k, b int) float64 {
	return g.elems[g.index(y, x, k, b)]
}

func (g *Grid) Set(y, x, k, b int, v float64) {
	g.elems[g.index(y, x, k, b)] = v
}

// Pad returns a copy with margin zero cells added on every side.
func (g *Grid) Pad(margin int) *Grid {
	if margin < 0 {
		panic(fmt.Sprintf("negative margin: %d", margin))
	}
	dst := New(g.height+2*margin, g.width+2*margin, g.channels, g.num)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			src := g.index(y, x, 0, 0)
			n := g.channels * g.num
			copy(dst.elems[dst.index(y+margin, x+margin, 0, 0):], g.elems[src:src+n])
		}
	}
	return dst
}

// AddChannel returns a copy with one extra channel of zeros.
// This is the occlusion feature when it is missing from a descriptor.
func (g *Grid) AddChannel() *Grid {
	dst := New(g.height, g.width, g.channels+1, g.num)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			for k := 0; k < g.channels; k++ {
				for b := 0; b < g.num; b++ {
					dst.Set(y, x, k, b, g.At(y, x, k, b))
				}
			}
		}
	}
	return dst
}

// Item returns a copy of one element of the batch as a grid of batch size one.
func (g *Grid) Item(b int) *Grid {
	dst := New(g.height, g.width, g.channels, 1)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			for k := 0; k < g.channels; k++ {
				dst.Set(y, x, k, 0, g.At(y, x, k, b))
			}
		}
	}
	return dst
}

// Stack concatenates grids along the batch dimension.
// All grids must have the same size and number of channels.
func Stack(grids ...*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, errors.New("stack: no grids")
	}
	first := grids[0]
	num := 0
	for _, g := range grids {
		if g.height != first.height || g.width != first.width {
			return nil, errors.Errorf("stack: sizes differ: %dx%d, %dx%d", first.height, first.width, g.height, g.width)
		}
		if err := errIfNumChansNotEq(first.channels, g.channels); err != nil {
			return nil, errors.Wrap(err, "stack")
		}
		num += g.num
	}
	dst := New(first.height, first.width, first.channels, num)
	off := 0
	for _, g := range grids {
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				for k := 0; k < g.channels; k++ {
					for b := 0; b < g.num; b++ {
						dst.Set(y, x, k, off+b, g.At(y, x, k, b))
					}
				}
			}
		}
		off += g.num
	}
	return dst, nil
}

func errIfNumChansNotEq(m, n int) error {
	if m != n {
		return fmt.Errorf("channels differ: %d, %d", m, n)
	}
	return nil
}
