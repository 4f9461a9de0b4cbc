// Package render turns codes back into images.
//
// Each code is mapped through the gray atoms to a patch, tapered by a
// Gaussian window and added into the image at the position of its window.
// Overlapping patches are averaged by the total window weight at each pixel.
package render

import (
	"github.com/pkg/errors"
	"github.com/uestcxi/ihog/gauss"
	"github.com/uestcxi/ihog/pairdict"
	"github.com/uestcxi/ihog/window"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Bandwidth of the window applied to every patch, in pixels.
const WindowSigma = 9

// Number of channels in the output.
const Channels = 3

// Render blends the patches, normalizes the intensity of each batch item
// to [0, 1] and removes margin cells from every side.
// The result has shape [height, width, Channels, batch].
func Render(codes *mat.Dense, d *pairdict.Dict, layout window.Layout, margin, workers int) (*tensor.Dense, error) {
	ims, err := Blend(codes, d, layout, workers)
	if err != nil {
		return nil, err
	}
	return Finish(ims, margin*d.Sbin)
}

// Blend returns the average of the windowed patches for each batch item.
// Each image is (Rows+Ny+1)*Sbin x (Cols+Nx+1)*Sbin,
// the extent of the grid the windows were taken from plus one cell on each side.
func Blend(codes *mat.Dense, d *pairdict.Dict, layout window.Layout, workers int) ([]*mat.Dense, error) {
	atoms, n := codes.Dims()
	if atoms != d.Atoms() {
		return nil, errors.Errorf("render: codes have %d atoms, dictionary has %d", atoms, d.Atoms())
	}
	if n != layout.Len() {
		return nil, errors.Errorf("render: %d codes for %d windows", n, layout.Len())
	}

	ph, pw := d.PatchSize()
	taper := gauss.Kernel(ph, pw, WindowSigma)
	h := (layout.Rows + d.Ny + 1) * d.Sbin
	w := (layout.Cols + d.Nx + 1) * d.Sbin
	ims := make([]*mat.Dense, layout.Batch)

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for b := 0; b < layout.Batch; b++ {
		b := b
		g.Go(func() error {
			im := mat.NewDense(h, w, nil)
			weight := mat.NewDense(h, w, nil)
			var patch mat.VecDense
			for r := 0; r < layout.PerItem(); r++ {
				i := b*layout.PerItem() + r
				patch.MulVec(d.Gray, codes.ColView(i))
				o := layout.At(i).Origin(d.Sbin)
				for y := 0; y < ph; y++ {
					for x := 0; x < pw; x++ {
						u := taper.At(y, x)
						im.Set(o.Y+y, o.X+x, im.At(o.Y+y, o.X+x)+u*patch.AtVec(d.PixIndex(y, x)))
						weight.Set(o.Y+y, o.X+x, weight.At(o.Y+y, o.X+x)+u)
					}
				}
			}
			im.Apply(func(i, j int, v float64) float64 {
				if u := weight.At(i, j); u > 0 {
					return v / u
				}
				return 0
			}, im)
			ims[b] = im
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ims, nil
}

// Finish normalizes each image to [0, 1], crops border pixels from every side
// and replicates the intensity into Channels channels.
// An image with a single value becomes zero.
func Finish(ims []*mat.Dense, border int) (*tensor.Dense, error) {
	if len(ims) == 0 {
		return nil, errors.New("render: no images")
	}
	h, w := ims[0].Dims()
	h, w = h-2*border, w-2*border
	if h <= 0 || w <= 0 {
		return nil, errors.Errorf("render: border %d too large for image %dx%d", border, h+2*border, w+2*border)
	}
	num := len(ims)
	elems := make([]float64, h*w*Channels*num)
	for b, im := range ims {
		if ih, iw := im.Dims(); ih != h+2*border || iw != w+2*border {
			return nil, errors.Errorf("render: image %d is %dx%d, want %dx%d", b, ih, iw, h+2*border, w+2*border)
		}
		norm := Normalize(im)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := norm.At(y+border, x+border)
				for c := 0; c < Channels; c++ {
					elems[((y*w+x)*Channels+c)*num+b] = v
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(h, w, Channels, num), tensor.WithBacking(elems)), nil
}

// Normalize returns a copy of im scaled linearly to [0, 1].
// If every pixel has the same value the result is zero.
func Normalize(im *mat.Dense) *mat.Dense {
	dst := mat.DenseCopyOf(im)
	elems := dst.RawMatrix().Data
	lo, hi := floats.Min(elems), floats.Max(elems)
	if !(hi > lo) {
		dst.Zero()
		return dst
	}
	for i, v := range elems {
		elems[i] = (v - lo) / (hi - lo)
	}
	return dst
}
