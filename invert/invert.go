// Package invert reconstructs images from HOG features
// using a paired dictionary.
//
// Every window of the feature grid is coded as a sparse non-negative
// combination of HOG atoms. The paired gray atoms with the same
// coefficients are blended into the output image.
//
// The codes of each call are returned in a consist.State.
// Passing that state to the next call biases its codes towards
// agreement with the earlier passes.
package invert

import (
	"log"

	"github.com/pkg/errors"
	"github.com/uestcxi/ihog/consist"
	"github.com/uestcxi/ihog/featgrid"
	"github.com/uestcxi/ihog/lasso"
	"github.com/uestcxi/ihog/pairdict"
	"github.com/uestcxi/ihog/render"
	"github.com/uestcxi/ihog/window"
	"gorgonia.org/tensor"
)

// ErrShape is returned when the features cannot be used with the dictionary.
var ErrShape = errors.New("invert: incompatible shape")

type Opts struct {
	// Number of zero cells added to every side of the grid.
	Margin int
	// Lasso.Workers also limits the batch items rendered at once.
	Lasso lasso.Opts
	// Log a summary of each call.
	Verbose bool
}

func DefaultOpts() Opts {
	return Opts{Margin: 5, Lasso: lasso.DefaultOpts()}
}

// Tensor is Invert for a [height, width, channels, batch] float64 tensor.
func Tensor(t *tensor.Dense, d *pairdict.Dict, prev *consist.State, opts Opts) (*tensor.Dense, *consist.State, error) {
	g, err := featgrid.FromTensor(t)
	if err != nil {
		return nil, nil, errors.Wrap(ErrShape, err.Error())
	}
	return Invert(g, d, prev, opts)
}

// Invert returns an image of shape [(height+2)*sbin, (width+2)*sbin, 3, batch]
// with every batch item normalized to [0, 1],
// and prev extended with the codes of this call.
//
// A nil prev is equivalent to consist.DefaultState().
// The grid must have the same number of channels as the dictionary,
// or one fewer, in which case a zero channel is appended.
func Invert(g *featgrid.Grid, d *pairdict.Dict, prev *consist.State, opts Opts) (*tensor.Dense, *consist.State, error) {
	if err := d.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invert")
	}
	if g == nil {
		return nil, nil, errors.Wrap(ErrShape, "no features")
	}
	if prev == nil {
		prev = consist.DefaultState()
	}

	switch g.Channels() {
	case d.Channels():
	case d.Channels() - 1:
		g = g.AddChannel()
	default:
		return nil, nil, errors.Wrapf(ErrShape, "features have %d channels, dictionary has %d", g.Channels(), d.Channels())
	}
	if opts.Margin < 0 {
		return nil, nil, errors.Wrapf(ErrShape, "negative margin %d", opts.Margin)
	}
	g = g.Pad(opts.Margin)

	layout := window.GridLayout(g, d)
	if layout.Len() == 0 {
		return nil, nil, errors.Wrapf(ErrShape, "no %dx%d windows in padded grid %dx%d (batch %d)",
			d.Ny, d.Nx, g.Height(), g.Width(), g.Batch())
	}
	if err := prev.Check(d.Atoms(), layout.Len()); err != nil {
		return nil, nil, errors.Wrap(ErrShape, err.Error())
	}

	x := window.Extract(g, d, layout)
	p, err := consist.Build(x, d, prev)
	if err != nil {
		return nil, nil, errors.Wrap(ErrShape, err.Error())
	}
	lambda := p.Lambda(d.Lambda)
	if opts.Verbose {
		log.Printf("invert: windows %d, atoms %d, rows %d, previous passes %d, lambda %.4g",
			p.Windows(), p.Atoms(), p.HOGDim+p.Passes*p.Windows(), p.Passes, lambda)
	}
	codes := lasso.Solve(p, lambda, opts.Lasso)

	im, err := render.Render(codes, d, layout, opts.Margin, opts.Lasso.Workers)
	if err != nil {
		return nil, nil, err
	}
	return im, prev.Append(codes), nil
}
