package consist

import (
	"math"

	"github.com/uestcxi/ihog/gauss"
	"github.com/uestcxi/ihog/pairdict"
	"gonum.org/v1/gonum/mat"
)

// Blur filters every gray atom of d with a Gaussian of bandwidth |sig|
// the size of a patch.
// If sig is positive the result is the low-pass atom,
// if sig is negative the result is the atom minus its low-pass,
// and if sig is zero the result is a copy of d.Gray.
func Blur(d *pairdict.Dict, sig float64) *mat.Dense {
	dst := mat.DenseCopyOf(d.Gray)
	if sig == 0 {
		return dst
	}
	h, w := d.PatchSize()
	f := gauss.NewFilterer(h, w, gauss.Kernel(h, w, math.Abs(sig)))
	p, atoms := d.Gray.Dims()
	col := make([]float64, p)
	patch := mat.NewDense(h, w, nil)
	low := mat.NewDense(h, w, nil)
	for i := 0; i < atoms; i++ {
		mat.Col(col, i, d.Gray)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				patch.Set(y, x, col[d.PixIndex(y, x)])
			}
		}
		f.Apply(low, patch)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := low.At(y, x)
				if sig < 0 {
					v = patch.At(y, x) - v
				}
				col[d.PixIndex(y, x)] = v
			}
		}
		dst.SetCol(i, col)
	}
	return dst
}
