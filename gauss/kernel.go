// Package gauss provides Gaussian windows and 2D filtering of pixel patches.
package gauss

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kernel returns an h x w Gaussian with bandwidth sigma,
// centered in the middle of the array and normalized to sum to one.
// Even sizes are centered between pixels.
func Kernel(h, w int, sigma float64) *mat.Dense {
	k := mat.NewDense(h, w, nil)
	cy, cx := float64(h-1)/2, float64(w-1)/2
	var total float64
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			y, x := float64(i)-cy, float64(j)-cx
			alpha := math.Exp(-(x*x + y*y) / (2 * sigma * sigma))
			k.Set(i, j, alpha)
			total += alpha
		}
	}
	if total > 0 {
		k.Scale(1/total, k)
	}
	return k
}
