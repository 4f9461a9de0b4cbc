package gauss

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Filterer correlates images of a fixed size with a fixed kernel.
// The output has the size of the input ("same") and the input is
// zero outside its bounds.
// Kernel element (oy, ox) = ((kh-1)/2, (kw-1)/2) is aligned with the output pixel.
//
// The transform of the kernel is computed once.
// A Filterer must not be used from multiple goroutines.
type Filterer struct {
	h, w   int // Size of input images.
	kh, kw int // Size of kernel.
	m, n   int // Size of transform.

	kern       []complex128
	rows, cols *fourier.CmplxFFT
	buf, col   []complex128
}

func NewFilterer(h, w int, k *mat.Dense) *Filterer {
	kh, kw := k.Dims()
	m, n := fftSize(h+kh-1), fftSize(w+kw-1)
	f := &Filterer{
		h: h, w: w, kh: kh, kw: kw, m: m, n: n,
		rows: fourier.NewCmplxFFT(n),
		cols: fourier.NewCmplxFFT(m),
		buf:  make([]complex128, m*n),
		col:  make([]complex128, m),
	}
	// Correlation is convolution with the flipped kernel.
	f.kern = make([]complex128, m*n)
	for u := 0; u < kh; u++ {
		for v := 0; v < kw; v++ {
			f.kern[u*n+v] = complex(k.At(kh-1-u, kw-1-v), 0)
		}
	}
	f.dft(f.kern)
	return f
}

// Apply filters im and puts the result in dst.
// If dst is nil, a new matrix is allocated.
func (f *Filterer) Apply(dst, im *mat.Dense) *mat.Dense {
	if h, w := im.Dims(); h != f.h || w != f.w {
		panic(fmt.Sprintf("image size %dx%d, filterer expects %dx%d", h, w, f.h, f.w))
	}
	if dst == nil {
		dst = mat.NewDense(f.h, f.w, nil)
	}
	for i := range f.buf {
		f.buf[i] = 0
	}
	for i := 0; i < f.h; i++ {
		for j := 0; j < f.w; j++ {
			f.buf[i*f.n+j] = complex(im.At(i, j), 0)
		}
	}
	f.dft(f.buf)
	for i := range f.buf {
		f.buf[i] *= f.kern[i]
	}
	f.idft(f.buf)

	// Offset of the "same" region within the full convolution.
	dy, dx := f.kh-1-(f.kh-1)/2, f.kw-1-(f.kw-1)/2
	// Accumulate total real and imaginary components to check.
	var re, imag2 float64
	for i := 0; i < f.h; i++ {
		for j := 0; j < f.w; j++ {
			z := f.buf[(i+dy)*f.n+j+dx]
			a, b := real(z), imag(z)
			re, imag2 = re+a*a, imag2+b*b
			dst.Set(i, j, a)
		}
	}
	re, imag2 = math.Sqrt(re), math.Sqrt(imag2)
	const eps = 1e-6
	if (re > eps && imag2/re > 1e-9) || (re <= eps && imag2 > eps) {
		log.Printf("significant imaginary component (real %g, imag %g)", re, imag2)
	}
	return dst
}

// Filter correlates im with k using the FFT.
func Filter(im, k *mat.Dense) *mat.Dense {
	h, w := im.Dims()
	return NewFilterer(h, w, k).Apply(nil, im)
}

// FilterNaive computes the same result as Filter directly.
func FilterNaive(im, k *mat.Dense) *mat.Dense {
	h, w := im.Dims()
	kh, kw := k.Dims()
	oy, ox := (kh-1)/2, (kw-1)/2
	dst := mat.NewDense(h, w, nil)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			var total float64
			for u := 0; u < kh; u++ {
				y := i + u - oy
				if y < 0 || y >= h {
					continue
				}
				for v := 0; v < kw; v++ {
					x := j + v - ox
					if x < 0 || x >= w {
						continue
					}
					total += k.At(u, v) * im.At(y, x)
				}
			}
			dst.Set(i, j, total)
		}
	}
	return dst
}

// 2D forward transform in-place, m x n row-major.
func (f *Filterer) dft(x []complex128) {
	for i := 0; i < f.m; i++ {
		row := x[i*f.n : (i+1)*f.n]
		f.rows.Coefficients(row, row)
	}
	for j := 0; j < f.n; j++ {
		for i := 0; i < f.m; i++ {
			f.col[i] = x[i*f.n+j]
		}
		f.cols.Coefficients(f.col, f.col)
		for i := 0; i < f.m; i++ {
			x[i*f.n+j] = f.col[i]
		}
	}
}

// 2D inverse transform in-place, normalized.
func (f *Filterer) idft(x []complex128) {
	for i := 0; i < f.m; i++ {
		row := x[i*f.n : (i+1)*f.n]
		f.rows.Sequence(row, row)
	}
	for j := 0; j < f.n; j++ {
		for i := 0; i < f.m; i++ {
			f.col[i] = x[i*f.n+j]
		}
		f.cols.Sequence(f.col, f.col)
		for i := 0; i < f.m; i++ {
			x[i*f.n+j] = f.col[i]
		}
	}
	scale := complex(1/float64(f.m*f.n), 0)
	for i := range x {
		x[i] *= scale
	}
}

// Smallest n' >= n of the form 2^a 3^b 5^c.
func fftSize(n int) int {
	for m := max(n, 1); ; m++ {
		r := m
		for _, p := range []int{2, 3, 5} {
			for r%p == 0 {
				r /= p
			}
		}
		if r == 1 {
			return m
		}
	}
}
