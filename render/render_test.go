package render

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uestcxi/ihog/pairdict"
	"github.com/uestcxi/ihog/window"
	"gonum.org/v1/gonum/mat"
)

func testDict(ny, nx, sbin, atoms int) *pairdict.Dict {
	gray := mat.NewDense((ny+2)*sbin*(nx+2)*sbin, atoms, nil)
	gray.Apply(func(i, j int, v float64) float64 { return rand.Float64() }, gray)
	return &pairdict.Dict{
		HOG:  mat.NewDense(ny*nx*4, atoms, nil),
		Gray: gray,
		Ny:   ny,
		Nx:   nx,
		Sbin: sbin,
	}
}

func TestNormalize(t *testing.T) {
	im := mat.NewDense(3, 4, []float64{
		2, 4, 6, 8,
		3, 5, 7, 9,
		4, 6, 8, 10,
	})
	got := Normalize(im)
	assert.Equal(t, 0.0, got.At(0, 0))
	assert.Equal(t, 1.0, got.At(2, 3))
	assert.InDelta(t, 0.5, got.At(0, 2), 1e-15)
	// Input is unchanged.
	assert.Equal(t, 2.0, im.At(0, 0))

	flat := mat.NewDense(2, 2, []float64{3, 3, 3, 3})
	assert.Zero(t, mat.Norm(Normalize(flat), 2))
}

// A single window reproduces its patch exactly.
func TestBlend_single(t *testing.T) {
	d := testDict(2, 3, 4, 5)
	layout := window.NewLayout(2, 3, 1, 2, 3)
	require.Equal(t, 1, layout.Len())
	codes := mat.NewDense(5, 1, []float64{0, 0.5, 0, 2, 0})
	ims, err := Blend(codes, d, layout, 0)
	require.NoError(t, err)
	require.Len(t, ims, 1)

	var want mat.VecDense
	want.MulVec(d.Gray, codes.ColView(0))
	ph, pw := d.PatchSize()
	h, w := ims[0].Dims()
	require.Equal(t, ph, h)
	require.Equal(t, pw, w)
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			assert.InDelta(t, want.AtVec(d.PixIndex(y, x)), ims[0].At(y, x), 1e-12)
		}
	}
}

// Overlapping constant patches average to the same constant.
func TestBlend_constant(t *testing.T) {
	const c = 0.7
	d := testDict(3, 3, 2, 4)
	d.Gray.Apply(func(i, j int, v float64) float64 { return c }, d.Gray)
	layout := window.NewLayout(9, 11, 2, 3, 3)
	codes := mat.NewDense(4, layout.Len(), nil)
	for j := 0; j < layout.Len(); j++ {
		codes.Set(j%4, j, 1)
	}
	ims, err := Blend(codes, d, layout, 2)
	require.NoError(t, err)
	require.Len(t, ims, 2)
	for b, im := range ims {
		h, w := im.Dims()
		assert.Equal(t, 11*2, h)
		assert.Equal(t, 13*2, w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if v := im.At(y, x); v < c-1e-12 || v > c+1e-12 {
					t.Fatalf("item %d at (%d, %d): want %g, got %g", b, y, x, c, v)
				}
			}
		}
	}
}

func TestBlend_shape(t *testing.T) {
	d := testDict(2, 2, 2, 3)
	layout := window.NewLayout(4, 4, 1, 2, 2)
	_, err := Blend(mat.NewDense(4, layout.Len(), nil), d, layout, 0)
	assert.Error(t, err)
	_, err = Blend(mat.NewDense(3, layout.Len()+1, nil), d, layout, 0)
	assert.Error(t, err)
}

func TestFinish(t *testing.T) {
	a := mat.NewDense(6, 7, nil)
	a.Apply(func(i, j int, v float64) float64 { return float64(i*7 + j) }, a)
	b := mat.NewDense(6, 7, nil)
	x, err := Finish([]*mat.Dense{a, b}, 2)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, Channels, 2}, []int(x.Shape()))

	norm := Normalize(a)
	for y := 0; y < 2; y++ {
		for xx := 0; xx < 3; xx++ {
			for c := 0; c < Channels; c++ {
				v, err := x.At(y, xx, c, 0)
				require.NoError(t, err)
				assert.Equal(t, norm.At(y+2, xx+2), v)
				v, err = x.At(y, xx, c, 1)
				require.NoError(t, err)
				assert.Equal(t, 0.0, v)
			}
		}
	}

	_, err = Finish([]*mat.Dense{a}, 4)
	assert.Error(t, err)
	_, err = Finish([]*mat.Dense{a, mat.NewDense(5, 7, nil)}, 1)
	assert.Error(t, err)
	_, err = Finish(nil, 0)
	assert.Error(t, err)
}
