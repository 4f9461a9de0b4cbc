package fhog

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Left half dark, right half bright.
func edgeImage(width, height, edge int, flip bool) *image.Gray {
	im := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x >= edge) != flip {
				im.SetGray(x, y, color.Gray{255})
			}
		}
	}
	return im
}

func TestSize(t *testing.T) {
	cols, rows := Size(64, 48, 8)
	assert.Equal(t, 6, cols)
	assert.Equal(t, 4, rows)
	cols, rows = Size(10, 10, 8)
	assert.Zero(t, cols)
	assert.Zero(t, rows)

	feat := Compute(NewImage(64, 48), 8)
	assert.Equal(t, 4, feat.Height())
	assert.Equal(t, 6, feat.Width())
	assert.Equal(t, Channels, feat.Channels())
	assert.Equal(t, 1, feat.Batch())
}

func TestFromImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(3, 5, 7, 8))
	src.Set(4, 6, color.RGBA{10, 20, 30, 255})
	im := FromImage(src)
	require.Equal(t, 4, im.Width)
	require.Equal(t, 3, im.Height)
	assert.Equal(t, 10.0, im.at(1, 1, 0))
	assert.Equal(t, 20.0, im.at(1, 1, 1))
	assert.Equal(t, 30.0, im.at(1, 1, 2))
}

func TestCompute_uniform(t *testing.T) {
	im := NewImage(40, 32)
	for c := range im.Pix {
		for i := range im.Pix[c] {
			im.Pix[c][i] = 100
		}
	}
	feat := Compute(im, 8)
	for _, v := range feat.T.Float64s() {
		require.Zero(t, v)
	}
}

func TestCompute_range(t *testing.T) {
	im := NewImage(50, 37)
	for c := range im.Pix {
		for i := range im.Pix[c] {
			im.Pix[c][i] = 255 * rand.Float64()
		}
	}
	feat := Compute(im, 6)
	for y := 0; y < feat.Height(); y++ {
		for x := 0; x < feat.Width(); x++ {
			for k := 0; k < Channels; k++ {
				v := feat.At(y, x, k, 0)
				assert.GreaterOrEqual(t, v, 0.0)
				if k < 27 {
					assert.LessOrEqual(t, v, 2*clip+1e-12)
				} else {
					assert.LessOrEqual(t, v, texture*18*clip+1e-12)
				}
			}
		}
	}
}

func TestCompute_orientation(t *testing.T) {
	feat := Compute(FromImage(edgeImage(40, 40, 20, false)), 8)
	require.Equal(t, 3, feat.Height())
	require.Equal(t, 3, feat.Width())
	for y := 0; y < 3; y++ {
		// Gradient points along +x.
		assert.Greater(t, feat.At(y, 1, 0, 0), 0.0)
		assert.Greater(t, feat.At(y, 1, 18, 0), 0.0)
		for x := 0; x < 3; x++ {
			assert.Zero(t, feat.At(y, x, 9, 0))
		}
	}

	flip := Compute(FromImage(edgeImage(40, 40, 20, true)), 8)
	for y := 0; y < 3; y++ {
		assert.Greater(t, flip.At(y, 1, 9, 0), 0.0)
		for x := 0; x < 3; x++ {
			assert.Zero(t, flip.At(y, x, 0, 0))
			// Insensitive features do not see the sign.
			assert.InDelta(t, feat.At(y, x, 18, 0), flip.At(y, x, 18, 0), 1e-12)
		}
	}
}
