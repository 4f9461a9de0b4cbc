package main

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gorgonia.org/tensor"
)

func loadImage(name string) (image.Image, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	im, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return im, nil
}

func savePNG(fname string, im image.Image) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, im)
}

// toImage converts element b of a [height, width, 3, batch] tensor
// with values in [0, 1] to an image.
func toImage(t *tensor.Dense, b int) *image.RGBA {
	shape := t.Shape()
	h, w, c, num := shape[0], shape[1], shape[2], shape[3]
	elems := t.Float64s()
	im := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var rgb [3]uint8
			for k := range rgb {
				v := elems[((y*w+x)*c+min(k, c-1))*num+b]
				rgb[k] = uint8(math.Round(255 * math.Max(0, math.Min(1, v))))
			}
			im.SetRGBA(x, y, color.RGBA{rgb[0], rgb[1], rgb[2], 255})
		}
	}
	return im
}

func scaleImage(im image.Image, scale float64) image.Image {
	if scale == 1 {
		return im
	}
	b := im.Bounds()
	w := uint(math.Round(scale * float64(b.Dx())))
	h := uint(math.Round(scale * float64(b.Dy())))
	return resize.Resize(w, h, im, resize.Bilinear)
}
