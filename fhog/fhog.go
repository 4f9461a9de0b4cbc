// Package fhog computes the HOG features of Felzenszwalb et al.
//
// Each cell has 31 features: 18 contrast-sensitive orientations,
// 9 contrast-insensitive orientations and 4 gradient energies.
// The truncation (occlusion) feature is not included.
package fhog

import (
	"image"
	"math"

	"github.com/uestcxi/ihog/featgrid"
	"gonum.org/v1/gonum/floats"
)

// Number of features per cell.
const Channels = 31

const (
	numOrient = 9
	// Histogram values are clipped here after normalization.
	clip = 0.2
	// Texture features are scaled by 1/sqrt(18).
	texture = 0.2357
	eps     = 1e-4
)

// Unit vectors of the orientation bins in [0, pi).
var uu, vv [numOrient]float64

func init() {
	for o := range uu {
		theta := float64(o) * math.Pi / numOrient
		uu[o], vv[o] = math.Cos(theta), math.Sin(theta)
	}
}

// Image holds the RGB values of an image in [0, 255].
type Image struct {
	Width, Height int
	// Pix[c][y*Width+x]
	Pix [3][]float64
}

// FromImage converts any image to an Image.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	im := NewImage(b.Dx(), b.Dy())
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*im.Width + x
			im.Pix[0][i] = float64(r) / 257
			im.Pix[1][i] = float64(g) / 257
			im.Pix[2][i] = float64(bl) / 257
		}
	}
	return im
}

func NewImage(width, height int) *Image {
	im := &Image{Width: width, Height: height}
	for c := range im.Pix {
		im.Pix[c] = make([]float64, width*height)
	}
	return im
}

func (im *Image) at(x, y, c int) float64 {
	return im.Pix[c][y*im.Width+x]
}

// Size gives the number of cells in the feature grid of an image.
func Size(width, height, sbin int) (cols, rows int) {
	cols = int(math.Round(float64(width)/float64(sbin))) - 2
	rows = int(math.Round(float64(height)/float64(sbin))) - 2
	return max(cols, 0), max(rows, 0)
}

// Compute returns the features of im as a grid of batch size one.
func Compute(im *Image, sbin int) *featgrid.Grid {
	hist, blocksX, blocksY := histogram(im, sbin)
	cols, rows := max(blocksX-2, 0), max(blocksY-2, 0)
	feat := featgrid.New(rows, cols, Channels, 1)
	if rows == 0 || cols == 0 {
		return feat
	}

	// Energy of each block.
	norm := make([]float64, blocksX*blocksY)
	for i := range norm {
		for o := 0; o < numOrient; o++ {
			s := hist[i][o] + hist[i][o+numOrient]
			norm[i] += s * s
		}
	}
	blockNorm := func(x, y int) float64 {
		p := y*blocksX + x
		return 1 / math.Sqrt(norm[p]+norm[p+1]+norm[p+blocksX]+norm[p+blocksX+1]+eps)
	}

	var t [4]float64
	var h [4]float64
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			n := [4]float64{
				blockNorm(x+1, y+1),
				blockNorm(x+1, y),
				blockNorm(x, y+1),
				blockNorm(x, y),
			}
			src := hist[(y+1)*blocksX+x+1]
			t = [4]float64{}
			k := 0
			for o := 0; o < 2*numOrient; o++ {
				for i := range h {
					h[i] = math.Min(src[o]*n[i], clip)
				}
				feat.Set(y, x, k, 0, 0.5*floats.Sum(h[:]))
				floats.Add(t[:], h[:])
				k++
			}
			for o := 0; o < numOrient; o++ {
				s := src[o] + src[o+numOrient]
				for i := range h {
					h[i] = math.Min(s*n[i], clip)
				}
				feat.Set(y, x, k, 0, 0.5*floats.Sum(h[:]))
				k++
			}
			for i := range t {
				feat.Set(y, x, k, 0, texture*t[i])
				k++
			}
		}
	}
	return feat
}

// Orientation histograms of each cell, with bilinear voting.
func histogram(im *Image, sbin int) (hist [][2 * numOrient]float64, blocksX, blocksY int) {
	blocksX = int(math.Round(float64(im.Width) / float64(sbin)))
	blocksY = int(math.Round(float64(im.Height) / float64(sbin)))
	hist = make([][2 * numOrient]float64, blocksX*blocksY)
	if im.Width < 3 || im.Height < 3 {
		return hist, blocksX, blocksY
	}
	visX, visY := blocksX*sbin, blocksY*sbin

	for y := 1; y < visY-1; y++ {
		for x := 1; x < visX-1; x++ {
			sx, sy := min(x, im.Width-2), min(y, im.Height-2)
			// Channel with the largest gradient.
			var dx, dy, mag float64
			for c := 0; c < 3; c++ {
				gx := im.at(sx+1, sy, c) - im.at(sx-1, sy, c)
				gy := im.at(sx, sy+1, c) - im.at(sx, sy-1, c)
				if v := gx*gx + gy*gy; c == 0 || v > mag {
					dx, dy, mag = gx, gy, v
				}
			}

			var best float64
			var bin int
			for o := 0; o < numOrient; o++ {
				dot := uu[o]*dx + vv[o]*dy
				if dot > best {
					best, bin = dot, o
				} else if -dot > best {
					best, bin = -dot, o+numOrient
				}
			}

			xp := (float64(x)+0.5)/float64(sbin) - 0.5
			yp := (float64(y)+0.5)/float64(sbin) - 0.5
			ixp, iyp := int(math.Floor(xp)), int(math.Floor(yp))
			vx0, vy0 := xp-float64(ixp), yp-float64(iyp)
			vx1, vy1 := 1-vx0, 1-vy0
			v := math.Sqrt(mag)

			if ixp >= 0 && iyp >= 0 {
				hist[iyp*blocksX+ixp][bin] += vx1 * vy1 * v
			}
			if ixp+1 < blocksX && iyp >= 0 {
				hist[iyp*blocksX+ixp+1][bin] += vx0 * vy1 * v
			}
			if ixp >= 0 && iyp+1 < blocksY {
				hist[(iyp+1)*blocksX+ixp][bin] += vx1 * vy0 * v
			}
			if ixp+1 < blocksX && iyp+1 < blocksY {
				hist[(iyp+1)*blocksX+ixp+1][bin] += vx0 * vy0 * v
			}
		}
	}
	return hist, blocksX, blocksY
}
