// Package window enumerates and extracts fixed-size windows of a feature grid.
//
// Window i of a Layout is the same window for the extractor and the renderer:
// batch index outermost, then row, then column.
package window

import (
	"fmt"
	"image"
)

// Pos identifies one window: its batch element and top-left cell.
type Pos struct {
	Batch int
	Y, X  int
}

// Layout describes every valid window position in a batch of grids.
type Layout struct {
	// Number of valid top-left positions in each direction.
	Rows, Cols int
	// Number of elements in the batch.
	Batch int
}

// NewLayout gives the layout of ny x nx windows in a
// height x width grid with the given batch size.
// The layout is empty if the window does not fit.
func NewLayout(height, width, batch, ny, nx int) Layout {
	return Layout{
		Rows:  max(height-ny+1, 0),
		Cols:  max(width-nx+1, 0),
		Batch: batch,
	}
}

// PerItem gives the number of windows in one element of the batch.
func (l Layout) PerItem() int {
	return l.Rows * l.Cols
}

// Len gives the total number of windows.
func (l Layout) Len() int {
	return l.PerItem() * l.Batch
}

// At gives the position of the i-th window.
func (l Layout) At(i int) Pos {
	if i < 0 || i >= l.Len() {
		panic(fmt.Sprintf("window index out of range: %d (len %d)", i, l.Len()))
	}
	b, r := i/l.PerItem(), i%l.PerItem()
	return Pos{Batch: b, Y: r / l.Cols, X: r % l.Cols}
}

// Index is the inverse of At.
func (l Layout) Index(p Pos) int {
	return (p.Batch*l.Rows+p.Y)*l.Cols + p.X
}

// Origin gives the top-left pixel of a window when cells are sbin pixels wide.
func (p Pos) Origin(sbin int) image.Point {
	return image.Pt(p.X*sbin, p.Y*sbin)
}
