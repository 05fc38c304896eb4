package grid

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrPieceCount = errors.New("piece count must be positive")
	ErrLayout     = errors.New("rows and cols must be positive")
	ErrTooSmall   = errors.New("image too small for grid")
)

// Layout is a rows × cols partition of an image.
type Layout struct {
	Rows int
	Cols int
}

func NewLayout(rows, cols int) (Layout, error) {
	if rows <= 0 || cols <= 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d", ErrLayout, rows, cols)
	}
	return Layout{Rows: rows, Cols: cols}, nil
}

// Pieces returns rows*cols.
func (l Layout) Pieces() int { return l.Rows * l.Cols }

func (l Layout) String() string { return fmt.Sprintf("%dx%d", l.Rows, l.Cols) }

// Factor splits n into the most square rows × cols grid with rows*cols == n.
// The longer side of the grid follows the longer side of a w×h image, so a
// landscape image gets more columns than rows.
func Factor(n, w, h int) (Layout, error) {
	if n <= 0 {
		return Layout{}, fmt.Errorf("%w: %d", ErrPieceCount, n)
	}
	short := 1
	for d := 1; d*d <= n; d++ {
		if n%d == 0 {
			short = d
		}
	}
	long := n / short
	if h > w {
		return Layout{Rows: long, Cols: short}, nil
	}
	return Layout{Rows: short, Cols: long}, nil
}

// Rects computes the tile rectangles of bounds in row-major order. Each tile
// is bounds.Dx()/Cols wide and bounds.Dy()/Rows tall; the last column and the
// last row absorb the remainder pixels.
func (l Layout) Rects(bounds image.Rectangle) ([]image.Rectangle, error) {
	if l.Rows <= 0 || l.Cols <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrLayout, l)
	}
	w, h := bounds.Dx(), bounds.Dy()
	if l.Cols > w || l.Rows > h {
		return nil, fmt.Errorf("%w: %s grid on %dx%d image", ErrTooSmall, l, w, h)
	}
	tw, th := w/l.Cols, h/l.Rows

	rects := make([]image.Rectangle, 0, l.Pieces())
	for r := 0; r < l.Rows; r++ {
		y0 := bounds.Min.Y + r*th
		y1 := y0 + th
		if r == l.Rows-1 {
			y1 = bounds.Max.Y
		}
		for c := 0; c < l.Cols; c++ {
			x0 := bounds.Min.X + c*tw
			x1 := x0 + tw
			if c == l.Cols-1 {
				x1 = bounds.Max.X
			}
			rects = append(rects, image.Rect(x0, y0, x1, y1))
		}
	}
	return rects, nil
}
