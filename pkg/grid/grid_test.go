package grid

import (
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFactor(t *testing.T) {
	for _, tc := range []struct {
		n, w, h    int
		rows, cols int
	}{
		{1, 100, 100, 1, 1},
		{4, 100, 100, 2, 2},
		{6, 300, 200, 2, 3},
		{6, 200, 300, 3, 2},
		{12, 640, 480, 3, 4},
		{7, 700, 100, 1, 7},
		{7, 100, 700, 7, 1},
		{100, 1000, 1000, 10, 10},
	} {
		t.Run(fmt.Sprintf("%d_%dx%d", tc.n, tc.w, tc.h), func(t *testing.T) {
			l, err := Factor(tc.n, tc.w, tc.h)
			require.NoError(t, err)
			require.Equal(t, Layout{Rows: tc.rows, Cols: tc.cols}, l)
			require.Equal(t, tc.n, l.Pieces())
		})
	}
}

func TestFactorInvalid(t *testing.T) {
	for _, n := range []int{0, -1, -16} {
		_, err := Factor(n, 10, 10)
		require.ErrorIs(t, err, ErrPieceCount)
	}
}

func TestNewLayout(t *testing.T) {
	_, err := NewLayout(0, 3)
	require.ErrorIs(t, err, ErrLayout)
	_, err = NewLayout(2, -1)
	require.ErrorIs(t, err, ErrLayout)
	l, err := NewLayout(2, 5)
	require.NoError(t, err)
	require.Equal(t, "2x5", l.String())
}

func TestRectsRemainder(t *testing.T) {
	l := Layout{Rows: 2, Cols: 3}
	rects, err := l.Rects(image.Rect(0, 0, 10, 7))
	require.NoError(t, err)
	require.Equal(t, []image.Rectangle{
		image.Rect(0, 0, 3, 3), image.Rect(3, 0, 6, 3), image.Rect(6, 0, 10, 3),
		image.Rect(0, 3, 3, 7), image.Rect(3, 3, 6, 7), image.Rect(6, 3, 10, 7),
	}, rects)
}

func TestRectsOffsetBounds(t *testing.T) {
	l := Layout{Rows: 2, Cols: 2}
	rects, err := l.Rects(image.Rect(10, 20, 30, 40))
	require.NoError(t, err)
	require.Equal(t, image.Rect(10, 20, 20, 30), rects[0])
	require.Equal(t, image.Rect(20, 30, 30, 40), rects[3])
}

func TestRectsTooSmall(t *testing.T) {
	_, err := Layout{Rows: 1, Cols: 5}.Rects(image.Rect(0, 0, 4, 4))
	require.ErrorIs(t, err, ErrTooSmall)
	_, err = Layout{Rows: 5, Cols: 1}.Rects(image.Rect(0, 0, 4, 4))
	require.ErrorIs(t, err, ErrTooSmall)
}

// Every pixel is covered by exactly one tile and the areas add up.
func TestRectsCoverExactly(t *testing.T) {
	for n := 1; n <= 30; n++ {
		for _, dim := range [][2]int{{31, 17}, {17, 31}, {64, 64}, {97, 53}} {
			w, h := dim[0], dim[1]
			l, err := Factor(n, w, h)
			require.NoError(t, err)
			bounds := image.Rect(0, 0, w, h)
			rects, err := l.Rects(bounds)
			if err != nil {
				require.ErrorIs(t, err, ErrTooSmall)
				continue
			}
			require.Len(t, rects, n)

			hits := make([]int, w*h)
			area := 0
			for _, r := range rects {
				require.False(t, r.Empty())
				require.True(t, r.In(bounds), "%v outside %v", r, bounds)
				area += r.Dx() * r.Dy()
				for y := r.Min.Y; y < r.Max.Y; y++ {
					for x := r.Min.X; x < r.Max.X; x++ {
						hits[y*w+x]++
					}
				}
			}
			require.Equal(t, w*h, area, "n=%d %dx%d", n, w, h)
			for i, c := range hits {
				require.Equal(t, 1, c, "pixel (%d,%d) n=%d", i%w, i/w, n)
			}
		}
	}
}
