package split

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Tile is one cropped piece of a source image. Bounds is in the source's
// coordinate space; Image starts at the origin.
type Tile struct {
	Index  int
	Bounds image.Rectangle
	Image  image.Image
}

// Image crops img into one tile per rectangle, keeping the order of rects.
func Image(img image.Image, rects []image.Rectangle) []Tile {
	tiles := make([]Tile, 0, len(rects))
	for i, r := range rects {
		tiles = append(tiles, Tile{
			Index:  i,
			Bounds: r,
			Image:  imaging.Crop(img, r),
		})
	}
	return tiles
}

// Stitch pastes tiles back onto a transparent canvas the size of bounds.
func Stitch(tiles []Tile, bounds image.Rectangle) *image.NRGBA {
	dst := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{0, 0, 0, 0})
	for _, t := range tiles {
		dst = imaging.Paste(dst, t.Image, t.Bounds.Min.Sub(bounds.Min))
	}
	return dst
}

// Area sums the pixel area of all tiles.
func Area(tiles []Tile) int {
	n := 0
	for _, t := range tiles {
		n += t.Bounds.Dx() * t.Bounds.Dy()
	}
	return n
}

// Place lays out row-major tile images cols to a row, recovering each tile's
// bounds from the widths of the tiles before it in its row and the heights of
// the rows above it. It returns the tiles and the bounds they cover.
func Place(imgs []image.Image, cols int) ([]Tile, image.Rectangle, error) {
	if cols <= 0 || len(imgs) == 0 || len(imgs)%cols != 0 {
		return nil, image.Rectangle{}, fmt.Errorf("cannot place %d tiles in %d columns", len(imgs), cols)
	}
	tiles := make([]Tile, 0, len(imgs))
	var bounds image.Rectangle
	y := 0
	for row := 0; row < len(imgs)/cols; row++ {
		x := 0
		h := imgs[row*cols].Bounds().Dy()
		for c := 0; c < cols; c++ {
			i := row*cols + c
			size := imgs[i].Bounds().Size()
			if size.Y != h {
				return nil, image.Rectangle{}, fmt.Errorf("tile %d is %dpx tall, row %d is %dpx", i, size.Y, row, h)
			}
			r := image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x+size.X, y+size.Y)}
			tiles = append(tiles, Tile{Index: i, Bounds: r, Image: imgs[i]})
			bounds = bounds.Union(r)
			x += size.X
		}
		y += h
	}
	return tiles, bounds, nil
}
