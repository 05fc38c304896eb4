// Package filter holds per-tile image filters applied after cropping.
package filter

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Filter transforms one tile. Implementations must keep the tile's size.
type Filter interface {
	Apply(img image.Image) (image.Image, error)
}

// Func adapts a plain function to Filter.
type Func func(img image.Image) (image.Image, error)

func (f Func) Apply(img image.Image) (image.Image, error) { return f(img) }

// Grayscale desaturates tiles.
var Grayscale Filter = Func(func(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
})

var ErrTileSize = errors.New("filter changed tile size")

// Chain applies filters in order and fails if one changes the tile size.
type Chain []Filter

func (c Chain) Apply(img image.Image) (image.Image, error) {
	for _, f := range c {
		out, err := f.Apply(img)
		if err != nil {
			return nil, err
		}
		if out.Bounds().Size() != img.Bounds().Size() {
			return nil, fmt.Errorf("%w: %v to %v", ErrTileSize, img.Bounds().Size(), out.Bounds().Size())
		}
		img = out
	}
	return img, nil
}
