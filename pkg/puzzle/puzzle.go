// Package puzzle slices an image into a rectangular grid of pieces and writes
// every piece as its own image file under the puzzle's name.
package puzzle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/PhantomInTheWire/puzzle-builder/pkg/filter"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/grid"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/split"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/storage"
)

// Slicer cuts one source image into a fixed number of pieces. The decoded
// source is kept for the Slicer's lifetime and never modified.
type Slicer struct {
	pieces    int
	imagePath string
	src       image.Image

	layout *grid.Layout
	format imaging.Format
	ext    string
	sink   storage.Sink
	filter filter.Filter
	log    *slog.Logger
}

type Option func(*Slicer) error

// WithGrid forces a rows × cols split instead of the nearest-square one.
func WithGrid(rows, cols int) Option {
	return func(s *Slicer) error {
		l, err := grid.NewLayout(rows, cols)
		if err != nil {
			return err
		}
		s.layout = &l
		return nil
	}
}

// WithFormat picks the tile encoding by file extension: png, jpg, gif, tif or bmp.
func WithFormat(ext string) Option {
	return func(s *Slicer) error {
		f, err := imaging.FormatFromExtension(ext)
		if err != nil {
			return fmt.Errorf("tile format %q: %w", ext, err)
		}
		s.format = f
		s.ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		return nil
	}
}

// WithSink sets where tiles go. The default is a folder per puzzle under the
// working directory.
func WithSink(sink storage.Sink) Option {
	return func(s *Slicer) error {
		if sink == nil {
			return errors.New("nil sink")
		}
		s.sink = sink
		return nil
	}
}

// WithFilter runs f on every tile before it is encoded. Generate fails with
// filter.ErrTileSize if f changes a tile's size.
func WithFilter(f filter.Filter) Option {
	return func(s *Slicer) error {
		if f == nil {
			return errors.New("nil filter")
		}
		s.filter = filter.Chain{f}
		return nil
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Slicer) error {
		s.log = log
		return nil
	}
}

// New validates the piece count and decodes the image at imagePath.
func New(pieceCount int, imagePath string, opts ...Option) (*Slicer, error) {
	if pieceCount <= 0 {
		return nil, fmt.Errorf("%w: piece count %d must be positive", ErrInvalidArgument, pieceCount)
	}
	s := &Slicer{
		pieces:    pieceCount,
		imagePath: imagePath,
		format:    imaging.PNG,
		ext:       "png",
		sink:      storage.NewDir("."),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}
	if s.layout != nil && s.layout.Pieces() != pieceCount {
		return nil, fmt.Errorf("%w: grid %s does not make %d pieces", ErrInvalidArgument, s.layout, pieceCount)
	}

	src, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%w: open image %q: %w", ErrInvalidArgument, imagePath, err)
		}
		return nil, fmt.Errorf("%w: image %q: %w", ErrDecode, imagePath, err)
	}
	s.src = src
	return s, nil
}

func (s *Slicer) Pieces() int { return s.pieces }

func (s *Slicer) Bounds() image.Rectangle { return s.src.Bounds() }

// Layout returns the grid Generate will use.
func (s *Slicer) Layout() (grid.Layout, error) {
	if s.layout != nil {
		return *s.layout, nil
	}
	b := s.src.Bounds()
	return grid.Factor(s.pieces, b.Dx(), b.Dy())
}

// Tiles crops the source into row-major tiles without writing anything.
func (s *Slicer) Tiles() (grid.Layout, []split.Tile, error) {
	l, err := s.Layout()
	if err != nil {
		return grid.Layout{}, nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	rects, err := l.Rects(s.src.Bounds())
	if err != nil {
		return grid.Layout{}, nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return l, split.Image(s.src, rects), nil
}

// TileName is the file name of the tile at index.
func (s *Slicer) TileName(index int) string {
	return strconv.Itoa(index) + "." + s.ext
}

// Output is the result of one Generate call. Locations holds where each tile
// was written, by tile index.
type Output struct {
	Name      string
	Layout    grid.Layout
	Tiles     []split.Tile
	Locations []string
}

// Generate slices the source and writes every tile into the location named
// name, overwriting tiles left by an earlier run. Tiles written before a
// failure are left in place.
func (s *Slicer) Generate(ctx context.Context, name string) (*Output, error) {
	if err := storage.CheckName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	l, tiles, err := s.Tiles()
	if err != nil {
		return nil, err
	}
	if err := s.sink.Prepare(ctx, name); err != nil {
		return nil, fmt.Errorf("%w: prepare %q: %w", ErrIO, name, err)
	}
	s.log.Debug("slicing", "puzzle", name, "image", s.imagePath, "grid", l.String(),
		"pieces", len(tiles), "area", split.Area(tiles))

	out := &Output{Name: name, Layout: l, Tiles: tiles, Locations: make([]string, 0, len(tiles))}
	var buf bytes.Buffer
	for i := range out.Tiles {
		t := &out.Tiles[i]
		if s.filter != nil {
			img, err := s.filter.Apply(t.Image)
			if err != nil {
				return nil, fmt.Errorf("filter tile %d: %w", t.Index, err)
			}
			t.Image = img
		}
		buf.Reset()
		if err := imaging.Encode(&buf, t.Image, s.format); err != nil {
			return nil, fmt.Errorf("%w: encode tile %d: %w", ErrIO, t.Index, err)
		}
		loc, err := s.sink.Put(ctx, name, s.TileName(t.Index), bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("%w: write tile %d: %w", ErrIO, t.Index, err)
		}
		out.Locations = append(out.Locations, loc)
	}
	s.log.Info("puzzle generated", "puzzle", name, "grid", l.String(), "pieces", len(out.Tiles), "format", s.format.String())
	return out, nil
}

// GeneratePuzzleWithName is Generate reduced to success or failure. The
// reason for a failure is logged.
func (s *Slicer) GeneratePuzzleWithName(name string) bool {
	if s == nil {
		return false
	}
	if _, err := s.Generate(context.Background(), name); err != nil {
		s.log.Error("puzzle generation failed", "puzzle", name, "error", err)
		return false
	}
	return true
}

// Generate builds a Slicer and runs it once. A construction failure is
// reported the same way as a generation failure.
func Generate(pieceCount int, imagePath, name string, opts ...Option) bool {
	s, err := New(pieceCount, imagePath, opts...)
	if err != nil {
		slog.Error("puzzle setup failed", "image", imagePath, "error", err)
		return false
	}
	return s.GeneratePuzzleWithName(name)
}
