package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Sink receives the encoded tiles of a puzzle.
type Sink interface {
	// Prepare makes sure the location for puzzle exists. It is safe to call
	// again for a puzzle that already exists.
	Prepare(ctx context.Context, puzzle string) error
	// Put stores body as name inside the puzzle's location, replacing any
	// existing entry, and returns where it ended up.
	Put(ctx context.Context, puzzle, name string, body io.Reader) (string, error)
}

var ErrName = errors.New("invalid puzzle name")

// CheckName rejects names that would escape or collapse the puzzle folder.
func CheckName(puzzle string) error {
	switch {
	case strings.TrimSpace(puzzle) == "", puzzle == ".", puzzle == "..":
		return fmt.Errorf("%w: %q", ErrName, puzzle)
	case strings.ContainsAny(puzzle, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrName, puzzle)
	}
	return nil
}

// Dir writes puzzles as folders under Root.
type Dir struct {
	Root string
}

func NewDir(root string) *Dir {
	if root == "" {
		root = "."
	}
	return &Dir{Root: root}
}

func (d *Dir) Path(puzzle string) string {
	return filepath.Join(d.Root, puzzle)
}

func (d *Dir) Prepare(_ context.Context, puzzle string) error {
	if err := CheckName(puzzle); err != nil {
		return err
	}
	return os.MkdirAll(d.Path(puzzle), 0o755)
}

func (d *Dir) Put(_ context.Context, puzzle, name string, body io.Reader) (string, error) {
	p := filepath.Join(d.Path(puzzle), name)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return "", fmt.Errorf("open file %q err, %w", p, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("write %q: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %q: %w", p, err)
	}
	return p, nil
}

// TileFile is a tile image found on disk.
type TileFile struct {
	Index int
	Path  string
}

// ListTiles returns the "<index>.<ext>" image files of dir ordered by index.
// Other files are ignored.
func ListTiles(dir string) ([]TileFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []TileFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if _, err := imaging.FormatFromExtension(ext); err != nil {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ext))
		if err != nil || idx < 0 {
			continue
		}
		files = append(files, TileFile{Index: idx, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Index < files[j].Index })
	return files, nil
}

// LoadTiles opens every tile listed by ListTiles.
func LoadTiles(dir string) ([]image.Image, error) {
	files, err := ListTiles(dir)
	if err != nil {
		return nil, err
	}
	imgs := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := imaging.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("open tile %q: %w", f.Path, err)
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}
