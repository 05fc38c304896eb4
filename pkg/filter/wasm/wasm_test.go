package wasm

import (
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/PhantomInTheWire/puzzle-builder/pkg/filter"
)

var _ filter.Filter = (*Filter)(nil)

// identityModule is a hand-assembled module with the filter ABI: a bump
// allocator starting at 1024, a no-op dealloc, and a "grayscale" export that
// points the out params at its input unchanged.
var identityModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types: (i32)->i32, (i32 i32)->(), (i32 i32 i32)->i32
	0x01, 0x12, 0x03,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
	// functions
	0x03, 0x04, 0x03, 0x00, 0x01, 0x02,
	// memory: 2 pages
	0x05, 0x03, 0x01, 0x00, 0x02,
	// global heap: mut i32 = 1024
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	// exports
	0x07, 0x28, 0x04,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x05, 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x07, 'd', 'e', 'a', 'l', 'l', 'o', 'c', 0x00, 0x01,
	0x09, 'g', 'r', 'a', 'y', 's', 'c', 'a', 'l', 'e', 0x00, 0x02,
	// code
	0x0a, 0x23, 0x03,
	// alloc: old := heap; heap += n; return old
	0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	// dealloc
	0x02, 0x00, 0x0b,
	// grayscale: store ptr at out, len at out+4, return len
	0x12, 0x00,
	0x20, 0x02, 0x20, 0x00, 0x36, 0x02, 0x00,
	0x20, 0x02, 0x20, 0x01, 0x36, 0x02, 0x04,
	0x20, 0x01, 0x0b,
}

func writeModule(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "identity.wasm")
	require.NoError(t, os.WriteFile(p, identityModule, 0o644))
	return p
}

func TestLoadMissingModule(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.wasm"), "")
	require.Error(t, err)
}

func TestLoadMissingFunc(t *testing.T) {
	f, err := Load(writeModule(t), "sepia")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Apply(imaging.New(2, 2, color.White))
	require.Error(t, err)
}

func TestApplyRoundTrip(t *testing.T) {
	f, err := Load(writeModule(t), "")
	require.NoError(t, err)
	defer f.Close()

	src := image.NewNRGBA(image.Rect(0, 0, 16, 9))
	for i := range src.Pix {
		src.Pix[i] = uint8(rand.Intn(256))
	}
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0xff
	}
	for run := 0; run < 3; run++ {
		out, err := f.Apply(src)
		require.NoError(t, err)
		require.Equal(t, src.Bounds(), out.Bounds())
		for y := 0; y < 9; y++ {
			for x := 0; x < 16; x++ {
				require.Equal(t, src.NRGBAAt(x, y), color.NRGBAModel.Convert(out.At(x, y)))
			}
		}
	}
}

// Runs against a real module when PUZZLE_WASM_FILTER points at one.
func TestApplyExternal(t *testing.T) {
	path := os.Getenv("PUZZLE_WASM_FILTER")
	if path == "" {
		t.Skip("PUZZLE_WASM_FILTER not set")
	}
	f, err := Load(path, os.Getenv("PUZZLE_WASM_FUNC"))
	require.NoError(t, err)
	defer f.Close()

	src := imaging.New(16, 9, color.NRGBA{R: 255, A: 255})
	out, err := f.Apply(src)
	require.NoError(t, err)
	require.Equal(t, src.Bounds().Size(), out.Bounds().Size())
}
