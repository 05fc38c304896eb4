package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sourceImage(t *testing.T) (string, *image.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 12), B: uint8(x ^ y), A: 255})
		}
	}
	p := filepath.Join(t.TempDir(), "src.png")
	require.NoError(t, imaging.Save(img, p))
	return p, img
}

func TestGenerateAndAssemble(t *testing.T) {
	src, img := sourceImage(t)
	root := t.TempDir()

	out, err := run(t, "generate", "-i", src, "-n", "stripes", "-p", "6", "-o", root)
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 6)
	require.Equal(t, filepath.Join(root, "stripes", "0.png"), lines[0])

	assembled := filepath.Join(t.TempDir(), "whole.png")
	_, err = run(t, "assemble", "-d", filepath.Join(root, "stripes"), "--cols", "3", "-o", assembled)
	require.NoError(t, err)

	got, err := imaging.Open(assembled)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), got.Bounds())
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			require.Equal(t, img.NRGBAAt(x, y), color.NRGBAModel.Convert(got.At(x, y)))
		}
	}
}

func TestGenerateFailures(t *testing.T) {
	src, _ := sourceImage(t)
	root := t.TempDir()

	_, err := run(t, "generate", "-i", src, "-n", "zero", "-p", "0", "-o", root)
	require.Error(t, err)
	_, err = run(t, "generate", "-i", filepath.Join(root, "missing.png"), "-n", "x", "-p", "4", "-o", root)
	require.Error(t, err)
	_, err = run(t, "generate", "-i", src, "-n", "x", "-p", "4", "-o", root, "--filter", "sepia")
	require.Error(t, err)
	_, err = run(t, "generate", "-i", src, "-n", "x", "-p", "4", "-o", root, "--sink", "ftp")
	require.Error(t, err)
	_, err = run(t, "generate", "-i", src, "-n", "x", "-p", "4", "-o", root, "--rows", "2")
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestGenerateGrayscaleGrid(t *testing.T) {
	src, _ := sourceImage(t)
	root := t.TempDir()
	_, err := run(t, "generate", "-i", src, "-n", "g", "-p", "4", "--rows", "4", "--cols", "1",
		"-f", "bmp", "--filter", "grayscale", "-o", root)
	require.NoError(t, err)

	tile, err := imaging.Open(filepath.Join(root, "g", "3.bmp"))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 30, 5), tile.Bounds())
}

func TestJobDryRun(t *testing.T) {
	_, err := run(t, "job", "-n", "cats", "--source-url", "http://example.com/cats.png", "-p", "9", "--dry-run")
	require.NoError(t, err)
	_, err = run(t, "job", "-n", "a/b", "--source-url", "http://example.com/cats.png", "-p", "9", "--dry-run")
	require.Error(t, err)
	_, err = run(t, "job", "-n", "cats", "--source-url", "http://example.com/cats.png", "-p", "0", "--dry-run")
	require.Error(t, err)

	_, err = run(t, "job", "-n", "cats", "--source-url", "http://example.com/cats.png", "-p", "9",
		"--rows", "2", "--cols", "3", "--dry-run")
	require.Error(t, err)
	_, err = run(t, "job", "-n", "cats", "--source-url", "http://example.com/cats.png", "-p", "6",
		"--rows", "2", "--cols", "3", "--dry-run")
	require.NoError(t, err)
}
