package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/puzzle-builder/pkg/filter"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/filter/wasm"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/puzzle"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/storage"
)

type generateOpts struct {
	image    string
	name     string
	pieces   int
	rows     int
	cols     int
	format   string
	out      string
	sink     string
	filter   string
	wasmPath string
	wasmFunc string
}

func newGenerateCmd(a *app) *cobra.Command {
	o := &generateOpts{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Slice an image into a named puzzle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd.Context(), cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.image, "image", "i", "", "source image (png, jpeg, gif, bmp, tiff, webp)")
	f.StringVarP(&o.name, "name", "n", "", "puzzle name; tiles go to a folder of this name")
	f.IntVarP(&o.pieces, "pieces", "p", 0, "number of pieces")
	f.IntVar(&o.rows, "rows", 0, "force the number of rows (with --cols)")
	f.IntVar(&o.cols, "cols", 0, "force the number of columns (with --rows)")
	f.StringVarP(&o.format, "format", "f", "", "tile format by extension (default $PUZZLE_FORMAT or png)")
	f.StringVarP(&o.out, "out", "o", "", "output root for the dir sink (default $PUZZLE_OUT_DIR or .)")
	f.StringVar(&o.sink, "sink", "dir", "where tiles go: dir or minio")
	f.StringVar(&o.filter, "filter", "none", "tile filter: none, grayscale or wasm")
	f.StringVar(&o.wasmPath, "wasm", "", "wasm module for --filter wasm (default $PUZZLE_WASM_FILTER)")
	f.StringVar(&o.wasmFunc, "wasm-func", "", "exported filter function (default $PUZZLE_WASM_FUNC)")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("pieces")
	cmd.MarkFlagsRequiredTogether("rows", "cols")
	return cmd
}

func (a *app) sink(ctx context.Context, kind, out string) (storage.Sink, error) {
	switch kind {
	case "dir":
		if out == "" {
			out = a.cfg.OutDir
		}
		return storage.NewDir(out), nil
	case "minio":
		return storage.NewMinIO(ctx, a.cfg.Minio, a.log)
	}
	return nil, fmt.Errorf("unknown sink %q", kind)
}

func (a *app) generate(ctx context.Context, cmd *cobra.Command, o *generateOpts) error {
	sink, err := a.sink(ctx, o.sink, o.out)
	if err != nil {
		return err
	}
	format := o.format
	if format == "" {
		format = a.cfg.Format
	}
	opts := []puzzle.Option{
		puzzle.WithSink(sink),
		puzzle.WithFormat(format),
		puzzle.WithLogger(a.log),
	}
	if o.rows > 0 || o.cols > 0 {
		opts = append(opts, puzzle.WithGrid(o.rows, o.cols))
	}

	switch o.filter {
	case "", "none":
	case "grayscale":
		opts = append(opts, puzzle.WithFilter(filter.Grayscale))
	case "wasm":
		path, fn := o.wasmPath, o.wasmFunc
		if path == "" {
			path = a.cfg.WasmFilter
		}
		if fn == "" {
			fn = a.cfg.WasmFunc
		}
		if path == "" {
			return fmt.Errorf("--filter wasm needs --wasm or PUZZLE_WASM_FILTER")
		}
		wf, err := wasm.Load(path, fn)
		if err != nil {
			return err
		}
		defer wf.Close()
		opts = append(opts, puzzle.WithFilter(wf))
	default:
		return fmt.Errorf("unknown filter %q", o.filter)
	}

	s, err := puzzle.New(o.pieces, o.image, opts...)
	if err != nil {
		return err
	}
	res, err := s.Generate(ctx, o.name)
	if err != nil {
		return err
	}
	for _, loc := range res.Locations {
		fmt.Fprintln(cmd.OutOrStdout(), loc)
	}
	return nil
}
