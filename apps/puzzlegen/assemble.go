package main

import (
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/puzzle-builder/pkg/split"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/storage"
)

func newAssembleCmd(a *app) *cobra.Command {
	var dir, out string
	var cols int
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Stitch the tiles of a puzzle folder back into one image",
		RunE: func(cmd *cobra.Command, args []string) error {
			imgs, err := storage.LoadTiles(dir)
			if err != nil {
				return err
			}
			if len(imgs) == 0 {
				return fmt.Errorf("no tiles in %s", dir)
			}
			tiles, bounds, err := split.Place(imgs, cols)
			if err != nil {
				return err
			}
			if err := imaging.Save(split.Stitch(tiles, bounds), out); err != nil {
				return fmt.Errorf("failed to save %s: %w", out, err)
			}
			a.log.Info("assembled puzzle", "dir", dir, "tiles", len(tiles), "out", out,
				"width", bounds.Dx(), "height", bounds.Dy())
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "puzzle folder")
	cmd.Flags().StringVarP(&out, "out", "o", "assembled.png", "output image")
	cmd.Flags().IntVar(&cols, "cols", 0, "columns the puzzle was cut into")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("cols")
	return cmd
}
