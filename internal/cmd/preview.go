package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/osmterrain/internal/preview"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render a tile's edges and water classification to PNG",
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringP("tile", "t", "", "Tile as x<X>_y<Y> or lon,lat (required)")
	previewCmd.Flags().StringP("output", "o", "", "Output file (default: <tile>.png)")
	previewCmd.Flags().Int("size", 512, "Image size in pixels")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, previewCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBind("preview.tile", "tile")
	mustBind("preview.output", "output")
	mustBind("preview.size", "size")
}

func runPreview(cmd *cobra.Command, args []string) error {
	coord, err := parseTile(viper.GetString("preview.tile"))
	if err != nil {
		return err
	}
	out := viper.GetString("preview.output")
	if out == "" {
		out = coord.String() + ".png"
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.cache.Get(ctx, coord)
	if err != nil {
		return fmt.Errorf("failed to load tile %s: %w", coord, err)
	}

	opts := preview.DefaultOptions()
	opts.Size = viper.GetInt("preview.size")
	r := preview.New(opts, s.cache.Projection())

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := r.WritePNG(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to render tile %s: %w", coord, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("Preview written", "tile", coord.String(), "path", out, "edges", t.EdgeCount())
	return nil
}
