package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and index a single tile",
	Long: `Fetch downloads one tile, indexes it and prints what it contains.
With --raw the Overpass response is written to stdout instead.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringP("tile", "t", "", "Tile as x<X>_y<Y> or lon,lat (required)")
	fetchCmd.Flags().Bool("raw", false, "Write the raw Overpass response to stdout")

	if err := viper.BindPFlag("fetch.tile", fetchCmd.Flags().Lookup("tile")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("fetch.raw", fetchCmd.Flags().Lookup("raw")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	coord, err := parseTile(viper.GetString("fetch.tile"))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if viper.GetBool("fetch.raw") {
		data, err := s.fetcher.Fetch(ctx, coord)
		if err != nil {
			return fmt.Errorf("failed to fetch tile %s: %w", coord, err)
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	logger.Info("Fetching tile", "tile", coord.String(), "bbox", coord.Bounds().String())
	t, err := s.cache.Get(ctx, coord)
	if err != nil {
		return fmt.Errorf("failed to load tile %s: %w", coord, err)
	}

	water := 0
	if ix := t.Water(); ix != nil {
		water = ix.Breakpoints()
	}
	logger.Info("Tile indexed",
		"tile", coord.String(),
		"attempts", t.Attempts(),
		"edges", t.EdgeCount(),
		"cells", len(t.Cells()),
		"water_breakpoints", water,
	)

	counts := make(map[string]int)
	for _, e := range t.Edges() {
		counts[e.Type.String()]++
	}
	for kind, n := range counts {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", kind, n)
	}
	return nil
}
