package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/MeKo-Tech/osmterrain/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Download raw responses for a bounding box into the response cache",
	Long: `Warm fetches every tile of a bounding box in parallel and stores the raw
Overpass responses in the configured SQLite or Redis response cache. Nothing
is indexed. Later runs then read those tiles without touching the network.`,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)

	warmCmd.Flags().String("bbox", "", "Bounding box: minLon,minLat,maxLon,maxLat (required)")
	warmCmd.Flags().IntP("workers", "w", 0, "Number of parallel fetches (default: number of CPUs)")
	warmCmd.Flags().Bool("progress", true, "Show progress bar")
	warmCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some tiles failed")

	for _, bf := range []struct{ key, flag string }{
		{"warm.bbox", "bbox"},
		{"warm.workers", "workers"},
		{"warm.progress", "progress"},
		{"warm.allow_failures", "allow-failures"},
	} {
		if err := viper.BindPFlag(bf.key, warmCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runWarm(cmd *cobra.Command, args []string) error {
	bbox, err := parseBBox(viper.GetString("warm.bbox"))
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}
	workers := viper.GetInt("warm.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.responses == nil {
		return errors.New("warm needs --response-cache or --redis-addr")
	}

	var tiles []types.TileCoord
	for _, t := range types.TilesInBBox(bbox) {
		if t.InDomain() {
			tiles = append(tiles, t)
		}
	}
	logger.Info("Starting cache warm", "bbox", bbox.String(), "tiles", len(tiles), "workers", workers)

	progress := worker.NewProgress(len(tiles), viper.GetBool("warm.progress"))
	pool := worker.New(worker.Config{
		Workers:    workers,
		Fetcher:    s.fetcher,
		OnProgress: progress.Callback(),
		Logger:     logger,
	})
	results := pool.Run(ctx, tiles)
	progress.Done()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("Tile fetch failed", "tile", r.Coord.String(), "error", r.Err)
		}
	}
	logger.Info(progress.Summary())

	if failed > 0 && !viper.GetBool("warm.allow_failures") {
		return fmt.Errorf("%d of %d tiles failed", failed, len(tiles))
	}
	return nil
}
