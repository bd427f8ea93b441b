package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/osmterrain/internal/dispatch"
	"github.com/MeKo-Tech/osmterrain/internal/metrics"
	"github.com/MeKo-Tech/osmterrain/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Index every tile of a bounding box through the background dispatcher",
	Long: `Prefetch queues all tiles of a bounding box in Hilbert order and lets the
single dispatcher worker fetch and index them one by one. Tiles evicted from
the in-memory cache are dropped again, so this mainly exercises the pipeline
and fills the response cache.`,
	RunE: runPrefetch,
}

func init() {
	rootCmd.AddCommand(prefetchCmd)

	prefetchCmd.Flags().String("bbox", "", "Bounding box: minLon,minLat,maxLon,maxLat (required)")
	prefetchCmd.Flags().Bool("progress", true, "Show progress bar")
	prefetchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, prefetchCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBind("prefetch.bbox", "bbox")
	mustBind("prefetch.progress", "progress")
	mustBind("prefetch.metrics_addr", "metrics-addr")
}

func runPrefetch(cmd *cobra.Command, args []string) error {
	bbox, err := parseBBox(viper.GetString("prefetch.bbox"))
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if addr := viper.GetString("prefetch.metrics_addr"); addr != "" {
		srv := serveMetrics(addr)
		defer srv.Shutdown(context.Background())
	}

	cfg := dispatch.DefaultConfig()
	cfg.Cache = s.cache
	cfg.Logger = logger
	d := dispatch.New(cfg)

	total := d.RequestBBox(bbox)
	logger.Info("Starting prefetch", "bbox", bbox.String(), "tiles", total)

	progress := worker.NewProgress(total, viper.GetBool("prefetch.progress"))
	d.Start(ctx)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()

loop:
	for {
		select {
		case <-stopped:
			break loop
		case <-ticker.C:
			st := d.Status()
			progress.Update(int(st.Processed), total, int(st.Failed))
		}
	}
	st := d.Status()
	progress.Update(int(st.Processed), total, int(st.Failed))
	progress.Done()
	logger.Info(progress.Summary())

	if err := ctx.Err(); err != nil {
		return err
	}
	if st.Failed > 0 {
		return fmt.Errorf("%d of %d tiles failed", st.Failed, total)
	}
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}
