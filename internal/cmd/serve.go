package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/osmterrain/internal/dispatch"
	"github.com/MeKo-Tech/osmterrain/internal/metrics"
	"github.com/MeKo-Tech/osmterrain/internal/preview"
	"github.com/MeKo-Tech/osmterrain/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve cell edges, water lookups and tile previews over HTTP",
	Long: `Serve answers GET /cells/{x}/{z} with the edges crossing a world cell,
fetching missing tiles through the background dispatcher. A cell whose tiles
are still downloading after --query-timeout yields 503 with Retry-After.

Other endpoints: /water?lon=&lat=, /tiles/x<X>_y<Y>.png, /status,
/status/stream and /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Duration("query-timeout", 10*time.Second, "How long a cell query waits for its tiles")
	serveCmd.Flags().Int("preview-size", 512, "Tile preview size in pixels")
	serveCmd.Flags().String("warm-bbox", "", "Queue every tile of this bounding box at startup")
	serveCmd.Flags().String("around", "", "Queue the 3x3 tiles around world position x,z at startup")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBind("serve.addr", "addr")
	mustBind("serve.query_timeout", "query-timeout")
	mustBind("serve.preview_size", "preview-size")
	mustBind("serve.warm_bbox", "warm-bbox")
	mustBind("serve.around", "around")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	dcfg := dispatch.DefaultConfig()
	dcfg.Cache = s.cache
	dcfg.QueryTimeout = viper.GetDuration("serve.query_timeout")
	dcfg.Logger = logger
	d := dispatch.New(dcfg)
	d.Start(ctx)
	defer d.Stop()

	if b := viper.GetString("serve.warm_bbox"); b != "" {
		bbox, err := parseBBox(b)
		if err != nil {
			return fmt.Errorf("invalid warm-bbox: %w", err)
		}
		logger.Info("Queued warm-up tiles", "bbox", bbox.String(), "tiles", d.RequestBBox(bbox))
	}
	if p := viper.GetString("serve.around"); p != "" {
		x, z, err := parseWorldPos(p)
		if err != nil {
			return fmt.Errorf("invalid around: %w", err)
		}
		logger.Info("Queued tiles around position", "x", x, "z", z, "tiles", d.RequestAround(x, z))
	}

	popts := preview.DefaultOptions()
	popts.Size = viper.GetInt("serve.preview_size")
	srv := server.New(server.Config{
		Dispatcher: d,
		Cache:      s.cache,
		Preview:    popts,
		Logger:     logger,
	})

	mux := http.NewServeMux()
	srv.Routes(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	addr := viper.GetString("serve.addr")
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return hs.Shutdown(shutdownCtx)
}
