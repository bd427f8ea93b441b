package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/osmterrain/internal/datasource"
	"github.com/MeKo-Tech/osmterrain/internal/geometry"
	"github.com/MeKo-Tech/osmterrain/internal/projection"
	"github.com/MeKo-Tech/osmterrain/internal/tilecache"
	"github.com/spf13/viper"
)

// stack is the fetcher, indexer and tile cache shared by every command.
type stack struct {
	fetcher   *datasource.OverpassFetcher
	responses datasource.ResponseCache
	cache     *tilecache.Cache
}

func (s *stack) Close() error {
	if s.responses == nil {
		return nil
	}
	return s.responses.Close()
}

func buildStack(ctx context.Context) (*stack, error) {
	if logger == nil {
		initLogging()
	}

	features := geometry.Features{
		Roads:     !viper.GetBool("no-roads"),
		Water:     !viper.GetBool("no-water"),
		Buildings: !viper.GetBool("no-buildings"),
	}

	var transport datasource.Transport
	switch viper.GetString("transport") {
	case "", "http":
		transport = datasource.NewHTTPTransport(viper.GetString("endpoint"), nil)
	case "client":
		transport = datasource.NewClientTransport(viper.GetString("endpoint"))
	default:
		return nil, fmt.Errorf("unsupported transport: %s", viper.GetString("transport"))
	}

	var ocean geometry.OceanTiles
	if names := viper.GetStringSlice("ocean-tiles"); len(names) > 0 {
		var err error
		if ocean, err = geometry.ParseOceanTiles(names); err != nil {
			return nil, err
		}
	}

	responses, err := openResponseCache(ctx)
	if err != nil {
		return nil, err
	}

	fetcher := datasource.NewOverpassFetcher(datasource.OverpassFetcherConfig{
		Transport: transport,
		Cache:     responses,
		Options: datasource.QueryOptions{
			Roads:     features.Roads,
			Water:     features.Water,
			Buildings: features.Buildings,
		},
		Logger: logger,
	})

	icfg := geometry.DefaultConfig()
	icfg.Projection = projection.NewEquirectangular(viper.GetFloat64("scale"))
	icfg.Features = features
	icfg.Logger = logger
	if ocean != nil {
		icfg.Grounding = ocean
	}

	ccfg := tilecache.DefaultConfig()
	ccfg.Fetcher = fetcher
	ccfg.Indexer = geometry.NewIndexer(icfg)
	ccfg.Size = viper.GetInt("cache-size")
	ccfg.MaxAttempts = viper.GetInt("max-attempts")
	ccfg.RetryBackoff = viper.GetDuration("retry-backoff")
	ccfg.Logger = logger

	return &stack{fetcher: fetcher, responses: responses, cache: tilecache.New(ccfg)}, nil
}

// openResponseCache returns the configured response cache, or nil when
// neither SQLite nor Redis is configured.
func openResponseCache(ctx context.Context) (datasource.ResponseCache, error) {
	path, addr := viper.GetString("response-cache"), viper.GetString("redis-addr")
	switch {
	case path != "" && addr != "":
		return nil, errors.New("--response-cache and --redis-addr are mutually exclusive")
	case path != "":
		c, err := datasource.OpenSQLiteCache(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open response cache: %w", err)
		}
		logger.Info("Using SQLite response cache", "path", path)
		return c, nil
	case addr != "":
		c, err := datasource.DialRedisCache(ctx, addr, viper.GetString("redis-password"),
			viper.GetInt("redis-db"), viper.GetDuration("redis-ttl"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Using Redis response cache", "addr", addr)
		return c, nil
	}
	return nil, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
