// Package worker warms the Overpass response cache by fetching many tiles
// in parallel.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/osmterrain/internal/datasource"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// Result is the outcome of fetching one tile.
type Result struct {
	Coord   types.TileCoord
	Bytes   int
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each tile completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config struct {
	// Workers is the number of concurrent fetches (default: 1).
	Workers    int
	Fetcher    datasource.Fetcher
	OnProgress ProgressFunc
	Logger     *slog.Logger
}

// Pool fetches tiles through a Fetcher using a fixed number of workers.
// The fetched bodies are discarded; the point is to populate the
// fetcher's response cache ahead of indexing.
type Pool struct {
	workers    int
	fetcher    datasource.Fetcher
	onProgress ProgressFunc
	logger     *slog.Logger
}

// New creates a pool.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pool{
		workers:    cfg.Workers,
		fetcher:    cfg.Fetcher,
		onProgress: cfg.OnProgress,
		logger:     cfg.Logger,
	}
}

// Run fetches every coordinate and blocks until all are done or ctx is
// cancelled. Tiles not started before cancellation are reported with the
// context's error.
func (p *Pool) Run(ctx context.Context, coords []types.TileCoord) []Result {
	if len(coords) == 0 {
		return nil
	}

	jobs := make(chan types.TileCoord, len(coords))
	out := make(chan Result, len(coords))

	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, jobs, out)
		}()
	}

	for _, c := range coords {
		jobs <- c
	}
	close(jobs)

	results := make([]Result, 0, len(coords))
	done := make(chan struct{})
	go func() {
		defer close(done)
		failed := 0
		for r := range out {
			results = append(results, r)
			if r.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(len(results), len(coords), failed)
			}
		}
	}()

	wg.Wait()
	close(out)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, jobs <-chan types.TileCoord, out chan<- Result) {
	for coord := range jobs {
		if err := ctx.Err(); err != nil {
			out <- Result{Coord: coord, Err: err}
			continue
		}

		start := time.Now()
		body, err := p.fetcher.Fetch(ctx, coord)
		r := Result{Coord: coord, Bytes: len(body), Err: err, Elapsed: time.Since(start)}
		if err != nil {
			p.logger.Warn("warm fetch failed", "tile", coord.String(), "error", err)
		} else {
			p.logger.Debug("warmed tile", "tile", coord.String(), "bytes", r.Bytes, "duration_ms", r.Elapsed.Milliseconds())
		}
		out <- r
	}
}
