// Package tilecache holds parsed tiles in a bounded, insertion-ordered cache
// and keeps the cell edge index in step with it.
package tilecache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/MeKo-Tech/osmterrain/internal/boundary"
	"github.com/MeKo-Tech/osmterrain/internal/datasource"
	"github.com/MeKo-Tech/osmterrain/internal/geometry"
	"github.com/MeKo-Tech/osmterrain/internal/metrics"
	"github.com/MeKo-Tech/osmterrain/internal/projection"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

var (
	// ErrOutOfDomain is returned for tiles the data service cannot answer.
	ErrOutOfDomain = errors.New("tile outside data domain")
	// ErrFailed is returned for a tile cached as failed by an earlier lookup.
	ErrFailed = errors.New("tile previously failed")
	// ErrMaxAttempts is returned when every attempt of this lookup failed.
	ErrMaxAttempts = errors.New("tile fetch attempts exhausted")
	// ErrVetoed is returned when an observer cancelled the fetch.
	ErrVetoed = errors.New("tile fetch vetoed")
	// ErrNotCached is returned by reads that do not fetch when a tile is
	// missing.
	ErrNotCached = errors.New("tile not cached")
)

// Config configures a Cache.
type Config struct {
	Fetcher datasource.Fetcher
	Indexer *geometry.Indexer
	// Size is the maximum number of tiles held (default: 256).
	Size int
	// MaxAttempts bounds fetch-and-parse attempts per lookup (default: 5).
	MaxAttempts int
	// RetryBackoff is the pause between attempts (default: none).
	RetryBackoff time.Duration
	Observers    []Observer
	Logger       *slog.Logger
}

// DefaultConfig returns the cache defaults. Fetcher and Indexer must still be set.
func DefaultConfig() Config {
	return Config{
		Size:        256,
		MaxAttempts: 5,
		Logger:      slog.Default(),
	}
}

// Cache maps tile coordinates to tiles. Misses are filled synchronously by
// Get. When full, the oldest inserted tile is evicted together with every
// edge it put into the cell index.
type Cache struct {
	fetcher     datasource.Fetcher
	indexer     *geometry.Indexer
	proj        projection.Projection
	size        int
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	tiles   map[types.TileCoord]*list.Element
	order   *list.List
	loading map[types.TileCoord]chan struct{}

	obsMu     sync.RWMutex
	observers []Observer

	cells *geometry.CellIndex
}

// New creates a cache.
func New(cfg Config) *Cache {
	if cfg.Size < 1 {
		cfg.Size = 256
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.Indexer == nil {
		cfg.Indexer = geometry.NewIndexer(geometry.DefaultConfig())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Cache{
		fetcher:     cfg.Fetcher,
		indexer:     cfg.Indexer,
		proj:        cfg.Indexer.Projection(),
		size:        cfg.Size,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		logger:      cfg.Logger,
		tiles:       make(map[types.TileCoord]*list.Element),
		order:       list.New(),
		loading:     make(map[types.TileCoord]chan struct{}),
		observers:   append([]Observer(nil), cfg.Observers...),
		cells:       geometry.NewCellIndex(),
	}
}

// AddObserver registers an observer for subsequent events.
func (c *Cache) AddObserver(o Observer) {
	c.obsMu.Lock()
	c.observers = append(c.observers, o)
	c.obsMu.Unlock()
}

// Projection returns the projection tiles are indexed in.
func (c *Cache) Projection() projection.Projection { return c.proj }

// Get returns the tile for coord, fetching it on a miss. Errors are one of
// ErrOutOfDomain, ErrFailed, ErrMaxAttempts (wrapping the last attempt's
// error), ErrVetoed, or the context's error.
func (c *Cache) Get(ctx context.Context, coord types.TileCoord) (*Tile, error) {
	if !coord.InDomain() {
		return nil, ErrOutOfDomain
	}

	for {
		c.mu.Lock()
		if el, ok := c.tiles[coord]; ok {
			t := el.Value.(*Tile)
			c.mu.Unlock()
			if t.failed {
				metrics.TilesFailedTotal.WithLabelValues(FailureFailed.String()).Inc()
				c.notify(Event{Kind: PostFailed, Coord: coord, Tile: t, Failure: FailureFailed})
				return nil, ErrFailed
			}
			return t, nil
		}
		if wait, ok := c.loading[coord]; ok {
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		c.loading[coord] = done
		c.mu.Unlock()

		t, err := c.load(ctx, coord)

		c.mu.Lock()
		delete(c.loading, coord)
		close(done)
		c.mu.Unlock()
		return t, err
	}
}

func (c *Cache) load(ctx context.Context, coord types.TileCoord) (*Tile, error) {
	log := c.logger.With("tile", coord.String())

	if !c.notify(Event{Kind: PreFetch, Coord: coord}) {
		log.Debug("fetch vetoed by observer")
		return nil, ErrVetoed
	}

	var (
		res     *geometry.Result
		lastErr error
	)
	attempts := 0
	for attempts < c.maxAttempts {
		if attempts > 0 && c.backoff > 0 {
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempts++
		res, lastErr = c.attempt(ctx, coord)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			// Cancellation is not the tile's fault; leave it uncached.
			return nil, ctx.Err()
		}
		metrics.FetchFailuresTotal.Inc()
		log.Warn("tile attempt failed", "attempt", attempts, "error", lastErr)
	}

	t := &Tile{Coord: coord, attempts: attempts, proj: c.proj}
	if lastErr != nil {
		t.failed = true
		c.insert(t)
		log.Error("tile failed to download several times, no features for this area",
			"attempts", attempts,
			"error", lastErr,
		)
		metrics.TilesFailedTotal.WithLabelValues(FailureMaxAttempts.String()).Inc()
		c.notify(Event{Kind: PostFailed, Coord: coord, Tile: t, Failure: FailureMaxAttempts})
		return nil, fmt.Errorf("%w: %w", ErrMaxAttempts, lastErr)
	}

	t.edges = res.Edges
	t.water = res.Water
	c.insert(t)
	metrics.TilesCompiledTotal.Inc()
	log.Debug("tile compiled",
		"attempts", attempts,
		"edges", len(t.edges),
		"cells", len(t.cells),
		"water_segments", res.WaterSegments,
	)
	c.notify(Event{Kind: PostSuccess, Coord: coord, Tile: t})
	return t, nil
}

// attempt runs one fetch-and-parse. Nothing is shared until it succeeds.
func (c *Cache) attempt(ctx context.Context, coord types.TileCoord) (*geometry.Result, error) {
	metrics.FetchAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		metrics.FetchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if c.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	data, err := c.fetcher.Fetch(ctx, coord)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, datasource.ErrEmptyResponse
	}
	return c.indexer.Parse(data, coord)
}

// insert rasterizes the tile's edges, adds it and evicts down to capacity
// as one step.
func (c *Cache) insert(t *Tile) {
	c.mu.Lock()
	if !t.failed {
		t.cells = c.cells.AddTile(t.edges, t.Bounds())
	}
	c.tiles[t.Coord] = c.order.PushBack(t)

	var evicted []*Tile
	for c.order.Len() > c.size {
		front := c.order.Front()
		old := front.Value.(*Tile)
		c.order.Remove(front)
		delete(c.tiles, old.Coord)
		c.cells.RemoveTile(old.Coord, old.cells)
		evicted = append(evicted, old)
	}
	c.mu.Unlock()

	for _, old := range evicted {
		metrics.TilesEvictedTotal.Inc()
		c.logger.Debug("tile evicted", "tile", old.Coord.String(), "failed", old.failed)
		c.notify(Event{Kind: Evicted, Coord: old.Coord, Tile: old})
	}
}

// notify delivers e to every observer and reports whether all of them
// allowed it.
func (c *Cache) notify(e Event) bool {
	c.obsMu.RLock()
	observers := c.observers
	c.obsMu.RUnlock()

	ok := true
	for _, o := range observers {
		if !o.Notify(e) {
			ok = false
		}
	}
	return ok
}

// Peek returns a cached tile without fetching.
func (c *Cache) Peek(coord types.TileCoord) (*Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.tiles[coord]
	if !ok {
		return nil, false
	}
	return el.Value.(*Tile), true
}

// Len returns the number of cached tiles, failed ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Coords returns the cached tiles from oldest to newest.
func (c *Cache) Coords() []types.TileCoord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.TileCoord, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Tile).Coord)
	}
	return out
}

// Cells exposes the cell edge index.
func (c *Cache) Cells() *geometry.CellIndex { return c.cells }

// CornerTiles returns the distinct tiles containing the four corners of a
// cell, in the order south-west, south-east, north-east, north-west of the
// cell's world rectangle.
func CornerTiles(p projection.Projection, cell types.CellCoord) []types.TileCoord {
	x0 := float64(cell.X) * types.CellSize
	z0 := float64(cell.Z) * types.CellSize
	x1 := float64(cell.X+1)*types.CellSize - 1
	z1 := float64(cell.Z+1)*types.CellSize - 1

	corners := [4][2]float64{{x0, z0}, {x1, z0}, {x1, z1}, {x0, z1}}
	out := make([]types.TileCoord, 0, 4)
	seen := make(map[types.TileCoord]bool, 4)
	for _, c := range corners {
		lon, lat := p.ToGeo(c[0], c[1])
		t := types.TileAt(lon, lat)
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// CellEdges returns the edges crossing cell (empty when none do). It never
// fetches: every tile owning a corner of the cell must already be cached,
// otherwise ErrNotCached is returned, or ErrFailed for a negative entry.
func (c *Cache) CellEdges(cell types.CellCoord) ([]geometry.Edge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, coord := range CornerTiles(c.proj, cell) {
		el, ok := c.tiles[coord]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotCached, coord)
		}
		if el.Value.(*Tile).failed {
			return nil, fmt.Errorf("%w: %s", ErrFailed, coord)
		}
	}
	edges, _ := c.cells.Edges(cell)
	if edges == nil {
		edges = []geometry.Edge{}
	}
	return edges, nil
}

// WaterState classifies a geographic point using its cached tile. The second
// result is false when the tile is not cached, failed, or has no water index.
func (c *Cache) WaterState(lon, lat float64) (boundary.State, bool) {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return boundary.Ground, false
	}
	t, ok := c.Peek(types.TileAt(lon, lat))
	if !ok || t.failed || t.water == nil {
		return boundary.Ground, false
	}
	return t.water.StateAt(lon, lat), true
}
