// Package dispatch feeds tile requests to a single background worker and
// lets synchronous callers wait for the tiles a cell depends on.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/osmterrain/internal/geometry"
	"github.com/MeKo-Tech/osmterrain/internal/metrics"
	"github.com/MeKo-Tech/osmterrain/internal/tilecache"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

var (
	// ErrNotReady is returned when a cell's tiles are still in flight after
	// the query timeout.
	ErrNotReady = errors.New("cell not ready")
	// ErrStopped is returned when a missing tile can no longer be requested.
	ErrStopped = errors.New("dispatcher stopped")
)

// Config configures a Dispatcher.
type Config struct {
	Cache *tilecache.Cache
	// QueryTimeout bounds how long QueryCell waits (default: 10s).
	QueryTimeout time.Duration
	Logger       *slog.Logger
}

// DefaultConfig returns sensible defaults. Cache must still be set.
func DefaultConfig() Config {
	return Config{
		QueryTimeout: 10 * time.Second,
		Logger:       slog.Default(),
	}
}

// Status is a snapshot of the dispatcher's counters.
type Status struct {
	Queued    int   `json:"queued"`
	InFlight  int   `json:"in_flight"`
	Generated int   `json:"generated"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Dispatcher owns one worker goroutine that takes tile coordinates from a
// deduplicating queue and resolves them through the cache. A tile is
// pending from the moment it is requested until its lookup reached a
// terminal state.
type Dispatcher struct {
	cache   *tilecache.Cache
	timeout time.Duration
	logger  *slog.Logger
	queue   *SetQueue[types.TileCoord]

	mu        sync.Mutex
	inflight  map[types.TileCoord]chan struct{}
	generated map[types.TileCoord]struct{}

	startOnce sync.Once
	stopped   atomic.Bool
	done      chan struct{}

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a dispatcher and subscribes it to the cache's eviction events.
func New(cfg Config) *Dispatcher {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dispatcher{
		cache:     cfg.Cache,
		timeout:   cfg.QueryTimeout,
		logger:    cfg.Logger,
		queue:     NewSetQueue[types.TileCoord](),
		inflight:  make(map[types.TileCoord]chan struct{}),
		generated: make(map[types.TileCoord]struct{}),
		done:      make(chan struct{}),
	}
	cfg.Cache.AddObserver(tilecache.ObserverFunc(d.onCacheEvent))
	return d
}

// Start launches the worker. The worker exits when Stop is called and the
// queue is drained, or when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.logger.Info("starting tile dispatcher")
		go d.run(ctx)
	})
}

// Stop enqueues the stop sentinel and waits for the worker to finish the
// requests queued before it.
func (d *Dispatcher) Stop() {
	if d.stopped.Swap(true) {
		<-d.done
		return
	}
	d.queue.Stop()
	d.startOnce.Do(func() {
		d.release()
		close(d.done)
	})
	<-d.done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	defer d.release()
	for {
		coord, ok := d.queue.Take(ctx)
		if !ok {
			// No request may be queued after the worker is gone.
			d.stopped.Store(true)
			d.queue.Stop()
			d.logger.Debug("tile dispatcher stopping")
			return
		}
		metrics.DispatchQueueDepth.Set(float64(d.queue.Len()))
		d.process(ctx, coord)
	}
}

func (d *Dispatcher) process(ctx context.Context, coord types.TileCoord) {
	log := d.logger.With("tile", coord.String())
	start := time.Now()

	tile, err := d.cache.Get(ctx, coord)
	terminal := true
	switch {
	case err == nil:
		log.Debug("tile ready",
			"edges", tile.EdgeCount(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	case errors.Is(err, tilecache.ErrFailed), errors.Is(err, tilecache.ErrMaxAttempts):
		d.failed.Add(1)
		log.Warn("tile unavailable", "error", err)
	default:
		// vetoed, out of domain or cancelled: a later request may try again
		terminal = false
		log.Debug("tile not generated", "error", err)
	}

	d.mu.Lock()
	if terminal {
		d.generated[coord] = struct{}{}
	}
	if ch, ok := d.inflight[coord]; ok {
		close(ch)
		delete(d.inflight, coord)
	}
	d.mu.Unlock()
	d.processed.Add(1)
}

// release wakes every waiter of requests that will not be processed.
func (d *Dispatcher) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for coord, ch := range d.inflight {
		close(ch)
		delete(d.inflight, coord)
	}
}

func (d *Dispatcher) onCacheEvent(e tilecache.Event) bool {
	if e.Kind == tilecache.Evicted {
		d.mu.Lock()
		delete(d.generated, e.Coord)
		d.mu.Unlock()
	}
	return true
}

// RequestPrefetch queues a tile unless it is already pending or generated.
// It reports whether a request was queued.
func (d *Dispatcher) RequestPrefetch(coord types.TileCoord) bool {
	if d.stopped.Load() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inflight[coord]; ok {
		return false
	}
	if _, ok := d.generated[coord]; ok {
		return false
	}
	if !d.queue.Add(coord) {
		return false
	}
	d.inflight[coord] = make(chan struct{})
	metrics.DispatchQueueDepth.Set(float64(d.queue.Len()))
	return true
}

// RequestAround queues the 3x3 block of tiles centred on the tile holding
// world position (x, z) and returns how many were queued.
func (d *Dispatcher) RequestAround(x, z float64) int {
	lon, lat := d.cache.Projection().ToGeo(x, z)
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return 0
	}
	center := types.TileAt(lon, lat)

	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			t := types.TileCoord{X: center.X + dx, Y: center.Y + dy}
			if t.InDomain() && d.RequestPrefetch(t) {
				n++
			}
		}
	}
	return n
}

// RequestBBox queues every tile of a bounding box in Hilbert order and
// returns how many were queued.
func (d *Dispatcher) RequestBBox(b types.BoundingBox) int {
	n := 0
	for _, t := range HilbertOrder(types.TilesInBBox(b)) {
		if t.InDomain() && d.RequestPrefetch(t) {
			n++
		}
	}
	return n
}

// IsPending reports whether a tile is queued or being processed.
func (d *Dispatcher) IsPending(coord types.TileCoord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[coord]
	return ok
}

// IsTileGenerated reports whether a tile reached a terminal state and is
// still cached.
func (d *Dispatcher) IsTileGenerated(coord types.TileCoord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.generated[coord]
	return ok
}

// IsGenerated reports whether every tile a cell depends on is generated.
func (d *Dispatcher) IsGenerated(cell types.CellCoord) bool {
	for _, t := range tilecache.CornerTiles(d.cache.Projection(), cell) {
		if !d.IsTileGenerated(t) {
			return false
		}
	}
	return true
}

// IsCellPending reports whether any tile a cell depends on is pending.
func (d *Dispatcher) IsCellPending(cell types.CellCoord) bool {
	for _, t := range tilecache.CornerTiles(d.cache.Projection(), cell) {
		if d.IsPending(t) {
			return true
		}
	}
	return false
}

// QueryCell returns the edges crossing cell. Tiles the cell depends on that
// are neither cached nor pending are requested; the call then blocks until
// none of them is pending. Downloads only ever run on the worker. It fails
// with ErrNotReady when that takes longer than the configured timeout or a
// tile is still missing afterwards (vetoed, or evicted meanwhile), and with
// tilecache.ErrFailed when a tile failed.
func (d *Dispatcher) QueryCell(ctx context.Context, cell types.CellCoord) ([]geometry.Edge, error) {
	tiles := tilecache.CornerTiles(d.cache.Projection(), cell)
	for _, t := range tiles {
		if !t.InDomain() {
			return nil, tilecache.ErrOutOfDomain
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	for _, t := range tiles {
		wait := d.waitChan(t)
		if wait == nil {
			if _, cached := d.cache.Peek(t); !cached {
				if d.stopped.Load() {
					return nil, ErrStopped
				}
				d.RequestPrefetch(t)
				wait = d.waitChan(t)
			}
		}
		if wait == nil {
			continue
		}
		select {
		case <-wait:
			if _, cached := d.cache.Peek(t); !cached && d.stopped.Load() {
				return nil, ErrStopped
			}
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, ErrNotReady
		}
	}

	edges, err := d.cache.CellEdges(cell)
	if errors.Is(err, tilecache.ErrNotCached) {
		if d.stopped.Load() {
			return nil, ErrStopped
		}
		return nil, ErrNotReady
	}
	return edges, err
}

func (d *Dispatcher) waitChan(coord types.TileCoord) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight[coord]
}

// Status returns current counters.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	inflight, generated := len(d.inflight), len(d.generated)
	d.mu.Unlock()

	return Status{
		Queued:    d.queue.Len(),
		InFlight:  inflight,
		Generated: generated,
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
	}
}
