package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MeKo-Tech/osmterrain/internal/metrics"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// ErrEmptyResponse is returned when the service answers without content.
var ErrEmptyResponse = errors.New("empty response")

// Fetcher returns the raw Overpass response for a tile.
type Fetcher interface {
	Fetch(ctx context.Context, tile types.TileCoord) ([]byte, error)
}

// Transport executes one Overpass QL query and returns the JSON body.
type Transport interface {
	Do(ctx context.Context, query string) ([]byte, error)
}

// HTTPTransport posts queries to an Overpass interpreter endpoint and
// returns the body untouched.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTransport creates a transport for endpoint (DefaultEndpoint when empty).
func NewHTTPTransport(endpoint string, client *http.Client) *HTTPTransport {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &HTTPTransport{endpoint: endpoint, client: client}
}

func (t *HTTPTransport) Do(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read overpass response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// OverpassFetcherConfig configures an OverpassFetcher.
type OverpassFetcherConfig struct {
	Transport Transport
	// Cache is consulted before the transport. Optional.
	Cache   ResponseCache
	Options QueryOptions
	Logger  *slog.Logger
}

// OverpassFetcher builds the tile query, serves it from the response cache
// when possible, and otherwise runs it through the transport and stores the
// body.
type OverpassFetcher struct {
	transport Transport
	cache     ResponseCache
	opts      QueryOptions
	logger    *slog.Logger
}

// NewOverpassFetcher creates a fetcher. A nil transport uses HTTPTransport
// against DefaultEndpoint.
func NewOverpassFetcher(cfg OverpassFetcherConfig) *OverpassFetcher {
	if cfg.Transport == nil {
		cfg.Transport = NewHTTPTransport("", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OverpassFetcher{
		transport: cfg.Transport,
		cache:     cfg.Cache,
		opts:      cfg.Options,
		logger:    cfg.Logger,
	}
}

// Fetch returns the response body for a tile.
func (f *OverpassFetcher) Fetch(ctx context.Context, tile types.TileCoord) ([]byte, error) {
	query := BuildTileQuery(tile, f.opts)
	key := CacheKey(query)
	log := f.logger.With("tile", tile.String(), "key", key)

	if f.cache != nil {
		data, err := f.cache.Get(ctx, key)
		switch {
		case err == nil && len(data) > 0:
			metrics.ResponseCacheHitsTotal.Inc()
			log.Debug("response cache hit", "bytes", len(data))
			return data, nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			log.Warn("response cache lookup failed", "error", err)
		}
		metrics.ResponseCacheMissesTotal.Inc()
	}

	start := time.Now()
	data, err := f.transport.Do(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}
	log.Info("fetched tile data from Overpass API",
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(data),
	)

	if f.cache != nil {
		if err := f.cache.Put(ctx, key, data); err != nil {
			log.Warn("failed to store response", "error", err)
		}
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
