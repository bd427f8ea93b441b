// Package server exposes the dispatcher and tile cache over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/osmterrain/internal/dispatch"
	"github.com/MeKo-Tech/osmterrain/internal/geometry"
	"github.com/MeKo-Tech/osmterrain/internal/preview"
	"github.com/MeKo-Tech/osmterrain/internal/tilecache"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// Config configures a Server.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Cache      *tilecache.Cache
	Preview    preview.Options
	// RetryAfter is advertised when a cell is not ready yet (default: 1s).
	RetryAfter time.Duration
	// StatusInterval is the push interval of the status stream (default: 250ms).
	StatusInterval time.Duration
	Logger         *slog.Logger
}

// Server answers cell, water and preview queries.
type Server struct {
	dispatcher *dispatch.Dispatcher
	cache      *tilecache.Cache
	preview    *preview.Renderer
	retryAfter time.Duration
	interval   time.Duration
	logger     *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Second
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 250 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		dispatcher: cfg.Dispatcher,
		cache:      cfg.Cache,
		preview:    preview.New(cfg.Preview, cfg.Cache.Projection()),
		retryAfter: cfg.RetryAfter,
		interval:   cfg.StatusInterval,
		logger:     cfg.Logger,
	}
}

// Routes registers the server's handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /cells/{x}/{z}", s.serveCell)
	mux.HandleFunc("GET /water", s.serveWater)
	mux.HandleFunc("GET /tiles/", s.serveTile)
	mux.HandleFunc("GET /status", s.serveStatus)
	mux.HandleFunc("GET /status/stream", s.serveStatusStream)
}

// EdgeJSON is the wire form of an edge.
type EdgeJSON struct {
	Start     [2]float64 `json:"start"`
	End       [2]float64 `json:"end"`
	Type      string     `json:"type"`
	Lanes     uint8      `json:"lanes"`
	Layer     int8       `json:"layer"`
	Attribute string     `json:"attribute,omitempty"`
	Tile      string     `json:"tile"`
}

// CellResponse is returned by GET /cells/{x}/{z}.
type CellResponse struct {
	X     int        `json:"x"`
	Z     int        `json:"z"`
	Edges []EdgeJSON `json:"edges"`
}

func toJSON(e geometry.Edge) EdgeJSON {
	out := EdgeJSON{
		Start: [2]float64{e.StartX, e.StartY},
		End:   [2]float64{e.EndX, e.EndY},
		Type:  e.Type.String(),
		Lanes: e.Lanes,
		Layer: e.Layer,
		Tile:  e.Tile.String(),
	}
	if e.Attribute != types.AttributeNone {
		out.Attribute = e.Attribute.String()
	}
	return out
}

func (s *Server) serveCell(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.Atoi(r.PathValue("x"))
	z, errZ := strconv.Atoi(r.PathValue("z"))
	if errX != nil || errZ != nil {
		http.Error(w, "cell coordinates must be integers", http.StatusBadRequest)
		return
	}
	cell := types.CellCoord{X: x, Z: z}

	edges, err := s.dispatcher.QueryCell(r.Context(), cell)
	if err != nil {
		s.writeQueryError(w, cell, err)
		return
	}

	resp := CellResponse{X: x, Z: z, Edges: make([]EdgeJSON, len(edges))}
	for i, e := range edges {
		resp.Edges[i] = toJSON(e)
	}
	s.writeJSON(w, resp)
}

func (s *Server) writeQueryError(w http.ResponseWriter, cell types.CellCoord, err error) {
	switch {
	case errors.Is(err, tilecache.ErrOutOfDomain):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dispatch.ErrNotReady):
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(s.retryAfter.Seconds()))))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, dispatch.ErrStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, tilecache.ErrFailed), errors.Is(err, tilecache.ErrMaxAttempts):
		s.logger.Warn("cell query hit a failed tile", "cell", cell.String(), "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		s.logger.Error("cell query failed", "cell", cell.String(), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WaterResponse is returned by GET /water.
type WaterResponse struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	State string  `json:"state"`
}

func (s *Server) serveWater(w http.ResponseWriter, r *http.Request) {
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if errLon != nil || errLat != nil {
		http.Error(w, "lon and lat query parameters are required", http.StatusBadRequest)
		return
	}

	st, ok := s.cache.WaterState(lon, lat)
	if !ok {
		tile := types.TileAt(lon, lat)
		if tile.InDomain() {
			s.dispatcher.RequestPrefetch(tile)
		}
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(s.retryAfter.Seconds()))))
		http.Error(w, "tile not loaded", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, WaterResponse{Lon: lon, Lat: lat, State: st.String()})
}

func (s *Server) serveTile(w http.ResponseWriter, r *http.Request) {
	coord, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !coord.InDomain() {
		http.Error(w, tilecache.ErrOutOfDomain.Error(), http.StatusNotFound)
		return
	}

	t, cached := s.cache.Peek(coord)
	if !cached {
		s.dispatcher.RequestPrefetch(coord)
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(s.retryAfter.Seconds()))))
		http.Error(w, "tile not loaded", http.StatusServiceUnavailable)
		return
	}
	if t.Failed() {
		http.Error(w, fmt.Sprintf("tile %s unavailable: %v", coord, tilecache.ErrFailed), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.preview.WritePNG(w, t); err != nil {
		s.logger.Error("failed to render preview", "tile", coord.String(), "error", err)
	}
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s.writeJSON(w, s.dispatcher.Status())
}

// serveStatusStream pushes the dispatcher status as server-sent events.
func (s *Server) serveStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		data, err := json.Marshal(s.dispatcher.Status())
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// parseTilePath accepts /tiles/x583_y3142.png.
func parseTilePath(p string) (types.TileCoord, bool) {
	if !strings.HasPrefix(p, "/tiles/") {
		return types.TileCoord{}, false
	}
	name, ok := strings.CutSuffix(path.Base(p), ".png")
	if !ok {
		return types.TileCoord{}, false
	}
	coord, err := types.ParseTileCoord(name)
	if err != nil {
		return types.TileCoord{}, false
	}
	return coord, true
}
