package tilecache

import (
	"fmt"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// EventKind distinguishes lifecycle notifications.
type EventKind int

const (
	// PreFetch fires before the first attempt. Returning false vetoes the fetch.
	PreFetch EventKind = iota
	// PostSuccess fires after a tile was compiled and inserted.
	PostSuccess
	// PostFailed fires when a lookup ends in failure; see Event.Failure.
	PostFailed
	// Evicted fires after a tile left the cache.
	Evicted
)

func (k EventKind) String() string {
	switch k {
	case PreFetch:
		return "pre_fetch"
	case PostSuccess:
		return "post_success"
	case PostFailed:
		return "post_failed"
	case Evicted:
		return "evicted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// FailureKind tells why a PostFailed event was sent.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureFailed: the tile is a negative cache entry from an earlier lookup.
	FailureFailed
	// FailureMaxAttempts: every attempt of this lookup failed.
	FailureMaxAttempts
)

func (k FailureKind) String() string {
	switch k {
	case FailureFailed:
		return "failed"
	case FailureMaxAttempts:
		return "max_attempts"
	default:
		return "none"
	}
}

// Event is a tile lifecycle notification. Tile is nil for PreFetch.
type Event struct {
	Kind    EventKind
	Coord   types.TileCoord
	Tile    *Tile
	Failure FailureKind
}

// Observer receives events. The return value is only meaningful for
// PreFetch, where false cancels the fetch.
type Observer interface {
	Notify(Event) bool
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event) bool

func (f ObserverFunc) Notify(e Event) bool { return f(e) }
