// Package boundary classifies the cells of a tile as ground, water or ocean.
//
// Water outlines are swept into two structures while a tile is parsed: a
// horizontal line along the tile's southern edge that records where outlines
// cross it, and one vertical line per column that records where outlines
// cross that column. Compiling walks the southern line from the south-west
// corner (whose state is known) to find the state at the foot of each column,
// then walks up each column to produce sorted breakpoints.
package boundary

import (
	"maps"
	"math"
	"slices"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// State is the classification of a point.
type State uint8

const (
	Ground State = iota
	Water
	Ocean
)

func (s State) String() string {
	switch s {
	case Water:
		return "water"
	case Ocean:
		return "ocean"
	default:
		return "ground"
	}
}

// CoastlineID is the outline id shared by every coastline segment. Being
// inside it means being in the open ocean.
const CoastlineID int64 = -1

// MaxResolution is the largest supported number of rows and columns per
// tile; breakpoint rows are stored as uint16.
const MaxResolution = math.MaxUint16

// southEpsilon replaces latitudes lying exactly on the southern edge so
// that every segment is strictly above or below it.
const southEpsilon = 1e-8

type crossing struct {
	pos float64
	id  int64
}

// Builder accumulates water outline segments for one tile.
type Builder struct {
	tile  types.TileCoord
	res   int
	south float64
	west  float64
	unit  float64

	southLine []crossing
	columns   [][]crossing
	segments  int
}

// NewBuilder creates a builder for tile with res columns and rows. res is
// clamped to MaxResolution.
func NewBuilder(tile types.TileCoord, res int) *Builder {
	if res <= 0 {
		res = types.WaterResolution
	}
	res = min(res, MaxResolution)
	return &Builder{
		tile:    tile,
		res:     res,
		south:   tile.South(),
		west:    tile.West(),
		unit:    types.TileSize / float64(res),
		columns: make([][]crossing, res),
	}
}

// AddSegment records one segment of the outline identified by id. Points are
// geographic lon/lat.
func (b *Builder) AddSegment(slon, slat, elon, elat float64, id int64) {
	b.segments++

	sx := (slon - b.west) / b.unit
	ex := (elon - b.west) / b.unit
	sy := (slat - b.south) / b.unit
	ey := (elat - b.south) / b.unit

	if sy == 0 {
		sy = southEpsilon
	}
	if ey == 0 {
		ey = southEpsilon
	}
	if (sy < 0) != (ey < 0) {
		islope := (ex - sx) / (ey - sy)
		b.southLine = append(b.southLine, crossing{pos: ex - islope*ey, id: id})
	}

	if sx == ex {
		return
	}
	slope := (ey - sy) / (ex - sx)
	offset := ey - slope*ex

	// Columns in [min, max): a vertex shared by two segments is counted once.
	beg := int(math.Ceil(min(sx, ex)))
	end := int(math.Ceil(max(sx, ex))) - 1
	beg = max(beg, 0)
	end = min(end, b.res-1)
	for x := beg; x <= end; x++ {
		b.columns[x] = append(b.columns[x], crossing{pos: slope*float64(x) + offset, id: id})
	}
}

// Segments returns the number of segments added so far.
func (b *Builder) Segments() int { return b.segments }

// Compile produces the breakpoint index. ground holds the ids of the outlines
// enclosing the tile's south-west corner. The builder must not be used
// afterwards.
func (b *Builder) Compile(ground []int64) *Index {
	status := make(map[int64]struct{}, len(ground))
	for _, id := range ground {
		status[id] = struct{}{}
	}

	sortCrossings(b.southLine)

	ix := &Index{
		tile:   b.tile,
		res:    b.res,
		rows:   make([][]uint16, b.res),
		states: make([][]State, b.res),
	}

	next := 0
	for x := 0; x < b.res; x++ {
		for next < len(b.southLine) && b.southLine[next].pos <= float64(x) {
			if b.southLine[next].pos >= 0 {
				toggle(status, b.southLine[next].id)
			}
			next++
		}
		ix.rows[x], ix.states[x] = compileColumn(b.columns[x], maps.Clone(status), b.res)
	}

	b.southLine = nil
	b.columns = nil
	return ix
}

func compileColumn(line []crossing, status map[int64]struct{}, res int) ([]uint16, []State) {
	sortCrossings(line)

	rows := []uint16{0}
	states := []State{stateOf(status)}
	for _, c := range line {
		if c.pos < 0 {
			continue
		}
		row := int(math.Ceil(c.pos))
		if row >= res {
			break
		}
		toggle(status, c.id)

		last := len(rows) - 1
		if int(rows[last]) == row {
			states[last] = stateOf(status)
			continue
		}
		rows = append(rows, uint16(row))
		states = append(states, stateOf(status))
	}
	return rows, states
}

func sortCrossings(c []crossing) {
	slices.SortStableFunc(c, func(a, b crossing) int {
		switch {
		case a.pos < b.pos:
			return -1
		case a.pos > b.pos:
			return 1
		}
		return 0
	})
}

func toggle(status map[int64]struct{}, id int64) {
	if _, ok := status[id]; ok {
		delete(status, id)
		return
	}
	status[id] = struct{}{}
}

func stateOf(status map[int64]struct{}) State {
	if len(status) == 0 {
		return Ground
	}
	if _, ok := status[CoastlineID]; ok {
		return Ocean
	}
	return Water
}
