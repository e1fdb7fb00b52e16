package region

import (
	"math"
	"sort"

	"github.com/udisondev/regionwatch/internal/model"
)

// DefaultCellSize is the edge length of an index cell in world units.
const DefaultCellSize = 16

// CellKey identifies one square cell of a world's horizontal plane.
type CellKey struct {
	World string
	X, Z  int32
}

// CellOf returns the cell containing loc. The cell is computed from raw
// coordinates so it is safe to call off the main thread.
func CellOf(loc model.Location, cellSize int32) CellKey {
	return CellKey{
		World: loc.World,
		X:     floorDiv(loc.X, cellSize),
		Z:     floorDiv(loc.Z, cellSize),
	}
}

// floorDiv divides with rounding towards -inf, so negative coordinates map to
// negative cells. Coordinates beyond the int32 cell range saturate.
func floorDiv(v float64, cellSize int32) int32 {
	c, ok := cellCoord(v, cellSize)
	if ok {
		return c
	}
	if v < 0 {
		return math.MinInt32
	}
	return math.MaxInt32
}

// cellCoord работает как floorDiv, но вместо переполнения возвращает false, если
// ячейка не помещается в int32 или v равно NaN.
func cellCoord(v float64, cellSize int32) (int32, bool) {
	c := math.Floor(v / float64(cellSize))
	if math.IsNaN(c) || c < math.MinInt32 || c > math.MaxInt32 {
		return 0, false
	}
	return int32(c), true
}

// cellRange: прямоугольник ячеек (включительно), покрытый bounding box.
type cellRange struct {
	xMin, xMax, zMin, zMax int32
}

// count returns the number of cells in r, saturating at MaxInt64.
func (r cellRange) count() int64 {
	w := int64(r.xMax) - int64(r.xMin) + 1
	h := int64(r.zMax) - int64(r.zMin) + 1
	if w > math.MaxInt64/h {
		return math.MaxInt64
	}
	return w * h
}

// rangeOf returns the cells b overlaps, or false if any corner lies outside
// the int32 cell space.
func rangeOf(b model.Bounds, cellSize int32) (cellRange, bool) {
	var r cellRange
	var ok [4]bool
	r.xMin, ok[0] = cellCoord(b.MinX, cellSize)
	r.xMax, ok[1] = cellCoord(b.MaxX, cellSize)
	r.zMin, ok[2] = cellCoord(b.MinZ, cellSize)
	r.zMax, ok[3] = cellCoord(b.MaxZ, cellSize)
	if !ok[0] || !ok[1] || !ok[2] || !ok[3] || r.xMin > r.xMax || r.zMin > r.zMax {
		return cellRange{}, false
	}
	return r, true
}

// IndexSelector picks one of the two parallel indices.
type IndexSelector uint8

const (
	// IndexAll holds every registered region.
	IndexAll IndexSelector = iota
	// IndexListeners holds only listener regions.
	IndexListeners
)

// CellIndex maps cells to the regions overlapping them. It keeps an index of
// all regions and one of listener regions, plus the number of listener regions
// per world. Not safe for concurrent use.
type CellIndex struct {
	cellSize  int32
	ordering  Ordering
	all       map[CellKey]*OrderedSet
	listeners map[CellKey]*OrderedSet

	listenerWorlds map[string]int
}

// NewCellIndex creates an empty index. Non-positive cellSize selects DefaultCellSize.
func NewCellIndex(cellSize int32, ordering Ordering) *CellIndex {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &CellIndex{
		cellSize:       cellSize,
		ordering:       ordering,
		all:            make(map[CellKey]*OrderedSet, 512),
		listeners:      make(map[CellKey]*OrderedSet, 512),
		listenerWorlds: make(map[string]int),
	}
}

// CellSize returns the cell edge length.
func (ci *CellIndex) CellSize() int32 { return ci.cellSize }

// CellSpan returns how many cells b overlaps. ok is false when b reaches
// outside the int32 cell space; such bounds are never indexed.
func (ci *CellIndex) CellSpan(b model.Bounds) (cells int64, ok bool) {
	r, ok := rangeOf(b, ci.cellSize)
	if !ok {
		return 0, false
	}
	return r.count(), true
}

// Register inserts snap under every cell its bounding box overlaps.
// Returns false if snap was already present in every cell.
func (ci *CellIndex) Register(snap *Snapshot) bool {
	added := false
	ci.eachCell(snap, func(key CellKey) {
		if addToMap(ci.all, key, snap, ci.ordering) {
			added = true
		}
		if snap.listener {
			addToMap(ci.listeners, key, snap, ci.ordering)
		}
	})

	if added && snap.listener {
		ci.listenerWorlds[snap.world]++
	}
	return added
}

// Unregister removes snap from every cell of both indices. The world listener
// counter is decremented once if snap was a listener found in at least one cell.
func (ci *CellIndex) Unregister(snap *Snapshot) bool {
	removed := false
	removedListener := false
	ci.eachCell(snap, func(key CellKey) {
		if removeFromMap(ci.all, key, snap) {
			removed = true
		}
		if removeFromMap(ci.listeners, key, snap) {
			removedListener = true
		}
	})

	if removedListener {
		if n := ci.listenerWorlds[snap.world] - 1; n > 0 {
			ci.listenerWorlds[snap.world] = n
		} else {
			delete(ci.listenerWorlds, snap.world)
		}
	}
	return removed || removedListener
}

// RegionsInCell returns the set stored for key in the selected index.
// Never nil: an empty read-only set is returned for empty cells.
func (ci *CellIndex) RegionsInCell(key CellKey, sel IndexSelector) *OrderedSet {
	m := ci.all
	if sel == IndexListeners {
		m = ci.listeners
	}
	if set, ok := m[key]; ok {
		return set
	}
	return emptySet
}

// HasListeners reports whether world has at least one listener region.
func (ci *CellIndex) HasListeners(world string) bool {
	return ci.listenerWorlds[world] > 0
}

// ListenerWorlds returns the worlds with listener regions, sorted by name.
func (ci *CellIndex) ListenerWorlds() []string {
	worlds := make([]string, 0, len(ci.listenerWorlds))
	for w := range ci.listenerWorlds {
		worlds = append(worlds, w)
	}
	sort.Strings(worlds)
	return worlds
}

// CellCount returns the number of non-empty cells in the selected index.
func (ci *CellIndex) CellCount(sel IndexSelector) int {
	if sel == IndexListeners {
		return len(ci.listeners)
	}
	return len(ci.all)
}

// eachCell calls fn for every cell the bounding box of snap overlaps. Bounds
// outside the int32 cell space visit no cell.
func (ci *CellIndex) eachCell(snap *Snapshot, fn func(CellKey)) {
	r, ok := rangeOf(snap.bounds, ci.cellSize)
	if !ok {
		return
	}

	// int64: xMax может быть равен MaxInt32.
	for x := int64(r.xMin); x <= int64(r.xMax); x++ {
		for z := int64(r.zMin); z <= int64(r.zMax); z++ {
			fn(CellKey{World: snap.world, X: int32(x), Z: int32(z)})
		}
	}
}

func addToMap(m map[CellKey]*OrderedSet, key CellKey, snap *Snapshot, ordering Ordering) bool {
	set, ok := m[key]
	if !ok {
		set = NewOrderedSet(ordering, 5)
		m[key] = set
	}
	return set.Add(snap)
}

// removeFromMap удаляет snap из ячейки и удаляет пустую ячейку.
func removeFromMap(m map[CellKey]*OrderedSet, key CellKey, snap *Snapshot) bool {
	set, ok := m[key]
	if !ok {
		return false
	}
	removed := set.Remove(snap)
	if set.Len() == 0 {
		delete(m, key)
	}
	return removed
}
