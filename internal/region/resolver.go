package region

import "github.com/udisondev/regionwatch/internal/model"

// Resolver finds the regions of an index that contain a location.
type Resolver struct {
	index *CellIndex
}

// NewResolver creates a resolver over index.
func NewResolver(index *CellIndex) Resolver {
	return Resolver{index: index}
}

// Resolve returns the regions of the selected index containing loc, in the
// requested order. Only the cell of loc is consulted: every region overlapping
// that cell is stored in it.
func (r Resolver) Resolve(loc model.Location, sel IndexSelector, order Order) []*Snapshot {
	set := r.index.RegionsInCell(CellOf(loc, r.index.cellSize), sel)
	if set.Len() == 0 {
		return nil
	}

	var result []*Snapshot
	set.Each(order, func(snap *Snapshot) bool {
		if snap.Contains(loc) {
			result = append(result, snap)
		}
		return true
	})
	return result
}
