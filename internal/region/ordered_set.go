package region

import "slices"

// OrderedSet holds region snapshots with O(1) membership and iteration in
// either enter or leave order. Not safe for concurrent use; the Manager lock
// guards every set it owns.
type OrderedSet struct {
	ordering Ordering
	members  map[*Snapshot]struct{}
	enter    []*Snapshot
	leave    []*Snapshot
	readOnly bool
}

// emptySet возвращается для ячеек без регионов и никогда не принимает элементы.
var emptySet = &OrderedSet{readOnly: true}

// NewOrderedSet creates an empty set ordered by ordering.
func NewOrderedSet(ordering Ordering, capacity int) *OrderedSet {
	return &OrderedSet{
		ordering: ordering,
		members:  make(map[*Snapshot]struct{}, capacity),
		enter:    make([]*Snapshot, 0, capacity),
		leave:    make([]*Snapshot, 0, capacity),
	}
}

// Len returns the number of members.
func (s *OrderedSet) Len() int { return len(s.members) }

// Contains reports whether snap is a member.
func (s *OrderedSet) Contains(snap *Snapshot) bool {
	_, ok := s.members[snap]
	return ok
}

// Add inserts snap keeping both orders sorted. Returns false if already present.
func (s *OrderedSet) Add(snap *Snapshot) bool {
	if s.readOnly || snap == nil || s.Contains(snap) {
		return false
	}
	s.members[snap] = struct{}{}
	s.enter = s.insert(s.enter, OrderEnter, snap)
	s.leave = s.insert(s.leave, OrderLeave, snap)
	return true
}

// Remove deletes snap. Returns false if it was not a member.
func (s *OrderedSet) Remove(snap *Snapshot) bool {
	if s.readOnly || !s.Contains(snap) {
		return false
	}
	delete(s.members, snap)
	s.enter = s.delete(s.enter, OrderEnter, snap)
	s.leave = s.delete(s.leave, OrderLeave, snap)
	return true
}

// RemoveID deletes the member with the given region id, if any.
func (s *OrderedSet) RemoveID(id string) (*Snapshot, bool) {
	for _, snap := range s.enter {
		if snap.id == id {
			return snap, s.Remove(snap)
		}
	}
	return nil, false
}

// Slice returns a copy of the members in the requested order.
func (s *OrderedSet) Slice(order Order) []*Snapshot {
	return slices.Clone(s.view(order))
}

// Each вызывает fn для каждого элемента по порядку, пока fn не вернёт false.
// fn не должна изменять множество.
func (s *OrderedSet) Each(order Order, fn func(*Snapshot) bool) {
	for _, snap := range s.view(order) {
		if !fn(snap) {
			return
		}
	}
}

func (s *OrderedSet) view(order Order) []*Snapshot {
	if order == OrderLeave {
		return s.leave
	}
	return s.enter
}

func (s *OrderedSet) insert(list []*Snapshot, order Order, snap *Snapshot) []*Snapshot {
	i, _ := slices.BinarySearchFunc(list, snap, func(a, b *Snapshot) int {
		return s.ordering.Compare(order, a, b)
	})
	return slices.Insert(list, i, snap)
}

func (s *OrderedSet) delete(list []*Snapshot, order Order, snap *Snapshot) []*Snapshot {
	i, found := slices.BinarySearchFunc(list, snap, func(a, b *Snapshot) int {
		return s.ordering.Compare(order, a, b)
	})
	if found && list[i] == snap {
		return slices.Delete(list, i, i+1)
	}
	// Fallback when the comparator cannot tell two snapshots apart.
	if j := slices.Index(list, snap); j >= 0 {
		return slices.Delete(list, j, j+1)
	}
	return list
}
