package region

import (
	"cmp"
	"fmt"
)

// Order selects which of the two orders of an Ordering to iterate in.
type Order uint8

const (
	OrderEnter Order = iota
	OrderLeave
)

func (o Order) String() string {
	if o == OrderLeave {
		return "leave"
	}
	return "enter"
}

// Ordering is a total order over regions sharing a cell, one for enter and one
// for leave notifications. Ties always fall back to registration order
// (ascending for enter, descending for leave) so iteration is deterministic.
type Ordering struct {
	name  string
	enter func(a, b *Snapshot) int
	leave func(a, b *Snapshot) int
}

// Name returns the policy name as used in configuration.
func (o Ordering) Name() string { return o.name }

// Compare compares a and b in the given order.
func (o Ordering) Compare(order Order, a, b *Snapshot) int {
	if order == OrderLeave {
		if c := o.leave(a, b); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	}
	if c := o.enter(a, b); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// PriorityOrdering enters higher EnterPriority regions first and leaves lower
// LeavePriority regions first.
var PriorityOrdering = Ordering{
	name: "priority",
	enter: func(a, b *Snapshot) int {
		return cmp.Compare(b.enterPriority, a.enterPriority)
	},
	leave: func(a, b *Snapshot) int {
		return cmp.Compare(a.leavePriority, b.leavePriority)
	},
}

// VolumeOrdering enters the smallest region first and leaves the largest first.
var VolumeOrdering = Ordering{
	name: "volume",
	enter: func(a, b *Snapshot) int {
		return cmp.Compare(a.bounds.Volume(), b.bounds.Volume())
	},
	leave: func(a, b *Snapshot) int {
		return cmp.Compare(b.bounds.Volume(), a.bounds.Volume())
	},
}

// ParseOrdering returns the ordering policy with the given name.
// Empty name selects PriorityOrdering.
func ParseOrdering(name string) (Ordering, error) {
	switch name {
	case "", PriorityOrdering.name:
		return PriorityOrdering, nil
	case VolumeOrdering.name:
		return VolumeOrdering, nil
	default:
		return Ordering{}, fmt.Errorf("unknown region ordering %q", name)
	}
}
