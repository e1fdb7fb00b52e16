package region

import (
	"sort"

	"github.com/udisondev/regionwatch/internal/model"
)

// Kind distinguishes enter from leave transitions.
type Kind uint8

const (
	KindEnter Kind = iota + 1
	KindLeave
)

func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "ENTER"
	case KindLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// Event is one computed transition waiting to be dispatched on the main thread.
// EnterReason is set for enter events, LeaveReason for leave events.
type Event struct {
	Kind        Kind
	Player      model.PlayerID
	Region      *Snapshot
	EnterReason model.EnterReason
	LeaveReason model.LeaveReason
}

// Reason returns the reason of the event as text.
func (e Event) Reason() string {
	if e.Kind == KindEnter {
		return e.EnterReason.String()
	}
	return e.LeaveReason.String()
}

// Tracker caches, per player, the regions the player was last resolved into
// and diffs new resolutions against it. Not safe for concurrent use.
type Tracker struct {
	ordering Ordering
	members  map[model.PlayerID]*OrderedSet
}

// NewTracker creates an empty tracker.
func NewTracker(ordering Ordering) *Tracker {
	return &Tracker{
		ordering: ordering,
		members:  make(map[model.PlayerID]*OrderedSet, 256),
	}
}

// Diff compares contained (in enter order) with the cached membership of p.
// Regions not cached produce enter events and are cached immediately; cached
// regions missing from contained then produce leave events in leave order and
// are dropped immediately. Resolving the same location twice emits nothing.
func (t *Tracker) Diff(p model.PlayerID, contained []*Snapshot, reason model.Reason) []Event {
	cached, ok := t.members[p]
	if !ok {
		cached = NewOrderedSet(t.ordering, 7)
		t.members[p] = cached
	}

	var events []Event

	for _, snap := range contained {
		if cached.Add(snap) {
			events = append(events, Event{
				Kind:        KindEnter,
				Player:      p,
				Region:      snap,
				EnterReason: reason.EnterReason(),
			})
		}
	}

	if cached.Len() == len(contained) {
		return events
	}

	inside := make(map[*Snapshot]struct{}, len(contained))
	for _, snap := range contained {
		inside[snap] = struct{}{}
	}

	for _, snap := range cached.Slice(OrderLeave) {
		if _, ok := inside[snap]; ok {
			continue
		}
		cached.Remove(snap)
		events = append(events, Event{
			Kind:        KindLeave,
			Player:      p,
			Region:      snap,
			LeaveReason: reason.LeaveReason(),
		})
	}

	return events
}

// Clear emits a leave event for every cached region of p in leave order and
// forgets p entirely. Unknown players produce no events.
func (t *Tracker) Clear(p model.PlayerID, reason model.LeaveReason) []Event {
	cached, ok := t.members[p]
	if !ok {
		return nil
	}
	delete(t.members, p)

	events := make([]Event, 0, cached.Len())
	cached.Each(OrderLeave, func(snap *Snapshot) bool {
		events = append(events, Event{
			Kind:        KindLeave,
			Player:      p,
			Region:      snap,
			LeaveReason: reason,
		})
		return true
	})
	return events
}

// Reset forgets that p is inside the region with regionID without emitting a
// leave, so the next resolution enters it again.
func (t *Tracker) Reset(p model.PlayerID, regionID string) bool {
	cached, ok := t.members[p]
	if !ok {
		return false
	}
	_, removed := cached.RemoveID(regionID)
	return removed
}

// Purge silently drops snap from every player's membership.
// Used when a region is unregistered.
func (t *Tracker) Purge(snap *Snapshot) int {
	n := 0
	for _, cached := range t.members {
		if cached.Remove(snap) {
			n++
		}
	}
	return n
}

// Replace swaps old for next in every membership holding old, so players
// inside a redefined region are not entered again. Returns how many
// memberships were carried over.
func (t *Tracker) Replace(old, next *Snapshot) int {
	n := 0
	for _, cached := range t.members {
		if cached.Remove(old) {
			cached.Add(next)
			n++
		}
	}
	return n
}

// Has reports whether p has a membership cache.
func (t *Tracker) Has(p model.PlayerID) bool {
	_, ok := t.members[p]
	return ok
}

// Regions returns the cached regions of p in enter order.
func (t *Tracker) Regions(p model.PlayerID) []*Snapshot {
	cached, ok := t.members[p]
	if !ok {
		return nil
	}
	return cached.Slice(OrderEnter)
}

// Players returns the tracked players sorted by id.
func (t *Tracker) Players() []model.PlayerID {
	players := make([]model.PlayerID, 0, len(t.members))
	for p := range t.members {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i] < players[j] })
	return players
}

// Len returns the number of tracked players.
func (t *Tracker) Len() int { return len(t.members) }
