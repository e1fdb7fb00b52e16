// Package region tracks which registered cuboid regions the connected players
// occupy and fires ordered enter/leave notifications when occupancy changes.
//
// Player positions are sampled on the main thread, resolved against a cell
// index on a worker, and the resulting transitions are dispatched back on the
// main thread.
package region

import (
	"errors"

	"github.com/udisondev/regionwatch/internal/model"
)

var (
	// ErrNilRegion is returned when a nil region is registered or unregistered.
	ErrNilRegion = errors.New("region: nil region")
	// ErrEmptyRegionID is returned for a region without identifier.
	ErrEmptyRegionID = errors.New("region: empty region id")
	// ErrInvalidPlayer is returned for an empty player identifier.
	ErrInvalidPlayer = errors.New("region: invalid player id")
	// ErrInvalidLocation is returned for a location without world or with non-finite coordinates.
	ErrInvalidLocation = errors.New("region: invalid location")
	// ErrInvalidReason is returned for an unknown reason code.
	ErrInvalidReason = errors.New("region: invalid reason")
)

// Region is implemented by externally owned region objects. The manager only
// reads geometry at registration time and calls the handlers on the main thread.
type Region interface {
	ID() string
	Name() string
	World() string
	// Bounds returns the region cuboid, or false while its corners are undefined.
	Bounds() (model.Bounds, bool)
	EnterPriority() int
	LeavePriority() int
	// IsListener reports whether the region wants enter/leave callbacks.
	IsListener() bool

	OnPlayerEnter(p model.PlayerID, reason model.EnterReason) error
	OnPlayerLeave(p model.PlayerID, reason model.LeaveReason) error
}

// EnterGate is optionally implemented by a Region to suppress enter handling.
// Membership is updated either way.
type EnterGate interface {
	CanPlayerEnter(p model.PlayerID, reason model.EnterReason) bool
}

// LeaveGate is optionally implemented by a Region to suppress leave handling.
type LeaveGate interface {
	CanPlayerLeave(p model.PlayerID, reason model.LeaveReason) bool
}

// Snapshot is the immutable view of a region captured when it was registered.
// Index cells and membership caches hold snapshots, never the region itself.
// successor is the only mutable field: it is set once, under the manager's
// registry lock, when the id is registered again.
type Snapshot struct {
	id            string
	name          string
	world         string
	bounds        model.Bounds
	enterPriority int
	leavePriority int
	listener      bool
	seq           uint64 // registration order

	successor *Snapshot
}

func newSnapshot(r Region, bounds model.Bounds, seq uint64) *Snapshot {
	return &Snapshot{
		id:            r.ID(),
		name:          r.Name(),
		world:         r.World(),
		bounds:        bounds,
		enterPriority: r.EnterPriority(),
		leavePriority: r.LeavePriority(),
		listener:      r.IsListener(),
		seq:           seq,
	}
}

// ID returns the region identifier.
func (s *Snapshot) ID() string { return s.id }

// Name returns the region display name.
func (s *Snapshot) Name() string { return s.name }

// World returns the world the region is placed in.
func (s *Snapshot) World() string { return s.world }

// Bounds returns the region cuboid.
func (s *Snapshot) Bounds() model.Bounds { return s.bounds }

// EnterPriority returns the priority used to order enter notifications.
func (s *Snapshot) EnterPriority() int { return s.enterPriority }

// LeavePriority returns the priority used to order leave notifications.
func (s *Snapshot) LeavePriority() int { return s.leavePriority }

// IsListener reports whether the region receives enter/leave callbacks.
func (s *Snapshot) IsListener() bool { return s.listener }

// Seq returns the registration sequence number.
func (s *Snapshot) Seq() uint64 { return s.seq }

// Contains reports whether loc is in the region's world and inside its cuboid.
func (s *Snapshot) Contains(loc model.Location) bool {
	return loc.World == s.world && s.bounds.Contains(loc.X, loc.Y, loc.Z)
}

func (s *Snapshot) String() string { return s.name + "#" + s.id }
