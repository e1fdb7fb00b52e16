package region

import (
	"sort"
	"sync"

	"github.com/udisondev/regionwatch/internal/model"
)

// PlayerFunc is the callback signature for BasicRegion enter/leave hooks.
type PlayerFunc func(p model.PlayerID, reason string) error

// BasicRegion is a ready-made Region that keeps the set of players inside it.
// Callers set hooks with OnEnter/OnLeave before registering it.
type BasicRegion struct {
	id            string
	name          string
	world         string
	enterPriority int
	leavePriority int
	listener      bool

	mu      sync.RWMutex
	bounds  model.Bounds
	defined bool

	// Key: model.PlayerID, Value: struct{}.
	players sync.Map

	onEnterFn PlayerFunc
	onLeaveFn PlayerFunc
}

// NewBasicRegion creates a listener region without bounds. Call Define before
// registering it.
func NewBasicRegion(id, name, world string) *BasicRegion {
	return &BasicRegion{
		id:       id,
		name:     name,
		world:    world,
		listener: true,
	}
}

// Define sets the cuboid of the region. Changing bounds of a registered region
// takes effect on the next Register.
func (r *BasicRegion) Define(b model.Bounds) *BasicRegion {
	r.mu.Lock()
	r.bounds = b
	r.defined = true
	r.mu.Unlock()
	return r
}

// WithPriorities sets enter and leave priorities.
func (r *BasicRegion) WithPriorities(enter, leave int) *BasicRegion {
	r.enterPriority = enter
	r.leavePriority = leave
	return r
}

// WithListener marks whether the region receives enter/leave callbacks.
func (r *BasicRegion) WithListener(listener bool) *BasicRegion {
	r.listener = listener
	return r
}

// OnEnter sets the enter hook.
func (r *BasicRegion) OnEnter(fn PlayerFunc) *BasicRegion {
	r.onEnterFn = fn
	return r
}

// OnLeave sets the leave hook.
func (r *BasicRegion) OnLeave(fn PlayerFunc) *BasicRegion {
	r.onLeaveFn = fn
	return r
}

func (r *BasicRegion) ID() string         { return r.id }
func (r *BasicRegion) Name() string       { return r.name }
func (r *BasicRegion) World() string      { return r.world }
func (r *BasicRegion) EnterPriority() int { return r.enterPriority }
func (r *BasicRegion) LeavePriority() int { return r.leavePriority }
func (r *BasicRegion) IsListener() bool   { return r.listener }

// Bounds returns the cuboid, or false while the region is undefined.
func (r *BasicRegion) Bounds() (model.Bounds, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bounds, r.defined
}

// OnPlayerEnter tracks p and runs the enter hook. A hook error untracks p again.
func (r *BasicRegion) OnPlayerEnter(p model.PlayerID, reason model.EnterReason) error {
	if _, loaded := r.players.LoadOrStore(p, struct{}{}); loaded {
		return nil
	}
	if r.onEnterFn == nil {
		return nil
	}
	if err := r.onEnterFn(p, reason.String()); err != nil {
		r.players.Delete(p)
		return err
	}
	return nil
}

// OnPlayerLeave untracks p and runs the leave hook if p was inside.
func (r *BasicRegion) OnPlayerLeave(p model.PlayerID, reason model.LeaveReason) error {
	if _, loaded := r.players.LoadAndDelete(p); !loaded {
		return nil
	}
	if r.onLeaveFn == nil {
		return nil
	}
	return r.onLeaveFn(p, reason.String())
}

// Contains reports whether p is tracked inside the region.
func (r *BasicRegion) Contains(p model.PlayerID) bool {
	_, ok := r.players.Load(p)
	return ok
}

// Players returns the players inside, sorted by id.
func (r *BasicRegion) Players() []model.PlayerID {
	var result []model.PlayerID
	r.players.Range(func(key, _ any) bool {
		if p, ok := key.(model.PlayerID); ok {
			result = append(result, p)
		}
		return true
	})
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// PlayerCount returns the number of players inside.
func (r *BasicRegion) PlayerCount() int {
	count := 0
	r.players.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
