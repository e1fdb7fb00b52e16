package region

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/scheduler"
)

const testWorld = "overworld"

// fakeWorld is an in-memory World for driving the sampler from tests.
type fakeWorld struct {
	mu        sync.Mutex
	positions map[model.PlayerID]model.Location
	connected map[model.PlayerID]bool
	unloaded  map[string]bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		positions: make(map[model.PlayerID]model.Location),
		connected: make(map[model.PlayerID]bool),
		unloaded:  make(map[string]bool),
	}
}

// unload hides world and the players in it, like world.World.UnloadWorld.
func (w *fakeWorld) unload(world string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unloaded[world] = true
}

func (w *fakeWorld) load(world string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.unloaded, world)
}

func (w *fakeWorld) join(p model.PlayerID, loc model.Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.positions[p] = loc
	w.connected[p] = true
}

func (w *fakeWorld) move(p model.PlayerID, x, y, z float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	loc := w.positions[p]
	w.positions[p] = loc.WithCoordinates(x, y, z)
}

func (w *fakeWorld) kill(p model.PlayerID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.positions, p)
}

func (w *fakeWorld) quit(p model.PlayerID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.positions, p)
	delete(w.connected, p)
}

func (w *fakeWorld) Worlds() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]struct{})
	for _, loc := range w.positions {
		if !w.unloaded[loc.World] {
			seen[loc.World] = struct{}{}
		}
	}
	worlds := make([]string, 0, len(seen))
	for name := range seen {
		worlds = append(worlds, name)
	}
	sort.Strings(worlds)
	return worlds
}

func (w *fakeWorld) PlayersIn(world string) []model.PlayerID {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unloaded[world] {
		return nil
	}
	var players []model.PlayerID
	for p, loc := range w.positions {
		if loc.World == world {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i] < players[j] })
	return players
}

func (w *fakeWorld) PositionOf(p model.PlayerID) (model.Location, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	loc, ok := w.positions[p]
	if !ok || w.unloaded[loc.World] {
		return model.Location{}, false
	}
	return loc, true
}

func (w *fakeWorld) IsConnected(p model.PlayerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected[p]
}

func (w *fakeWorld) IsLoaded(world string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.unloaded[world]
}

// eventLog collects handler calls of every testRegion sharing it.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	l.entries = append(l.entries, s)
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// testRegion records "ENTER name player REASON" and "LEAVE ..." entries.
type testRegion struct {
	id, name, world string
	bounds          model.Bounds
	defined         bool
	enterPrio       int
	leavePrio       int
	listener        bool
	log             *eventLog

	enterErr   error
	enterPanic bool
}

func newTestRegion(log *eventLog, id string, b model.Bounds, prio int) *testRegion {
	return &testRegion{
		id:        id,
		name:      id,
		world:     testWorld,
		bounds:    b,
		defined:   true,
		enterPrio: prio,
		leavePrio: prio,
		listener:  true,
		log:       log,
	}
}

func (r *testRegion) ID() string                   { return r.id }
func (r *testRegion) Name() string                 { return r.name }
func (r *testRegion) World() string                { return r.world }
func (r *testRegion) Bounds() (model.Bounds, bool) { return r.bounds, r.defined }
func (r *testRegion) EnterPriority() int           { return r.enterPrio }
func (r *testRegion) LeavePriority() int           { return r.leavePrio }
func (r *testRegion) IsListener() bool             { return r.listener }

func (r *testRegion) OnPlayerEnter(p model.PlayerID, reason model.EnterReason) error {
	if r.enterPanic {
		panic("boom")
	}
	if r.enterErr != nil {
		return r.enterErr
	}
	r.log.add(fmt.Sprintf("ENTER %s %s %s", r.name, p, reason))
	return nil
}

func (r *testRegion) OnPlayerLeave(p model.PlayerID, reason model.LeaveReason) error {
	r.log.add(fmt.Sprintf("LEAVE %s %s %s", r.name, p, reason))
	return nil
}

// gatedRegion refuses enter handling for blocked players.
type gatedRegion struct {
	*testRegion
	blocked model.PlayerID
}

func (r *gatedRegion) CanPlayerEnter(p model.PlayerID, _ model.EnterReason) bool {
	return p != r.blocked
}

// recordingSink keeps every transition it receives.
type recordingSink struct {
	mu  sync.Mutex
	got []Transition
}

func (s *recordingSink) Notify(tr Transition) {
	s.mu.Lock()
	s.got = append(s.got, tr)
	s.mu.Unlock()
}

func (s *recordingSink) transitions() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transition(nil), s.got...)
}

// newTestManager builds a started manager sampling every tick with a one tick
// resolve delay, so two ticks always carry a movement through dispatch.
func newTestManager(t *testing.T, world World, opts Options) (*Manager, *scheduler.Manual) {
	t.Helper()
	sched := scheduler.NewManual()
	opts.SampleInterval = 1
	opts.ResolveDelay = 1
	m := NewManager(sched, world, opts)
	require.NoError(t, m.Start())
	t.Cleanup(m.Close)
	return m, sched
}

func cube(x1, y1, z1, x2, y2, z2 float64) model.Bounds {
	return model.NewBounds(x1, y1, z1, x2, y2, z2)
}

func at(x, y, z float64) model.Location {
	return model.NewLocation(testWorld, x, y, z)
}

// snap builds a snapshot without going through a manager.
func snap(id string, b model.Bounds, enterPrio, leavePrio int, seq uint64) *Snapshot {
	return &Snapshot{
		id:            id,
		name:          id,
		world:         testWorld,
		bounds:        b,
		enterPriority: enterPrio,
		leavePriority: leavePrio,
		listener:      true,
		seq:           seq,
	}
}

func ids(snaps []*Snapshot) []string {
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.ID())
	}
	return out
}
