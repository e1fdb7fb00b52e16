package region

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/scheduler"
)

// World is the read-only view of the simulation the sampler polls. It is only
// called from the main thread.
type World interface {
	// Worlds returns the worlds that currently have players in them.
	Worlds() []string
	// PlayersIn returns the players present in world.
	PlayersIn(world string) []model.PlayerID
	// PositionOf returns the position of p, or false if p has none (dead, untracked).
	PositionOf(p model.PlayerID) (model.Location, bool)
	// IsConnected reports whether p is still connected.
	IsConnected(p model.PlayerID) bool
	// IsLoaded reports whether world is loaded.
	IsLoaded(world string) bool
}

// DefaultMaxRegionCells is the cell budget of one region: 4096x4096 units
// with the default cell size.
const DefaultMaxRegionCells = 256 * 256

// Options configures a Manager.
type Options struct {
	CellSize       int32
	SampleInterval int // ticks between position samples
	ResolveDelay   int // ticks between sampling and the async resolution pass
	MaxRegionCells int // regions overlapping more cells are not registered
	Ordering       Ordering
	Sink           Sink
	Now            func() time.Time
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		CellSize:       DefaultCellSize,
		SampleInterval: 3,
		ResolveDelay:   1,
		MaxRegionCells: DefaultMaxRegionCells,
		Ordering:       PriorityOrdering,
		Sink:           nopSink{},
		Now:            time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CellSize <= 0 {
		o.CellSize = d.CellSize
	}
	if o.SampleInterval <= 0 {
		o.SampleInterval = d.SampleInterval
	}
	if o.ResolveDelay <= 0 {
		o.ResolveDelay = d.ResolveDelay
	}
	if o.MaxRegionCells <= 0 {
		o.MaxRegionCells = d.MaxRegionCells
	}
	if o.Ordering.enter == nil {
		o.Ordering = d.Ordering
	}
	if o.Sink == nil {
		o.Sink = d.Sink
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// registration binds a registered region to the snapshot indexed for it.
type registration struct {
	region Region
	snap   *Snapshot
}

// Stats is a point-in-time view of Manager counters.
type Stats struct {
	Regions        int
	TrackedPlayers int
	Dispatched     uint64
	Dropped        uint64
	SamplesDropped uint64
	HandlerErrors  uint64
	Passes         uint64
}

// Manager owns the cell index, the membership caches and the sampling
// pipeline. Construct one per world server with NewManager, call Start once
// the scheduler is running and Close on shutdown.
type Manager struct {
	sched scheduler.Scheduler
	world World
	opts  Options

	// mu guards index and tracker. Held for a whole resolution pass.
	mu       sync.Mutex
	index    *CellIndex
	tracker  *Tracker
	resolver Resolver

	// regMu guards regions, read on every dispatch.
	regMu   sync.RWMutex
	regions map[string]registration
	regSeq  uint64

	// listenerWorlds is republished after every index change so the sampler
	// never waits for mu.
	listenerWorlds atomic.Pointer[[]string]

	// unloadedWorlds is published on the main thread before each pass so the
	// worker can drop samples without touching World.
	unloadedWorlds atomic.Pointer[map[string]struct{}]

	// qmu guards sessions and passPending.
	qmu         sync.Mutex
	sessions    map[model.PlayerID]*session
	sampleSeq   uint64
	passPending bool

	samplerTask scheduler.Task
	closed      atomic.Bool

	dispatched    atomic.Uint64
	dropped        atomic.Uint64
	samplesDropped atomic.Uint64
	handlerErrors  atomic.Uint64
	passes         atomic.Uint64
}

// NewManager creates a manager using sched for all scheduling and world for sampling.
func NewManager(sched scheduler.Scheduler, world World, opts Options) *Manager {
	opts = opts.withDefaults()
	index := NewCellIndex(opts.CellSize, opts.Ordering)

	m := &Manager{
		sched:    sched,
		world:    world,
		opts:     opts,
		index:    index,
		tracker:  NewTracker(opts.Ordering),
		resolver: NewResolver(index),
		regions:  make(map[string]registration, 512),
		sessions: make(map[model.PlayerID]*session, 256),
	}
	m.listenerWorlds.Store(&[]string{})
	return m
}

// Start schedules the repeating position sampler.
func (m *Manager) Start() error {
	if m.closed.Load() {
		return fmt.Errorf("starting region manager: manager closed")
	}
	task, err := m.sched.RunRepeating(m.opts.SampleInterval, m.sample)
	if err != nil {
		return fmt.Errorf("scheduling region sampler: %w", err)
	}
	m.samplerTask = task

	slog.Info("region manager started",
		"sample_interval_ticks", m.opts.SampleInterval,
		"resolve_delay_ticks", m.opts.ResolveDelay,
		"cell_size", m.opts.CellSize,
		"max_region_cells", m.opts.MaxRegionCells,
		"ordering", m.opts.Ordering.Name())
	return nil
}

// Close stops sampling. Queued work still drains but records nothing new.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	if m.samplerTask != nil {
		m.samplerTask.Cancel()
	}
	slog.Info("region manager stopped", "regions", m.RegionCount())
}

// Register makes r discoverable in queries and, if it is a listener, a target
// of enter/leave callbacks. A region without defined bounds is skipped with a
// log message, as is one overlapping more than MaxRegionCells cells.
// Registering an id again replaces the previous registration; players inside
// the old listener region stay members of the new one and only get a leave if
// the new bounds no longer contain them.
func (m *Manager) Register(r Region) error {
	if r == nil {
		return ErrNilRegion
	}
	if r.ID() == "" {
		return ErrEmptyRegionID
	}

	bounds, ok := r.Bounds()
	if !ok {
		slog.Debug("failed to register region: coords undefined", "region", r.Name(), "id", r.ID())
		return nil
	}

	cells, ok := m.index.CellSpan(bounds)
	if !ok || cells > int64(m.opts.MaxRegionCells) {
		slog.Warn("failed to register region: too large for the cell index",
			"region", r.Name(),
			"id", r.ID(),
			"cells", cells,
			"max_cells", m.opts.MaxRegionCells)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.regMu.Lock()
	defer m.regMu.Unlock()

	m.regSeq++
	snap := newSnapshot(r, bounds, m.regSeq)

	carried := 0
	if old, ok := m.regions[r.ID()]; ok {
		m.index.Unregister(old.snap)
		if old.snap.listener && snap.listener {
			carried = m.tracker.Replace(old.snap, snap)
			old.snap.successor = snap
		} else {
			m.tracker.Purge(old.snap)
		}
	}

	m.index.Register(snap)
	m.regions[snap.id] = registration{region: r, snap: snap}
	m.publishListenerWorlds()
	m.forgetLastSamples()

	if IsDebugEnabled() {
		slog.Debug("region registered",
			"region", snap.name,
			"id", snap.id,
			"world", snap.world,
			"listener", snap.listener,
			"players_carried", carried)
	}
	return nil
}

// Unregister removes r from both indices and from every membership cache.
// Transitions already computed for it are dropped at dispatch.
func (m *Manager) Unregister(r Region) error {
	if r == nil {
		return ErrNilRegion
	}
	m.UnregisterID(r.ID())
	return nil
}

// UnregisterID removes the region registered under id. Returns false if none was.
func (m *Manager) UnregisterID(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regMu.Lock()
	defer m.regMu.Unlock()

	reg, ok := m.regions[id]
	if !ok {
		return false
	}
	delete(m.regions, id)
	m.index.Unregister(reg.snap)
	purged := m.tracker.Purge(reg.snap)
	m.publishListenerWorlds()
	m.forgetLastSamples()

	if IsDebugEnabled() {
		slog.Debug("region unregistered", "region", reg.snap.name, "id", id, "players_purged", purged)
	}
	return true
}

// publishListenerWorlds must be called with mu held.
func (m *Manager) publishListenerWorlds() {
	worlds := m.index.ListenerWorlds()
	m.listenerWorlds.Store(&worlds)
}

// RegionCount returns the number of registered regions.
func (m *Manager) RegionCount() int {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	return len(m.regions)
}

// Region returns the registered region with id.
func (m *Manager) Region(id string) (Region, bool) {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	reg, ok := m.regions[id]
	return reg.region, ok
}

// Regions returns every registered region containing loc, in enter order.
func (m *Manager) Regions(loc model.Location) []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolver.Resolve(loc, IndexAll, OrderEnter)
}

// ListenerRegions returns the listener regions containing loc in the given order.
func (m *Manager) ListenerRegions(loc model.Location, order Order) []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolver.Resolve(loc, IndexListeners, order)
}

// RegionsInCell returns every region overlapping the cell (cx, cz) of world.
func (m *Manager) RegionsInCell(world string, cx, cz int32) []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index.RegionsInCell(CellKey{World: world, X: cx, Z: cz}, IndexAll).Slice(OrderEnter)
}

// ListenerWorlds returns the worlds that have at least one listener region.
func (m *Manager) ListenerWorlds() []string {
	return *m.listenerWorlds.Load()
}

// PlayerRegions returns the regions p is currently believed to be in.
func (m *Manager) PlayerRegions(p model.PlayerID) []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Regions(p)
}

// HasPlayer reports whether p has a membership cache.
func (m *Manager) HasPlayer(p model.PlayerID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Has(p)
}

// ResetPlayerRegion forgets that p is inside region id without a leave
// notification, so the next resolution fires enter again.
func (m *Manager) ResetPlayerRegion(p model.PlayerID, id string) (bool, error) {
	if p == "" {
		return false, ErrInvalidPlayer
	}

	m.mu.Lock()
	removed := m.tracker.Reset(p, id)
	m.mu.Unlock()

	m.qmu.Lock()
	if s, ok := m.sessions[p]; ok {
		s.hasLast = false
	}
	m.qmu.Unlock()

	return removed, nil
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	tracked := m.tracker.Len()
	m.mu.Unlock()

	return Stats{
		Regions:        m.RegionCount(),
		TrackedPlayers: tracked,
		Dispatched:     m.dispatched.Load(),
		Dropped:        m.dropped.Load(),
		SamplesDropped: m.samplesDropped.Load(),
		HandlerErrors:  m.handlerErrors.Load(),
		Passes:         m.passes.Load(),
	}
}
