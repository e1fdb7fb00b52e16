package region

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/udisondev/regionwatch/internal/model"
)

// Sample is one recorded location of a player waiting for resolution.
type Sample struct {
	Player   model.PlayerID
	Location model.Location
	Reason   model.Reason
	Seq      uint64
}

// session holds the pending samples of one connected player. A closed session
// belongs to a player that disconnected; its samples are never resolved.
type session struct {
	id      model.PlayerID
	samples []Sample
	closed  bool

	last    model.Location
	hasLast bool
}

// UpdateLocation records a location of p to be resolved by the next pass, e.g.
// after a teleport or respawn. The sampler records movement on its own.
// Must be called on the main thread; players the world reports as
// disconnected are ignored.
func (m *Manager) UpdateLocation(p model.PlayerID, loc model.Location, reason model.Reason) error {
	if p == "" {
		return ErrInvalidPlayer
	}
	if !loc.IsValid() {
		return fmt.Errorf("updating location of %s: %w", p, ErrInvalidLocation)
	}
	if !reason.IsValid() {
		return fmt.Errorf("updating location of %s: %w", p, ErrInvalidReason)
	}
	if m.closed.Load() || !m.world.IsConnected(p) {
		return nil
	}

	m.qmu.Lock()
	m.enqueueLocked(p, loc, reason)
	m.qmu.Unlock()

	m.schedulePass()
	return nil
}

// LeaveAll declares that p left every region it was in, e.g. on death, and
// discards its pending samples. The player stays tracked.
func (m *Manager) LeaveAll(p model.PlayerID, reason model.LeaveReason) error {
	if p == "" {
		return ErrInvalidPlayer
	}
	if !reason.IsValid() {
		return fmt.Errorf("leaving regions of %s: %w", p, ErrInvalidReason)
	}

	m.qmu.Lock()
	if s, ok := m.sessions[p]; ok {
		s.samples = nil
		s.hasLast = false
	}
	m.qmu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.tracker.Clear(p, reason)
	m.flushLocked(events)
	return nil
}

// Disconnect voids the pending samples of p, emits a disconnect leave for
// every region p was in and forgets p. Calling it again is a no-op.
func (m *Manager) Disconnect(p model.PlayerID) error {
	if p == "" {
		return ErrInvalidPlayer
	}

	m.qmu.Lock()
	if s, ok := m.sessions[p]; ok {
		s.closed = true
		s.samples = nil
		delete(m.sessions, p)
	}
	m.qmu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.tracker.Clear(p, model.LeaveDisconnect)
	m.flushLocked(events)

	if len(events) > 0 && IsDebugEnabled() {
		slog.Debug("player disconnected from regions", "player", p, "regions", len(events))
	}
	return nil
}

// forgetLastSamples makes the sampler record every player again on its next
// run, so stationary players are resolved against a changed index.
func (m *Manager) forgetLastSamples() {
	m.qmu.Lock()
	for _, s := range m.sessions {
		s.hasLast = false
	}
	m.qmu.Unlock()
}

// enqueueLocked must be called with qmu held.
func (m *Manager) enqueueLocked(p model.PlayerID, loc model.Location, reason model.Reason) {
	s, ok := m.sessions[p]
	if !ok {
		s = &session{id: p}
		m.sessions[p] = s
	}
	m.sampleSeq++
	s.samples = append(s.samples, Sample{
		Player:   p,
		Location: loc,
		Reason:   reason,
		Seq:      m.sampleSeq,
	})
	s.last = loc
	s.hasLast = true
}

// sample is the repeating main thread task. It expires players the world no
// longer reports as connected, then records the position of every player in a
// world with listener regions.
func (m *Manager) sample() {
	if m.closed.Load() {
		return
	}

	m.expireDisconnected()

	listenerWorlds := m.ListenerWorlds()
	if len(listenerWorlds) == 0 {
		return
	}

	present := make(map[string]struct{})
	for _, w := range m.world.Worlds() {
		present[w] = struct{}{}
	}

	recorded := 0

	m.qmu.Lock()
	for _, w := range listenerWorlds {
		if _, ok := present[w]; !ok {
			continue
		}
		for _, p := range m.world.PlayersIn(w) {
			loc, ok := m.world.PositionOf(p)
			if !ok || !loc.IsValid() {
				continue
			}
			if s, ok := m.sessions[p]; ok && s.hasLast && s.last == loc {
				continue
			}
			m.enqueueLocked(p, loc, model.ReasonMove)
			recorded++
		}
	}
	m.qmu.Unlock()

	if recorded == 0 {
		return
	}

	if IsDebugEnabled() {
		slog.Debug("player locations sampled", "samples", recorded, "worlds", len(listenerWorlds))
	}

	m.schedulePass()
}

// expireDisconnected disconnects tracked players the world forgot about.
func (m *Manager) expireDisconnected() {
	m.qmu.Lock()
	ids := make([]model.PlayerID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.qmu.Unlock()

	for _, id := range ids {
		if !m.world.IsConnected(id) {
			_ = m.Disconnect(id)
		}
	}
}

// schedulePass arms one resolution pass on a worker after the resolve delay.
// At most one pass is pending at a time.
func (m *Manager) schedulePass() {
	m.qmu.Lock()
	if m.passPending {
		m.qmu.Unlock()
		return
	}
	m.passPending = true
	m.qmu.Unlock()

	_, err := m.sched.RunOnceDelayed(m.opts.ResolveDelay, m.launchPass)
	if err != nil {
		slog.Error("scheduling region resolution", "err", err)
		m.qmu.Lock()
		m.passPending = false
		m.qmu.Unlock()
	}
}

// launchPass runs on the main thread. It records which worlds of the pending
// samples are no longer loaded, then hands the pass to a worker.
func (m *Manager) launchPass() {
	worlds := make(map[string]struct{})
	m.qmu.Lock()
	for _, s := range m.sessions {
		for _, smp := range s.samples {
			worlds[smp.Location.World] = struct{}{}
		}
	}
	m.qmu.Unlock()

	unloaded := make(map[string]struct{})
	for w := range worlds {
		if !m.world.IsLoaded(w) {
			unloaded[w] = struct{}{}
		}
	}
	m.unloadedWorlds.Store(&unloaded)

	m.sched.RunOnWorker(m.resolvePass)
}

// resolvePass runs on a worker. It drains every pending sample in FIFO order
// per player, diffs the resolved listener regions against the cached
// membership and hands the resulting events to the main thread in one batch.
func (m *Manager) resolvePass() {
	type queued struct {
		s   *session
		seq uint64 // oldest sample
	}

	m.qmu.Lock()
	m.passPending = false
	pending := make([]queued, 0, len(m.sessions))
	for _, s := range m.sessions {
		if len(s.samples) > 0 {
			pending = append(pending, queued{s: s, seq: s.samples[0].Seq})
		}
	}
	m.qmu.Unlock()

	if len(pending) == 0 {
		return
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].seq < pending[j].seq
	})

	var unloaded map[string]struct{}
	if p := m.unloadedWorlds.Load(); p != nil {
		unloaded = *p
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var events []Event
	resolved, skipped := 0, 0

	for _, q := range pending {
		s := q.s
		m.qmu.Lock()
		if s.closed {
			m.qmu.Unlock()
			continue
		}
		samples := s.samples
		s.samples = nil
		m.qmu.Unlock()

		for _, smp := range samples {
			if _, gone := unloaded[smp.Location.World]; gone {
				skipped++
				m.qmu.Lock()
				s.hasLast = false
				m.qmu.Unlock()
				continue
			}
			contained := m.resolver.Resolve(smp.Location, IndexListeners, OrderEnter)
			events = append(events, m.tracker.Diff(s.id, contained, smp.Reason)...)
			resolved++
		}
	}

	m.passes.Add(1)
	if skipped > 0 {
		m.samplesDropped.Add(uint64(skipped))
	}
	if IsDebugEnabled() {
		slog.Debug("region resolution pass completed",
			"players", len(pending),
			"samples", resolved,
			"samples_dropped", skipped,
			"events", len(events))
	}

	m.flushLocked(events)
}

// flushLocked hands events to the main thread as one unit. Called with mu held
// so batches reach the main queue in the order their events were computed.
func (m *Manager) flushLocked(events []Event) {
	if len(events) == 0 {
		return
	}
	m.sched.RunOnMainThread(func() {
		for _, ev := range events {
			m.dispatch(ev)
		}
	})
}

// dispatch invokes the region handler for one event on the main thread.
// Events for a region re-registered since resolution go to its current
// registration; events for unregistered regions are dropped. Handler
// failures are logged and never affect other events.
func (m *Manager) dispatch(ev Event) {
	m.regMu.RLock()
	reg, ok := m.regions[ev.Region.id]
	cur := ev.Region
	for cur.successor != nil {
		cur = cur.successor
	}
	m.regMu.RUnlock()

	if !ok || reg.snap != cur {
		m.dropped.Add(1)
		if IsDebugEnabled() {
			slog.Debug("dropped transition for unregistered region",
				"region", ev.Region.name,
				"player", ev.Player,
				"kind", ev.Kind)
		}
		return
	}
	ev.Region = cur

	handled, err := m.invoke(reg.region, ev)
	if err != nil {
		m.handlerErrors.Add(1)
		slog.Warn("region handler failed",
			"region", ev.Region.name,
			"region_id", ev.Region.id,
			"player", ev.Player,
			"kind", ev.Kind,
			"reason", ev.Reason(),
			"err", err)
		return
	}
	if !handled {
		return
	}

	m.dispatched.Add(1)
	m.opts.Sink.Notify(newTransition(ev, m.opts.Now()))
}

// invoke calls the handler for ev, honouring the optional gates and turning a
// panic into an error. handled is false when a gate suppressed the call.
func (m *Manager) invoke(r Region, ev Event) (handled bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			handled = false
			err = fmt.Errorf("handler panic: %v\n%s", rec, debug.Stack())
		}
	}()

	switch ev.Kind {
	case KindEnter:
		if g, ok := r.(EnterGate); ok && !g.CanPlayerEnter(ev.Player, ev.EnterReason) {
			return false, nil
		}
		return true, r.OnPlayerEnter(ev.Player, ev.EnterReason)
	case KindLeave:
		if g, ok := r.(LeaveGate); ok && !g.CanPlayerLeave(ev.Player, ev.LeaveReason) {
			return false, nil
		}
		return true, r.OnPlayerLeave(ev.Player, ev.LeaveReason)
	default:
		return false, fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}
