package zone

import (
	"log/slog"
	"sync"

	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/region"
	"github.com/udisondev/regionwatch/internal/scheduler"
)

const (
	// returnDelayTicks is how long an escaped prisoner stays out before being
	// teleported back.
	returnDelayTicks = 10
	// maxReturnAttempts ограничивает повторы, пока заключённый офлайн или мёртв.
	maxReturnAttempts = 30
)

// JailRegion keeps prisoners inside: a prisoner that walks, teleports or dies
// out of the region is teleported back to its center. Quitting is allowed.
type JailRegion struct {
	*region.BasicRegion

	sched      scheduler.Scheduler
	teleporter Teleporter

	mu        sync.Mutex
	prisoners map[model.PlayerID]struct{}
	returning map[model.PlayerID]struct{} // возврат уже запланирован
}

// NewJailRegion creates a JailRegion.
func NewJailRegion(base *region.BasicRegion, sched scheduler.Scheduler, teleporter Teleporter) *JailRegion {
	z := &JailRegion{
		BasicRegion: base,
		sched:       sched,
		teleporter:  teleporter,
		prisoners:   make(map[model.PlayerID]struct{}),
		returning:   make(map[model.PlayerID]struct{}),
	}
	base.OnLeave(z.onLeave)
	return z
}

// Imprison marks p as a prisoner and pulls p in after returnDelayTicks if p
// is not inside by then.
func (z *JailRegion) Imprison(p model.PlayerID) {
	z.mu.Lock()
	z.prisoners[p] = struct{}{}
	z.mu.Unlock()

	if err := z.scheduleReturn(p, 1); err != nil {
		slog.Warn("failed to schedule prisoner return", "region", z.ID(), "player", p, "err", err)
	}
}

// Release clears the prisoner mark of p.
func (z *JailRegion) Release(p model.PlayerID) {
	z.mu.Lock()
	delete(z.prisoners, p)
	z.mu.Unlock()
}

// IsPrisoner reports whether p is a prisoner.
func (z *JailRegion) IsPrisoner(p model.PlayerID) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	_, ok := z.prisoners[p]
	return ok
}

func (z *JailRegion) onLeave(p model.PlayerID, reason string) error {
	if reason == model.LeaveDisconnect.String() || !z.IsPrisoner(p) {
		return nil
	}

	return z.scheduleReturn(p, 1)
}

// scheduleReturn arms one return of p. Only one return per player is pending.
func (z *JailRegion) scheduleReturn(p model.PlayerID, attempt int) error {
	z.mu.Lock()
	if _, ok := z.returning[p]; ok {
		z.mu.Unlock()
		return nil
	}
	z.returning[p] = struct{}{}
	z.mu.Unlock()

	_, err := z.sched.RunOnceDelayed(returnDelayTicks, func() {
		z.sendBack(p, attempt)
	})
	if err != nil {
		z.mu.Lock()
		delete(z.returning, p)
		z.mu.Unlock()
	}
	return err
}

func (z *JailRegion) sendBack(p model.PlayerID, attempt int) {
	z.mu.Lock()
	delete(z.returning, p)
	z.mu.Unlock()

	if !z.IsPrisoner(p) || z.Contains(p) {
		return
	}
	b, ok := z.Bounds()
	if !ok {
		return
	}

	x, y, zc := b.Center()
	loc := model.NewLocation(z.World(), x, y, zc)
	if err := z.teleporter.TeleportPlayer(p, loc); err != nil {
		if attempt >= maxReturnAttempts {
			slog.Warn("failed to return prisoner to jail", "region", z.ID(), "player", p, "attempts", attempt, "err", err)
			return
		}
		// Игрок мог выйти или умереть: пробуем снова, пока не исчерпаны попытки.
		slog.Debug("prisoner return deferred", "region", z.ID(), "player", p, "attempt", attempt, "err", err)
		if err := z.scheduleReturn(p, attempt+1); err != nil {
			slog.Warn("failed to schedule prisoner return", "region", z.ID(), "player", p, "err", err)
		}
		return
	}
	slog.Info("prisoner returned to jail", "region", z.ID(), "player", p)
}
