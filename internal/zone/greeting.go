package zone

import (
	"log/slog"
	"sync/atomic"

	"github.com/udisondev/regionwatch/internal/data"
	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/region"
)

// GreetingRegion объявляет вход и выход игроков и считает посещения.
type GreetingRegion struct {
	*region.BasicRegion

	enterMessage string
	leaveMessage string
	visits       atomic.Int64
}

// NewGreetingRegion creates a GreetingRegion. Messages come from the
// enter_message and leave_message params.
func NewGreetingRegion(base *region.BasicRegion, def data.RegionDef) *GreetingRegion {
	z := &GreetingRegion{
		BasicRegion:  base,
		enterMessage: def.Param("enter_message", "Entering "+def.DisplayName()),
		leaveMessage: def.Param("leave_message", "Leaving "+def.DisplayName()),
	}
	base.OnEnter(z.onEnter)
	base.OnLeave(z.onLeave)
	return z
}

// Visits returns how many times players entered the region.
func (z *GreetingRegion) Visits() int64 { return z.visits.Load() }

func (z *GreetingRegion) onEnter(p model.PlayerID, reason string) error {
	z.visits.Add(1)
	slog.Info(z.enterMessage, "region", z.ID(), "player", p, "reason", reason)
	return nil
}

func (z *GreetingRegion) onLeave(p model.PlayerID, reason string) error {
	slog.Info(z.leaveMessage, "region", z.ID(), "player", p, "reason", reason)
	return nil
}
