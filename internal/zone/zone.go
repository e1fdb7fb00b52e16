// Package zone builds concrete region types from definitions and registers
// them with the region manager.
package zone

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/udisondev/regionwatch/internal/data"
	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/region"
	"github.com/udisondev/regionwatch/internal/scheduler"
)

// Region type values matching data.RegionDef.Type.
const (
	TypeBasic    = "basic"
	TypePassive  = "passive"
	TypeGreeting = "greeting"
	TypeJail     = "jail"
)

// Teleporter moves a player and reports the new location to the tracker.
type Teleporter interface {
	TeleportPlayer(p model.PlayerID, loc model.Location) error
}

// Deps are the collaborators typed regions may need.
type Deps struct {
	Sched      scheduler.Scheduler
	Teleporter Teleporter
}

// Build creates the typed region described by def. Empty type means basic.
func Build(def data.RegionDef, deps Deps) (region.Region, error) {
	base := region.NewBasicRegion(def.ID, def.DisplayName(), def.World).
		WithPriorities(def.EnterPriority, def.LeavePriority)
	if b, ok := def.Bounds(); ok {
		base.Define(b)
	}

	switch def.Type {
	case "", TypeBasic:
		return base, nil
	case TypePassive:
		return base.WithListener(false), nil
	case TypeGreeting:
		return NewGreetingRegion(base, def), nil
	case TypeJail:
		if deps.Sched == nil || deps.Teleporter == nil {
			return nil, fmt.Errorf("jail region %q requires a scheduler and a teleporter", def.ID)
		}
		jail := NewJailRegion(base, deps.Sched, deps.Teleporter)
		for _, p := range splitList(def.Param("prisoners", "")) {
			jail.Imprison(model.PlayerID(p))
		}
		return jail, nil
	default:
		return nil, fmt.Errorf("unknown region type %q", def.Type)
	}
}

// Registry is the subset of region.Manager used to install regions.
type Registry interface {
	Register(r region.Region) error
}

// Load builds every definition and registers it. Definitions that fail to
// build are skipped with a warning. Returns the built regions by id.
func Load(reg Registry, defs []data.RegionDef, deps Deps) (map[string]region.Region, error) {
	built := make(map[string]region.Region, len(defs))
	byType := make(map[string]int)

	for _, def := range defs {
		r, err := Build(def, deps)
		if err != nil {
			slog.Warn("skip region", "id", def.ID, "err", err)
			continue
		}
		if err := reg.Register(r); err != nil {
			return built, fmt.Errorf("registering region %q: %w", def.ID, err)
		}
		built[def.ID] = r
		byType[typeName(def.Type)]++
	}

	slog.Info("regions loaded", "regions", len(built), "types", byType)
	return built, nil
}

func typeName(t string) string {
	if t == "" {
		return TypeBasic
	}
	return t
}

// splitList разбирает список через запятую, пропуская пустые элементы.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
