package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/udisondev/regionwatch/internal/model"
)

var (
	// ErrUnknownWorld is returned when a player is placed in a world that is not loaded.
	ErrUnknownWorld = errors.New("world: unknown world")
	// ErrPlayerExists is returned when a connected player joins again.
	ErrPlayerExists = errors.New("world: player already connected")
	// ErrPlayerNotFound is returned for operations on a disconnected player.
	ErrPlayerNotFound = errors.New("world: player not found")
)

// player хранит состояние одного подключённого игрока.
type player struct {
	id    model.PlayerID
	name  string
	loc   model.Location
	alive bool
}

// World holds the loaded worlds and the players connected to them.
// Safe for concurrent use; the region sampler reads it from the main thread.
type World struct {
	mu      sync.RWMutex
	worlds  map[string]struct{}
	players map[model.PlayerID]*player
}

// New creates a World with the given worlds loaded.
func New(worlds ...string) *World {
	w := &World{
		worlds:  make(map[string]struct{}, len(worlds)),
		players: make(map[model.PlayerID]*player, 256),
	}
	for _, name := range worlds {
		w.worlds[name] = struct{}{}
	}
	return w
}

// LoadWorld makes name available for players.
func (w *World) LoadWorld(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.worlds[name] = struct{}{}
}

// UnloadWorld выгружает мир. Игроки в нём сохраняют позицию, но не видны,
// пока не переместятся в загруженный мир.
func (w *World) UnloadWorld(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.worlds, name)
}

// Join connects a player at loc.
func (w *World) Join(id model.PlayerID, name string, loc model.Location) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.players[id]; ok {
		return fmt.Errorf("joining %s: %w", id, ErrPlayerExists)
	}
	if _, ok := w.worlds[loc.World]; !ok {
		return fmt.Errorf("joining %s to %q: %w", id, loc.World, ErrUnknownWorld)
	}

	w.players[id] = &player{id: id, name: name, loc: loc, alive: true}
	return nil
}

// Quit disconnects a player. Returns false if the player was not connected.
func (w *World) Quit(id model.PlayerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

// Move changes the coordinates of a living player within its world.
func (w *World) Move(id model.PlayerID, x, y, z float64) (model.Location, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return model.Location{}, fmt.Errorf("moving %s: %w", id, ErrPlayerNotFound)
	}
	p.loc = p.loc.WithCoordinates(x, y, z)
	return p.loc, nil
}

// Teleport places a player at loc, possibly in another world.
func (w *World) Teleport(id model.PlayerID, loc model.Location) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return fmt.Errorf("teleporting %s: %w", id, ErrPlayerNotFound)
	}
	if _, ok := w.worlds[loc.World]; !ok {
		return fmt.Errorf("teleporting %s to %q: %w", id, loc.World, ErrUnknownWorld)
	}
	p.loc = loc
	return nil
}

// Kill помечает игрока мёртвым. У мёртвых игроков нет позиции.
func (w *World) Kill(id model.PlayerID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return fmt.Errorf("killing %s: %w", id, ErrPlayerNotFound)
	}
	p.alive = false
	return nil
}

// Respawn revives a player at loc.
func (w *World) Respawn(id model.PlayerID, loc model.Location) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return fmt.Errorf("respawning %s: %w", id, ErrPlayerNotFound)
	}
	if _, ok := w.worlds[loc.World]; !ok {
		return fmt.Errorf("respawning %s in %q: %w", id, loc.World, ErrUnknownWorld)
	}
	p.loc = loc
	p.alive = true
	return nil
}

// IsAlive reports whether a connected player is alive.
func (w *World) IsAlive(id model.PlayerID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	return ok && p.alive
}

// Name returns the display name of a connected player.
func (w *World) Name(id model.PlayerID) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	if !ok {
		return "", false
	}
	return p.name, true
}

// Worlds returns the loaded worlds that have at least one player, sorted.
func (w *World) Worlds() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	seen := make(map[string]struct{}, len(w.worlds))
	for _, p := range w.players {
		if _, ok := w.worlds[p.loc.World]; ok {
			seen[p.loc.World] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// PlayersIn returns the players located in world, sorted by id.
func (w *World) PlayersIn(world string) []model.PlayerID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.worlds[world]; !ok {
		return nil
	}

	var result []model.PlayerID
	for id, p := range w.players {
		if p.loc.World == world {
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// PositionOf returns the location of a living player in a loaded world.
func (w *World) PositionOf(id model.PlayerID) (model.Location, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	p, ok := w.players[id]
	if !ok || !p.alive {
		return model.Location{}, false
	}
	if _, ok := w.worlds[p.loc.World]; !ok {
		return model.Location{}, false
	}
	return p.loc, true
}

// IsLoaded reports whether name is loaded.
func (w *World) IsLoaded(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.worlds[name]
	return ok
}

// IsConnected reports whether the player is connected.
func (w *World) IsConnected(id model.PlayerID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.players[id]
	return ok
}

// PlayerCount returns the number of connected players.
func (w *World) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}
