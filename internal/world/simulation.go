package world

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/scheduler"
)

// Tracker receives the location changes the simulation pushes explicitly.
// Plain movement is picked up by the region sampler on its own.
type Tracker interface {
	UpdateLocation(p model.PlayerID, loc model.Location, reason model.Reason) error
	LeaveAll(p model.PlayerID, reason model.LeaveReason) error
}

// SimConfig configures the bot simulation.
type SimConfig struct {
	Bots   int
	Worlds []string
	// Area is the horizontal square bots walk in, [-Area, Area].
	Area   float64
	Height float64
	Step   float64
	Seed   uint64

	// Шансы на тик в виде 1/N; ноль отключает действие.
	TeleportRate int
	DeathRate    int
	QuitRate     int

	RespawnTicks int
	RejoinTicks  int
}

// bot описывает одного симулируемого игрока. Таймеры считаются в тиках.
type bot struct {
	id      model.PlayerID
	name    string
	online  bool
	dead    bool
	respawn int
	rejoin  int
}

// Simulation двигает ботов по миру в main-потоке.
type Simulation struct {
	cfg     SimConfig
	world   *World
	tracker Tracker
	rnd     *rand.Rand
	bots    []*bot
	task    scheduler.Task
	online  atomic.Int32
}

// NewSimulation creates a simulation of cfg.Bots players.
func NewSimulation(cfg SimConfig, w *World, tracker Tracker) (*Simulation, error) {
	if len(cfg.Worlds) == 0 {
		return nil, fmt.Errorf("simulation: no worlds configured")
	}
	if cfg.Area <= 0 || cfg.Step <= 0 {
		return nil, fmt.Errorf("simulation: area and step must be positive")
	}

	s := &Simulation{
		cfg:     cfg,
		world:   w,
		tracker: tracker,
		rnd:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		bots:    make([]*bot, 0, cfg.Bots),
	}
	for i := range cfg.Bots {
		s.bots = append(s.bots, &bot{
			id:   model.PlayerID(fmt.Sprintf("bot-%04d", i+1)),
			name: fmt.Sprintf("Bot%d", i+1),
		})
	}
	return s, nil
}

// Start подключает всех ботов и планирует шаг симуляции на каждый тик.
func (s *Simulation) Start(sched scheduler.Scheduler) error {
	for _, b := range s.bots {
		s.join(b)
	}

	task, err := sched.RunRepeating(1, s.Step)
	if err != nil {
		return fmt.Errorf("scheduling simulation: %w", err)
	}
	s.task = task

	slog.Info("simulation started", "bots", len(s.bots), "worlds", s.cfg.Worlds)
	return nil
}

// Stop cancels the simulation step.
func (s *Simulation) Stop() {
	if s.task != nil {
		s.task.Cancel()
	}
}

// Step продвигает каждого бота на один тик.
func (s *Simulation) Step() {
	for _, b := range s.bots {
		s.stepBot(b)
	}
}

// Online returns the number of connected bots. Safe to call from any goroutine.
func (s *Simulation) Online() int {
	return int(s.online.Load())
}

func (s *Simulation) stepBot(b *bot) {
	switch {
	case !b.online:
		if b.rejoin--; b.rejoin <= 0 {
			s.join(b)
		}
		return
	case b.dead:
		if b.respawn--; b.respawn <= 0 {
			s.revive(b)
		}
		return
	}

	if chance(s.rnd, s.cfg.QuitRate) {
		s.world.Quit(b.id)
		b.online = false
		s.online.Add(-1)
		b.rejoin = s.cfg.RejoinTicks
		return
	}

	if chance(s.rnd, s.cfg.DeathRate) {
		s.kill(b)
		return
	}

	if chance(s.rnd, s.cfg.TeleportRate) {
		s.teleport(b)
		return
	}

	s.walk(b)
}

func (s *Simulation) join(b *bot) {
	loc := s.randomLocation()
	if err := s.world.Join(b.id, b.name, loc); err != nil {
		slog.Warn("bot failed to join", "bot", b.id, "err", err)
		return
	}
	b.online = true
	s.online.Add(1)
	b.dead = false
	s.push(b.id, loc, model.ReasonJoinServer)
}

func (s *Simulation) walk(b *bot) {
	loc, ok := s.world.PositionOf(b.id)
	if !ok {
		return
	}
	x := clamp(loc.X+(s.rnd.Float64()*2-1)*s.cfg.Step, -s.cfg.Area, s.cfg.Area)
	z := clamp(loc.Z+(s.rnd.Float64()*2-1)*s.cfg.Step, -s.cfg.Area, s.cfg.Area)
	if _, err := s.world.Move(b.id, x, loc.Y, z); err != nil {
		slog.Warn("bot failed to move", "bot", b.id, "err", err)
	}
}

func (s *Simulation) teleport(b *bot) {
	if err := s.TeleportPlayer(b.id, s.randomLocation()); err != nil {
		slog.Warn("bot failed to teleport", "bot", b.id, "err", err)
	}
}

func (s *Simulation) kill(b *bot) {
	if err := s.world.Kill(b.id); err != nil {
		slog.Warn("bot failed to die", "bot", b.id, "err", err)
		return
	}
	b.dead = true
	b.respawn = s.cfg.RespawnTicks
	if err := s.tracker.LeaveAll(b.id, model.LeaveDead); err != nil {
		slog.Warn("region leave on death failed", "bot", b.id, "err", err)
	}
}

func (s *Simulation) revive(b *bot) {
	loc := s.randomLocation()
	if err := s.world.Respawn(b.id, loc); err != nil {
		slog.Warn("bot failed to respawn", "bot", b.id, "err", err)
		return
	}
	b.dead = false
	s.push(b.id, loc, model.ReasonRespawn)
}

// TeleportPlayer moves a living player to loc and reports it to the tracker.
func (s *Simulation) TeleportPlayer(p model.PlayerID, loc model.Location) error {
	from, ok := s.world.PositionOf(p)
	if !ok {
		return fmt.Errorf("teleporting %s: %w", p, ErrPlayerNotFound)
	}
	if err := s.world.Teleport(p, loc); err != nil {
		return err
	}

	reason := model.ReasonTeleport
	if loc.World != from.World {
		reason = model.ReasonWorldChange
	}
	return s.tracker.UpdateLocation(p, loc, reason)
}

func (s *Simulation) push(p model.PlayerID, loc model.Location, reason model.Reason) {
	if err := s.tracker.UpdateLocation(p, loc, reason); err != nil {
		slog.Warn("region location update failed", "player", p, "reason", reason, "err", err)
	}
}

func (s *Simulation) randomLocation() model.Location {
	world := s.cfg.Worlds[s.rnd.IntN(len(s.cfg.Worlds))]
	x := (s.rnd.Float64()*2 - 1) * s.cfg.Area
	z := (s.rnd.Float64()*2 - 1) * s.cfg.Area
	y := s.rnd.Float64() * s.cfg.Height
	return model.NewLocation(world, x, y, z)
}

// chance возвращает true с вероятностью 1/rate. Нулевой rate не срабатывает никогда.
func chance(rnd *rand.Rand, rate int) bool {
	return rate > 0 && rnd.IntN(rate) == 0
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
