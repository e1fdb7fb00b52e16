package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/regionwatch/internal/config"
	"github.com/udisondev/regionwatch/internal/data"
	"github.com/udisondev/regionwatch/internal/db"
	"github.com/udisondev/regionwatch/internal/region"
	"github.com/udisondev/regionwatch/internal/scheduler"
	"github.com/udisondev/regionwatch/internal/world"
	"github.com/udisondev/regionwatch/internal/zone"
)

const statsInterval = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config FIRST to determine log level
	cfg, err := config.LoadServer(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	region.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("regiond starting",
		"log_level", cfg.LogLevel,
		"tick", cfg.TickInterval,
		"workers", cfg.Workers,
		"ordering", cfg.Tracker.Ordering)

	ordering, err := region.ParseOrdering(cfg.Tracker.Ordering)
	if err != nil {
		return fmt.Errorf("tracker ordering: %w", err)
	}

	sinks := region.MultiSink{region.SinkFunc(logTransition)}

	var journal *db.TransitionJournal
	if cfg.Journal.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		journal = db.NewTransitionJournal(
			db.NewTransitionRepository(database.Pool()),
			cfg.Journal.BufferSize,
			cfg.Journal.BatchSize,
			cfg.Journal.FlushInterval,
		)
		sinks = append(sinks, journal)
	}

	sched := scheduler.NewTickScheduler(cfg.TickInterval, cfg.Workers)
	w := world.New(cfg.Simulation.Worlds...)

	mgr := region.NewManager(sched, w, region.Options{
		CellSize:       cfg.Tracker.CellSize,
		SampleInterval: cfg.Tracker.SampleInterval,
		ResolveDelay:   cfg.Tracker.ResolveDelay,
		MaxRegionCells: cfg.Tracker.MaxRegionCells,
		Ordering:       ordering,
		Sink:           sinks,
	})

	var sim *world.Simulation
	if cfg.Simulation.Bots > 0 {
		sim, err = world.NewSimulation(world.SimConfig{
			Bots:         cfg.Simulation.Bots,
			Worlds:       cfg.Simulation.Worlds,
			Area:         cfg.Simulation.Area,
			Height:       cfg.Simulation.Height,
			Step:         cfg.Simulation.Step,
			Seed:         cfg.Simulation.Seed,
			TeleportRate: cfg.Simulation.TeleportRate,
			DeathRate:    cfg.Simulation.DeathRate,
			QuitRate:     cfg.Simulation.QuitRate,
			RespawnTicks: cfg.Simulation.RespawnTicks,
			RejoinTicks:  cfg.Simulation.RejoinTicks,
		}, w, mgr)
		if err != nil {
			return fmt.Errorf("creating simulation: %w", err)
		}
	}

	if cfg.DefinitionsPath != "" {
		defs, err := data.LoadRegions(cfg.DefinitionsPath)
		if err != nil {
			return fmt.Errorf("loading region definitions: %w", err)
		}
		deps := zone.Deps{Sched: sched}
		if sim != nil {
			deps.Teleporter = sim
		}
		if _, err := zone.Load(mgr, defs, deps); err != nil {
			return fmt.Errorf("loading regions: %w", err)
		}
	}

	if err := mgr.Start(); err != nil {
		return fmt.Errorf("starting region manager: %w", err)
	}
	defer mgr.Close()

	if sim != nil {
		sched.RunOnMainThread(func() {
			if err := sim.Start(sched); err != nil {
				slog.Error("simulation failed to start", "error", err)
			}
		})
		defer sim.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting tick scheduler", "interval", cfg.TickInterval)
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("tick scheduler: %w", err)
		}
		return nil
	})

	if journal != nil {
		g.Go(func() error {
			slog.Info("starting transition journal",
				"batch", cfg.Journal.BatchSize,
				"flush_interval", cfg.Journal.FlushInterval)
			if err := journal.Run(gctx); err != nil {
				return fmt.Errorf("transition journal: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logStats(mgr, sim, journal)
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logStats(mgr, sim, journal)
	slog.Info("regiond stopped")
	return nil
}

func logTransition(tr region.Transition) {
	slog.Debug("region transition",
		"kind", tr.Kind,
		"player", tr.Player,
		"region", tr.RegionID,
		"world", tr.World,
		"reason", tr.Reason)
}

func logStats(mgr *region.Manager, sim *world.Simulation, journal *db.TransitionJournal) {
	st := mgr.Stats()
	attrs := []any{
		"regions", st.Regions,
		"tracked_players", st.TrackedPlayers,
		"passes", st.Passes,
		"dispatched", st.Dispatched,
		"dropped", st.Dropped,
		"samples_dropped", st.SamplesDropped,
		"handler_errors", st.HandlerErrors,
	}
	if sim != nil {
		attrs = append(attrs, "bots_online", sim.Online())
	}
	if journal != nil {
		js := journal.Stats()
		attrs = append(attrs, "journal_written", js.Written, "journal_dropped", js.Dropped)
	}
	slog.Info("region stats", attrs...)
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
