package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// TickScheduler drives the main goroutine from a time.Ticker and runs worker
// tasks on a fixed pool of goroutines.
type TickScheduler struct {
	interval   time.Duration
	numWorkers int

	clock clock
	main  *taskQueue
	work  *taskQueue
}

// NewTickScheduler creates a scheduler ticking every interval with numWorkers
// worker goroutines (at least one).
func NewTickScheduler(interval time.Duration, numWorkers int) *TickScheduler {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &TickScheduler{
		interval:   interval,
		numWorkers: numWorkers,
		main:       newTaskQueue(),
		work:       newTaskQueue(),
	}
}

// RunRepeating implements Scheduler.
func (s *TickScheduler) RunRepeating(intervalTicks int, task func()) (Task, error) {
	if intervalTicks <= 0 {
		return nil, ErrInvalidInterval
	}
	return s.clock.schedule(intervalTicks, intervalTicks, task)
}

// RunOnceDelayed implements Scheduler.
func (s *TickScheduler) RunOnceDelayed(delayTicks int, task func()) (Task, error) {
	return s.clock.schedule(delayTicks, 0, task)
}

// RunOnMainThread implements Scheduler.
func (s *TickScheduler) RunOnMainThread(task func()) {
	if task == nil {
		return
	}
	s.main.push(task)
}

// RunOnWorker implements Scheduler.
func (s *TickScheduler) RunOnWorker(task func()) {
	if task == nil {
		return
	}
	s.work.push(task)
}

// CurrentTick returns the number of ticks elapsed since Start.
func (s *TickScheduler) CurrentTick() uint64 {
	return s.clock.now()
}

// Start runs the main loop and the worker pool (blocks until context is cancelled).
func (s *TickScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return ErrInvalidInterval
	}

	g, gctx := errgroup.WithContext(ctx)

	for i := range s.numWorkers {
		g.Go(func() error {
			s.workerLoop(gctx, i)
			return nil
		})
	}

	g.Go(func() error {
		return s.mainLoop(gctx)
	})

	slog.Info("scheduler started", "tick", s.interval, "workers", s.numWorkers)

	return g.Wait()
}

func (s *TickScheduler) mainLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping", "tick", s.clock.now())
			return ctx.Err()

		case <-ticker.C:
			s.main.push(s.clock.advance()...)
			s.drainMain()

		case <-s.main.signal:
			s.drainMain()
		}
	}
}

// drainMain выполняет все задачи, поставленные к этому моменту. Задачи,
// добавленные во время выполнения, ждут следующего пробуждения.
func (s *TickScheduler) drainMain() {
	for _, fn := range s.main.takeAll() {
		safeRun("main", fn)
	}
}

func (s *TickScheduler) workerLoop(ctx context.Context, id int) {
	for {
		fn, ok := s.work.pop()
		if ok {
			safeRun("worker", fn)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("scheduler worker stopped", "worker", id)
			return
		case <-s.work.signal:
		}
	}
}
