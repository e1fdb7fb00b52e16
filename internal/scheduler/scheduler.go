// Package scheduler runs callbacks on a single cooperative main goroutine
// (the simulation thread) or on a pool of worker goroutines, either now,
// after a delay in ticks, or repeatedly.
package scheduler

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrInvalidInterval is returned for a non-positive repeat interval or a negative delay.
	ErrInvalidInterval = errors.New("scheduler: invalid interval")
	// ErrNilTask is returned when a nil callback is scheduled.
	ErrNilTask = errors.New("scheduler: nil task")
)

// Scheduler is the contract the region tracker consumes.
// Main thread tasks execute in FIFO order: a task never runs before a main
// thread task that was queued earlier.
type Scheduler interface {
	// RunRepeating runs task on the main thread every intervalTicks ticks.
	RunRepeating(intervalTicks int, task func()) (Task, error)
	// RunOnceDelayed runs task on the main thread once after delayTicks ticks.
	RunOnceDelayed(delayTicks int, task func()) (Task, error)
	// RunOnMainThread queues task on the main thread.
	RunOnMainThread(task func())
	// RunOnWorker queues task on a worker goroutine.
	RunOnWorker(task func())
}

// Task is a handle to a delayed or repeating task.
type Task interface {
	Cancel()
	IsCancelled() bool
	IsRepeating() bool
}

// ScheduledTask is the Task returned by both scheduler implementations.
type ScheduledTask struct {
	fn        func()
	seq       uint64
	due       uint64
	interval  uint64 // 0 for one-shot tasks
	cancelled atomic.Bool
}

// Cancel stops the task. Cancelling an executed or cancelled task does nothing.
func (t *ScheduledTask) Cancel() { t.cancelled.Store(true) }

// IsCancelled reports whether Cancel was called.
func (t *ScheduledTask) IsCancelled() bool { return t.cancelled.Load() }

// IsRepeating reports whether the task repeats.
func (t *ScheduledTask) IsRepeating() bool { return t.interval > 0 }

// clock хранит текущий тик и таймеры, ожидающие его.
type clock struct {
	mu     sync.Mutex
	tick   uint64
	seq    uint64
	timers []*ScheduledTask
}

func (c *clock) schedule(delay, interval int, fn func()) (*ScheduledTask, error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	if delay < 0 || interval < 0 {
		return nil, ErrInvalidInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &ScheduledTask{
		fn:       fn,
		seq:      c.seq,
		due:      c.tick + uint64(max(delay, 1)),
		interval: uint64(interval),
	}
	c.timers = append(c.timers, t)
	return t, nil
}

// advance сдвигает часы на один тик и возвращает созревшие колбэки,
// упорядоченные по тику срабатывания, затем по порядку планирования.
func (c *clock) advance() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++

	var due []*ScheduledTask
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.IsCancelled() {
			continue
		}
		if t.due > c.tick {
			kept = append(kept, t)
			continue
		}
		due = append(due, t)
		if t.interval > 0 {
			kept = append(kept, t)
		}
	}
	clear(c.timers[len(kept):])
	c.timers = kept

	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})

	fns := make([]func(), 0, len(due))
	for _, t := range due {
		if t.interval > 0 {
			t.due = c.tick + t.interval
		}
		fns = append(fns, t.run)
	}
	return fns
}

func (c *clock) now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

func (c *clock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (t *ScheduledTask) run() {
	if t.IsCancelled() {
		return
	}
	if t.interval == 0 {
		t.cancelled.Store(true)
	}
	t.fn()
}

// taskQueue: неограниченная FIFO-очередь колбэков с однослотовым сигналом пробуждения.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{signal: make(chan struct{}, 1)}
}

func (q *taskQueue) push(fns ...func()) {
	if len(fns) == 0 {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, fns...)
	q.mu.Unlock()
	q.notify()
}

func (q *taskQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop извлекает самую старую задачу. Если работа осталась, сигнал взводится
// снова, чтобы проснулся другой потребитель.
func (q *taskQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	if len(q.tasks) > 0 {
		q.notify()
	}
	return fn, true
}

// takeAll извлекает все задачи из очереди.
func (q *taskQueue) takeAll() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	fns := q.tasks
	q.tasks = nil
	return fns
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// safeRun executes fn and logs a panic instead of crashing the loop that runs it.
func safeRun(where string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled task panicked",
				"where", where,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
