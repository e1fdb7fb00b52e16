package scheduler

// Manual is a deterministic Scheduler driven by explicit Tick calls from a
// single goroutine. Worker tasks run on the calling goroutine after the main
// queue drains, which is enough to exercise the sync → async → sync handoff in
// tests and tools.
type Manual struct {
	clock clock
	main  *taskQueue
	work  *taskQueue
}

// NewManual creates a Manual scheduler at tick 0.
func NewManual() *Manual {
	return &Manual{
		main: newTaskQueue(),
		work: newTaskQueue(),
	}
}

// RunRepeating implements Scheduler.
func (m *Manual) RunRepeating(intervalTicks int, task func()) (Task, error) {
	if intervalTicks <= 0 {
		return nil, ErrInvalidInterval
	}
	return m.clock.schedule(intervalTicks, intervalTicks, task)
}

// RunOnceDelayed implements Scheduler.
func (m *Manual) RunOnceDelayed(delayTicks int, task func()) (Task, error) {
	return m.clock.schedule(delayTicks, 0, task)
}

// RunOnMainThread implements Scheduler.
func (m *Manual) RunOnMainThread(task func()) {
	if task != nil {
		m.main.push(task)
	}
}

// RunOnWorker implements Scheduler.
func (m *Manual) RunOnWorker(task func()) {
	if task != nil {
		m.work.push(task)
	}
}

// Tick advances one tick, queues the due timers and runs everything pending.
func (m *Manual) Tick() {
	m.main.push(m.clock.advance()...)
	m.RunPending()
}

// TickN calls Tick n times.
func (m *Manual) TickN(n int) {
	for range n {
		m.Tick()
	}
}

// RunPending alternates draining the main and worker queues until both are empty.
func (m *Manual) RunPending() {
	for m.main.len() > 0 || m.work.len() > 0 {
		for _, fn := range m.main.takeAll() {
			safeRun("main", fn)
		}
		for _, fn := range m.work.takeAll() {
			safeRun("worker", fn)
		}
	}
}

// RunMain drains only the main queue, leaving worker tasks queued.
func (m *Manual) RunMain() {
	for m.main.len() > 0 {
		for _, fn := range m.main.takeAll() {
			safeRun("main", fn)
		}
	}
}

// RunWorkers drains only the worker queue once.
func (m *Manual) RunWorkers() {
	for _, fn := range m.work.takeAll() {
		safeRun("worker", fn)
	}
}

// CurrentTick returns the current tick.
func (m *Manual) CurrentTick() uint64 { return m.clock.now() }

// PendingTimers returns the number of delayed or repeating tasks still armed.
func (m *Manual) PendingTimers() int { return m.clock.pending() }

// PendingWork returns the number of queued worker tasks.
func (m *Manual) PendingWork() int { return m.work.len() }
