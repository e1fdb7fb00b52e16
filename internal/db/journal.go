package db

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/udisondev/regionwatch/internal/region"
)

// flushTimeout bounds the final flush after Run's context is cancelled.
const flushTimeout = 5 * time.Second

// TransitionWriter persists a batch of transitions.
type TransitionWriter interface {
	Insert(ctx context.Context, trs []region.Transition) error
}

// JournalStats is a snapshot of journal counters.
type JournalStats struct {
	Written int64
	Dropped int64
	Failed  int64
}

// TransitionJournal is a region.Sink that buffers transitions and writes
// them in batches from Run. Notify never blocks: when the buffer is full the
// transition is dropped and counted.
type TransitionJournal struct {
	writer        TransitionWriter
	ch            chan region.Transition
	batchSize     int
	flushInterval time.Duration

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewTransitionJournal creates a journal writing through w.
func NewTransitionJournal(w TransitionWriter, bufferSize, batchSize int, flushInterval time.Duration) *TransitionJournal {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if batchSize <= 0 {
		batchSize = 128
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &TransitionJournal{
		writer:        w,
		ch:            make(chan region.Transition, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Notify implements region.Sink.
func (j *TransitionJournal) Notify(tr region.Transition) {
	select {
	case j.ch <- tr:
	default:
		if j.dropped.Add(1) == 1 {
			slog.Warn("transition journal buffer full, dropping", "capacity", cap(j.ch))
		}
	}
}

// Stats returns the journal counters.
func (j *TransitionJournal) Stats() JournalStats {
	return JournalStats{
		Written: j.written.Load(),
		Dropped: j.dropped.Load(),
		Failed:  j.failed.Load(),
	}
}

// Run writes buffered transitions until ctx is cancelled, then flushes what
// is left. Returns nil on cancellation.
func (j *TransitionJournal) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	batch := make([]region.Transition, 0, j.batchSize)

	for {
		select {
		case <-ctx.Done():
			batch = j.drain(batch)
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			j.flush(flushCtx, batch)
			cancel()
			slog.Info("transition journal stopped", "written", j.written.Load(), "dropped", j.dropped.Load())
			return nil

		case tr := <-j.ch:
			batch = append(batch, tr)
			if len(batch) >= j.batchSize {
				batch = j.flush(ctx, batch)
			}

		case <-ticker.C:
			batch = j.flush(ctx, batch)
		}
	}
}

func (j *TransitionJournal) drain(batch []region.Transition) []region.Transition {
	for {
		select {
		case tr := <-j.ch:
			batch = append(batch, tr)
		default:
			return batch
		}
	}
}

// flush writes batch and returns it emptied. A failed batch is dropped.
func (j *TransitionJournal) flush(ctx context.Context, batch []region.Transition) []region.Transition {
	if len(batch) == 0 {
		return batch
	}

	for start := 0; start < len(batch); start += j.batchSize {
		end := min(start+j.batchSize, len(batch))
		chunk := batch[start:end]
		if err := j.writer.Insert(ctx, chunk); err != nil {
			j.failed.Add(int64(len(chunk)))
			if !errors.Is(err, context.Canceled) {
				slog.Error("writing transitions", "count", len(chunk), "error", err)
			}
			continue
		}
		j.written.Add(int64(len(chunk)))
	}

	return batch[:0]
}
