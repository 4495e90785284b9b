// Package queue schedules material processing off the request path.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-tutor/internal/processing"
)

var ErrClosed = errors.New("queue is closed")

// Processor is the slice of processing.Service the queue drives.
type Processor interface {
	Process(ctx context.Context, id uuid.UUID) error
	Retry(ctx context.Context, id uuid.UUID) error
}

type Queue struct {
	proc    Processor
	tasks   chan uuid.UUID
	workers sync.WaitGroup
	senders sync.WaitGroup
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New starts a worker pool draining the task channel. Close stops it.
func New(proc Processor, workers, buffer int, log zerolog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	q := &Queue{
		proc:  proc,
		tasks: make(chan uuid.UUID, buffer),
		log:   log.With().Str("component", "queue").Logger(),
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue schedules processing for a material and returns without waiting
// for it. When the buffer is full the hand-off moves to a goroutine so the
// caller still never blocks on pipeline completion.
func (q *Queue) Enqueue(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.tasks <- id:
	default:
		q.senders.Add(1)
		go func() {
			defer q.senders.Done()
			q.tasks <- id
		}()
	}
	return nil
}

// Retry re-arms a failed (or stuck) material and schedules it again.
func (q *Queue) Retry(ctx context.Context, id uuid.UUID) error {
	if err := q.proc.Retry(ctx, id); err != nil {
		return err
	}
	return q.Enqueue(id)
}

// Close stops accepting work, drains the buffer and waits for the workers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	// Overflow senders must finish before the channel closes.
	q.senders.Wait()
	close(q.tasks)
	q.workers.Wait()
}

func (q *Queue) worker() {
	defer q.workers.Done()
	for id := range q.tasks {
		q.run(id)
	}
}

// run executes one task and logs the outcome. A panic in the pipeline is
// contained here so it cannot take the worker down.
func (q *Queue) run(id uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Stringer("material_id", id).Interface("panic", r).Msg("processing panicked")
		}
	}()

	if err := q.proc.Process(context.Background(), id); err != nil {
		if errors.Is(err, processing.ErrInFlight) {
			q.log.Warn().Stringer("material_id", id).Msg("processing skipped, already in flight")
			return
		}
		q.log.Error().Err(err).Stringer("material_id", id).Msg("processing failed")
		return
	}
	q.log.Info().Stringer("material_id", id).Msg("processing succeeded")
}
