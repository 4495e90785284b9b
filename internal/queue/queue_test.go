package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProcessor struct {
	mu        sync.Mutex
	processed []uuid.UUID
	retried   []uuid.UUID
	delay     time.Duration
	err       error
	retryErr  error
	panicOn   uuid.UUID
}

func (f *fakeProcessor) Process(_ context.Context, id uuid.UUID) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.panicOn {
		panic("processing blew up")
	}
	f.processed = append(f.processed, id)
	return f.err
}

func (f *fakeProcessor) Retry(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, id)
	return f.retryErr
}

func (f *fakeProcessor) processedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.processed)
}

func TestEnqueueProcessesTask(t *testing.T) {
	proc := &fakeProcessor{}
	q := New(proc, 2, 4, zerolog.Nop())

	id := uuid.New()
	if err := q.Enqueue(id); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	q.Close()

	if proc.processedCount() != 1 {
		t.Fatalf("expected 1 processed task, got %d", proc.processedCount())
	}
	if proc.processed[0] != id {
		t.Errorf("processed wrong id: %s", proc.processed[0])
	}
}

func TestEnqueueDoesNotBlockCaller(t *testing.T) {
	proc := &fakeProcessor{delay: 200 * time.Millisecond}
	q := New(proc, 1, 1, zerolog.Nop())
	defer q.Close()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := q.Enqueue(uuid.New()); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("enqueue blocked the caller for %v", elapsed)
	}
}

func TestCloseDrainsPendingTasks(t *testing.T) {
	proc := &fakeProcessor{}
	q := New(proc, 2, 16, zerolog.Nop())

	for i := 0; i < 8; i++ {
		if err := q.Enqueue(uuid.New()); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q.Close()

	if proc.processedCount() != 8 {
		t.Errorf("expected 8 processed tasks after close, got %d", proc.processedCount())
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	q := New(&fakeProcessor{}, 1, 1, zerolog.Nop())
	q.Close()
	if err := q.Enqueue(uuid.New()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	// Close again is a no-op.
	q.Close()
}

func TestProcessingErrorDoesNotStopWorker(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("provider down")}
	q := New(proc, 1, 4, zerolog.Nop())

	q.Enqueue(uuid.New())
	q.Enqueue(uuid.New())
	q.Close()

	if proc.processedCount() != 2 {
		t.Errorf("worker stopped after an error: %d processed", proc.processedCount())
	}
}

func TestPanicIsContained(t *testing.T) {
	bad := uuid.New()
	proc := &fakeProcessor{panicOn: bad}
	q := New(proc, 1, 4, zerolog.Nop())

	q.Enqueue(bad)
	good := uuid.New()
	q.Enqueue(good)
	q.Close()

	if proc.processedCount() != 1 || proc.processed[0] != good {
		t.Errorf("worker did not survive the panic: %v", proc.processed)
	}
}

func TestRetryRearmsAndEnqueues(t *testing.T) {
	proc := &fakeProcessor{}
	q := New(proc, 1, 4, zerolog.Nop())

	id := uuid.New()
	if err := q.Retry(context.Background(), id); err != nil {
		t.Fatalf("retry: %v", err)
	}
	q.Close()

	if len(proc.retried) != 1 || proc.retried[0] != id {
		t.Errorf("retry not forwarded: %v", proc.retried)
	}
	if proc.processedCount() != 1 {
		t.Errorf("retried material not re-enqueued: %d", proc.processedCount())
	}
}

func TestRetryFailureSkipsEnqueue(t *testing.T) {
	proc := &fakeProcessor{retryErr: errors.New("still processing")}
	q := New(proc, 1, 4, zerolog.Nop())
	defer q.Close()

	if err := q.Retry(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected retry error")
	}
	if proc.processedCount() != 0 {
		t.Error("failed retry must not enqueue")
	}
}
