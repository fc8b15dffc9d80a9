package queue

import (
	"context"
	"log/slog"
	"sync"
)

// LocalQueue runs queued runs on an in-process worker. Queued runs are lost
// when the process exits.
type LocalQueue struct {
	mu     sync.RWMutex
	jobs   chan string
	closed bool
	wg     sync.WaitGroup
}

func NewLocalQueue(size int) *LocalQueue {
	return &LocalQueue{jobs: make(chan string, size)}
}

func (q *LocalQueue) Available() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return !q.closed
}

func (q *LocalQueue) Enqueue(ctx context.Context, runID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.jobs <- runID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

// Start runs handler for each queued run on a single worker goroutine.
func (q *LocalQueue) Start(ctx context.Context, handler Handler) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case runID, ok := <-q.jobs:
				if !ok {
					return
				}
				if err := handler(ctx, runID); err != nil {
					slog.Error("Attendance calculation run failed", "run_id", runID, "error", err)
				}
			}
		}
	}()
}

// Close stops accepting runs and waits for the worker to drain the queue.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	q.wg.Wait()
}
