// Package queue carries calculation run ids from the API to the workers that
// execute them.
package queue

import (
	"context"
	"errors"
)

var (
	ErrClosed = errors.New("queue is closed")
	ErrFull   = errors.New("queue is full")
)

// Handler executes one queued run.
type Handler func(ctx context.Context, runID string) error

type Queue interface {
	Enqueue(ctx context.Context, runID string) error
	// Available reports whether the queue can currently accept work.
	Available() bool
}

type message struct {
	RunID string `json:"run_id"`
}
