package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalQueue_RunsHandler(t *testing.T) {
	q := NewLocalQueue(4)

	var (
		mu  sync.Mutex
		got []string
	)
	q.Start(context.Background(), func(ctx context.Context, runID string) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, runID)
		if runID == "run-2" {
			return errors.New("boom")
		}
		return nil
	})

	require.True(t, q.Available())
	require.NoError(t, q.Enqueue(context.Background(), "run-1"))
	require.NoError(t, q.Enqueue(context.Background(), "run-2"))
	require.NoError(t, q.Enqueue(context.Background(), "run-3"))

	q.Close()

	assert.Equal(t, []string{"run-1", "run-2", "run-3"}, got)
	assert.False(t, q.Available())
	assert.ErrorIs(t, q.Enqueue(context.Background(), "run-4"), ErrClosed)
}

func TestLocalQueue_Full(t *testing.T) {
	q := NewLocalQueue(1)

	require.NoError(t, q.Enqueue(context.Background(), "run-1"))
	assert.ErrorIs(t, q.Enqueue(context.Background(), "run-2"), ErrFull)
}
