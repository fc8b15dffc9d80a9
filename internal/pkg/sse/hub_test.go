package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToTopic(t *testing.T) {
	hub := NewHub()

	a, cleanupA := hub.Subscribe("run-a")
	defer cleanupA()
	b, cleanupB := hub.Subscribe("run-b")
	defer cleanupB()

	hub.Publish("run-a", "progress", 3)

	select {
	case ev := <-a:
		assert.Equal(t, "run-a", ev.Topic)
		assert.Equal(t, "progress", ev.Event)
		assert.Equal(t, 3, ev.Data)
	default:
		t.Fatal("expected an event on run-a")
	}

	select {
	case ev := <-b:
		t.Fatalf("unexpected event on run-b: %+v", ev)
	default:
	}
}

func TestHub_Cleanup(t *testing.T) {
	hub := NewHub()

	ch, cleanup := hub.Subscribe("run-a")
	_, cleanup2 := hub.Subscribe("run-a")
	assert.Equal(t, 2, hub.SubscriberCount("run-a"))

	cleanup()
	cleanup()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 1, hub.SubscriberCount("run-a"))

	cleanup2()
	assert.Zero(t, hub.SubscriberCount("run-a"))
}

func TestHub_FullSubscriberKeepsLatestEvents(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("run-a")
	defer cleanup()

	for i := 1; i <= 12; i++ {
		hub.Publish("run-a", "progress", i)
	}
	hub.Publish("run-a", "progress", "done")

	require.Len(t, ch, cap(ch))

	var received []interface{}
	for len(ch) > 0 {
		received = append(received, (<-ch).Data)
	}
	assert.Equal(t, []interface{}{4, 5, 6, 7, 8, 9, 10, 11, 12, "done"}, received)
}
