package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu      sync.Mutex
	events  []Event
	batches int
	closed  bool
	consume error
}

func (s *captureSink) Consume(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consume != nil {
		return s.consume
	}
	s.events = append(s.events, events...)
	s.batches++
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() ([]Event, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...), s.batches, s.closed
}

func TestHubDeliversAndClosesSinks(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	for i := 0; i < 5; i++ {
		evt := validEvent()
		evt.Note = string(rune('a' + i))
		hub.Emit(evt)
	}
	require.NoError(t, hub.Close(context.Background()))

	events, _, closed := sink.snapshot()
	require.Len(t, events, 5)
	assert.True(t, closed)
}

func TestHubBatchesBySize(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchEvents: 2, MaxBatchWait: time.Hour}, sink)

	for i := 0; i < 4; i++ {
		hub.Emit(validEvent())
	}
	require.NoError(t, hub.Close(context.Background()))

	events, batches, _ := sink.snapshot()
	require.Len(t, events, 4)
	assert.GreaterOrEqual(t, batches, 2)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{}) // fails validation
	hub.Emit(validEvent())
	require.NoError(t, hub.Close(context.Background()))

	events, _, _ := sink.snapshot()
	require.Len(t, events, 1)
}

func TestHubEmitAfterClose(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent()) // must not panic or deliver
	events, _, _ := sink.snapshot()
	assert.Empty(t, events)
}

func TestHubSinkErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	failing := &captureSink{consume: errors.New("connection refused")}
	healthy := &captureSink{}
	hub := NewHub(Config{}, failing, healthy)

	hub.Emit(validEvent())
	require.NoError(t, hub.Close(context.Background()))

	events, _, closed := healthy.snapshot()
	require.Len(t, events, 1)
	assert.True(t, closed)
}

func TestHubNilReceiver(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(validEvent())
	require.NoError(t, hub.Close(context.Background()))
}
