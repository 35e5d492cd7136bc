package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubFlushesWhenBatchFills(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	hub := NewHub(Config{BufferSize: 8, MaxBatchEvents: 2, MaxBatchWait: time.Minute}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageSourceStart))
	hub.Emit(sampleEvent(StageSourceDone))
	require.Eventually(t, func() bool {
		batches := sink.Batches()
		return len(batches) == 1 && len(batches[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestHubFlushesOnTick(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 10, MaxBatchWait: 20 * time.Millisecond}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageRunStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubEmitNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := &Hub{events: make(chan Event), logger: zap.NewNop()}
	start := time.Now()
	hub.Emit(sampleEvent(StageRunStart))
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, int64(0), hub.dropped.Load())
}

func TestHubCloseDrainsAndClosesSinks(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	hub := NewHub(Config{MaxBatchEvents: 100, MaxBatchWait: time.Minute}, sink)
	hub.Emit(sampleEvent(StageRunStart))
	hub.Emit(Event{Stage: StageRunStart})

	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
	require.Equal(t, 1, sink.closed)

	hub.Emit(sampleEvent(StageRunDone))
	require.Len(t, sink.Batches(), 1)
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	now := time.Now()
	require.NoError(t, Event{RunID: id, TS: now, Stage: StageRunStart}.Validate())
	require.Error(t, Event{TS: now, Stage: StageRunStart}.Validate())
	require.Error(t, Event{RunID: id, Stage: StageRunStart}.Validate())
	require.Error(t, Event{RunID: id, TS: now, Stage: StageSourceDone}.Validate())
	require.Error(t, Event{RunID: id, TS: now, Stage: "NOPE"}.Validate())
	require.Error(t, Event{RunID: id, TS: now, Stage: StageRunDone, Dur: -time.Second}.Validate())
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  int
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Event(nil), s.batches...)
}

func sampleEvent(stage Stage) Event {
	return Event{RunID: uuid.New(), TS: time.Now(), Stage: stage, Source: "Board"}
}
