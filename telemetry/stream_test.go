package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/models"
)

func TestStreamRegisterReceivesAllEventsWhenUnfiltered(t *testing.T) {
	s := NewStream()
	id, events := s.Register()
	defer s.Unregister(id)

	s.publish(models.TaskEvent{EventType: models.EventFetchStarted})
	s.publish(models.TaskEvent{EventType: models.EventClassified})

	select {
	case e := <-events:
		assert.Equal(t, models.EventFetchStarted, e.EventType)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first event")
	}
	select {
	case e := <-events:
		assert.Equal(t, models.EventClassified, e.EventType)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second event")
	}
}

func TestStreamRegisterFiltersByEventType(t *testing.T) {
	s := NewStream()
	id, events := s.Register(models.EventBreakerOpened)
	defer s.Unregister(id)

	s.publish(models.TaskEvent{EventType: models.EventFetchStarted})
	s.publish(models.TaskEvent{EventType: models.EventBreakerOpened, Target: "example.com"})

	select {
	case e := <-events:
		assert.Equal(t, models.EventBreakerOpened, e.EventType)
		assert.Equal(t, "example.com", e.Target)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered event")
	}

	select {
	case e := <-events:
		t.Fatalf("unexpected second event delivered: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStreamUnregisterClosesChannel(t *testing.T) {
	s := NewStream()
	id, events := s.Register()
	s.Unregister(id)

	_, ok := <-events
	assert.False(t, ok)
}

func TestStreamSubscribeWiresWriterEvents(t *testing.T) {
	store := &fakeEventStore{}
	w := NewWriter(store, 100, time.Hour, nil)
	defer w.Close()

	s := NewStream()
	s.Subscribe(w)
	id, events := s.Register()
	defer s.Unregister(id)

	w.Emit(models.EventQueueDrained, models.SeverityInfo, "", nil)

	require.Eventually(t, func() bool {
		select {
		case e := <-events:
			return e.EventType == models.EventQueueDrained
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
