package telemetry

import (
	"sync"

	"github.com/metabench/hubcrawl/models"
)

// Stream fans TaskEvents out to subscribed readers with categorical
// filtering by event type (§6: "Streaming event channel exposes a
// subset of TaskEvent records as they are emitted, with categorical
// filtering by event type"). Wire it to a Writer via
// stream.Subscribe(writer).
type Stream struct {
	mu       sync.Mutex
	nextID   int
	channels map[int]*channel
}

type channel struct {
	ch     chan models.TaskEvent
	filter map[models.EventType]bool // nil/empty means "all types"
}

// NewStream builds an empty Stream.
func NewStream() *Stream {
	return &Stream{channels: make(map[int]*channel)}
}

// Subscribe registers the Stream as a Writer subscriber so every
// emitted event is fanned out to readers.
func (s *Stream) Subscribe(w *Writer) {
	w.Subscribe(s.publish)
}

// Register opens a new reader channel, optionally filtered to a set of
// event types. The caller must call Unregister when done to release the
// channel's goroutine-side resources.
func (s *Stream) Register(types ...models.EventType) (id int, events <-chan models.TaskEvent) {
	filter := make(map[models.EventType]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id = s.nextID
	c := &channel{ch: make(chan models.TaskEvent, 64), filter: filter}
	s.channels[id] = c
	return id, c.ch
}

// Unregister removes and closes a reader channel.
func (s *Stream) Unregister(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.channels[id]; ok {
		close(c.ch)
		delete(s.channels, id)
	}
}

func (s *Stream) publish(e models.TaskEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.channels {
		if len(c.filter) > 0 && !c.filter[e.EventType] {
			continue
		}
		select {
		case c.ch <- e:
		default:
			// Slow reader: drop rather than block the writer's hot path.
		}
	}
}
