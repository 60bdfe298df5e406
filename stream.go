package probego

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/probego/model"
)

// StreamItem is one live-stream element: a record tagged with the contact
// that produced it.
type StreamItem struct {
	Contact string
	Record  model.Record
}

// Stream is a bounded live view of records as they are measured. The
// producer never blocks: when the buffer is full, the oldest item is
// dropped. Losing a live item never loses stored data.
type Stream struct {
	mu      sync.Mutex
	ch      chan StreamItem
	closed  bool
	dropped atomic.Int64
}

func newStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 1
	}
	return &Stream{ch: make(chan StreamItem, buffer)}
}

// C returns the receive channel. It is closed when the run ends.
func (s *Stream) C() <-chan StreamItem {
	return s.ch
}

// Dropped returns the number of items discarded due to a full buffer.
func (s *Stream) Dropped() int64 {
	return s.dropped.Load()
}

// publish delivers an item without blocking, dropping the oldest buffered
// item on overflow. No-op after close.
func (s *Stream) publish(item StreamItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- item:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}

// close ends the stream. Idempotent.
func (s *Stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
