package llm

import "sync"

type EventType int

const (
	// EventDelta carries one incremental text fragment.
	EventDelta EventType = iota

	// EventRestart signals that already-delivered fragments belong to an
	// attempt that failed mid-flight and is being redone from scratch.
	// Consumers reset any accumulated text.
	EventRestart

	// EventDone marks successful completion. It is always the last event.
	EventDone
)

type StreamEvent struct {
	Type  EventType
	Delta string
}

// Stream is a pull-based token stream. The producer emits events and
// closes with either success (a final EventDone) or an error, which the
// consumer reads via Err after the event channel closes, the same way a
// bufio.Scanner is drained then checked.
type Stream struct {
	events chan StreamEvent

	mu  sync.Mutex
	err error
}

func NewStream(buffer int) *Stream {
	return &Stream{events: make(chan StreamEvent, buffer)}
}

func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Err reports the terminal error. Valid once Events() has closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// EmitDelta forwards one fragment. Producer side only.
func (s *Stream) EmitDelta(delta string) {
	s.events <- StreamEvent{Type: EventDelta, Delta: delta}
}

// EmitRestart tells consumers to discard fragments delivered so far.
func (s *Stream) EmitRestart() {
	s.events <- StreamEvent{Type: EventRestart}
}

// Close terminates the stream. A nil err emits the completion marker
// first; a non-nil err is surfaced through Err.
func (s *Stream) Close(err error) {
	if err == nil {
		s.events <- StreamEvent{Type: EventDone}
	} else {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
	close(s.events)
}
