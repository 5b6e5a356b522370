package assistant

import (
	"sync"
	"sync/atomic"
	"time"

	"trafficaz/internal/intent"
)

// EventType names a dispatcher event.
type EventType string

const (
	EventState    EventType = "state"
	EventWake     EventType = "wake"
	EventResolved EventType = "resolved"
	EventTimeout  EventType = "timeout"
	EventError    EventType = "error"
	EventNavigate EventType = "navigate"
)

// ErrorKind classifies EventError.
type ErrorKind string

const (
	ErrorPermission  ErrorKind = "permission_denied"
	ErrorRecognition ErrorKind = "recognition"
	ErrorHandler     ErrorKind = "handler"
)

// Event is published for every externally visible change.
type Event struct {
	ID         int64       `json:"id"`
	Type       EventType   `json:"type"`
	At         time.Time   `json:"at"`
	Session    uint64      `json:"session"`
	State      string      `json:"state,omitempty"`
	Intent     intent.Name `json:"intent,omitempty"`
	Outcome    Outcome     `json:"outcome,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	Screen     string      `json:"screen,omitempty"`
	ErrorKind  ErrorKind   `json:"error_kind,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Hub is an in-memory pub/sub with a small ring buffer for late readers.
type Hub struct {
	nextID atomic.Int64

	mu    sync.Mutex
	ring  []Event
	start int
	size  int

	subs      map[int]chan Event
	nextSubID int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		ring: make([]Event, capacity),
		subs: make(map[int]chan Event),
	}
}

// Publish stamps ev with an id and time and fans it out. Slow subscribers
// lose events rather than block the dispatcher.
func (h *Hub) Publish(ev Event) Event {
	ev.ID = h.nextID.Add(1)
	ev.At = time.Now().UTC()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.push(ev)
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Subscribe returns a channel of future events and a cancel func.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Event, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Since returns buffered events with ID > lastID, oldest first.
func (h *Hub) Since(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, h.size)
	for i := 0; i < h.size; i++ {
		ev := h.ring[(h.start+i)%len(h.ring)]
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Hub) push(ev Event) {
	n := len(h.ring)
	if h.size < n {
		h.ring[(h.start+h.size)%n] = ev
		h.size++
		return
	}
	h.ring[h.start] = ev
	h.start = (h.start + 1) % n
}
