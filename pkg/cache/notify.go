package cache

import (
	"sync"
	"time"
)

// EventType classifies a cache lifecycle notification.
type EventType string

const (
	// EventHit is emitted when a Get finds a live entry.
	EventHit EventType = "hit"

	// EventMiss is emitted when a Get finds nothing usable.
	EventMiss EventType = "miss"

	// EventWrite is emitted when a response is written into the primary tier.
	EventWrite EventType = "write"

	// EventInvalidate is emitted after a pattern invalidation.
	EventInvalidate EventType = "invalidate"

	// EventClearAll is emitted when every tier is cleared.
	EventClearAll EventType = "clear-all"
)

// Event is a cache lifecycle notification. Events exist for instrumentation
// and observability consumers; they are never required for correctness.
type Event struct {
	Type      EventType `json:"type"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Key       string    `json:"key,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// notifier fans events out to registered listeners. Dispatch is synchronous;
// listeners must not block.
type notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Event)
}

func (n *notifier) subscribe(fn func(Event)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[int]func(Event))
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *notifier) publish(ev Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
