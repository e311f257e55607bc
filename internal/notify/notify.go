// Package notify separates "mutate" from "notify observers".
//
// State containers publish an Event after every mutation; observers (the
// events server, UI projections) subscribe to a Hub without the containers
// knowing who is listening. Per-object change feeds use a Source, which a
// file object holds and must close on disposal so it cannot trigger
// further updates after removal.
package notify

import (
	"sync"
	"time"
)

// Topic identifies which projection changed.
type Topic string

const (
	// TopicTree indicates the collection/tag hierarchy changed.
	TopicTree Topic = "tree"
	// TopicExpand indicates the expand-state map was replaced.
	TopicExpand Topic = "expand"
	// TopicSelection indicates the active tag selection changed.
	TopicSelection Topic = "selection"
	// TopicFiles indicates the reconciled file list changed.
	TopicFiles Topic = "files"
)

// Event is a change notification for one projection.
type Event struct {
	Topic     Topic     `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans out change events to all subscribers. Publishing with no
// subscribers is a no-op; subscribers are invoked synchronously in
// registration order.
type Hub struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]func(Event)
	batch   int
	pending map[Topic]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every future event. The returned cancel
// function removes the subscription; calling it more than once is safe.
func (h *Hub) Subscribe(fn func(Event)) (cancel func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish notifies all subscribers of a change on topic. Inside a Batch
// the event is coalesced and delivered once when the batch ends.
func (h *Hub) Publish(topic Topic) {
	h.mu.Lock()
	if h.batch > 0 {
		if h.pending == nil {
			h.pending = make(map[Topic]struct{})
		}
		h.pending[topic] = struct{}{}
		h.mu.Unlock()
		return
	}
	fns := h.snapshotLocked()
	h.mu.Unlock()

	ev := Event{Topic: topic, Timestamp: time.Now()}
	for _, fn := range fns {
		fn(ev)
	}
}

// Batch runs fn with notifications suppressed, then delivers each touched
// topic exactly once. Used by multi-step operations so observers see a
// single consistent update instead of one per mutation.
func (h *Hub) Batch(fn func()) {
	h.mu.Lock()
	h.batch++
	h.mu.Unlock()

	fn()

	h.mu.Lock()
	h.batch--
	if h.batch > 0 {
		h.mu.Unlock()
		return
	}
	pending := h.pending
	h.pending = nil
	fns := h.snapshotLocked()
	h.mu.Unlock()

	for topic := range pending {
		ev := Event{Topic: topic, Timestamp: time.Now()}
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// snapshotLocked copies the subscriber list so callbacks run outside the
// lock and may themselves subscribe or cancel.
func (h *Hub) snapshotLocked() []func(Event) {
	fns := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	return fns
}

// Source is a per-object change feed. A live file object owns one; UI
// bindings subscribe to it, and disposal closes it so no update can fire
// afterwards.
type Source struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func()
	closed bool
}

// NewSource creates an open Source.
func NewSource() *Source {
	return &Source{subs: make(map[int]func())}
}

// Subscribe registers fn for change notifications. Subscribing to a
// closed Source returns a cancel that does nothing and fn is never called.
func (s *Source) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Notify invokes every subscriber. No-op after Close.
func (s *Source) Notify() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Close drops all subscriptions and rejects future ones. Safe to call
// more than once.
func (s *Source) Close() {
	s.mu.Lock()
	s.closed = true
	s.subs = nil
	s.mu.Unlock()
}

// Closed reports whether the source has been closed.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
