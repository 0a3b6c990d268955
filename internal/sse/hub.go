package sse

import "sync"

// Subscriber is one live stream connection's feed of events for a user.
// Events arrive on C. A subscriber that falls behind loses its oldest
// buffered events first; the publisher is never blocked.
type Subscriber struct {
	userID string
	ch     chan Event

	mu     sync.Mutex
	closed bool
}

// C returns the receive side of the subscriber's event buffer. The channel
// is closed when the subscriber is unsubscribed.
func (s *Subscriber) C() <-chan Event {
	return s.ch
}

func (s *Subscriber) send(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- event:
			return
		default:
			// Buffer full: evict the oldest event and retry. Only the
			// closing path and this method touch the channel under s.mu,
			// so the retry terminates.
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Hub fans notification events out to every live subscriber of a user.
// It holds no history: an event published while a user has no subscribers
// is dropped, and the client recovers it from the store on its next poll.
type Hub struct {
	bufferSize int

	mu    sync.RWMutex
	users map[string]map[*Subscriber]struct{}
}

const defaultSubscriberBuffer = 16

func NewHub() *Hub {
	return &Hub{
		bufferSize: defaultSubscriberBuffer,
		users:      make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new live feed for the user and returns its handle.
func (h *Hub) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{
		userID: userID,
		ch:     make(chan Event, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Subscriber]struct{})
	}
	h.users[userID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the handle and closes its channel. It is idempotent;
// once it returns, no further events are delivered to the handle.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if subs := h.users[sub.userID]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.users, sub.userID)
		}
	}
	h.mu.Unlock()

	sub.close()
}

// Publish delivers the event to every live subscriber of the user,
// best-effort. Zero subscribers is not an error.
func (h *Hub) Publish(userID string, event Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.users[userID]))
	for sub := range h.users[userID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.send(event)
	}
}

// SubscriberCount reports live subscribers for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
