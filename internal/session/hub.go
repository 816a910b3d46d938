// Package session implements the per-connection loop of §4.4: transport
// abstraction, broadcast fan-out hub, command handling, and the connection
// governor that bounds concurrent sessions.
package session

import "sync"

const subscriberBufferSize = 64

// subscriber is one session's broadcast mailbox. Publish never blocks on a
// slow subscriber: a full events channel raises the lagged signal instead
// of waiting, matching §4.4's "do not disconnect, just skip ahead" policy.
type subscriber struct {
	id     uint64
	events chan []byte
	lagged chan struct{}
}

// Hub fans out encoded event frames to every subscribed session. The order
// of Publish calls matches the order callers observe, because Publish is
// always called with the World's write lock held (§5's ordering guarantee).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[uint64]*subscriber)}
}

// Subscription is a session's handle on its broadcast mailbox.
type Subscription struct {
	Events <-chan []byte
	Lagged <-chan struct{}

	hub *Hub
	id  uint64
}

// Subscribe registers a new subscriber, to be called before the session
// pulls its initial snapshot (§4.4 step 2: "subscribe before read" avoids
// missing any event committed between snapshot construction and
// subscription).
func (h *Hub) Subscribe() *Subscription {
	sub := &subscriber{
		events: make(chan []byte, subscriberBufferSize),
		lagged: make(chan struct{}, 1),
	}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	return &Subscription{Events: sub.events, Lagged: sub.lagged, hub: h, id: sub.id}
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if sub, ok := s.hub.subscribers[s.id]; ok {
		close(sub.events)
		delete(s.hub.subscribers, s.id)
	}
}

// Publish fans frame out to every current subscriber without blocking. A
// subscriber whose buffer is full is signaled as lagged instead of
// receiving the frame; it is never disconnected for being slow.
func (h *Hub) Publish(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		select {
		case sub.events <- frame:
		default:
			select {
			case sub.lagged <- struct{}{}:
			default:
			}
		}
	}
}

// SubscriberCount reports the current number of subscribed sessions, for
// metrics.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
