package session

import "sync"

// Hub fans snapshots out to the subscribers of each session. Delivery is
// latest-wins: a slow subscriber sees the newest snapshot, never a backlog.
// Publishes may arrive out of order; a snapshot older than one already
// handed to a subscriber is dropped for that subscriber.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan Snapshot
	once sync.Once
	// newest version queued so far, guarded by Hub.mu
	last uint64
	sent bool
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Subscribe registers a listener for a session. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(sessionID string) (<-chan Snapshot, func()) {
	sub := &subscriber{ch: make(chan Snapshot, 1)}

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		h.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Publish hands snap to every subscriber of its session without blocking.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[snap.ID] {
		if sub.sent && snap.Version <= sub.last {
			continue
		}
		sub.last, sub.sent = snap.Version, true
		select {
		case sub.ch <- snap:
			continue
		default:
		}
		// drop the stale pending value, keep the newest
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

// CloseSession closes every subscription of a session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	set := h.subs[sessionID]
	delete(h.subs, sessionID)
	h.mu.Unlock()
	for sub := range set {
		sub.close()
	}
}

// Subscribers reports how many listeners a session has.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
