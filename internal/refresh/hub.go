package refresh

import (
	"errors"
	"sync"
)

const (
	DefaultBufferSize       = 8
	DefaultSubscriberBuffer = 4
)

var ErrHubUnavailable = errors.New("hub_unavailable")

// Hub fans snapshots out to live subscribers. Slow subscribers miss
// snapshots rather than block the publisher; the next one supersedes them.
type Hub struct {
	mu               sync.Mutex
	buffer           []Snapshot
	subs             map[uint64]chan Snapshot
	nextID           uint64
	bufferSize       int
	subscriberBuffer int
}

type Subscription struct {
	hub  *Hub
	id   uint64
	ch   chan Snapshot
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:             make(map[uint64]chan Snapshot),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(s Snapshot) {
	if h == nil {
		return
	}

	h.mu.Lock()
	h.buffer = append(h.buffer, s)
	if len(h.buffer) > h.bufferSize {
		h.buffer = h.buffer[len(h.buffer)-h.bufferSize:]
	}
	subs := make([]chan Snapshot, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Latest returns the most recent snapshot, if any was published.
func (h *Hub) Latest() (Snapshot, bool) {
	if h == nil {
		return Snapshot{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return Snapshot{}, false
	}
	return h.buffer[len(h.buffer)-1], true
}

// Subscribe registers a listener and returns the buffered backlog.
func (h *Hub) Subscribe() (*Subscription, []Snapshot, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan Snapshot, h.subscriberBuffer)
	h.subs[id] = ch
	backlog := append([]Snapshot(nil), h.buffer...)
	h.mu.Unlock()

	return &Subscription{hub: h, id: id, ch: ch}, backlog, nil
}

func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (s *Subscription) Snapshots() <-chan Snapshot {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}
