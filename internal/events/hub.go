package events

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber receives every event emitted after Subscribe returns.
// Subscribers must not block; slow consumers should buffer internally.
type Subscriber func(Event)

// Hub fans events out to subscribers. Registration is explicit: a consumer
// subscribes before events of interest are emitted and unsubscribes when
// done. Safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]Subscriber
	nextID int
	logger *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[int]Subscriber),
		logger: logger,
	}
}

// Subscribe registers fn and returns a token for Unsubscribe.
func (h *Hub) Subscribe(fn Subscriber) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.subs[h.nextID] = fn
	return h.nextID
}

// Unsubscribe removes the subscriber registered under token. Unknown
// tokens are ignored.
func (h *Hub) Unsubscribe(token int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, token)
}

// Emit validates evt and delivers it to every current subscriber. Invalid
// events are dropped with a debug log.
func (h *Hub) Emit(evt Event) {
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid event", zap.Error(err))
		return
	}
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(evt)
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
