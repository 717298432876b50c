package feed

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

// Hub — in-process лента: topic -> set подписчиков.
// Используется как Feed в тестах и как single-node fallback без Redis.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan Event]struct{})}
}

func (h *Hub) Publish(_ context.Context, topic string, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.topics[topic] {
		select {
		case ch <- ev:
		default:
			// медленный подписчик: событие отбрасывается
		}
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, topic string) (*Subscription, error) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.topics[topic]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
		h.mu.Unlock()
	}

	return newSubscription(ch, cancel), nil
}

// SubscriberCount — сколько живых подписок у топика сейчас.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
