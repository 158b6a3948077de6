// Package bus provides a minimal in-process publish/subscribe mechanism.
//
// Delivery is synchronous and at-least-once: Publish invokes every handler
// subscribed to the topic, in subscription order, on the caller's goroutine.
// Handlers must not block and must not subscribe from within a handler.
package bus

import "sync"

// Handler receives the event payload published on a topic.
type Handler func(payload any)

// Bus fans events out to subscribed handlers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

// Subscribe registers h for events published on topic.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

// Publish delivers payload to every handler subscribed to topic.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[topic]))
	copy(handlers, b.subs[topic])
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}
