// Package memory contains an in-memory publisher for tests and for
// deployments that run without a Pub/Sub backend.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
}

// Publisher records publishes in order. It never fails.
type Publisher struct {
	mu       sync.RWMutex
	seq      int
	messages []PublishedMessage
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the payload under topic and returns a synthetic ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	msg := PublishedMessage{
		ID:      fmt.Sprintf("memory-%d", p.seq),
		Topic:   topic,
		Payload: payload,
	}
	p.messages = append(p.messages, msg)
	return msg.ID, nil
}

// Messages returns a copy of the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
