package fleet

import (
	"sync"

	"github.com/hausbridge/fleet-connector/internal/infrastructure/mqtt"
)

// mockBroker is an in-memory Broker that records publishes and routes
// simulated inbound messages to registered handlers.
type mockBroker struct {
	mu            sync.Mutex
	published     []publishedMessage
	subscriptions map[string]mqtt.MessageHandler
	unsubscribed  []string

	publishErr   error
	subscribeErr error
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newMockBroker() *mockBroker {
	return &mockBroker{
		subscriptions: make(map[string]mqtt.MessageHandler),
	}
}

func (b *mockBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMessage{
		topic:    topic,
		payload:  append([]byte(nil), payload...),
		qos:      qos,
		retained: retained,
	})
	return nil
}

func (b *mockBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.subscriptions[topic] = handler
	return nil
}

func (b *mockBroker) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscriptions, topic)
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

// simulate delivers an inbound message to the handler subscribed to topic.
// Returns false when no subscription exists.
func (b *mockBroker) simulate(topic string, payload []byte) bool {
	b.mu.Lock()
	handler, ok := b.subscriptions[topic]
	b.mu.Unlock()
	if !ok {
		return false
	}
	_ = handler(topic, payload)
	return true
}

// messages returns the payloads published to topic, in order.
func (b *mockBroker) messages(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out [][]byte
	for _, m := range b.published {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	return out
}

// countPublished returns how many messages were published to topic.
func (b *mockBroker) countPublished(topic string) int {
	return len(b.messages(topic))
}

// hasSubscription reports whether topic currently has a broker subscription.
func (b *mockBroker) hasSubscription(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subscriptions[topic]
	return ok
}
