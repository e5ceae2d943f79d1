package fleet

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CommandHandler processes one inbound command message for a device.
// action is the last segment of the topic the message arrived on and payload
// is the raw message body, unaltered.
type CommandHandler func(action string, payload []byte) error

// Router owns the live topic to per-device handler table and keeps the
// broker's subscription set consistent with it.
//
// Invariant: a (topic, deviceID) pair holds at most one handler. Inserting a
// second handler for an existing pair is a no-op, not a replacement.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Dispatch during a reset may
//     observe an empty table; such messages are dropped, which is accepted
//     while the fleet is being rebuilt.
type Router struct {
	broker Broker
	logger Logger

	mu    sync.Mutex
	table map[string]map[string]CommandHandler
}

// NewRouter creates a router bound to the given broker.
func NewRouter(broker Broker, logger Logger) *Router {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Router{
		broker: broker,
		logger: logger,
		table:  make(map[string]map[string]CommandHandler),
	}
}

// Subscribe inserts a handler for the (topic, deviceID) pair.
//
// The broker subscription is issued the first time any handler exists for
// the topic. Returns true when an insertion occurred; false means an
// existing handler for that exact pair was left untouched.
func (r *Router) Subscribe(topic, deviceID string, handler CommandHandler) (bool, error) {
	if topic == "" {
		return false, fmt.Errorf("fleet: subscribe topic is required")
	}
	if handler == nil {
		return false, fmt.Errorf("fleet: subscribe handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handlers, known := r.table[topic]
	if known {
		if _, exists := handlers[deviceID]; exists {
			return false, nil
		}
		handlers[deviceID] = handler
		return true, nil
	}

	if err := r.broker.Subscribe(topic, defaultQoS, r.dispatchMessage); err != nil {
		return false, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	r.table[topic] = map[string]CommandHandler{deviceID: handler}
	return true, nil
}

// Dispatch invokes every handler registered for topic with (action, payload).
// Handlers are independent; one handler's error is logged and does not stop
// delivery to the others. An unknown topic is silently dropped.
func (r *Router) Dispatch(topic, action string, payload []byte) {
	r.mu.Lock()
	handlers := make(map[string]CommandHandler, len(r.table[topic]))
	for deviceID, handler := range r.table[topic] {
		handlers[deviceID] = handler
	}
	r.mu.Unlock()

	for deviceID, handler := range handlers {
		if err := handler(action, payload); err != nil {
			r.logger.Warn("command handler failed",
				"topic", topic,
				"device", deviceID,
				"error", err,
			)
		}
	}
}

// ResetAll atomically clears the whole table and returns the sorted set of
// previously subscribed topics so the caller can issue a bulk broker
// unsubscribe.
func (r *Router) ResetAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]string, 0, len(r.table))
	for topic := range r.table {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	r.table = make(map[string]map[string]CommandHandler)
	return topics
}

// TopicCount returns the number of topics with at least one handler.
func (r *Router) TopicCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.table)
}

// dispatchMessage is the broker-facing entry point. The last topic segment
// becomes the handler action.
func (r *Router) dispatchMessage(topic string, payload []byte) error {
	r.Dispatch(topic, lastSegment(topic), payload)
	return nil
}

// lastSegment returns the final slash-delimited segment of a topic.
func lastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
