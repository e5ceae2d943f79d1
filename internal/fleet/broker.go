package fleet

import "github.com/hausbridge/fleet-connector/internal/infrastructure/mqtt"

// defaultQoS is the QoS level for all fleet traffic. At-least-once delivery
// suits retained descriptors and state updates; commands tolerate duplicates
// because handlers are idempotent per device.
const defaultQoS byte = 1

// Broker is the transport contract the fleet core consumes.
// *mqtt.Client satisfies it; tests substitute an in-memory fake.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the minimal structured logging contract used by the fleet core.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
