package driver

import "context"

// Info holds the immutable identity of a device instance.
// Drivers populate it once during construction; the connector copies these
// fields into entity descriptors and discovery metadata.
type Info struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
}

// Entity describes a single observable or controllable capability surface of
// a device: a sensor reading, a switch, a climate unit. Entities are rebuilt
// by the driver on every update event and never persisted.
//
// States maps a sub-state name (e.g. "state", "temperature") to its current
// value. Commands lists the command names the entity accepts.
//
// The remaining fields are optional hints consumed by the discovery
// generator; drivers set only the ones meaningful for the entity type.
type Entity struct {
	Key      string         `json:"key"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	States   map[string]any `json:"states,omitempty"`
	Commands []string       `json:"commands,omitempty"`

	// Sensor hints.
	DeviceClass string `json:"device_class,omitempty"`
	Unit        string `json:"unit,omitempty"`

	// Select hints: transmitted value -> display label.
	Options map[string]string `json:"options,omitempty"`

	// Number and climate range hints.
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Step float64 `json:"step,omitempty"`

	// Climate hints.
	Modes    []string `json:"modes,omitempty"`
	FanModes []string `json:"fan_modes,omitempty"`

	// Light hints.
	BrightnessScale int `json:"brightness_scale,omitempty"`
}

// Message is a human-readable log event emitted by a driver, forwarded to
// the connector's structured logger.
type Message struct {
	Icon string
	Text string
}

// Settings carries the driver-specific fields of a device configuration
// entry. The reconciler extracts the fields it understands (class, subscribe)
// and hands the rest to the driver factory untouched.
type Settings map[string]any

// String returns the string value for key, or def when absent or not a string.
func (s Settings) String(key, def string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return def
}

// Float returns the numeric value for key, or def when absent.
// JSON numbers decode as float64; integers stored directly are converted.
func (s Settings) Float(key string, def float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Bool returns the boolean value for key, or def when absent or not a bool.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Device is the capability contract every driver implements.
//
// Connect establishes the connection to the physical or virtual counterpart;
// a non-nil error carries the failure reason and means the device plays no
// further role until the next reconciliation. Handle processes one inbound
// command message: key is the logical subscription key from the device
// configuration, action is the last segment of the topic the message arrived
// on, and payload is the raw message body.
type Device interface {
	Info() Info
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Handle(key, action string, payload []byte) error

	// OnEntity registers an observer for entity updates. The returned detach
	// function removes the observer; it is safe to call more than once.
	OnEntity(fn func(Entity)) (detach func())

	// OnMessage registers an observer for driver log messages.
	OnMessage(fn func(Message)) (detach func())
}

// Factory builds a Device from driver-specific settings.
// Factories validate their settings and return an error for malformed
// entries; the reconciler reports the error and skips the device.
type Factory func(settings Settings) (Device, error)
