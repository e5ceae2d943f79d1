package fleet

import (
	"encoding/json"
	"fmt"

	"github.com/hausbridge/fleet-connector/internal/driver"
)

// FeatureHomeAssistant enables discovery metadata generation for the
// home-automation hub.
const FeatureHomeAssistant = "homeassistant"

// Features is the set of feature flags enabled by a fleet configuration.
type Features []string

// Has reports whether the named feature is enabled.
func (f Features) Has(name string) bool {
	for _, feature := range f {
		if feature == name {
			return true
		}
	}
	return false
}

// HomeAssistant reports whether discovery integration is enabled.
func (f Features) HomeAssistant() bool {
	return f.Has(FeatureHomeAssistant)
}

// DeviceConfig is one fleet-member descriptor. Class selects the driver
// factory, Subscribe maps logical command keys to broker topics, and every
// other field of the JSON object is passed to the factory as Settings.
type DeviceConfig struct {
	Class     string
	Subscribe map[string]string
	Settings  driver.Settings
}

// UnmarshalJSON splits the known fields from the driver-specific remainder.
func (d *DeviceConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Class = ""
	d.Subscribe = nil
	d.Settings = make(driver.Settings)

	for key, value := range raw {
		switch key {
		case "class":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: class must be a string, got %T", ErrMalformedDevice, value)
			}
			d.Class = s
		case "subscribe":
			entries, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: subscribe must be an object, got %T", ErrMalformedDevice, value)
			}
			d.Subscribe = make(map[string]string, len(entries))
			for k, v := range entries {
				topic, ok := v.(string)
				if !ok {
					return fmt.Errorf("%w: subscribe.%s must be a topic string, got %T", ErrMalformedDevice, k, v)
				}
				d.Subscribe[k] = topic
			}
		default:
			d.Settings[key] = value
		}
	}

	return nil
}

// Config is the top-level fleet document. Each arrival on the config topic
// entirely replaces the previous fleet.
type Config struct {
	Support Features       `json:"support"`
	Devices []DeviceConfig `json:"devices"`
}

// ParseConfig decodes a fleet configuration payload.
//
// Validation is structural only: a payload that is not a JSON object fails
// here with ErrInvalidConfig; per-device problems (unknown class, missing
// class) are reported during reconciliation and never fail the parse.
func ParseConfig(payload []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}
