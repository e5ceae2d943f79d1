package fleet

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hausbridge/fleet-connector/internal/driver"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/mqtt"
)

// Availability payloads for climate entities. The driver publishes one of
// these on the entity's state sub-topic.
const (
	payloadAvailable    = "online"
	payloadNotAvailable = "offline"
)

// defaultBrightnessScale is used for light entities that do not declare one.
const defaultBrightnessScale = 255

// Discovery emits home-automation hub discovery metadata for entities.
//
// Announced topics are cached so each entity is described at most once; the
// cache persists across reconciliations and is cleared wholesale when the hub
// reports it has restarted, since the hub loses its own copy at that point.
type Discovery struct {
	broker Broker
	topics mqtt.Topics
	logger Logger

	mu        sync.Mutex
	announced map[string]struct{}
}

// NewDiscovery creates a discovery generator bound to the given broker.
func NewDiscovery(broker Broker, logger Logger) *Discovery {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Discovery{
		broker:    broker,
		logger:    logger,
		announced: make(map[string]struct{}),
	}
}

// Announced reports whether metadata for the given entity topic has already
// been emitted.
func (d *Discovery) Announced(topic string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.announced[topic]
	return ok
}

// Announce publishes the discovery descriptor for one entity.
//
// The topic is added to the cache before publishing so concurrent re-entry
// for the same entity stays idempotent. The descriptor is retained on a
// discovery-namespace topic keyed by the entity type and a unique id derived
// from the device id and entity key.
func (d *Discovery) Announce(info driver.Info, entity driver.Entity, topic string) {
	d.mu.Lock()
	if _, ok := d.announced[topic]; ok {
		d.mu.Unlock()
		return
	}
	d.announced[topic] = struct{}{}
	d.mu.Unlock()

	uniqueID := fmt.Sprintf("%s_%s", info.ID, entity.Key)
	descriptor := buildDescriptor(info, entity, topic, uniqueID)

	payload, err := json.Marshal(descriptor)
	if err != nil {
		d.logger.Warn("encoding discovery descriptor failed",
			"device", info.ID,
			"entity", entity.Key,
			"error", err,
		)
		return
	}

	component := entity.Type
	if component == "" {
		component = "sensor"
	}

	configTopic := d.topics.DiscoveryConfig(component, uniqueID)
	if err := d.broker.Publish(configTopic, payload, defaultQoS, true); err != nil {
		d.logger.Warn("publishing discovery descriptor failed",
			"topic", configTopic,
			"error", err,
		)
	}
}

// Reset clears the announced-topic cache. Called when the hub announces it
// has (re)started; every entity is re-announced on its next state update.
func (d *Discovery) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.announced = make(map[string]struct{})
}

// buildDescriptor assembles the discovery document for one entity.
func buildDescriptor(info driver.Info, entity driver.Entity, topic, uniqueID string) map[string]any {
	descriptor := map[string]any{
		"name":      entity.Name,
		"unique_id": uniqueID,
		"device": map[string]any{
			"identifiers":  []string{info.ID},
			"name":         info.Name,
			"manufacturer": info.Manufacturer,
			"model":        info.Model,
			"sw_version":   info.Version,
		},
	}

	switch entity.Type {
	case "select":
		labels := make([]string, 0, len(entity.Options))
		for _, value := range sortedKeys(entity.Options) {
			labels = append(labels, entity.Options[value])
		}
		descriptor["options"] = labels
		descriptor["command_template"] = commandTemplate(entity.Options)
	case "climate":
		descriptor["min_temp"] = entity.Min
		descriptor["max_temp"] = entity.Max
		descriptor["temp_step"] = entity.Step
		descriptor["modes"] = entity.Modes
		descriptor["fan_modes"] = entity.FanModes
		descriptor["availability_topic"] = topic + "/state"
		descriptor["payload_available"] = payloadAvailable
		descriptor["payload_not_available"] = payloadNotAvailable
	case "number":
		descriptor["min"] = entity.Min
		descriptor["max"] = entity.Max
		descriptor["step"] = entity.Step
	case "light":
		scale := entity.BrightnessScale
		if scale == 0 {
			scale = defaultBrightnessScale
		}
		descriptor["brightness"] = true
		descriptor["brightness_scale"] = scale
		descriptor["schema"] = "json"
	default:
		if entity.DeviceClass != "" {
			descriptor["device_class"] = entity.DeviceClass
		}
		if entity.Unit != "" {
			descriptor["unit_of_measurement"] = entity.Unit
		}
	}

	for _, state := range sortedKeysAny(entity.States) {
		descriptor[state+"_topic"] = topic + "/" + state
	}
	for _, command := range entity.Commands {
		descriptor[command+"_topic"] = topic + "/" + command
	}

	return descriptor
}

// commandTemplate renders the hub-side template that maps a selected display
// label back to the transmitted option value.
func commandTemplate(options map[string]string) string {
	pairs := make([]string, 0, len(options))
	for _, value := range sortedKeys(options) {
		pairs = append(pairs, fmt.Sprintf("%q: %q", options[value], value))
	}
	return fmt.Sprintf("{{ {%s}[value] }}", strings.Join(pairs, ", "))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysAny(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
