package mqtt

import "fmt"

// Topic namespace roots. The first path segment of an inbound topic selects
// how the message is routed: the connector namespace carries configuration
// and device traffic, the discovery namespace carries home-automation hub
// metadata and lifecycle signals.
const (
	// TopicPrefixConnector is the base for all connector topics.
	TopicPrefixConnector = "connector"

	// TopicPrefixDiscovery is the base for home-automation discovery topics.
	TopicPrefixDiscovery = "homeassistant"
)

// Topics provides builders for the connector's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	entityTopic := topics.DeviceEntity("heatpump-01", "power")
//	// Returns: "connector/device/heatpump-01/power"
type Topics struct{}

// Config returns the inbound fleet configuration topic.
//
// Example: connector/config
func (Topics) Config() string {
	return fmt.Sprintf("%s/config", TopicPrefixConnector)
}

// DeviceEntity returns the canonical topic for an entity's descriptor.
//
// Example: connector/device/heatpump-01/power
func (Topics) DeviceEntity(deviceID, entityKey string) string {
	return fmt.Sprintf("%s/device/%s/%s", TopicPrefixConnector, deviceID, entityKey)
}

// DeviceEntityState returns the topic for one sub-state of an entity.
// The same shape carries inbound commands (last segment is the command name).
//
// Example: connector/device/heatpump-01/power/state
func (Topics) DeviceEntityState(deviceID, entityKey, state string) string {
	return fmt.Sprintf("%s/device/%s/%s/%s", TopicPrefixConnector, deviceID, entityKey, state)
}

// SystemStatus returns the connector's own status topic (LWT target).
//
// Example: connector/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefixConnector)
}

// HubStatus returns the home-automation hub lifecycle topic. The hub
// publishes "online" here when it (re)starts, which invalidates all
// previously announced discovery metadata.
//
// Example: homeassistant/status
func (Topics) HubStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixDiscovery)
}

// DiscoveryConfig returns the outbound discovery descriptor topic for one
// entity. The component is the entity's declared type (sensor, switch,
// climate, ...) and uniqueID is derived from device id and entity key.
//
// Example: homeassistant/switch/heatpump-01_power/config
func (Topics) DiscoveryConfig(component, uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/config", TopicPrefixDiscovery, component, uniqueID)
}

// AllDeviceTopics returns a pattern matching all device traffic.
// Use with caution - this receives every state update and command.
//
// Pattern: connector/device/#
func (Topics) AllDeviceTopics() string {
	return fmt.Sprintf("%s/device/#", TopicPrefixConnector)
}
