package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"config", topics.Config(), "connector/config"},
		{"device entity", topics.DeviceEntity("heatpump-01", "power"), "connector/device/heatpump-01/power"},
		{"entity state", topics.DeviceEntityState("heatpump-01", "power", "state"), "connector/device/heatpump-01/power/state"},
		{"system status", topics.SystemStatus(), "connector/system/status"},
		{"hub status", topics.HubStatus(), "homeassistant/status"},
		{"discovery config", topics.DiscoveryConfig("switch", "heatpump-01_power"), "homeassistant/switch/heatpump-01_power/config"},
		{"all device topics", topics.AllDeviceTopics(), "connector/device/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
