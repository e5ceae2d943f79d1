package metrics

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteEntityState records one numeric entity state update.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Non-numeric states (e.g. "ON"/"OFF" switch positions) are the caller's
// responsibility to map to a number before calling, or to skip.
//
// Parameters:
//   - deviceID: Device identifier (e.g., "heatpump-01")
//   - entityKey: Entity key within the device (e.g., "temperature")
//   - state: Sub-state name (e.g., "state", "target")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteEntityState("heatpump-01", "temperature", "state", 21.5)
func (c *Client) WriteEntityState(deviceID, entityKey, state string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"entity_state",
		map[string]string{
			"device_id": deviceID,
			"entity":    entityKey,
			"state":     state,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteFleetSize records the device count after a reconciliation, tagged by
// outcome so dashboards can tell configured from connected.
func (c *Client) WriteFleetSize(configured, connected int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"fleet",
		nil,
		map[string]interface{}{
			"configured": configured,
			"connected":  connected,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
