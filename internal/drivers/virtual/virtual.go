package virtual

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hausbridge/fleet-connector/internal/driver"
)

// Class is the device-class identifier this driver registers under.
const Class = "Virtual"

// Driver metadata reported through driver.Info.
const (
	manufacturer = "Hausbridge"
	model        = "Virtual Device"
	version      = "1.0.0"
)

// ErrUnknownCommand is returned when Handle receives a command key or action
// the device does not implement.
var ErrUnknownCommand = errors.New("virtual: unknown command")

// Device simulates a single fleet member with two entities:
//
//   - "power": a switch with state ON/OFF and a "set" command
//   - "temperature": a read-only sensor reporting a configurable value
//
// Settings recognised in the device configuration entry:
//
//	id           required unique device identifier
//	name         display name (default: the id)
//	temperature  initial sensor reading in °C (default 21.0)
//	fail_reason  when set, Connect fails with this reason (test hook)
type Device struct {
	driver.Emitter

	info       driver.Info
	failReason string

	mu        sync.Mutex
	connected bool
	power     string
	temp      float64
}

// New builds a virtual device from driver-specific settings.
// It is a driver.Factory.
func New(settings driver.Settings) (driver.Device, error) {
	id := settings.String("id", "")
	if id == "" {
		return nil, fmt.Errorf("virtual: setting %q is required", "id")
	}

	return &Device{
		info: driver.Info{
			ID:           id,
			Name:         settings.String("name", id),
			Manufacturer: manufacturer,
			Model:        model,
			Version:      version,
		},
		failReason: settings.String("fail_reason", ""),
		power:      "OFF",
		temp:       settings.Float("temperature", 21.0),
	}, nil
}

// Register adds the virtual driver to a registry.
func Register(r *driver.Registry) error {
	return r.Register(Class, New)
}

// Info returns the device identity.
func (d *Device) Info() driver.Info {
	return d.info
}

// Connect brings the simulated device online and emits the initial state of
// both entities. When the fail_reason setting is present the connection
// fails with that reason instead.
func (d *Device) Connect(_ context.Context) error {
	if d.failReason != "" {
		return errors.New(d.failReason)
	}

	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()

	d.EmitMessage(driver.Message{Icon: "mdi:connection", Text: "virtual device connected"})
	d.emitPower()
	d.emitTemperature()
	return nil
}

// Disconnect takes the simulated device offline.
func (d *Device) Disconnect(_ context.Context) error {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	return nil
}

// Handle processes an inbound command. Only the "power" key with a "set"
// action is implemented; the payload is the new switch state.
func (d *Device) Handle(key, action string, payload []byte) error {
	if key != "power" || action != "set" {
		return fmt.Errorf("%w: key=%q action=%q", ErrUnknownCommand, key, action)
	}

	state := strings.ToUpper(strings.TrimSpace(string(payload)))
	if state != "ON" && state != "OFF" {
		return fmt.Errorf("virtual: invalid power payload %q", payload)
	}

	d.mu.Lock()
	d.power = state
	d.mu.Unlock()

	d.emitPower()
	return nil
}

// SetTemperature updates the simulated sensor reading and emits an entity
// update, as a real sensor would on a new measurement.
func (d *Device) SetTemperature(value float64) {
	d.mu.Lock()
	d.temp = value
	d.mu.Unlock()

	d.emitTemperature()
}

func (d *Device) emitPower() {
	d.mu.Lock()
	state := d.power
	d.mu.Unlock()

	d.EmitEntity(driver.Entity{
		Key:      "power",
		Name:     "Power",
		Type:     "switch",
		States:   map[string]any{"state": state},
		Commands: []string{"set"},
	})
}

func (d *Device) emitTemperature() {
	d.mu.Lock()
	temp := d.temp
	d.mu.Unlock()

	d.EmitEntity(driver.Entity{
		Key:         "temperature",
		Name:        "Temperature",
		Type:        "sensor",
		DeviceClass: "temperature",
		Unit:        "°C",
		States:      map[string]any{"state": temp},
	})
}
