package fleet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hausbridge/fleet-connector/internal/driver"
)

// fakeDevice is a scriptable driver.Device for reconciler tests.
type fakeDevice struct {
	driver.Emitter
	info       driver.Info
	connectErr error

	mu          sync.Mutex
	connected   bool
	disconnects int
	handled     []handledCommand
}

type handledCommand struct {
	key     string
	action  string
	payload string
}

func (d *fakeDevice) Info() driver.Info { return d.info }

func (d *fakeDevice) Connect(context.Context) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Disconnect(context.Context) error {
	d.mu.Lock()
	d.connected = false
	d.disconnects++
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Handle(key, action string, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled = append(d.handled, handledCommand{key: key, action: action, payload: string(payload)})
	return nil
}

func (d *fakeDevice) commands() []handledCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]handledCommand(nil), d.handled...)
}

// newTestRegistry registers a "Foo" class whose factory builds a fakeDevice
// from its settings and records it in created.
func newTestRegistry(t *testing.T, created *[]*fakeDevice) *driver.Registry {
	t.Helper()

	registry := driver.NewRegistry()
	err := registry.Register("Foo", func(settings driver.Settings) (driver.Device, error) {
		id := settings.String("id", "")
		if id == "" {
			return nil, errors.New("id is required")
		}
		dev := &fakeDevice{
			info: driver.Info{
				ID:           id,
				Name:         settings.String("name", id),
				Manufacturer: "Test",
				Model:        "Fake",
				Version:      "0.0.1",
			},
		}
		if reason := settings.String("fail_reason", ""); reason != "" {
			dev.connectErr = errors.New(reason)
		}
		*created = append(*created, dev)
		return dev, nil
	})
	if err != nil {
		t.Fatalf("registering test driver: %v", err)
	}
	return registry
}

func fooConfig(id string, support ...string) Config {
	return Config{
		Support: support,
		Devices: []DeviceConfig{{
			Class: "Foo",
			Subscribe: map[string]string{
				"power": "connector/device/" + id + "/power/set",
			},
			Settings: driver.Settings{"id": id},
		}},
	}
}

func TestReconcilerUnknownClass(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)

	cfg := Config{Devices: []DeviceConfig{{Class: "Unknown", Subscribe: map[string]string{}}}}
	if err := r.Apply(context.Background(), cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(created) != 0 {
		t.Errorf("%d devices created for unknown class, want 0", len(created))
	}
	if got := r.DeviceIDs(); len(got) != 0 {
		t.Errorf("DeviceIDs() = %v, want empty", got)
	}
}

func TestReconcilerMissingClassIsSkipped(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)

	cfg := Config{Devices: []DeviceConfig{
		{Subscribe: map[string]string{}},
		{Class: "Foo", Settings: driver.Settings{"id": "foo-01"}},
	}}
	if err := r.Apply(context.Background(), cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := r.DeviceIDs(); len(got) != 1 || got[0] != "foo-01" {
		t.Errorf("DeviceIDs() = %v, want [foo-01]", got)
	}
}

func TestReconcilerFullScenario(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)

	if err := r.Apply(context.Background(), fooConfig("foo-01", FeatureHomeAssistant)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("%d devices created, want 1", len(created))
	}
	dev := created[0]

	dev.EmitEntity(driver.Entity{
		Key:      "power",
		Name:     "Power",
		Type:     "switch",
		States:   map[string]any{"state": "ON"},
		Commands: []string{"set"},
	})

	if got := broker.countPublished("connector/device/foo-01/power"); got != 1 {
		t.Errorf("descriptor published %d times, want 1", got)
	}
	states := broker.messages("connector/device/foo-01/power/state")
	if len(states) != 1 || string(states[0]) != "ON" {
		t.Errorf("state payloads = %q, want [ON]", states)
	}
	if got := broker.countPublished("homeassistant/switch/foo-01_power/config"); got != 1 {
		t.Errorf("discovery published %d times, want 1", got)
	}

	// The declared command topic is routable to the device's handler.
	if !broker.simulate("connector/device/foo-01/power/set", []byte("OFF")) {
		t.Fatal("command topic has no broker subscription")
	}
	commands := dev.commands()
	if len(commands) != 1 {
		t.Fatalf("%d commands handled, want 1", len(commands))
	}
	want := handledCommand{key: "power", action: "set", payload: "OFF"}
	if commands[0] != want {
		t.Errorf("handled = %+v, want %+v", commands[0], want)
	}
}

func TestReconcilerEmptyConfigTearsDownFleet(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)
	ctx := context.Background()

	if err := r.Apply(ctx, fooConfig("foo-01")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	dev := created[0]

	if err := r.Apply(ctx, Config{}); err != nil {
		t.Fatalf("Apply(empty) error = %v", err)
	}

	if got := r.DeviceIDs(); len(got) != 0 {
		t.Errorf("DeviceIDs() = %v after empty config, want empty", got)
	}
	if dev.disconnects != 1 {
		t.Errorf("device disconnected %d times, want 1", dev.disconnects)
	}
	if broker.hasSubscription("connector/device/foo-01/power/set") {
		t.Error("command topic still subscribed after teardown")
	}

	// Observers are detached: a late emit publishes nothing.
	before := len(broker.published)
	dev.EmitEntity(driver.Entity{Key: "power", States: map[string]any{"state": "ON"}})
	if len(broker.published) != before {
		t.Error("detached device still publishes entity updates")
	}
}

func TestReconcilerConnectFailureIsIsolated(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)

	cfg := Config{Devices: []DeviceConfig{
		{Class: "Foo", Settings: driver.Settings{"id": "bad", "fail_reason": "host unreachable"}},
		{Class: "Foo", Settings: driver.Settings{"id": "good"}},
	}}
	if err := r.Apply(context.Background(), cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := r.DeviceIDs(); len(got) != 1 || got[0] != "good" {
		t.Errorf("DeviceIDs() = %v, want [good]", got)
	}

	// The failed device's observers are detached.
	before := len(broker.published)
	created[0].EmitEntity(driver.Entity{Key: "power", States: map[string]any{"state": "ON"}})
	if len(broker.published) != before {
		t.Error("failed device still publishes entity updates")
	}
}

func TestReconcilerHubOnlineClearsDiscoveryCache(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)

	if err := r.Apply(context.Background(), fooConfig("foo-01", FeatureHomeAssistant)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	dev := created[0]
	entity := driver.Entity{Key: "power", Type: "switch", States: map[string]any{"state": "ON"}}
	discoveryTopic := "homeassistant/switch/foo-01_power/config"

	dev.EmitEntity(entity)
	dev.EmitEntity(entity)
	if got := broker.countPublished(discoveryTopic); got != 1 {
		t.Fatalf("discovery published %d times before hub restart, want 1", got)
	}

	if !broker.simulate("homeassistant/status", []byte("online")) {
		t.Fatal("hub status topic has no broker subscription")
	}

	dev.EmitEntity(entity)
	if got := broker.countPublished(discoveryTopic); got != 2 {
		t.Errorf("discovery published %d times after hub restart, want 2", got)
	}
}

func TestReconcilerRejectsMalformedConfig(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Apply(ctx, fooConfig("foo-01")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// A malformed payload must leave the previous fleet untouched.
	broker.simulate("connector/config", []byte(`{broken`))

	if got := r.DeviceIDs(); len(got) != 1 || got[0] != "foo-01" {
		t.Errorf("DeviceIDs() = %v after malformed config, want [foo-01]", got)
	}
	if created[0].disconnects != 0 {
		t.Error("device torn down by malformed config")
	}
}

func TestReconcilerConfigMessageTriggersApply(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"support":[],"devices":[{"class":"Foo","id":"foo-42","subscribe":{}}]}`)
	if !broker.simulate("connector/config", payload) {
		t.Fatal("config topic has no broker subscription")
	}

	if got := r.DeviceIDs(); len(got) != 1 || got[0] != "foo-42" {
		t.Errorf("DeviceIDs() = %v, want [foo-42]", got)
	}
}

func TestReconcilerShutdown(t *testing.T) {
	broker := newMockBroker()
	var created []*fakeDevice
	r := New(broker, newTestRegistry(t, &created), nil)
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Apply(ctx, fooConfig("foo-01", FeatureHomeAssistant)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	r.Shutdown(ctx)

	if got := r.DeviceIDs(); len(got) != 0 {
		t.Errorf("DeviceIDs() = %v after shutdown, want empty", got)
	}
	if created[0].disconnects != 1 {
		t.Errorf("device disconnected %d times, want 1", created[0].disconnects)
	}
	if broker.hasSubscription("connector/config") {
		t.Error("config topic still subscribed after shutdown")
	}
	if broker.hasSubscription("homeassistant/status") {
		t.Error("hub status topic still subscribed after shutdown")
	}
}
