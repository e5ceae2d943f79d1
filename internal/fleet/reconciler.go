package fleet

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hausbridge/fleet-connector/internal/driver"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/mqtt"
)

// HistoryRecorder appends entity state updates to a local journal.
// *history.Repository satisfies it.
type HistoryRecorder interface {
	Record(ctx context.Context, deviceID, entityKey string, states map[string]any) error
}

// MetricsWriter records telemetry points. *metrics.Client satisfies it.
type MetricsWriter interface {
	WriteEntityState(deviceID, entityKey, state string, value float64)
	WriteFleetSize(configured, connected int)
}

// deviceEntry is one live device plus the detach handles for its observers.
type deviceEntry struct {
	device driver.Device
	detach []func()
}

// Reconciler converts fleet configuration documents into a live device set.
//
// Reconciliations are mutually exclusive: a configuration arriving while a
// previous one is still connecting devices waits for it to finish, so the
// device table is never interleaved between two epochs. Device entries are
// processed strictly in document order, one connect at a time.
type Reconciler struct {
	broker    Broker
	registry  *driver.Registry
	router    *Router
	publisher *Publisher
	discovery *Discovery
	topics    mqtt.Topics
	logger    Logger

	history HistoryRecorder
	metrics MetricsWriter

	// mu serialises reconciliation and shutdown.
	mu            sync.Mutex
	devices       map[string]*deviceEntry
	hubSubscribed bool

	// stateMu guards the fields read from driver callbacks, which fire
	// while mu is held during bring-up.
	stateMu  sync.RWMutex
	features Features
	runCtx   context.Context
}

// New creates a reconciler with its router, publisher and discovery
// generator bound to the given broker.
func New(broker Broker, registry *driver.Registry, logger Logger) *Reconciler {
	if logger == nil {
		logger = noopLogger{}
	}

	discovery := NewDiscovery(broker, logger)

	return &Reconciler{
		broker:    broker,
		registry:  registry,
		router:    NewRouter(broker, logger),
		publisher: NewPublisher(broker, discovery, logger),
		discovery: discovery,
		logger:    logger,
		devices:   make(map[string]*deviceEntry),
		runCtx:    context.Background(),
	}
}

// SetHistory wires an optional entity state journal.
// Call before Start.
func (r *Reconciler) SetHistory(h HistoryRecorder) {
	r.history = h
}

// SetMetrics wires an optional telemetry writer.
// Call before Start.
func (r *Reconciler) SetMetrics(m MetricsWriter) {
	r.metrics = m
}

// Router exposes the topic router, mainly for tests and diagnostics.
func (r *Reconciler) Router() *Router {
	return r.router
}

// Start subscribes to the fleet configuration topic. Reconciliation then
// happens on every retained or fresh configuration message.
func (r *Reconciler) Start(ctx context.Context) error {
	r.stateMu.Lock()
	r.runCtx = ctx
	r.stateMu.Unlock()

	return r.broker.Subscribe(r.topics.Config(), defaultQoS, r.handleConfigMessage)
}

// Apply replaces the current fleet with the one described by cfg.
//
// The previous fleet is torn down first: observers detached, devices
// disconnected best-effort, the subscription table and descriptor dedup set
// cleared, the broker unsubscribed from every command topic. Devices are
// then brought up sequentially; each failure is logged and isolated.
func (r *Reconciler) Apply(ctx context.Context, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Support.HomeAssistant() && !r.hubSubscribed {
		if err := r.broker.Subscribe(r.topics.HubStatus(), defaultQoS, r.handleHubStatus); err != nil {
			r.logger.Warn("subscribing to hub status failed", "error", err)
		} else {
			r.hubSubscribed = true
		}
	}

	r.teardownLocked(ctx)

	r.stateMu.Lock()
	r.features = cfg.Support
	r.stateMu.Unlock()

	connected := 0
	for _, dc := range cfg.Devices {
		if r.bringUpLocked(ctx, dc) {
			connected++
		}
	}

	if r.metrics != nil {
		r.metrics.WriteFleetSize(len(cfg.Devices), connected)
	}

	r.logger.Info("reconciliation complete",
		"configured", len(cfg.Devices),
		"connected", connected,
	)
	return nil
}

// Shutdown disconnects the fleet and releases broker subscriptions.
func (r *Reconciler) Shutdown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teardownLocked(ctx)

	if err := r.broker.Unsubscribe(r.topics.Config()); err != nil {
		r.logger.Debug("unsubscribing config topic failed", "error", err)
	}
	if r.hubSubscribed {
		if err := r.broker.Unsubscribe(r.topics.HubStatus()); err != nil {
			r.logger.Debug("unsubscribing hub status failed", "error", err)
		}
		r.hubSubscribed = false
	}

	r.logger.Info("fleet shut down")
}

// DeviceIDs returns the ids of the currently connected devices, sorted.
func (r *Reconciler) DeviceIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// teardownLocked disconnects every current device and clears the routing and
// dedup state. Disconnect failures are logged and do not block the teardown
// of the remaining devices. Caller holds r.mu.
func (r *Reconciler) teardownLocked(ctx context.Context) {
	for id, entry := range r.devices {
		for _, detach := range entry.detach {
			detach()
		}
		if err := entry.device.Disconnect(ctx); err != nil {
			r.logger.Warn("device disconnect failed", "device", id, "error", err)
		}
	}
	r.devices = make(map[string]*deviceEntry)

	for _, topic := range r.router.ResetAll() {
		if err := r.broker.Unsubscribe(topic); err != nil {
			r.logger.Warn("unsubscribing command topic failed", "topic", topic, "error", err)
		}
	}

	r.publisher.Reset()
}

// bringUpLocked instantiates, wires and connects one device. Returns true
// when the device ends up in the device table. Caller holds r.mu.
func (r *Reconciler) bringUpLocked(ctx context.Context, dc DeviceConfig) bool {
	if dc.Class == "" {
		r.logger.Warn("device entry missing class, skipping")
		return false
	}

	factory, err := r.registry.Lookup(dc.Class)
	if err != nil {
		r.logger.Warn("unknown device class, skipping", "class", dc.Class, "error", err)
		return false
	}

	dev, err := factory(dc.Settings)
	if err != nil {
		r.logger.Warn("device construction failed, skipping", "class", dc.Class, "error", err)
		return false
	}

	info := dev.Info()

	// Observers are wired before Connect so entities emitted during the
	// connect handshake are published.
	detachEntity := dev.OnEntity(func(entity driver.Entity) {
		r.publishEntity(info, entity)
	})
	detachMessage := dev.OnMessage(func(msg driver.Message) {
		r.logger.Info("device message", "device", info.ID, "icon", msg.Icon, "text", msg.Text)
	})

	if err := dev.Connect(ctx); err != nil {
		r.logger.Warn("device connect failed",
			"device", info.ID,
			"class", dc.Class,
			"reason", err,
		)
		detachEntity()
		detachMessage()
		return false
	}

	for _, key := range sortedKeys(dc.Subscribe) {
		topic := dc.Subscribe[key]
		inserted, err := r.router.Subscribe(topic, info.ID, func(action string, payload []byte) error {
			return dev.Handle(key, action, payload)
		})
		if err != nil {
			r.logger.Warn("command subscription failed",
				"device", info.ID,
				"topic", topic,
				"error", err,
			)
			continue
		}
		if !inserted {
			r.logger.Debug("command handler already registered",
				"device", info.ID,
				"topic", topic,
			)
		}
	}

	r.devices[info.ID] = &deviceEntry{
		device: dev,
		detach: []func(){detachEntity, detachMessage},
	}

	r.logger.Info("device connected", "device", info.ID, "class", dc.Class, "name", info.Name)
	return true
}

// publishEntity forwards one entity update to the publisher, journal and
// telemetry writer. Runs on the driver's emit goroutine.
func (r *Reconciler) publishEntity(info driver.Info, entity driver.Entity) {
	r.stateMu.RLock()
	features := r.features
	ctx := r.runCtx
	r.stateMu.RUnlock()

	r.publisher.Publish(info, entity, features)

	if r.history != nil && len(entity.States) > 0 {
		if err := r.history.Record(ctx, info.ID, entity.Key, entity.States); err != nil {
			r.logger.Warn("recording entity history failed",
				"device", info.ID,
				"entity", entity.Key,
				"error", err,
			)
		}
	}

	if r.metrics != nil {
		for state, value := range entity.States {
			if f, ok := toFloat(value); ok {
				r.metrics.WriteEntityState(info.ID, entity.Key, state, f)
			}
		}
	}
}

// handleConfigMessage parses an inbound fleet configuration and applies it.
// A parse failure leaves the previous fleet untouched.
func (r *Reconciler) handleConfigMessage(_ string, payload []byte) error {
	cfg, err := ParseConfig(payload)
	if err != nil {
		r.logger.Error("rejecting fleet configuration", "error", err)
		return err
	}

	r.stateMu.RLock()
	ctx := r.runCtx
	r.stateMu.RUnlock()

	return r.Apply(ctx, cfg)
}

// handleHubStatus reacts to hub lifecycle signals. An "online" announcement
// means the hub lost its cached metadata, so every entity must be
// re-announced on its next update.
func (r *Reconciler) handleHubStatus(_ string, payload []byte) error {
	if strings.TrimSpace(string(payload)) == payloadAvailable {
		r.logger.Info("hub online, clearing discovery cache")
		r.discovery.Reset()
	}
	return nil
}

// toFloat converts the numeric state value types drivers emit.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
