package fleet

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hausbridge/fleet-connector/internal/driver"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/mqtt"
)

// Publisher republishes device-originated entity updates to the broker.
//
// The entity descriptor is retained on the entity's canonical topic at most
// once per reconciliation epoch; state values are retained on their sub-topic
// unconditionally, every update. When discovery integration is enabled the
// first publication of an entity also triggers a discovery announcement.
type Publisher struct {
	broker    Broker
	discovery *Discovery
	topics    mqtt.Topics
	logger    Logger

	mu        sync.Mutex
	published map[string]struct{}
}

// NewPublisher creates a publisher bound to the given broker and discovery
// generator.
func NewPublisher(broker Broker, discovery *Discovery, logger Logger) *Publisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{
		broker:    broker,
		discovery: discovery,
		logger:    logger,
		published: make(map[string]struct{}),
	}
}

// Publish emits one entity update.
//
// Descriptor publication failures are logged and do not suppress the state
// publications; states are independent of the descriptor.
func (p *Publisher) Publish(info driver.Info, entity driver.Entity, features Features) {
	topic := p.topics.DeviceEntity(info.ID, entity.Key)

	if p.markPublished(topic) {
		descriptor, err := json.Marshal(entity)
		if err != nil {
			p.logger.Warn("encoding entity descriptor failed",
				"device", info.ID,
				"entity", entity.Key,
				"error", err,
			)
		} else if err := p.broker.Publish(topic, descriptor, defaultQoS, true); err != nil {
			p.logger.Warn("publishing entity descriptor failed",
				"topic", topic,
				"error", err,
			)
		}
	}

	for _, state := range sortedKeysAny(entity.States) {
		stateTopic := p.topics.DeviceEntityState(info.ID, entity.Key, state)
		payload := fmt.Sprint(entity.States[state])
		if err := p.broker.Publish(stateTopic, []byte(payload), defaultQoS, true); err != nil {
			p.logger.Warn("publishing entity state failed",
				"topic", stateTopic,
				"error", err,
			)
		}
	}

	if features.HomeAssistant() && !p.discovery.Announced(topic) {
		p.discovery.Announce(info, entity, topic)
	}
}

// Reset clears the descriptor dedup set at the start of a reconciliation
// epoch. The discovery cache is deliberately not touched; it outlives
// reconciliations and is reset only by the hub's own restart signal.
func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = make(map[string]struct{})
}

// markPublished adds topic to the dedup set, reporting whether it was new.
func (p *Publisher) markPublished(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.published[topic]; ok {
		return false
	}
	p.published[topic] = struct{}{}
	return true
}
