// Package mqtt provides MQTT client connectivity for the fleet connector.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions restored across reconnects
//   - Last Will and Testament (LWT) for offline detection
//   - Topic builders for the connector and discovery namespaces
//
// # Architecture
//
// The broker is the only transport the connector speaks. Fleet configuration
// arrives on the config topic, device commands arrive on per-device command
// topics, and entity state plus discovery metadata flow back out:
//
//	Operator/Hub ↔ MQTT Broker ↔ Fleet Connector ↔ Device Drivers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Config(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("new fleet config: %s", payload)
//	        return nil
//	    })
package mqtt
