// Package mqtt provides MQTT client connectivity for Steward Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Steward uses MQTT as the message bus between the core and field devices
// (call buttons, crew wearables, repeaters, companion apps). The broker
// decouples the core from device firmware specifics.
//
//	Steward Core ↔ MQTT Broker ↔ Field Devices
//
// Inbound topics carry button presses, registrations, heartbeats, telemetry
// and wearable acknowledgements; outbound topics carry per-device commands,
// wearable notifications and service-request broadcasts. The bus package
// owns topic handlers; this package owns the transport.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllButtonPresses(), 1,
//	    func(topic string, payload []byte) error {
//	        // dispatch to the ingestion pipeline
//	        return nil
//	    })
package mqtt
