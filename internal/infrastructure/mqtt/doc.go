// Package mqtt provides MQTT client connectivity for the TerraTap hub.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Topic builders for the settings/ and home/ namespaces
//
// # Architecture
//
// MQTT is the only channel between the hub and the field clients (sensor
// and watering controllers). The hub publishes its settings as retained
// messages under settings/ and exchanges commands and queries under home/.
//
//	Field clients ↔ MQTT Broker ↔ TerraTap hub
//
// # Callbacks
//
// paho delivers messages on a single goroutine in arrival order. Handlers
// must not block on publish tokens from that goroutine; the hub only
// enqueues events there and does its work on its own event loop.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT,
//	    mqtt.WithOnConnect(inbox.Connected),
//	    mqtt.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Wildcard("home/sensor"), mqtt.QoSExactlyOnce, inbox.Message)
package mqtt
