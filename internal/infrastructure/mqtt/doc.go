// Package mqtt provides the MQTT bus connection for Telemetry Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and a persistent session
//   - Publishing with QoS guarantees
//   - Subscriptions with explicit, deferred acknowledgement
//   - Last Will and Testament (LWT) for offline detection
//   - Topic filter validation and matching
//
// # Delivery
//
// Automatic acknowledgement is disabled. Subscribe acks each message once its
// handler returns; SubscribeManual passes the ack function to the handler so a
// consumer can ack after downstream processing. With clean_session false and
// QoS 1 the broker redelivers anything not acked before a crash.
//
// Handlers run in arrival order on paho's delivery goroutine. Publishing from a
// handler can block on a PUBACK that is queued behind the handler itself, so
// handlers pass messages to another goroutine instead.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SubscribeManual(cfg.MQTT.Topics.Telemetry, 1,
//	    func(topic string, payload []byte, ack func()) {
//	        queue <- telemetry.Message{Topic: topic, Payload: payload, Ack: ack}
//	    })
package mqtt
