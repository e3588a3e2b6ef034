// Package mqtt provides the MQTT client used by the climate daemon.
//
// The broker carries two kinds of traffic:
//   - Inbound sensor advertisements, published by a BLE gateway on
//     graylogic/climate/sensor/{mac}/state and cached by the sensor bridge
//   - Outbound retained state: the per-room LED colour and the daemon
//     online/offline status (also registered as the Last Will)
//
// The client reconnects automatically and restores its subscriptions.
// Publishing while disconnected returns ErrNotConnected rather than queueing.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllSensorStates(), 1, cache.HandleMessage)
package mqtt
