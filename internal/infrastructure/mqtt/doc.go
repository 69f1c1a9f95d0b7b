// Package mqtt wraps the paho MQTT client for the ATS bridge.
//
// The bridge mirrors panel state onto retained topics and accepts commands
// back, so home-automation systems can integrate the alarm panel without
// speaking its protocol:
//
//	ATS panel ↔ atsbridge ↔ MQTT broker ↔ consumers (Home Assistant, ...)
//
// On top of plain pub/sub the client adds what a long-running daemon needs:
// auto-reconnect with subscription replay, a retained availability topic
// backed by a broker LWT so a crash is distinguishable from a clean
// shutdown, and panic containment around message handlers.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllEntityCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return dispatch(topic, payload)
//	    })
//
// Topic names are built through Topics so the scheme stays consistent
// across the bridge and its tests.
package mqtt
