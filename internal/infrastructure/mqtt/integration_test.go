//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/config"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	pub, err := Connect(integrationConfig("atsbridge-int-pub"))
	if err != nil {
		t.Fatalf("Connect publisher: %v", err)
	}
	defer pub.Close()

	sub, err := Connect(integrationConfig("atsbridge-int-sub"))
	if err != nil {
		t.Fatalf("Connect subscriber: %v", err)
	}
	defer sub.Close()

	topic := "atsbridge/int/roundtrip"
	expected := "test-message-12345"

	received := make(chan string, 1)
	var once sync.Once
	err = sub.Subscribe(topic, 1, func(_ string, p []byte) error {
		once.Do(func() { received <- string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.Publish(topic, []byte(expected), 1, false); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-received:
		if msg != expected {
			t.Errorf("received %q, want %q", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}

func TestIntegration_UnsubscribeStopsDelivery(t *testing.T) {
	pub, err := Connect(integrationConfig("atsbridge-int-unsub-pub"))
	if err != nil {
		t.Fatalf("Connect publisher: %v", err)
	}
	defer pub.Close()

	sub, err := Connect(integrationConfig("atsbridge-int-unsub"))
	if err != nil {
		t.Fatalf("Connect subscriber: %v", err)
	}
	defer sub.Close()

	topic := "atsbridge/int/unsubscribe"

	var mu sync.Mutex
	delivered := 0
	err = sub.Subscribe(topic, 1, func(string, []byte) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := pub.Publish(topic, []byte("before"), 1, false); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := sub.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := pub.Publish(topic, []byte("after"), 1, false); err != nil {
		t.Fatalf("Publish after unsubscribe: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if delivered != 1 {
		t.Errorf("delivered = %d messages, want 1 (before unsubscribe only)", delivered)
	}
}

func TestIntegration_AvailabilityRetained(t *testing.T) {
	// The availability topic is retained, so a late subscriber sees the
	// bridge's current status immediately.
	bridge, err := Connect(integrationConfig("atsbridge-int-avail"))
	if err != nil {
		t.Fatalf("Connect bridge: %v", err)
	}
	defer bridge.Close()

	time.Sleep(200 * time.Millisecond)

	watcher, err := Connect(integrationConfig("atsbridge-int-avail-watch"))
	if err != nil {
		t.Fatalf("Connect watcher: %v", err)
	}
	defer watcher.Close()

	received := make(chan []byte, 1)
	var once sync.Once
	err = watcher.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, p []byte) error {
		once.Do(func() { received <- p })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case payload := <-received:
		if len(payload) == 0 {
			t.Error("empty availability payload")
		}
	case <-time.After(5 * time.Second):
		t.Error("retained availability message not delivered")
	}
}
