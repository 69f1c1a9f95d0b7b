package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/mqtt"
	"github.com/sebakerckhof/ats-bridge/internal/panel"
)

// mockMQTT is a test implementation of MQTTClient.
type mockMQTT struct {
	mu         sync.Mutex
	published  []publishedMessage
	handlers   map[string]mqtt.MessageHandler
	publishErr error
	subErr     error
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subErr != nil {
		return m.subErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool { return true }

// deliver simulates a broker delivering a message to the subscribed handler.
func (m *mockMQTT) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()

	m.mu.Lock()
	handler, ok := m.handlers["atsbridge/command/+/+"]
	m.mu.Unlock()
	if !ok {
		t.Fatal("bridge did not subscribe to the command pattern")
	}
	return handler(topic, payload)
}

func (m *mockMQTT) messages(topic string) []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []publishedMessage
	for _, p := range m.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockMQTT) publishCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// mockCoordinator is a test implementation of Coordinator.
type mockCoordinator struct {
	mu        sync.Mutex
	connected bool
	info      ats.PanelInfo
	entities  map[ats.EntityKind][]ats.Descriptor
	states    map[ats.EntityKind]map[int]ats.State
	forceArm  map[int]bool
	commands  []string
	cmdErr    error
	listener  panel.Listener
}

func newMockCoordinator() *mockCoordinator {
	return &mockCoordinator{
		connected: true,
		info:      ats.PanelInfo{Model: "ATS1500A-IP", Name: "House"},
		entities: map[ats.EntityKind][]ats.Descriptor{
			ats.KindArea: {{Number: 1, Name: "Ground Floor"}},
			ats.KindZone: {{Number: 1, Name: "Front Door"}, {Number: 2, Name: "Hallway"}},
		},
		states: map[ats.EntityKind]map[int]ats.State{
			ats.KindArea: {1: ats.AreaState{Unset: true}},
			ats.KindZone: {1: ats.ZoneState{}, 2: ats.ZoneState{Active: true}},
		},
		forceArm: make(map[int]bool),
	}
}

func (m *mockCoordinator) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockCoordinator) PanelInfo() ats.PanelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

func (m *mockCoordinator) Entities(kind ats.EntityKind) []ats.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entities[kind]
}

func (m *mockCoordinator) State(kind ats.EntityKind, number int) (ats.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.states[kind][number]
	return record, ok
}

func (m *mockCoordinator) RegisterGlobalListener(fn panel.Listener) func() {
	m.mu.Lock()
	m.listener = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.listener = nil
		m.mu.Unlock()
	}
}

func (m *mockCoordinator) SetForceArm(area int, enabled bool) {
	m.mu.Lock()
	m.forceArm[area] = enabled
	m.mu.Unlock()
}

// setState mutates an entity record and fires the registered listener, the
// way the real coordinator does after an event commit.
func (m *mockCoordinator) setState(kind ats.EntityKind, number int, record ats.State) {
	m.mu.Lock()
	if m.states[kind] == nil {
		m.states[kind] = make(map[int]ats.State)
	}
	m.states[kind][number] = record
	fn := m.listener
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *mockCoordinator) record(cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
	return m.cmdErr
}

func (m *mockCoordinator) ArmArea(_ context.Context, area int, mode ats.ArmMode) error {
	m.mu.Lock()
	force := m.forceArm[area]
	m.mu.Unlock()
	return m.record(fmt.Sprintf("arm %d %s force=%v", area, mode, force))
}

func (m *mockCoordinator) DisarmArea(_ context.Context, area int) error {
	return m.record(fmt.Sprintf("disarm %d", area))
}

func (m *mockCoordinator) InhibitZone(_ context.Context, zone int) error {
	return m.record(fmt.Sprintf("inhibit %d", zone))
}

func (m *mockCoordinator) UninhibitZone(_ context.Context, zone int) error {
	return m.record(fmt.Sprintf("uninhibit %d", zone))
}

func (m *mockCoordinator) ActivateOutput(_ context.Context, output int) error {
	return m.record(fmt.Sprintf("output-on %d", output))
}

func (m *mockCoordinator) DeactivateOutput(_ context.Context, output int) error {
	return m.record(fmt.Sprintf("output-off %d", output))
}

func (m *mockCoordinator) ActivateTrigger(_ context.Context, trigger int) error {
	return m.record(fmt.Sprintf("trigger-on %d", trigger))
}

func (m *mockCoordinator) DeactivateTrigger(_ context.Context, trigger int) error {
	return m.record(fmt.Sprintf("trigger-off %d", trigger))
}

func (m *mockCoordinator) commandLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}

// stateEnvelope mirrors StateMessage for decoding. The published State
// field is an interface, so reads keep it raw.
type stateEnvelope struct {
	Kind    string          `json:"kind"`
	Number  int             `json:"number"`
	Name    string          `json:"name"`
	Summary string          `json:"summary"`
	State   json.RawMessage `json:"state"`
}

func newTestBridge(t *testing.T, coord *mockCoordinator, client *mockMQTT) *Bridge {
	t.Helper()

	b, err := New(Options{Coordinator: coord, MQTT: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(b.Stop)
	return b
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{MQTT: newMockMQTT()}); err == nil {
		t.Error("expected error without coordinator")
	}
	if _, err := New(Options{Coordinator: newMockCoordinator()}); err == nil {
		t.Error("expected error without MQTT client")
	}
}

func TestQoSUsedAsConfigured(t *testing.T) {
	for _, qos := range []byte{0, 2} {
		coord := newMockCoordinator()
		client := newMockMQTT()
		b, err := New(Options{Coordinator: coord, MQTT: client, QoS: qos})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(b.Stop)
		if err := b.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}

		// QoS 0 in particular must not be silently upgraded.
		for _, p := range client.messages("atsbridge/system/connection") {
			if p.qos != qos {
				t.Errorf("published QoS = %d, want %d", p.qos, qos)
			}
		}
	}
}

func TestStartPublishesSnapshot(t *testing.T) {
	coord := newMockCoordinator()
	client := newMockMQTT()
	b := newTestBridge(t, coord, client)

	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Connection state, retained.
	conns := client.messages("atsbridge/system/connection")
	if len(conns) != 1 || !conns[0].retained {
		t.Fatalf("expected 1 retained connection message, got %d", len(conns))
	}
	var conn ConnectionMessage
	if err := json.Unmarshal(conns[0].payload, &conn); err != nil {
		t.Fatalf("bad connection payload: %v", err)
	}
	if !conn.Connected {
		t.Error("connection message should report connected")
	}

	// Panel descriptor, retained.
	panels := client.messages("atsbridge/panel")
	if len(panels) != 1 || !panels[0].retained {
		t.Fatalf("expected 1 retained panel message, got %d", len(panels))
	}

	// One state message per entity with a record.
	for _, topic := range []string{
		"atsbridge/state/area/1",
		"atsbridge/state/zone/1",
		"atsbridge/state/zone/2",
	} {
		msgs := client.messages(topic)
		if len(msgs) != 1 || !msgs[0].retained {
			t.Errorf("expected 1 retained message on %s, got %d", topic, len(msgs))
		}
	}

	zone2 := client.messages("atsbridge/state/zone/2")
	var msg stateEnvelope
	if err := json.Unmarshal(zone2[0].payload, &msg); err != nil {
		t.Fatalf("bad state payload: %v", err)
	}
	if msg.Kind != "zone" || msg.Number != 2 || msg.Name != "Hallway" {
		t.Errorf("unexpected envelope: %+v", msg)
	}
	if msg.Summary != "Active" {
		t.Errorf("Summary = %q, want Active", msg.Summary)
	}
}

func TestSyncRepublishesOnlyChanges(t *testing.T) {
	coord := newMockCoordinator()
	client := newMockMQTT()
	b := newTestBridge(t, coord, client)

	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	after := client.publishCount()

	// A change event that changed nothing publishes nothing.
	coord.setState(ats.KindZone, 2, ats.ZoneState{Active: true})
	if got := client.publishCount(); got != after {
		t.Errorf("no-op sync published %d extra messages", got-after)
	}

	// One changed record yields exactly one publish.
	coord.setState(ats.KindZone, 2, ats.ZoneState{})
	if got := client.publishCount(); got != after+1 {
		t.Errorf("expected exactly 1 new publish, got %d", got-after)
	}
	msgs := client.messages("atsbridge/state/zone/2")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages on zone 2 topic, got %d", len(msgs))
	}
	var msg stateEnvelope
	if err := json.Unmarshal(msgs[1].payload, &msg); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if msg.Summary != "Normal" {
		t.Errorf("Summary = %q, want Normal", msg.Summary)
	}
}

func TestConnectionFlipPublished(t *testing.T) {
	coord := newMockCoordinator()
	client := newMockMQTT()
	b := newTestBridge(t, coord, client)

	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	coord.mu.Lock()
	coord.connected = false
	fn := coord.listener
	coord.mu.Unlock()
	fn()

	conns := client.messages("atsbridge/system/connection")
	if len(conns) != 2 {
		t.Fatalf("expected 2 connection messages, got %d", len(conns))
	}
	var conn ConnectionMessage
	if err := json.Unmarshal(conns[1].payload, &conn); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if conn.Connected {
		t.Error("second connection message should report disconnected")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestConnectionOutageMirroredToBroker drives a real coordinator over the
// simulator: dropping the panel link and letting the automatic reconnection
// complete must leave the full outage visible on the connection topic, not
// just the final connected state.
func TestConnectionOutageMirroredToBroker(t *testing.T) {
	sim := ats.NewSimulator(ats.SimulatorConfig{})
	coord, err := panel.New(panel.Options{
		Clients:         func() ats.Client { return sim },
		ReconnectDelays: []time.Duration{time.Millisecond},
	})
	if err != nil {
		t.Fatalf("panel.New: %v", err)
	}
	t.Cleanup(func() { coord.Close() })

	if err := coord.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	client := newMockMQTT()
	b, err := New(Options{Coordinator: coord, MQTT: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(b.Stop)
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sim.DropConnection(errors.New("simulated link failure"))

	waitFor(t, time.Second, func() bool {
		return len(client.messages("atsbridge/system/connection")) >= 3
	}, "connection flips to reach the broker")
	waitFor(t, time.Second, coord.IsConnected, "reconnection")

	conns := client.messages("atsbridge/system/connection")
	if len(conns) != 3 {
		t.Fatalf("expected 3 connection messages, got %d", len(conns))
	}
	want := []bool{true, false, true}
	for i, m := range conns {
		var conn ConnectionMessage
		if err := json.Unmarshal(m.payload, &conn); err != nil {
			t.Fatalf("bad payload %d: %v", i, err)
		}
		if conn.Connected != want[i] {
			t.Errorf("connection message %d reports %v, want %v", i, conn.Connected, want[i])
		}
	}
}

func TestCommandRouting(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    string
	}{
		{"arm full", "atsbridge/command/area/1", `{"action":"arm"}`, "arm 1 full force=false"},
		{"arm part1", "atsbridge/command/area/1", `{"action":"arm","mode":"part1"}`, "arm 1 part1 force=false"},
		{"arm force", "atsbridge/command/area/1", `{"action":"arm","force":true}`, "arm 1 full force=true"},
		{"disarm", "atsbridge/command/area/1", `{"action":"disarm"}`, "disarm 1"},
		{"inhibit", "atsbridge/command/zone/2", `{"action":"inhibit"}`, "inhibit 2"},
		{"uninhibit", "atsbridge/command/zone/2", `{"action":"uninhibit"}`, "uninhibit 2"},
		{"output on", "atsbridge/command/output/1", `{"action":"on"}`, "output-on 1"},
		{"output off", "atsbridge/command/output/1", `{"action":"off"}`, "output-off 1"},
		{"trigger on", "atsbridge/command/trigger/2", `{"action":"on"}`, "trigger-on 2"},
		{"trigger off", "atsbridge/command/trigger/2", `{"action":"off"}`, "trigger-off 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := newMockCoordinator()
			client := newMockMQTT()
			b := newTestBridge(t, coord, client)
			if err := b.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}

			if err := client.deliver(t, tt.topic, []byte(tt.payload)); err != nil {
				t.Fatalf("deliver: %v", err)
			}

			log := coord.commandLog()
			if len(log) != 1 || log[0] != tt.want {
				t.Errorf("command log %v, want [%s]", log, tt.want)
			}
		})
	}
}

func TestCommandErrors(t *testing.T) {
	coord := newMockCoordinator()
	client := newMockMQTT()
	b := newTestBridge(t, coord, client)
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"short topic", "atsbridge/command/area", `{"action":"arm"}`},
		{"unknown kind", "atsbridge/command/door/1", `{"action":"arm"}`},
		{"bad number", "atsbridge/command/area/one", `{"action":"arm"}`},
		{"bad json", "atsbridge/command/area/1", `{`},
		{"unknown action", "atsbridge/command/area/1", `{"action":"explode"}`},
		{"bad arm mode", "atsbridge/command/area/1", `{"action":"arm","mode":"night"}`},
		{"zone arm", "atsbridge/command/zone/1", `{"action":"arm"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.deliver(t, tt.topic, []byte(tt.payload)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if log := coord.commandLog(); len(log) != 0 {
		t.Errorf("invalid commands reached the coordinator: %v", log)
	}
}

func TestCommandFailurePropagates(t *testing.T) {
	coord := newMockCoordinator()
	coord.cmdErr = panel.ErrNotConnected
	client := newMockMQTT()
	b := newTestBridge(t, coord, client)
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	err := client.deliver(t, "atsbridge/command/area/1", []byte(`{"action":"disarm"}`))
	if !errors.Is(err, panel.ErrNotConnected) {
		t.Errorf("deliver = %v, want ErrNotConnected", err)
	}
}

func TestStopUnregistersListener(t *testing.T) {
	coord := newMockCoordinator()
	client := newMockMQTT()
	b := newTestBridge(t, coord, client)
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	b.Stop()

	coord.mu.Lock()
	registered := coord.listener != nil
	coord.mu.Unlock()
	if registered {
		t.Error("Stop did not unregister the coordinator listener")
	}
}

func TestSubscribeFailure(t *testing.T) {
	coord := newMockCoordinator()
	client := newMockMQTT()
	client.subErr = errors.New("broker unavailable")
	b := newTestBridge(t, coord, client)

	if err := b.Start(); err == nil {
		t.Error("expected Start to fail when subscribe fails")
	}
}
