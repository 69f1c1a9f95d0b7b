package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/mqtt"
	"github.com/sebakerckhof/ats-bridge/internal/panel"
)

// Bridge operation constants.
const (
	// commandTopicParts is the exact part count of a valid command topic:
	// atsbridge/command/{kind}/{number}.
	commandTopicParts = 4

	// commandTimeout bounds a single panel command issued from MQTT.
	commandTimeout = 10 * time.Second
)

// Coordinator is the panel surface the bridge drives. Satisfied by
// *panel.Coordinator; narrowed to an interface for testing.
type Coordinator interface {
	IsConnected() bool
	PanelInfo() ats.PanelInfo
	Entities(kind ats.EntityKind) []ats.Descriptor
	State(kind ats.EntityKind, number int) (ats.State, bool)
	RegisterGlobalListener(fn panel.Listener) func()
	SetForceArm(area int, enabled bool)

	ArmArea(ctx context.Context, area int, mode ats.ArmMode) error
	DisarmArea(ctx context.Context, area int) error
	InhibitZone(ctx context.Context, zone int) error
	UninhibitZone(ctx context.Context, zone int) error
	ActivateOutput(ctx context.Context, output int) error
	DeactivateOutput(ctx context.Context, output int) error
	ActivateTrigger(ctx context.Context, trigger int) error
	DeactivateTrigger(ctx context.Context, trigger int) error
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	// Coordinator is the panel coordinator. Required.
	Coordinator Coordinator

	// MQTT is the MQTT client implementation. Required.
	MQTT MQTTClient

	// QoS is the QoS level for published state and command subscriptions,
	// used as given. QoS 0 is valid.
	QoS byte

	// Logger is an optional structured logger.
	Logger Logger
}

// cacheKey identifies one entity's cached state payload.
type cacheKey struct {
	kind   ats.EntityKind
	number int
}

// Bridge mirrors the coordinator's state snapshot onto retained MQTT topics
// and executes commands arriving on the command topics.
//
// Thread Safety: all methods are safe for concurrent use.
type Bridge struct {
	coord  Coordinator
	mqtt   MQTTClient
	qos    byte
	logger Logger
	topics mqtt.Topics

	// cache of marshaled state records for change detection, so a sync
	// pass republishes only entities that actually moved.
	cacheMu       sync.Mutex
	stateCache    map[cacheKey][]byte
	lastConnected *bool
	lastPanel     *ats.PanelInfo

	unregister func()

	// ctx is cancelled on Stop() to abort in-flight commands.
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// New creates a bridge. Call Start to begin mirroring state.
func New(opts Options) (*Bridge, error) {
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		coord:      opts.Coordinator,
		mqtt:       opts.MQTT,
		qos:        opts.QoS,
		logger:     logger,
		stateCache: make(map[cacheKey][]byte),
		ctx:        ctx,
		ctxCancel:  cancel,
	}, nil
}

// Start subscribes to the command topics, hooks the coordinator's change
// stream, and publishes the current snapshot.
func (b *Bridge) Start() error {
	commandTopic := b.topics.AllEntityCommands()
	if err := b.mqtt.Subscribe(commandTopic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", commandTopic)

	b.unregister = b.coord.RegisterGlobalListener(b.sync)

	// Publish whatever the coordinator already knows.
	b.sync()

	b.logger.Info("bridge started")
	return nil
}

// Stop detaches from the coordinator and aborts in-flight commands.
// Retained state stays on the broker; the MQTT client's LWT reports the
// bridge itself going away.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		if b.unregister != nil {
			b.unregister()
		}
		b.logger.Info("bridge stopped")
	})
}

// =============================================================================
// State fan-out
// =============================================================================

// sync publishes everything that changed since the last pass: session
// state, panel descriptor, and entity records. Runs on the coordinator's
// event path, so a single entity change costs one cache lookup per known
// entity and exactly one publish.
func (b *Bridge) sync() {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()

	b.syncConnection()
	b.syncPanelInfo()
	for _, kind := range ats.Kinds {
		for _, desc := range b.coord.Entities(kind) {
			b.syncEntity(kind, desc)
		}
	}
}

// syncConnection publishes the session state when it flips.
func (b *Bridge) syncConnection() {
	connected := b.coord.IsConnected()
	if b.lastConnected != nil && *b.lastConnected == connected {
		return
	}

	msg := ConnectionMessage{Connected: connected, Timestamp: time.Now().UTC()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := b.mqtt.Publish(b.topics.SystemConnection(), payload, b.qos, true); err != nil {
		b.logger.Warn("failed to publish connection state", "error", err)
		return
	}
	b.lastConnected = &connected
}

// syncPanelInfo publishes the panel descriptor when it changes, which in
// practice happens once per connection.
func (b *Bridge) syncPanelInfo() {
	info := b.coord.PanelInfo()
	if info == (ats.PanelInfo{}) {
		return
	}
	if b.lastPanel != nil && *b.lastPanel == info {
		return
	}

	msg := PanelMessage{Panel: info, Timestamp: time.Now().UTC()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := b.mqtt.Publish(b.topics.PanelInfo(), payload, b.qos, true); err != nil {
		b.logger.Warn("failed to publish panel info", "error", err)
		return
	}
	b.lastPanel = &info
}

// syncEntity publishes one entity's state if its record changed since the
// last publish. Caller holds cacheMu.
func (b *Bridge) syncEntity(kind ats.EntityKind, desc ats.Descriptor) {
	record, ok := b.coord.State(kind, desc.Number)
	if !ok {
		return
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		b.logger.Error("failed to marshal state record",
			"kind", kind.String(), "number", desc.Number, "error", err)
		return
	}

	key := cacheKey{kind: kind, number: desc.Number}
	if cached, ok := b.stateCache[key]; ok && string(cached) == string(recordJSON) {
		return
	}

	msg := StateMessage{
		Kind:      kind.String(),
		Number:    desc.Number,
		Name:      desc.Name,
		Summary:   record.Summary(),
		State:     record,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	topic := b.topics.EntityState(kind.String(), desc.Number)
	if err := b.mqtt.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Warn("failed to publish state", "topic", topic, "error", err)
		return
	}
	b.stateCache[key] = recordJSON

	b.logger.Debug("published state",
		"topic", topic, "summary", msg.Summary)
}

// =============================================================================
// Command handling
// =============================================================================

// handleCommand executes a command message arriving on a command topic.
// A returned error is logged by the MQTT client's handler wrapper.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts {
		return fmt.Errorf("invalid command topic %q", topic)
	}

	kind, err := ats.ParseEntityKind(parts[2])
	if err != nil {
		return fmt.Errorf("command topic %q: %w", topic, err)
	}
	number, err := strconv.Atoi(parts[3])
	if err != nil {
		return fmt.Errorf("command topic %q: bad entity number: %w", topic, err)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parse command payload: %w", err)
	}

	b.logger.Info("received command",
		"kind", kind.String(), "number", number, "action", cmd.Action)

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.executeCommand(ctx, kind, number, cmd); err != nil {
		b.logger.Error("command failed",
			"kind", kind.String(), "number", number, "action", cmd.Action, "error", err)
		return err
	}
	return nil
}

// executeCommand maps (kind, action) onto a coordinator command.
func (b *Bridge) executeCommand(ctx context.Context, kind ats.EntityKind, number int, cmd CommandMessage) error {
	switch kind {
	case ats.KindArea:
		switch cmd.Action {
		case "arm":
			mode, err := ats.ParseArmMode(cmd.Mode)
			if err != nil {
				return err
			}
			if cmd.Force != nil {
				b.coord.SetForceArm(number, *cmd.Force)
			}
			return b.coord.ArmArea(ctx, number, mode)
		case "disarm":
			return b.coord.DisarmArea(ctx, number)
		}
	case ats.KindZone:
		switch cmd.Action {
		case "inhibit":
			return b.coord.InhibitZone(ctx, number)
		case "uninhibit":
			return b.coord.UninhibitZone(ctx, number)
		}
	case ats.KindOutput:
		switch cmd.Action {
		case "on":
			return b.coord.ActivateOutput(ctx, number)
		case "off":
			return b.coord.DeactivateOutput(ctx, number)
		}
	case ats.KindTrigger:
		switch cmd.Action {
		case "on":
			return b.coord.ActivateTrigger(ctx, number)
		case "off":
			return b.coord.DeactivateTrigger(ctx, number)
		}
	}
	return fmt.Errorf("unknown action %q for %s", cmd.Action, kind)
}
