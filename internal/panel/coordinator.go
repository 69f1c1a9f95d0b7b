package panel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
)

// Logger defines the logging interface used by the Coordinator.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ClientFactory produces a fresh panel session client. The coordinator
// never reuses a client across a disconnect/connect cycle — each session
// gets its own handle, and the old one is torn down and discarded.
type ClientFactory func() ats.Client

// Default reconnection settings, matching the panel's recommended retry
// profile.
var defaultReconnectDelays = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	40 * time.Second,
	60 * time.Second,
	120 * time.Second,
}

const (
	// defaultMaxFastAttempts is the attempt count after which the "continuing
	// at max delay" notice is logged. Retrying itself never stops.
	defaultMaxFastAttempts = 20

	// reconnectAttemptTimeout bounds a single reconnection attempt
	// (session open + authenticate + full fetch).
	reconnectAttemptTimeout = 30 * time.Second
)

// Options configures a Coordinator.
type Options struct {
	// Clients produces a fresh session client per connection. Required.
	Clients ClientFactory

	// Logger is an optional structured logger.
	Logger Logger

	// ReconnectDelays overrides the backoff schedule. The last entry is
	// reused indefinitely once the schedule is exhausted.
	ReconnectDelays []time.Duration

	// MaxFastAttempts overrides the attempt count that triggers the
	// "continuing at max delay" notice.
	MaxFastAttempts int
}

// Stats holds operational statistics.
type Stats struct {
	Connected         bool
	Reconnecting      bool   // True while a reconnection task is pending or running
	ReconnectAttempts int    // Consecutive failed attempts since the last success
	ReconnectsTotal   uint64 // Successful reconnections
	EventsReceived    uint64
	ListenerPanics    uint64
	Listeners         int
}

// Coordinator owns the panel session lifecycle and the state snapshot.
// See the package documentation for the state machine and ordering
// guarantees.
type Coordinator struct {
	newClient ClientFactory
	store     *Store
	listeners *listenerRegistry
	logger    Logger

	// lifecycleMu serialises session open/teardown: user Connect and
	// Disconnect calls and reconnection attempts all hold it, so two
	// session-open sequences can never run concurrently.
	lifecycleMu sync.Mutex

	// mu guards the fast-changing coordinator state below.
	mu        sync.RWMutex
	client    ats.Client // nil while disconnected
	connected bool
	closed    bool
	forceArm  map[int]bool

	// Reconnection state. reconnectCancel identifies the single pending
	// task; closing it cancels the task's backoff sleep.
	reconnectDelays   []time.Duration
	maxFastAttempts   int
	reconnectAttempts int
	reconnectPending  bool
	reconnectCancel   chan struct{}

	done chan struct{}
	wg   sync.WaitGroup

	// Statistics (atomic for lock-free updates from the event path)
	eventsRx        atomic.Uint64
	reconnectsTotal atomic.Uint64
	listenerPanics  atomic.Uint64
}

// New creates a coordinator. Call Connect to open the first session and
// Close to shut down.
func New(opts Options) (*Coordinator, error) {
	if opts.Clients == nil {
		return nil, fmt.Errorf("client factory is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	delays := opts.ReconnectDelays
	if len(delays) == 0 {
		delays = defaultReconnectDelays
	}

	maxFast := opts.MaxFastAttempts
	if maxFast <= 0 {
		maxFast = defaultMaxFastAttempts
	}

	return &Coordinator{
		newClient:       opts.Clients,
		store:           NewStore(),
		listeners:       newListenerRegistry(),
		logger:          logger,
		forceArm:        make(map[int]bool),
		reconnectDelays: delays,
		maxFastAttempts: maxFast,
		done:            make(chan struct{}),
	}, nil
}

// Connect opens a panel session, performs the full-state fetch, populates
// the store, and starts accepting push events.
//
// A failure anywhere in the sequence tears down partial session resources
// and is returned to the caller; this path never retries. Autonomous
// reconnection applies only after a previously successful connection is
// lost.
//
// A Connect issued while a reconnection task is pending cancels that task
// first, so session-open attempts never overlap.
func (c *Coordinator) Connect(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if c.IsConnected() {
		return ErrAlreadyConnected
	}

	c.cancelPendingReconnect()
	return c.connect(ctx)
}

// connect runs the connect/initialize sequence. Caller holds lifecycleMu.
func (c *Coordinator) connect(ctx context.Context) error {
	client := c.newClient()
	client.SetOnChange(c.handleChange)
	// Bind the lost callback to this client so a stale notification from a
	// superseded session cannot tear down its replacement.
	client.SetOnConnectionLost(func(err error) {
		c.handleConnectionLost(client, err)
	})

	c.logger.Debug("connecting to panel")
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	snapshot, err := client.Initialize(ctx)
	if err != nil {
		// Tear down the half-open session before reporting failure.
		c.teardown(client)
		return fmt.Errorf("%w: initialize: %w", ErrConnectFailed, err)
	}

	c.store.SetPanelInfo(snapshot.Panel)
	for _, kind := range ats.Kinds {
		c.store.SetEntities(kind, snapshot.Descriptors(kind))
		for number, record := range snapshot.States(kind) {
			c.store.ApplyState(kind, number, record)
		}
	}

	c.mu.Lock()
	c.client = client
	c.connected = true
	c.reconnectAttempts = 0
	c.mu.Unlock()

	c.logger.Info("connected to panel",
		"model", snapshot.Panel.Model,
		"name", snapshot.Panel.Name,
		"firmware", snapshot.Panel.FirmwareVersion,
		"areas", len(snapshot.Areas),
		"zones", len(snapshot.Zones),
		"outputs", len(snapshot.Outputs),
		"triggers", len(snapshot.Triggers),
	)

	// Initialization broadcast: the store was bulk-populated, so one global
	// notification suffices — nothing was subscribed to per-entity state
	// that existed before this session.
	c.invoke(c.listeners.snapshotGlobal())

	return nil
}

// Disconnect stops the session. Best-effort: teardown errors are logged and
// swallowed, a pending reconnection task is cancelled, and the coordinator
// always ends up Disconnected. Safe to call from any state, repeatedly.
func (c *Coordinator) Disconnect(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.cancelPendingReconnect()
	c.disconnect(ctx)
	return nil
}

// disconnect tears down the current session, if any. Global listeners are
// notified once the session is down, so consumers mirroring the session
// state see deliberate disconnects too. Caller holds lifecycleMu.
func (c *Coordinator) disconnect(ctx context.Context) {
	c.mu.Lock()
	client := c.client
	wasConnected := c.connected
	c.client = nil
	c.connected = false
	c.mu.Unlock()

	if client == nil {
		return
	}

	if err := client.Disconnect(ctx); err != nil {
		c.logger.Warn("error during session teardown", "error", err)
	}
	c.logger.Debug("disconnected from panel")

	if wasConnected {
		c.invoke(c.listeners.snapshotGlobal())
	}
}

// teardown discards a half-open session after a connect failure.
func (c *Coordinator) teardown(client ats.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		c.logger.Warn("error tearing down failed session", "error", err)
	}
}

// Close shuts the coordinator down: disconnects, cancels any pending
// reconnection, and waits for background tasks to finish. The coordinator
// cannot be reused afterwards.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Disconnect(ctx) //nolint:errcheck // Disconnect never fails

	c.wg.Wait()
	c.logger.Info("coordinator closed")
	return nil
}

// IsConnected reports whether a panel session is open and initialized.
func (c *Coordinator) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Coordinator) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Entities returns the ordered descriptor list for a kind. Empty until a
// connection has initialized the store.
func (c *Coordinator) Entities(kind ats.EntityKind) []ats.Descriptor {
	return c.store.Entities(kind)
}

// State returns the latest state record for an entity, if one has been
// reported this session.
func (c *Coordinator) State(kind ats.EntityKind, number int) (ats.State, bool) {
	return c.store.State(kind, number)
}

// PanelInfo returns the descriptor of the connected panel.
func (c *Coordinator) PanelInfo() ats.PanelInfo {
	return c.store.PanelInfo()
}

// RegisterListener subscribes to changes for one entity. The callback runs
// synchronously on the event path after the store commit, in registration
// order. The returned func unregisters exactly this subscription and is
// safe to call more than once.
func (c *Coordinator) RegisterListener(kind ats.EntityKind, number int, fn Listener) func() {
	return c.listeners.register(kind, number, fn)
}

// RegisterGlobalListener subscribes to every state change, including the
// initialization broadcast.
func (c *Coordinator) RegisterGlobalListener(fn Listener) func() {
	return c.listeners.registerGlobal(fn)
}

// SetForceArm records the client-side force preference for an area. It is
// consulted when an arm command is issued for that area, not sent to the
// panel by itself.
func (c *Coordinator) SetForceArm(area int, enabled bool) {
	c.mu.Lock()
	c.forceArm[area] = enabled
	c.mu.Unlock()
}

// ForceArm returns the force preference for an area; false unless set.
func (c *Coordinator) ForceArm(area int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.forceArm[area]
}

// Stats returns current operational statistics.
func (c *Coordinator) Stats() Stats {
	c.mu.RLock()
	connected := c.connected
	reconnecting := c.reconnectPending
	attempts := c.reconnectAttempts
	c.mu.RUnlock()

	return Stats{
		Connected:         connected,
		Reconnecting:      reconnecting,
		ReconnectAttempts: attempts,
		ReconnectsTotal:   c.reconnectsTotal.Load(),
		EventsReceived:    c.eventsRx.Load(),
		ListenerPanics:    c.listenerPanics.Load(),
		Listeners:         c.listeners.count(),
	}
}

// =============================================================================
// Event application
// =============================================================================

// handleChange applies one push event: store commit first, then per-entity
// fan-out, then the global broadcast. Events arriving after the session
// went away are dropped — a fresh full fetch will supersede them anyway.
func (c *Coordinator) handleChange(ev ats.ChangeEvent) {
	if !c.IsConnected() {
		c.logger.Debug("dropping event for closed session",
			"kind", ev.Kind.String(), "number", ev.Number)
		return
	}

	c.eventsRx.Add(1)
	c.store.ApplyState(ev.Kind, ev.Number, ev.New)

	c.logger.Debug("state changed",
		"kind", ev.Kind.String(),
		"number", ev.Number,
		"name", ev.Name,
		"state", ev.New.Summary(),
	)

	scoped, global := c.listeners.snapshot(ev.Kind, ev.Number)
	c.invoke(scoped)
	c.invoke(global)
}

// invoke runs listeners in order. A panicking listener is recovered and
// logged; it never prevents the remaining listeners from running and never
// affects the state already committed to the store.
func (c *Coordinator) invoke(listeners []Listener) {
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.listenerPanics.Add(1)
					c.logger.Error("listener panic recovered", "panic", r)
				}
			}()
			fn()
		}()
	}
}

// =============================================================================
// Commands
// =============================================================================

// sessionClient returns the open session or ErrNotConnected. Commands never
// queue: without a session the external client is not touched at all.
func (c *Coordinator) sessionClient() (ats.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

// ArmArea arms an area. The force flag is resolved from the coordinator's
// force-arm map at call time and forwarded alongside the mode. The command
// result reports only acceptance — the resulting area state arrives later
// through the push path.
func (c *Coordinator) ArmArea(ctx context.Context, area int, mode ats.ArmMode) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	force := c.ForceArm(area)
	if err := client.ArmArea(ctx, area, mode, force); err != nil {
		c.logger.Error("arm area failed", "area", area, "mode", mode.String(), "force", force, "error", err)
		return err
	}
	return nil
}

// DisarmArea disarms an area.
func (c *Coordinator) DisarmArea(ctx context.Context, area int) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	if err := client.DisarmArea(ctx, area); err != nil {
		c.logger.Error("disarm area failed", "area", area, "error", err)
		return err
	}
	return nil
}

// InhibitZone inhibits a zone.
func (c *Coordinator) InhibitZone(ctx context.Context, zone int) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	if err := client.InhibitZone(ctx, zone); err != nil {
		c.logger.Error("inhibit zone failed", "zone", zone, "error", err)
		return err
	}
	return nil
}

// UninhibitZone removes a zone inhibit.
func (c *Coordinator) UninhibitZone(ctx context.Context, zone int) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	if err := client.UninhibitZone(ctx, zone); err != nil {
		c.logger.Error("uninhibit zone failed", "zone", zone, "error", err)
		return err
	}
	return nil
}

// ActivateOutput energises an output.
func (c *Coordinator) ActivateOutput(ctx context.Context, output int) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	if err := client.ActivateOutput(ctx, output); err != nil {
		c.logger.Error("activate output failed", "output", output, "error", err)
		return err
	}
	return nil
}

// DeactivateOutput de-energises an output.
func (c *Coordinator) DeactivateOutput(ctx context.Context, output int) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	if err := client.DeactivateOutput(ctx, output); err != nil {
		c.logger.Error("deactivate output failed", "output", output, "error", err)
		return err
	}
	return nil
}

// ActivateTrigger activates a trigger.
func (c *Coordinator) ActivateTrigger(ctx context.Context, trigger int) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	if err := client.ActivateTrigger(ctx, trigger); err != nil {
		c.logger.Error("activate trigger failed", "trigger", trigger, "error", err)
		return err
	}
	return nil
}

// DeactivateTrigger deactivates a trigger.
func (c *Coordinator) DeactivateTrigger(ctx context.Context, trigger int) error {
	client, err := c.sessionClient()
	if err != nil {
		return err
	}

	if err := client.DeactivateTrigger(ctx, trigger); err != nil {
		c.logger.Error("deactivate trigger failed", "trigger", trigger, "error", err)
		return err
	}
	return nil
}
