package ats

import (
	"context"
	"fmt"
	"sync"
)

// eventQueueSize bounds the simulator's push-event queue.
const eventQueueSize = 64

// SimulatorConfig sizes the simulated panel topology.
type SimulatorConfig struct {
	Areas    int
	Zones    int
	Outputs  int
	Triggers int
}

// Simulator is an in-memory Client implementation. It models a small panel:
// commands mutate entity state and come back as push events, the same way a
// real panel confirms commands through its monitor channel.
//
// Thread Safety: all methods are safe for concurrent use. Push events are
// delivered from a single dispatcher goroutine, preserving order.
type Simulator struct {
	cfg SimulatorConfig

	mu        sync.Mutex
	connected bool
	areas     map[int]AreaState
	zones     map[int]ZoneState
	outputs   map[int]OutputState
	triggers  map[int]TriggerState

	onChange func(ChangeEvent)
	onLost   func(error)
	cbMu     sync.RWMutex

	events chan ChangeEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// Interface guard.
var _ Client = (*Simulator)(nil)

// NewSimulator creates a simulator with the given topology. Zero counts
// default to a 2-area, 8-zone, 2-output, 2-trigger panel.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Areas == 0 {
		cfg.Areas = 2
	}
	if cfg.Zones == 0 {
		cfg.Zones = 8
	}
	if cfg.Outputs == 0 {
		cfg.Outputs = 2
	}
	if cfg.Triggers == 0 {
		cfg.Triggers = 2
	}
	return &Simulator{cfg: cfg}
}

// Connect opens the simulated session.
func (s *Simulator) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("%w: session already open", ErrConnectionFailed)
	}

	s.connected = true

	// Panel state persists across sessions, like a real panel's would:
	// defaults are seeded on the first connect only.
	if s.areas == nil {
		s.areas = make(map[int]AreaState, s.cfg.Areas)
		s.zones = make(map[int]ZoneState, s.cfg.Zones)
		s.outputs = make(map[int]OutputState, s.cfg.Outputs)
		s.triggers = make(map[int]TriggerState, s.cfg.Triggers)
		for n := 1; n <= s.cfg.Areas; n++ {
			s.areas[n] = AreaState{Unset: true, ReadyToArm: true}
		}
		for n := 1; n <= s.cfg.Zones; n++ {
			s.zones[n] = ZoneState{}
		}
		for n := 1; n <= s.cfg.Outputs; n++ {
			s.outputs[n] = OutputState{}
		}
		for n := 1; n <= s.cfg.Triggers; n++ {
			s.triggers[n] = TriggerState{RemoteOutput: true}
		}
	}

	s.events = make(chan ChangeEvent, eventQueueSize)
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.dispatchLoop(s.events, s.done)

	return nil
}

// Initialize returns the full topology and initial states.
func (s *Simulator) Initialize(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, ErrNotConnected
	}

	snap := &Snapshot{
		Panel: PanelInfo{
			Model:           "ATS1500A-SIM",
			Name:            "Simulated Panel",
			FirmwareVersion: "SIM-1.0",
		},
		AreaStates:    make(map[int]AreaState, len(s.areas)),
		ZoneStates:    make(map[int]ZoneState, len(s.zones)),
		OutputStates:  make(map[int]OutputState, len(s.outputs)),
		TriggerStates: make(map[int]TriggerState, len(s.triggers)),
	}
	for n := 1; n <= s.cfg.Areas; n++ {
		snap.Areas = append(snap.Areas, Descriptor{Number: n, Name: fmt.Sprintf("Area %d", n)})
		snap.AreaStates[n] = s.areas[n]
	}
	for n := 1; n <= s.cfg.Zones; n++ {
		snap.Zones = append(snap.Zones, Descriptor{Number: n, Name: fmt.Sprintf("Zone %d", n)})
		snap.ZoneStates[n] = s.zones[n]
	}
	for n := 1; n <= s.cfg.Outputs; n++ {
		snap.Outputs = append(snap.Outputs, Descriptor{Number: n, Name: fmt.Sprintf("Output %d", n)})
		snap.OutputStates[n] = s.outputs[n]
	}
	for n := 1; n <= s.cfg.Triggers; n++ {
		snap.Triggers = append(snap.Triggers, Descriptor{Number: n, Name: fmt.Sprintf("Trigger %d", n)})
		snap.TriggerStates[n] = s.triggers[n]
	}
	return snap, nil
}

// Disconnect closes the simulated session. Safe to call on an already
// closed session.
func (s *Simulator) Disconnect(_ context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	done := s.done
	s.mu.Unlock()

	close(done)
	s.wg.Wait()
	return nil
}

// SetOnChange registers the push-event callback.
func (s *Simulator) SetOnChange(fn func(ChangeEvent)) {
	s.cbMu.Lock()
	s.onChange = fn
	s.cbMu.Unlock()
}

// SetOnConnectionLost registers the connection-lost callback.
func (s *Simulator) SetOnConnectionLost(fn func(error)) {
	s.cbMu.Lock()
	s.onLost = fn
	s.cbMu.Unlock()
}

// DropConnection simulates an unexpected connection loss: the session
// closes and the connection-lost callback fires with the given error.
func (s *Simulator) DropConnection(err error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = false
	done := s.done
	s.mu.Unlock()

	close(done)
	s.wg.Wait()

	s.cbMu.RLock()
	lost := s.onLost
	s.cbMu.RUnlock()
	if lost != nil {
		lost(err)
	}
}

// ArmArea sets an area. Without force, arming is refused while the area has
// active zones, matching real panel behaviour.
func (s *Simulator) ArmArea(_ context.Context, area int, mode ArmMode, force bool) error {
	return s.mutateArea(area, func(st AreaState) (AreaState, error) {
		if st.ActiveZones && !force {
			return st, fmt.Errorf("%w: area %d", ErrNotReady, area)
		}
		next := AreaState{ReadyToArm: st.ReadyToArm, ActiveZones: st.ActiveZones}
		switch mode {
		case ArmPart1:
			next.PartSet1 = true
		case ArmPart2:
			next.PartSet2 = true
		default:
			next.FullSet = true
		}
		return next, nil
	})
}

// DisarmArea unsets an area.
func (s *Simulator) DisarmArea(_ context.Context, area int) error {
	return s.mutateArea(area, func(st AreaState) (AreaState, error) {
		return AreaState{Unset: true, ReadyToArm: true, ActiveZones: st.ActiveZones}, nil
	})
}

// InhibitZone inhibits a zone.
func (s *Simulator) InhibitZone(_ context.Context, zone int) error {
	return s.mutateZone(zone, func(st ZoneState) (ZoneState, error) {
		st.Inhibited = true
		return st, nil
	})
}

// UninhibitZone removes a zone inhibit.
func (s *Simulator) UninhibitZone(_ context.Context, zone int) error {
	return s.mutateZone(zone, func(st ZoneState) (ZoneState, error) {
		st.Inhibited = false
		return st, nil
	})
}

// ActivateOutput energises an output.
func (s *Simulator) ActivateOutput(_ context.Context, output int) error {
	return s.mutateOutput(output, func(st OutputState) (OutputState, error) {
		st.On = true
		st.Active = true
		return st, nil
	})
}

// DeactivateOutput de-energises an output.
func (s *Simulator) DeactivateOutput(_ context.Context, output int) error {
	return s.mutateOutput(output, func(st OutputState) (OutputState, error) {
		st.On = false
		st.Active = false
		return st, nil
	})
}

// ActivateTrigger activates a trigger.
func (s *Simulator) ActivateTrigger(_ context.Context, trigger int) error {
	return s.mutateTrigger(trigger, func(st TriggerState) (TriggerState, error) {
		st.Active = true
		return st, nil
	})
}

// DeactivateTrigger deactivates a trigger.
func (s *Simulator) DeactivateTrigger(_ context.Context, trigger int) error {
	return s.mutateTrigger(trigger, func(st TriggerState) (TriggerState, error) {
		st.Active = false
		return st, nil
	})
}

// SetZoneActive flips a zone's active flag from outside (a simulated sensor
// firing). Exposed for demo activity and tests.
func (s *Simulator) SetZoneActive(zone int, active bool) error {
	return s.mutateZone(zone, func(st ZoneState) (ZoneState, error) {
		st.Active = active
		return st, nil
	})
}

func (s *Simulator) mutateArea(n int, fn func(AreaState) (AreaState, error)) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	old, ok := s.areas[n]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: area %d", ErrUnknownEntity, n)
	}
	next, err := fn(old)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.areas[n] = next
	events, done := s.events, s.done
	s.mu.Unlock()

	s.emit(events, done, ChangeEvent{Kind: KindArea, Number: n, Name: fmt.Sprintf("Area %d", n), Old: old, New: next})
	return nil
}

func (s *Simulator) mutateZone(n int, fn func(ZoneState) (ZoneState, error)) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	old, ok := s.zones[n]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: zone %d", ErrUnknownEntity, n)
	}
	next, err := fn(old)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.zones[n] = next
	events, done := s.events, s.done
	s.mu.Unlock()

	s.emit(events, done, ChangeEvent{Kind: KindZone, Number: n, Name: fmt.Sprintf("Zone %d", n), Old: old, New: next})
	return nil
}

func (s *Simulator) mutateOutput(n int, fn func(OutputState) (OutputState, error)) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	old, ok := s.outputs[n]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: output %d", ErrUnknownEntity, n)
	}
	next, err := fn(old)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.outputs[n] = next
	events, done := s.events, s.done
	s.mu.Unlock()

	s.emit(events, done, ChangeEvent{Kind: KindOutput, Number: n, Name: fmt.Sprintf("Output %d", n), Old: old, New: next})
	return nil
}

func (s *Simulator) mutateTrigger(n int, fn func(TriggerState) (TriggerState, error)) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	old, ok := s.triggers[n]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: trigger %d", ErrUnknownEntity, n)
	}
	next, err := fn(old)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.triggers[n] = next
	events, done := s.events, s.done
	s.mu.Unlock()

	s.emit(events, done, ChangeEvent{Kind: KindTrigger, Number: n, Name: fmt.Sprintf("Trigger %d", n), Old: old, New: next})
	return nil
}

// emit queues an event for the dispatcher. Events are dropped once the
// session is closed; a full queue blocks the command briefly rather than
// reordering.
func (s *Simulator) emit(events chan ChangeEvent, done chan struct{}, ev ChangeEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-done:
	}
}

// dispatchLoop delivers queued events to the change callback one at a time.
func (s *Simulator) dispatchLoop(events chan ChangeEvent, done chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-done:
			return
		case ev := <-events:
			s.cbMu.RLock()
			fn := s.onChange
			s.cbMu.RUnlock()
			if fn != nil {
				fn(ev)
			}
		}
	}
}
