package ats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// collectEvents registers a change callback that appends into a guarded
// slice.
func collectEvents(s *Simulator) (events *[]ChangeEvent, mu *sync.Mutex) {
	var list []ChangeEvent
	var m sync.Mutex
	s.SetOnChange(func(ev ChangeEvent) {
		m.Lock()
		list = append(list, ev)
		m.Unlock()
	})
	return &list, &m
}

func waitForEvents(t *testing.T, events *[]ChangeEvent, mu *sync.Mutex, n int) []ChangeEvent {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		if len(*events) >= n {
			out := make([]ChangeEvent, len(*events))
			copy(out, *events)
			mu.Unlock()
			return out
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", n)
	return nil
}

func connectedSimulator(t *testing.T, cfg SimulatorConfig) *Simulator {
	t.Helper()

	s := NewSimulator(cfg)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { s.Disconnect(context.Background()) })
	return s
}

func TestSimulatorInitialize(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{Areas: 3, Zones: 4, Outputs: 1, Triggers: 1})

	snap, err := s.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if len(snap.Areas) != 3 || len(snap.Zones) != 4 || len(snap.Outputs) != 1 || len(snap.Triggers) != 1 {
		t.Errorf("unexpected topology: %d/%d/%d/%d",
			len(snap.Areas), len(snap.Zones), len(snap.Outputs), len(snap.Triggers))
	}
	if snap.Panel.Model == "" {
		t.Error("panel info missing")
	}
	if !snap.AreaStates[1].Unset {
		t.Errorf("area 1 should start unset: %+v", snap.AreaStates[1])
	}
	if snap.Zones[0].Name != "Zone 1" {
		t.Errorf("unexpected zone name %q", snap.Zones[0].Name)
	}
}

func TestSimulatorRequiresConnection(t *testing.T) {
	s := NewSimulator(SimulatorConfig{})

	if _, err := s.Initialize(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Initialize = %v, want ErrNotConnected", err)
	}
	if err := s.ArmArea(context.Background(), 1, ArmFull, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ArmArea = %v, want ErrNotConnected", err)
	}
}

func TestSimulatorArmDisarmCycle(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})
	events, mu := collectEvents(s)
	ctx := context.Background()

	if err := s.ArmArea(ctx, 1, ArmFull, false); err != nil {
		t.Fatalf("ArmArea: %v", err)
	}
	if err := s.DisarmArea(ctx, 1); err != nil {
		t.Fatalf("DisarmArea: %v", err)
	}

	got := waitForEvents(t, events, mu, 2)

	if got[0].Kind != KindArea || got[0].Number != 1 {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	armed := got[0].New.(AreaState)
	if !armed.FullSet || armed.Unset {
		t.Errorf("expected full set record, got %+v", armed)
	}
	if !got[0].Old.(AreaState).Unset {
		t.Errorf("expected unset old record, got %+v", got[0].Old)
	}

	disarmed := got[1].New.(AreaState)
	if !disarmed.Unset || disarmed.FullSet {
		t.Errorf("expected unset record, got %+v", disarmed)
	}
}

func TestSimulatorArmRefusedWithActiveZones(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})
	ctx := context.Background()

	// Make area 1 not ready: an active zone is reflected on the area record.
	s.mu.Lock()
	st := s.areas[1]
	st.ActiveZones = true
	s.areas[1] = st
	s.mu.Unlock()

	if err := s.ArmArea(ctx, 1, ArmFull, false); !errors.Is(err, ErrNotReady) {
		t.Errorf("ArmArea without force = %v, want ErrNotReady", err)
	}
	if err := s.ArmArea(ctx, 1, ArmFull, true); err != nil {
		t.Errorf("ArmArea with force = %v, want nil", err)
	}
}

func TestSimulatorArmModes(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})
	events, mu := collectEvents(s)
	ctx := context.Background()

	if err := s.ArmArea(ctx, 1, ArmPart1, false); err != nil {
		t.Fatalf("ArmArea part1: %v", err)
	}
	if err := s.ArmArea(ctx, 2, ArmPart2, false); err != nil {
		t.Fatalf("ArmArea part2: %v", err)
	}

	got := waitForEvents(t, events, mu, 2)
	if !got[0].New.(AreaState).PartSet1 {
		t.Errorf("expected part set 1, got %+v", got[0].New)
	}
	if !got[1].New.(AreaState).PartSet2 {
		t.Errorf("expected part set 2, got %+v", got[1].New)
	}
}

func TestSimulatorZoneInhibit(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})
	events, mu := collectEvents(s)
	ctx := context.Background()

	if err := s.InhibitZone(ctx, 3); err != nil {
		t.Fatalf("InhibitZone: %v", err)
	}
	if err := s.UninhibitZone(ctx, 3); err != nil {
		t.Fatalf("UninhibitZone: %v", err)
	}

	got := waitForEvents(t, events, mu, 2)
	if !got[0].New.(ZoneState).Inhibited {
		t.Errorf("expected inhibited record, got %+v", got[0].New)
	}
	if got[1].New.(ZoneState).Inhibited {
		t.Errorf("expected uninhibited record, got %+v", got[1].New)
	}
}

func TestSimulatorOutputAndTrigger(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})
	events, mu := collectEvents(s)
	ctx := context.Background()

	if err := s.ActivateOutput(ctx, 1); err != nil {
		t.Fatalf("ActivateOutput: %v", err)
	}
	if err := s.ActivateTrigger(ctx, 2); err != nil {
		t.Fatalf("ActivateTrigger: %v", err)
	}
	if err := s.DeactivateOutput(ctx, 1); err != nil {
		t.Fatalf("DeactivateOutput: %v", err)
	}

	got := waitForEvents(t, events, mu, 3)
	if !got[0].New.(OutputState).On {
		t.Errorf("expected energised output, got %+v", got[0].New)
	}
	if !got[1].New.(TriggerState).Active {
		t.Errorf("expected active trigger, got %+v", got[1].New)
	}
	if got[2].New.(OutputState).On {
		t.Errorf("expected de-energised output, got %+v", got[2].New)
	}
}

func TestSimulatorUnknownEntity(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{Areas: 1, Zones: 1, Outputs: 1, Triggers: 1})
	ctx := context.Background()

	if err := s.ArmArea(ctx, 99, ArmFull, false); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("ArmArea(99) = %v, want ErrUnknownEntity", err)
	}
	if err := s.InhibitZone(ctx, 99); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("InhibitZone(99) = %v, want ErrUnknownEntity", err)
	}
}

func TestSimulatorEventOrder(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{Zones: 8})
	events, mu := collectEvents(s)
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		if err := s.InhibitZone(ctx, i); err != nil {
			t.Fatalf("InhibitZone(%d): %v", i, err)
		}
	}

	got := waitForEvents(t, events, mu, 8)
	for i, ev := range got {
		if ev.Number != i+1 {
			t.Fatalf("event %d is for zone %d, want %d (order not preserved)", i, ev.Number, i+1)
		}
	}
}

func TestSimulatorDropConnection(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})

	var gotErr error
	var mu sync.Mutex
	s.SetOnConnectionLost(func(err error) {
		mu.Lock()
		gotErr = err
		mu.Unlock()
	})

	cause := errors.New("simulated link failure")
	s.DropConnection(cause)

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(gotErr, cause) {
		t.Errorf("connection-lost callback got %v, want %v", gotErr, cause)
	}

	if err := s.ArmArea(context.Background(), 1, ArmFull, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ArmArea after drop = %v, want ErrNotConnected", err)
	}

	// A dropped simulator can be reconnected, like a fresh session to the
	// same panel.
	if err := s.Connect(context.Background()); err != nil {
		t.Errorf("reconnect after drop: %v", err)
	}
}

func TestSimulatorSetZoneActive(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})
	events, mu := collectEvents(s)

	if err := s.SetZoneActive(2, true); err != nil {
		t.Fatalf("SetZoneActive: %v", err)
	}

	got := waitForEvents(t, events, mu, 1)
	zone := got[0].New.(ZoneState)
	if !zone.Active {
		t.Errorf("expected active zone, got %+v", zone)
	}
	if got[0].Old.(ZoneState).Active {
		t.Errorf("old record should be inactive, got %+v", got[0].Old)
	}
}

func TestSimulatorStatePersistsAcrossSessions(t *testing.T) {
	s := connectedSimulator(t, SimulatorConfig{})

	if err := s.ArmArea(context.Background(), 1, ArmFull, false); err != nil {
		t.Fatalf("ArmArea: %v", err)
	}

	s.DropConnection(errors.New("simulated link failure"))
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}

	// A reconnect opens a fresh session to the same panel: the armed area
	// must still be armed in the re-fetched snapshot.
	snap, err := s.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !snap.AreaStates[1].FullSet {
		t.Errorf("area state reset across sessions: %+v", snap.AreaStates[1])
	}
}
