package ats

// State is a full state record for a single entity. Records are immutable
// value types: a change event carries a complete replacement record, never a
// partial patch, so the record stored for an entity always equals the most
// recent payload received for it.
type State interface {
	// Summary returns a short human-readable description of the record,
	// picking the most significant condition first.
	Summary() string
}

// AreaState is the full state record for an area.
type AreaState struct {
	Unset             bool `json:"unset"`
	FullSet           bool `json:"full_set"`
	PartSet1          bool `json:"part_set_1"`
	PartSet2          bool `json:"part_set_2"`
	Alarming          bool `json:"alarming"`
	AlarmAcknowledged bool `json:"alarm_acknowledged"`
	Tampered          bool `json:"tampered"`
	ReadyToArm        bool `json:"ready_to_arm"`
	Entering          bool `json:"entering"`
	Exiting           bool `json:"exiting"`
	Fire              bool `json:"fire"`
	Panic             bool `json:"panic"`
	Medical           bool `json:"medical"`
	Duress            bool `json:"duress"`
	Technical         bool `json:"technical"`
	ActiveZones       bool `json:"active_zones"`
	InhibitedZones    bool `json:"inhibited_zones"`
	IsolatedZones     bool `json:"isolated_zones"`
	ZoneFaults        bool `json:"zone_faults"`
	ZoneTamper        bool `json:"zone_tamper"`
	BuzzerActive      bool `json:"buzzer_active"`
	InternalSiren     bool `json:"internal_siren"`
	ExternalSiren     bool `json:"external_siren"`
	StrobeActive      bool `json:"strobe_active"`
}

// Summary picks the dominant area condition:
// Alarming > Entry > Exit > Full Set > Part Set 1 > Part Set 2 > Unset.
func (s AreaState) Summary() string {
	switch {
	case s.Alarming:
		return "Alarming"
	case s.Entering:
		return "Entry"
	case s.Exiting:
		return "Exit"
	case s.FullSet:
		return "Full Set"
	case s.PartSet1:
		return "Part Set 1"
	case s.PartSet2:
		return "Part Set 2"
	case s.Unset:
		return "Unset"
	default:
		return "Unknown"
	}
}

// ZoneState is the full state record for a zone.
type ZoneState struct {
	Active       bool `json:"active"`
	Tampered     bool `json:"tampered"`
	Fault        bool `json:"fault"`
	Alarming     bool `json:"alarming"`
	Isolated     bool `json:"isolated"`
	Inhibited    bool `json:"inhibited"`
	Set          bool `json:"set"`
	AntiMask     bool `json:"anti_mask"`
	SoakTest     bool `json:"soak_test"`
	BatteryFault bool `json:"battery_fault"`
	Dirty        bool `json:"dirty"`
}

// Summary picks the dominant zone condition:
// Alarming > Tamper > Fault > Active > Isolated > Inhibited > Normal.
func (s ZoneState) Summary() string {
	switch {
	case s.Alarming:
		return "Alarming"
	case s.Tampered:
		return "Tamper"
	case s.Fault:
		return "Fault"
	case s.Active:
		return "Active"
	case s.Isolated:
		return "Isolated"
	case s.Inhibited:
		return "Inhibited"
	default:
		return "Normal"
	}
}

// OutputState is the full state record for an output.
type OutputState struct {
	On     bool `json:"on"`
	Active bool `json:"active"`
	Forced bool `json:"forced"`
}

// Summary reports whether the output is energised.
func (s OutputState) Summary() string {
	if s.On || s.Active {
		return "On"
	}
	return "Off"
}

// TriggerState is the full state record for a trigger, including the
// source flags reporting what can drive it.
type TriggerState struct {
	Active       bool `json:"active"`
	RemoteOutput bool `json:"remote_output"`
	Fob          bool `json:"fob"`
	Schedule     bool `json:"schedule"`
	FunctionKey  bool `json:"function_key"`
}

// Summary reports whether the trigger is active.
func (s TriggerState) Summary() string {
	if s.Active {
		return "Active"
	}
	return "Inactive"
}
