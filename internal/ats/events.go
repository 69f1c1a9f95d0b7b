package ats

// ChangeEvent is a push notification for a single entity. New always carries
// a complete replacement record; Old is the previously reported record, or
// nil when the panel reports an entity for the first time.
type ChangeEvent struct {
	Kind   EntityKind
	Number int
	Name   string
	Old    State
	New    State
}

// Snapshot is the result of the initial full-state fetch: the panel
// descriptor, the ordered entity lists, and the initial state record for
// every entity the panel reported.
type Snapshot struct {
	Panel PanelInfo

	Areas    []Descriptor
	Zones    []Descriptor
	Outputs  []Descriptor
	Triggers []Descriptor

	AreaStates    map[int]AreaState
	ZoneStates    map[int]ZoneState
	OutputStates  map[int]OutputState
	TriggerStates map[int]TriggerState
}

// Descriptors returns the descriptor list for a kind.
func (s *Snapshot) Descriptors(kind EntityKind) []Descriptor {
	switch kind {
	case KindArea:
		return s.Areas
	case KindZone:
		return s.Zones
	case KindOutput:
		return s.Outputs
	case KindTrigger:
		return s.Triggers
	default:
		return nil
	}
}

// States returns the initial state records for a kind, keyed by entity
// number.
func (s *Snapshot) States(kind EntityKind) map[int]State {
	out := make(map[int]State)
	switch kind {
	case KindArea:
		for n, st := range s.AreaStates {
			out[n] = st
		}
	case KindZone:
		for n, st := range s.ZoneStates {
			out[n] = st
		}
	case KindOutput:
		for n, st := range s.OutputStates {
			out[n] = st
		}
	case KindTrigger:
		for n, st := range s.TriggerStates {
			out[n] = st
		}
	}
	return out
}
