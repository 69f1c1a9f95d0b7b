package panel

import (
	"sync"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
)

// Store holds the current snapshot of all monitored entities: descriptor
// lists per kind, the latest full state record per entity, and the panel
// descriptor. It is pure data — only the Coordinator mutates it, during
// initialization and event application.
//
// A state record is always replaced wholesale, never merged: the record
// returned by State equals the most recent full payload received for that
// entity number.
//
// All methods are safe for concurrent use; reads copy out so callers can
// never alias internal storage.
type Store struct {
	mu       sync.RWMutex
	entities map[ats.EntityKind][]ats.Descriptor
	states   map[ats.EntityKind]map[int]ats.State
	panel    ats.PanelInfo
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entities: make(map[ats.EntityKind][]ats.Descriptor),
		states:   make(map[ats.EntityKind]map[int]ats.State),
	}
}

// SetEntities replaces the full ordered descriptor list for a kind.
// Called once per connection, at initialization.
func (s *Store) SetEntities(kind ats.EntityKind, descriptors []ats.Descriptor) {
	list := make([]ats.Descriptor, len(descriptors))
	copy(list, descriptors)

	s.mu.Lock()
	s.entities[kind] = list
	s.mu.Unlock()
}

// Entities returns the ordered descriptor list for a kind. Returns an empty
// slice if the kind has not been initialized; never fails.
func (s *Store) Entities(kind ats.EntityKind) []ats.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]ats.Descriptor, len(s.entities[kind]))
	copy(list, s.entities[kind])
	return list
}

// ApplyState replaces the stored record for an entity. The entry is created
// if absent, so entities reported only via push events (never in the
// initial fetch) are still tracked.
func (s *Store) ApplyState(kind ats.EntityKind, number int, record ats.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.states[kind]
	if !ok {
		m = make(map[int]ats.State)
		s.states[kind] = m
	}
	m[number] = record
}

// State returns the latest record for an entity. The second return value
// reports whether a record exists — absence is an expected outcome, distinct
// from an entity whose record has every flag false.
func (s *Store) State(kind ats.EntityKind, number int) (ats.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.states[kind][number]
	return record, ok
}

// SetPanelInfo records the panel descriptor. Set once at connect time.
func (s *Store) SetPanelInfo(info ats.PanelInfo) {
	s.mu.Lock()
	s.panel = info
	s.mu.Unlock()
}

// PanelInfo returns the panel descriptor.
func (s *Store) PanelInfo() ats.PanelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panel
}

// EntityCount returns the number of known entities for a kind.
func (s *Store) EntityCount(kind ats.EntityKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities[kind])
}
