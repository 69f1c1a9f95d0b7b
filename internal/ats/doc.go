// Package ats defines the contract with the Aritech ATS protocol client:
// entity kinds, descriptors, per-kind state records, push events, and the
// Client interface the coordinator drives.
//
// The wire protocol itself (framing, encryption, PIN handshake) is not
// implemented here — a wire driver satisfies Client and plugs in from
// outside the module. The package ships a Simulator that implements Client
// against an in-memory panel, used by the daemon's simulator mode and by
// tests.
//
// # Key Types
//
//   - EntityKind: area, zone, output, trigger
//   - Descriptor: immutable {number, name} pair fetched at initialization
//   - AreaState/ZoneState/OutputState/TriggerState: full state records,
//     replaced wholesale on every change event
//   - Snapshot: the result of the initial full-state fetch
//   - ChangeEvent: a push notification for a single entity
//   - Client: the asynchronous RPC surface of the panel session
//
// State records derive a human-readable Summary in priority order (an
// alarming area reports "Alarming" even while still armed).
package ats
