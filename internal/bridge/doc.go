// Package bridge publishes panel state onto MQTT and executes commands
// received from it.
//
// The bridge sits between the panel coordinator and the MQTT broker:
//
//	┌─────────────┐  listeners   ┌────────┐  retained state   ┌────────┐
//	│ coordinator │─────────────▶│ Bridge │──────────────────▶│ broker │
//	│  (panel)    │◀─────────────│        │◀──────────────────│        │
//	└─────────────┘  commands    └────────┘  command topics   └────────┘
//
// State topics are retained so consumers see the current state immediately
// on subscribe. The bridge keeps a per-entity payload cache and republishes
// only when a record actually changed, so the full-state re-fetch after a
// panel reconnect produces traffic only for entities that moved while the
// connection was down.
//
// # Topics
//
//	atsbridge/state/{kind}/{number}    retained entity state (JSON)
//	atsbridge/panel                    retained panel descriptor
//	atsbridge/system/connection        retained panel session state
//	atsbridge/command/{kind}/{number}  commands to the panel
//
// # Command payloads
//
//	{"action":"arm","mode":"part1"}        area
//	{"action":"arm","mode":"full","force":true}
//	{"action":"disarm"}                    area
//	{"action":"inhibit"}                   zone
//	{"action":"uninhibit"}                 zone
//	{"action":"on"} / {"action":"off"}     output, trigger
package bridge
