package bridge

import (
	"time"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
)

// MQTT message types for the bridge's state and command topics.

// StateMessage is published (retained) for every entity state change.
// Topic: atsbridge/state/{kind}/{number}
type StateMessage struct {
	// Kind is the entity class: area, zone, output, or trigger.
	Kind string `json:"kind"`

	// Number is the entity number on the panel.
	Number int `json:"number"`

	// Name is the entity's configured name.
	Name string `json:"name"`

	// Summary is the dominant condition, e.g. "Full Set" or "Active".
	Summary string `json:"summary"`

	// State is the full state record.
	State ats.State `json:"state"`

	// Timestamp is when the bridge published this message (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// ConnectionMessage is published (retained) when the panel session state
// changes.
// Topic: atsbridge/system/connection
type ConnectionMessage struct {
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`
}

// PanelMessage is published (retained) after each successful connection.
// Topic: atsbridge/panel
type PanelMessage struct {
	Panel     ats.PanelInfo `json:"panel"`
	Timestamp time.Time     `json:"timestamp"`
}

// CommandMessage is received on the command topics.
// Topic: atsbridge/command/{kind}/{number}
type CommandMessage struct {
	// Action is the command name. Valid actions depend on the entity kind:
	// areas accept "arm" and "disarm", zones "inhibit" and "uninhibit",
	// outputs and triggers "on" and "off".
	Action string `json:"action"`

	// Mode selects the arm mode for area arm commands: "full" (default),
	// "part1", or "part2".
	Mode string `json:"mode,omitempty"`

	// Force, when present on an arm command, updates the area's force-arm
	// preference before arming.
	Force *bool `json:"force,omitempty"`
}
