package ats

import (
	"fmt"
	"strings"
)

// EntityKind identifies the four monitored entity classes on an ATS panel.
type EntityKind int

// Entity kinds.
const (
	KindArea EntityKind = iota
	KindZone
	KindOutput
	KindTrigger
)

// Kinds lists all entity kinds in a stable order.
// Useful for iterating per-kind maps deterministically.
var Kinds = []EntityKind{KindArea, KindZone, KindOutput, KindTrigger}

// String returns the lowercase name of the kind, as used in MQTT topics
// and API paths.
func (k EntityKind) String() string {
	switch k {
	case KindArea:
		return "area"
	case KindZone:
		return "zone"
	case KindOutput:
		return "output"
	case KindTrigger:
		return "trigger"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseEntityKind converts a kind name (as produced by String) back to an
// EntityKind. Matching is case-insensitive.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(s) {
	case "area", "areas":
		return KindArea, nil
	case "zone", "zones":
		return KindZone, nil
	case "output", "outputs":
		return KindOutput, nil
	case "trigger", "triggers":
		return KindTrigger, nil
	default:
		return 0, fmt.Errorf("unknown entity kind %q", s)
	}
}

// Descriptor identifies a single panel entity. Descriptors are fetched once
// at initialization and never change for the life of a connection (panel
// topology is static while a session is open).
type Descriptor struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// PanelInfo describes the connected panel. Set once at connect time.
type PanelInfo struct {
	Model           string `json:"model,omitempty"`
	Name            string `json:"name,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
}

// ArmMode selects how an area is set.
type ArmMode int

// Arm modes.
const (
	ArmFull ArmMode = iota
	ArmPart1
	ArmPart2
)

// String returns the mode name used on the API and MQTT surfaces.
func (m ArmMode) String() string {
	switch m {
	case ArmFull:
		return "full"
	case ArmPart1:
		return "part1"
	case ArmPart2:
		return "part2"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseArmMode converts a mode name to an ArmMode. Matching is
// case-insensitive; "partial1"/"partial2" are accepted as aliases.
func ParseArmMode(s string) (ArmMode, error) {
	switch strings.ToLower(s) {
	case "full", "":
		return ArmFull, nil
	case "part1", "partial1", "part_1":
		return ArmPart1, nil
	case "part2", "partial2", "part_2":
		return ArmPart2, nil
	default:
		return 0, fmt.Errorf("unknown arm mode %q", s)
	}
}
