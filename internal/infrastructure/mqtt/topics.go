package mqtt

import "fmt"

// Topic prefixes for the ATS bridge MQTT surface.
//
// All topics use the flat scheme: atsbridge/{category}/{kind}/{number}
// where kind is one of area, zone, output, trigger.
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "atsbridge"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "atsbridge/system"
)

// Topics provides builders for ATS bridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EntityState("zone", 3)
//	// Returns: "atsbridge/state/zone/3"
type Topics struct{}

// =============================================================================
// State Topics
// =============================================================================

// EntityState returns the retained state topic for one entity.
//
// Example: atsbridge/state/zone/3
func (Topics) EntityState(kind string, number int) string {
	return fmt.Sprintf("%s/state/%s/%d", TopicPrefix, kind, number)
}

// PanelInfo returns the retained topic carrying the panel descriptor.
//
// Example: atsbridge/panel
func (Topics) PanelInfo() string {
	return fmt.Sprintf("%s/panel", TopicPrefix)
}

// =============================================================================
// Command Topics
// =============================================================================

// EntityCommand returns the command topic for one entity.
//
// Example: atsbridge/command/area/1
func (Topics) EntityCommand(kind string, number int) string {
	return fmt.Sprintf("%s/command/%s/%d", TopicPrefix, kind, number)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the bridge availability topic, used for the retained
// online/offline message and the broker LWT.
//
// Example: atsbridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemConnection returns the topic reporting the panel session state.
//
// Example: atsbridge/system/connection
func (Topics) SystemConnection() string {
	return fmt.Sprintf("%s/connection", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllEntityCommands returns a pattern matching every entity command topic.
//
// Pattern: atsbridge/command/+/+
func (Topics) AllEntityCommands() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefix)
}

// AllEntityStates returns a pattern matching every entity state topic.
//
// Pattern: atsbridge/state/+/+
func (Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefix)
}

// AllTopics returns a pattern matching all bridge topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: atsbridge/#
func (Topics) AllTopics() string {
	return "atsbridge/#"
}
