package mqtt

import "fmt"

// Topic prefixes for the controller's MQTT namespace.
//
// Court topics follow the scheme: obscontrol/court/{court}/{category}[/...]
const (
	// TopicPrefix is the base for all controller topics.
	TopicPrefix = "obscontrol"

	// TopicPrefixCourt is the base for per-court topics.
	TopicPrefixCourt = "obscontrol/court"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "obscontrol/system"
)

// Topics provides builders for controller MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.CourtStatus("court-1")
//	// Returns: "obscontrol/court/court-1/status"
type Topics struct{}

// SystemStatus returns the controller's online/offline status topic.
// Published retained, with a Last Will for crash detection.
//
// Example: obscontrol/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// CourtStatus returns the retained status topic for one court.
//
// Example: obscontrol/court/court-1/status
func (Topics) CourtStatus(court string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixCourt, court)
}

// CourtEvent returns the lifecycle event topic for one court.
//
// Example: obscontrol/court/court-1/event/disconnected
func (Topics) CourtEvent(court, eventType string) string {
	return fmt.Sprintf("%s/%s/event/%s", TopicPrefixCourt, court, eventType)
}

// AllCourtCommands returns the wildcard pattern matching every court
// command topic.
//
// Example: obscontrol/court/+/command/+
func (Topics) AllCourtCommands() string {
	return TopicPrefixCourt + "/+/command/+"
}
