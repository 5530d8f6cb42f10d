// Package mqtt provides the controller's connection to an MQTT broker.
//
// The broker is the integration surface for venue dashboards and
// automations: court status is published retained, lifecycle events are
// published as they happen, and remote commands arrive on per-court
// command topics (see the mqttbridge package).
//
// Topic hierarchy:
//
//	obscontrol/system/status                     controller online/offline (retained, LWT)
//	obscontrol/court/{court}/status              live court status (retained)
//	obscontrol/court/{court}/event/{type}        lifecycle events
//	obscontrol/court/{court}/command/{action}    inbound remote commands
//
// The client auto-reconnects with exponential backoff and restores all
// subscriptions after a reconnect. MQTT is optional: when disabled in
// configuration the controller runs without it.
package mqtt
