// Package mqttbridge exposes the supervisor over MQTT: retained status
// per court, lifecycle events as they happen, and inbound remote
// commands on the per-court command topics.
package mqttbridge
