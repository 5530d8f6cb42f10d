// Package telemetry feeds court status samples and lifecycle events into
// InfluxDB for venue dashboards.
package telemetry
