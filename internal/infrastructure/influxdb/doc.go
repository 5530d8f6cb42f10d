// Package influxdb writes court telemetry to InfluxDB v2.
//
// The telemetry recorder samples every court's status on an interval and
// writes the samples here; lifecycle events land as annotation points.
// Writes are batched and non-blocking: a slow or absent InfluxDB never
// holds up supervision, and async write failures surface through an
// error callback.
//
// InfluxDB is optional. When disabled in configuration, Connect returns
// ErrDisabled and the controller runs without telemetry.
package influxdb
