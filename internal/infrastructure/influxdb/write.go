package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// boolToInt converts a bool to 0/1 for numeric dashboard queries.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// WriteCourtStatus records one court status sample.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Booleans are stored as 0/1 so Flux queries can aggregate uptime
// percentages directly.
//
// Example:
//
//	client.WriteCourtStatus("court-1", true, true, true, false)
func (c *Client) WriteCourtStatus(court string, processRunning, connected, streaming, recording bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"court_status",
		map[string]string{
			"court": court,
		},
		map[string]interface{}{
			"process_running": boolToInt(processRunning),
			"connected":       boolToInt(connected),
			"streaming":       boolToInt(streaming),
			"recording":       boolToInt(recording),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCourtEvent records one lifecycle event as a point, letting
// dashboards annotate status graphs with restarts and disconnects.
func (c *Client) WriteCourtEvent(court, eventType string, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"court_events",
		map[string]string{
			"court": court,
			"type":  eventType,
		},
		map[string]interface{}{
			"count": 1,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
