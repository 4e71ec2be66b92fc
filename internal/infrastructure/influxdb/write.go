package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceTelemetry records a device health reading.
//
// Nil battery or signal values are omitted from the point. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	battery, signal := 87, -62
//	client.WriteDeviceTelemetry("btn-0a3f", "button", &battery, &signal)
func (c *Client) WriteDeviceTelemetry(deviceID string, kind string, batteryLevel *int, signalStrength *int) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	if batteryLevel != nil {
		fields["battery_level"] = *batteryLevel
	}
	if signalStrength != nil {
		fields["signal_strength"] = *signalStrength
	}
	if len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"device_telemetry",
		map[string]string{
			"device_id": deviceID,
			"kind":      kind,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRequestTiming records how long a completed service request took.
//
// responseSeconds is press-to-serving, completionSeconds is press-to-done.
// Pass negative values as zero after flagging the clock fault upstream;
// this method records whatever it is given.
func (c *Client) WriteRequestTiming(requestID, category, priority string, responseSeconds, completionSeconds float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"request_timing",
		map[string]string{
			"category": category,
			"priority": priority,
		},
		map[string]interface{}{
			"request_id":         requestID,
			"response_seconds":   responseSeconds,
			"completion_seconds": completionSeconds,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRequestEvent records a lifecycle transition for request-volume
// dashboards (created, serving, completed, cancelled).
func (c *Client) WriteRequestEvent(requestID, category, priority, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"request_events",
		map[string]string{
			"category": category,
			"priority": priority,
			"status":   status,
		},
		map[string]interface{}{
			"request_id": requestID,
			"count":      1,
		},
		time.Now(),
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

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now", for example replayed data
// from a repeater that buffered while offline.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
