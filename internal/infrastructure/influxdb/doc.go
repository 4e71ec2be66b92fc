// Package influxdb provides time-series storage for Steward telemetry.
//
// Device battery and signal readings, request timing metrics and system
// statistics flow here. Writes are non-blocking and batched; if InfluxDB
// is disabled or unreachable the rest of the core keeps running.
//
// SQLite remains the source of truth for state; InfluxDB holds history
// for dashboards and fleet analytics only.
package influxdb
