package influxdb

import "errors"

// Sentinel errors for the influxdb package.
var (
	// ErrDisabled indicates InfluxDB is disabled in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection could not be
	// established.
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)
