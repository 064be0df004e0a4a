package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// Check with errors.Is:
//
//	client, err := influxdb.Connect(cfg)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // integration switched off, carry on without it
//	}
var (
	// ErrDisabled is returned by Connect when the integration is
	// switched off in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrNotConnected is returned when an operation requires a live
	// connection and the client does not have one.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed is returned when the initial connection to
	// the server cannot be established.
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)
