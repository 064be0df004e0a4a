// Package influxdb provides the optional time-series export of room
// observations to an InfluxDB v2 server.
//
// The client is a thin wrapper around the official client library,
// configured for non-blocking batched writes. Each observation becomes
// one point in the "room_sample" measurement, tagged by room, carrying
// the corrected temperature, target, humidity and heater state in
// deci-degree fields.
//
// Connect returns ErrDisabled when the integration is switched off in
// configuration; callers treat that as "no sink" rather than a fault.
// Write errors surface asynchronously through SetOnError, matching the
// batching write API underneath.
//
// The Client satisfies the observation sink interface used by the
// server core, so wiring it in is a one-liner at startup.
package influxdb
