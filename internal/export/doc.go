// Package export publishes room observations to external consumers: a
// file exporter polled by a local monitoring collector, and optional
// InfluxDB and MQTT sinks provided by the infrastructure packages. All
// sinks share the Sink interface so the server core can fan out one
// observation per sensor report without caring which are enabled.
package export
