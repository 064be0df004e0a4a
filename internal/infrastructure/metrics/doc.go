// Package metrics registers the daemon's prometheus instrumentation:
// datagram and reassembly counters on the inbound path and relay
// command lifecycle counters on the outbound path. All record methods
// accept a nil receiver so instrumented packages stay trivially
// testable.
package metrics
