// Package transport owns the UDP sockets.
//
// The Listener handles the inbound path: it recognises legacy
// single-byte confirmations and keepalive probes, reassembles
// fragmented datagrams, decodes device messages and hands them to a
// Handler. Nothing on the receive path blocks on network I/O; bad
// input is counted and dropped.
//
// The Sender handles the outbound path: relay and logger-control
// commands as fire-and-forget datagrams. Retry policy lives in the
// dispatch package, not here.
package transport
