// Package server holds the Core, the glue between the transport layer
// and the domain state. Inbound device messages are routed into the
// device registry, the room store and the command dispatcher; format
// diagnostics requests are answered with a compact status text; boost
// requests open the force-heat window. The Core also assembles the
// composite room status views the HTTP API serves.
package server
