// Package devicelog receives and renders the log batches embedded
// devices ship over UDP.
//
// Devices buffer log records against their uptime clock and send them
// in fragmented batches. The Listener reassembles and decodes batches;
// the Printer reconstructs wall-clock timestamps, prints a banner when
// output switches device, and marks reboots with a cut line when a
// device's uptime clock runs backwards. Presence reports devices going
// online and offline from their log traffic alone.
//
// The package backs the devicelog command, a standalone tap for
// watching a fleet of sensors and relays during bring-up.
package devicelog
