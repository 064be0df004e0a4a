// Package device tracks the embedded sensor and relay devices.
//
// The Registry is the single authority on device liveness and identity.
// Every valid report updates the device's last-seen time and reported
// origin; availability is derived on demand:
//
//   - Unavailable: never seen, or reporting from an address other than
//     the statically configured expected origin. Guards against a device
//     being replaced or re-addressed without operator awareness.
//   - Stale: no report within the freshness window. Advisory only; the
//     last reading stays visible but the control engine trusts it less.
//   - Available: fresh and verified.
//
// Devices are never destroyed; records live for the process lifetime.
package device
