// Package config loads and validates hearthd configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file, then
// HEARTHD_* environment variable overrides. Validation runs last so a
// misconfigured daemon fails at startup rather than mid-operation.
//
// Room definitions carry everything the control core needs per room: device
// identities, expected report origins, the correction offset, the selected
// control strategy, and the schedule curve. Tunable control policy
// (hysteresis, retry cadence, duty-cycle constants) lives under the control
// section rather than in code.
package config
