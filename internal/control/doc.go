// Package control implements the periodic heating decision loop.
//
// Each tick the Engine resolves every room's effective target (manual
// override, boost window or interpolated schedule), takes the freshest
// corrected reading, and lets the room's configured strategy decide
// the heater state. Two strategies are available: a plain hysteresis
// threshold and a duty-cycle controller that pulses the heater so the
// time-averaged output tracks the target closely.
//
// The engine only emits a command when the desired state differs from
// the last state the relay confirmed, so traffic stays quiet while a
// command is in flight. Delivery, retries and confirmation tracking
// belong to the dispatch package.
package control
