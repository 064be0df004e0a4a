// Package room tracks per-room heating state: the latest corrected
// sensor reading, the effective target (schedule or manual override),
// heating-disable windows, relay command/confirmation status and a
// bounded history of control evaluations.
//
// The Store owns every configured room behind a single mutex and is
// the only mutable state shared between the transport, the control
// engine and the HTTP API. Readers receive deep-copied snapshots so no
// caller can alias store internals.
//
// Temperatures are carried as deci-degrees Celsius (tenths) in int32
// so control comparisons stay exact; conversion helpers translate to
// and from float degrees at the edges.
package room
