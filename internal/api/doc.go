// Package api exposes hearthd's HTTP surface.
//
// This package provides:
//   - room status snapshots (availability, corrected temperature,
//     target, relay state, history)
//   - manual target overrides and heating disable windows
//   - direct relay commands routed through the dispatcher
//   - the prometheus metrics endpoint
//
// The server follows the same lifecycle pattern as the other
// long-running components:
//
//	srv, err := api.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
//
// All mutating endpoints act on the same store and dispatcher the
// control loop uses, so manual actions are subject to the same
// confirmation and retry handling as automatic ones.
package api
