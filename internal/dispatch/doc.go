// Package dispatch delivers relay commands over unreliable UDP.
//
// Commands are fire-and-forget datagrams, so the dispatcher keeps one
// pending record per room until the relay's next report confirms the
// state took effect. A periodic sweep resends unconfirmed commands on
// an exponential backoff cadence and gives up after a capped number of
// attempts, surfacing the failure to the room store rather than
// retrying forever.
package dispatch
