// Package fragment splits encoded messages into transport-sized datagrams
// and reassembles them on receipt.
//
// UDP gives no ordering, no delivery guarantee and a hard per-datagram
// size ceiling. The Combiner is correct for fragments arriving out of
// order, arbitrarily delayed or duplicated, and bounds its memory under
// loss through an owner-driven Sweep. Reassembly state is keyed by
// (sender origin, message id) so overlapping id sequences from different
// devices never collide.
//
// The wire framing is a 5-byte header (magic, flags, message id, fragment
// index, fragment count) in front of each payload slice.
package fragment
