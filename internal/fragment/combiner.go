package fragment

import (
	"fmt"
	"math"
	"net/netip"
	"sync"
	"time"
)

// Wire constants for the fragment framing.
const (
	// Magic is the first byte of every fragment datagram.
	Magic byte = 0xfa

	// HeaderSize is the fixed size of the fragment header in bytes.
	HeaderSize = 5

	// flagsV1 is the only supported flags value.
	flagsV1 byte = 1

	// MaxMessageSize caps the reassembled message size. Anything larger is
	// treated as hostile or corrupt.
	MaxMessageSize = 64 * 1024
)

// Header identifies one fragment of a larger message.
//
// Seq groups the fragments of one logical message; it is scoped to the
// sending origin, so two devices reusing the same sequence values never
// collide. Index is 0-based; Total is carried on every fragment so a
// mismatch is detectable immediately.
type Header struct {
	Seq   uint8
	Index uint8
	Total uint8
}

// Encode returns the 5-byte wire form of the header.
func (h Header) Encode() []byte {
	return []byte{Magic, flagsV1, h.Seq, h.Index, h.Total}
}

// ParseHeader validates and extracts the fragment header from a datagram,
// returning the header and the remaining payload bytes.
func ParseHeader(datagram []byte) (Header, []byte, error) {
	if len(datagram) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(datagram))
	}
	if datagram[0] != Magic {
		return Header{}, nil, fmt.Errorf("%w: 0x%02x", ErrBadMagic, datagram[0])
	}
	if datagram[1] != flagsV1 {
		return Header{}, nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedFlags, datagram[1])
	}
	h := Header{Seq: datagram[2], Index: datagram[3], Total: datagram[4]}
	if h.Total == 0 || h.Index >= h.Total {
		return Header{}, nil, fmt.Errorf("%w: index %d of %d", ErrInvalidHeader, h.Index, h.Total)
	}
	return h, datagram[HeaderSize:], nil
}

// Fragment is one transport-sized slice of an encoded message, ready to be
// prefixed with its header and sent as a single datagram.
type Fragment struct {
	Header  Header
	Payload []byte
}

// Datagram returns the complete wire form: header followed by payload.
func (f Fragment) Datagram() []byte {
	out := make([]byte, 0, HeaderSize+len(f.Payload))
	out = append(out, f.Header.Encode()...)
	return append(out, f.Payload...)
}

// Split partitions data into consecutive fragments of at most maxPayload
// bytes each, assigning 0-based indices in input order. An empty message
// still produces one (empty) fragment so the receiver sees a complete
// single-fragment message.
func Split(data []byte, maxPayload int, seq uint8) []Fragment {
	if maxPayload < 1 {
		maxPayload = 1
	}
	total := (len(data) + maxPayload - 1) / maxPayload
	if total < 1 {
		total = 1
	}
	if total > math.MaxUint8 {
		// Caller exceeded the addressable fragment space; oversized sends
		// are rejected earlier by MaxMessageSize.
		total = math.MaxUint8
	}

	frags := make([]Fragment, 0, total)
	for i := 0; i < total; i++ {
		begin := i * maxPayload
		end := begin + maxPayload
		if end > len(data) {
			end = len(data)
		}
		frags = append(frags, Fragment{
			Header:  Header{Seq: seq, Index: uint8(i), Total: uint8(total)},
			Payload: data[begin:end],
		})
	}
	return frags
}

// pendingKey scopes reassembly state to one message id from one sender.
type pendingKey struct {
	origin netip.AddrPort
	seq    uint8
}

// pending is one in-progress reassembly.
type pending struct {
	total   int
	parts   map[uint8][]byte
	size    int
	created time.Time
}

// Combiner reassembles fragmented messages arriving out of order, delayed
// or duplicated. State is bounded by Sweep, which the owner must call
// periodically; Ingest never garbage-collects on its own.
//
// Thread Safety: all methods are safe for concurrent use.
type Combiner struct {
	mu      sync.Mutex
	pending map[pendingKey]*pending
}

// NewCombiner creates an empty Combiner.
func NewCombiner() *Combiner {
	return &Combiner{
		pending: make(map[pendingKey]*pending),
	}
}

// Ingest records one fragment. When the fragment completes its message the
// reassembled bytes are returned with ok=true and the pending state is
// dropped; otherwise ok is false.
//
// A fragment whose Total disagrees with the recorded total for the same
// (origin, seq) discards the in-progress reassembly and starts fresh,
// protecting against message-id reuse. Re-inserting an already-present
// index overwrites it; retransmitted duplicates are expected and harmless.
func (c *Combiner) Ingest(origin netip.AddrPort, h Header, payload []byte, now time.Time) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pendingKey{origin: origin, seq: h.Seq}
	entry, ok := c.pending[key]
	if !ok || entry.total != int(h.Total) {
		entry = &pending{
			total:   int(h.Total),
			parts:   make(map[uint8][]byte, h.Total),
			created: now,
		}
		c.pending[key] = entry
	}

	if prev, dup := entry.parts[h.Index]; dup {
		entry.size -= len(prev)
	}
	if entry.size+len(payload) > MaxMessageSize {
		delete(c.pending, key)
		return nil, false, fmt.Errorf("%w: over %d bytes", ErrTooLarge, MaxMessageSize)
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	entry.parts[h.Index] = buf
	entry.size += len(buf)

	if len(entry.parts) < entry.total {
		return nil, false, nil
	}

	out := make([]byte, 0, entry.size)
	for i := 0; i < entry.total; i++ {
		out = append(out, entry.parts[uint8(i)]...)
	}
	delete(c.pending, key)
	return out, true, nil
}

// Sweep removes pending reassemblies created before now-timeout, bounding
// memory under sustained packet loss. It returns the number removed.
func (c *Combiner) Sweep(now time.Time, timeout time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.pending {
		if now.Sub(entry.created) > timeout {
			delete(c.pending, key)
			removed++
		}
	}
	return removed
}

// PendingCount returns the number of in-progress reassemblies.
func (c *Combiner) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
