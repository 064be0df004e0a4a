package wire

import "errors"

// Codec errors for the wire package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, wire.ErrMalformed) {
//	    // drop the datagram
//	}
var (
	// ErrMalformed is returned when a buffer is truncated or structurally
	// invalid and cannot be decoded.
	ErrMalformed = errors.New("wire: malformed message")

	// ErrUnknownVariant is returned when a structurally valid buffer carries
	// an enum value outside the shared schema. The caller drops the datagram
	// without side effects.
	ErrUnknownVariant = errors.New("wire: unknown variant")
)
