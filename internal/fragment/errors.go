package fragment

import "errors"

// Framing errors for the fragment package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, fragment.ErrBadMagic) {
//	    // not a fragment datagram; drop
//	}
var (
	// ErrTruncated is returned when a datagram is shorter than the fragment header.
	ErrTruncated = errors.New("fragment: datagram too short")

	// ErrBadMagic is returned when the magic byte does not match.
	ErrBadMagic = errors.New("fragment: bad magic")

	// ErrUnsupportedFlags is returned for an unrecognised flags byte.
	ErrUnsupportedFlags = errors.New("fragment: unsupported flags")

	// ErrInvalidHeader is returned when the index/count combination is impossible.
	ErrInvalidHeader = errors.New("fragment: invalid header")

	// ErrTooLarge is returned when a reassembly would exceed the message size cap.
	ErrTooLarge = errors.New("fragment: message too large")
)
