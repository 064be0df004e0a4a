package room

import "errors"

// Domain errors for the room package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, room.ErrRoomNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRoomNotFound is returned when a room name does not exist.
	ErrRoomNotFound = errors.New("room: not found")

	// ErrRoomExists is returned when adding a room whose name is taken.
	ErrRoomExists = errors.New("room: already exists")

	// ErrInvalidSchedule is returned when schedule validation fails.
	ErrInvalidSchedule = errors.New("room: invalid schedule")

	// ErrPastDeadline is returned when a disable or override deadline is
	// not in the future.
	ErrPastDeadline = errors.New("room: deadline not in the future")
)
