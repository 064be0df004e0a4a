package mqtt

import "fmt"

// defaultPrefix is used when no topic prefix is configured.
const defaultPrefix = "hearthd"

// Topics builds the topic strings hearthd publishes to.
//
// Layout:
//
//	<prefix>/system/status       retained daemon online/offline status
//	<prefix>/state/<room>        retained per-room state JSON
type Topics struct {
	// Prefix is the leading topic segment, defaulting to "hearthd".
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return defaultPrefix
	}
	return t.Prefix
}

// SystemStatus returns the daemon status topic.
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// RoomState returns the retained state topic for a room.
func (t Topics) RoomState(room string) string {
	return fmt.Sprintf("%s/state/%s", t.prefix(), room)
}
