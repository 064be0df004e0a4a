package server

import (
	"time"

	"github.com/hearthd/hearthd/internal/device"
	"github.com/hearthd/hearthd/internal/room"
)

// RoomStatus is the externally visible view of one room: the store
// snapshot plus the registry's availability verdict for both devices.
type RoomStatus struct {
	room.Snapshot
	SensorAvailability device.Status `json:"sensor_availability"`
	RelayAvailability  device.Status `json:"relay_availability"`
}

// RoomStatuses builds the status view for every room, ordered by name.
func (c *Core) RoomStatuses(now time.Time) []RoomStatus {
	snaps := c.store.Snapshot(now)
	out := make([]RoomStatus, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, RoomStatus{
			Snapshot:           snap,
			SensorAvailability: c.registry.Status(snap.SensorID, now),
			RelayAvailability:  c.registry.Status(snap.RelayID, now),
		})
	}
	return out
}

// RoomStatus builds the status view for one room.
func (c *Core) RoomStatus(name string, now time.Time) (RoomStatus, error) {
	snap, err := c.store.SnapshotRoom(name, now)
	if err != nil {
		return RoomStatus{}, err
	}
	return RoomStatus{
		Snapshot:           snap,
		SensorAvailability: c.registry.Status(snap.SensorID, now),
		RelayAvailability:  c.registry.Status(snap.RelayID, now),
	}, nil
}

// Override pins a room's target until the deadline.
func (c *Core) Override(name string, targetDeci int32, until time.Time) error {
	return c.store.SetOverride(name, targetDeci, until, time.Now())
}

// ClearOverride removes a room's manual target.
func (c *Core) ClearOverride(name string) error {
	return c.store.ClearOverride(name)
}

// Disable suppresses automatic heating for a room until the deadline.
func (c *Core) Disable(name string, until time.Time) error {
	return c.store.SetDisabledUntil(name, until, time.Now())
}

// EnableNow lifts a room's disable window immediately.
func (c *Core) EnableNow(name string) error {
	return c.store.ClearDisabled(name)
}

// CommandRelay sends a manual relay command through the dispatcher.
func (c *Core) CommandRelay(name string, on bool, delay time.Duration) error {
	if _, err := c.store.Settings(name); err != nil {
		return err
	}
	c.dispatcher.Submit(name, on, delay)
	return c.store.SetRelayCommanded(name, on, time.Now())
}

// ForceHeat opens the boost window, as a button press would.
func (c *Core) ForceHeat() {
	c.engine.ForceHeat(time.Now())
}
