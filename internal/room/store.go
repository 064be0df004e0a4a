package room

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store owns the runtime state for every configured room behind a
// single mutex. All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	bySensor map[uint32]string
	byRelay  map[uint32]string
}

// NewStore builds a store from static room settings. Room names and
// device ids must be unique and every schedule must validate.
func NewStore(settings []Settings) (*Store, error) {
	s := &Store{
		rooms:    make(map[string]*room, len(settings)),
		bySensor: make(map[uint32]string, len(settings)),
		byRelay:  make(map[uint32]string, len(settings)),
	}
	for _, cfg := range settings {
		if cfg.Name == "" {
			return nil, fmt.Errorf("%w: empty room name", ErrInvalidSchedule)
		}
		if _, ok := s.rooms[cfg.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrRoomExists, cfg.Name)
		}
		if err := cfg.Schedule.Validate(); err != nil {
			return nil, fmt.Errorf("room %q: %w", cfg.Name, err)
		}
		s.rooms[cfg.Name] = &room{
			settings: cfg,
			hist:     newHistory(cfg.HistorySize, cfg.HistoryMaxAge),
		}
		s.bySensor[cfg.SensorID] = cfg.Name
		s.byRelay[cfg.RelayID] = cfg.Name
	}
	return s, nil
}

// Names returns the configured room names in stable order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameBySensor maps a sensor device id to its room.
func (s *Store) NameBySensor(id uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.bySensor[id]
	return name, ok
}

// NameByRelay maps a relay device id to its room.
func (s *Store) NameByRelay(id uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.byRelay[id]
	return name, ok
}

// Settings returns the static configuration for a room.
func (s *Store) Settings(name string) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[name]
	if !ok {
		return Settings{}, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	return r.settings, nil
}

// ApplyReading records a sensor observation for a room. The room's
// correction offset is applied here; callers supply the raw value.
func (s *Store) ApplyReading(name string, rd Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	rd.CorrectedDeci = rd.RawDeci + r.settings.CorrectionDeci
	r.lastReading = &rd
	return nil
}

// LastReading returns a copy of the most recent reading, or nil when
// the room has not reported yet.
func (s *Store) LastReading(name string) (*Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	if r.lastReading == nil {
		return nil, nil
	}
	cp := *r.lastReading
	return &cp, nil
}

// SetOverride pins the room target until the given deadline.
func (s *Store) SetOverride(name string, targetDeci int32, until, now time.Time) error {
	if !until.After(now) {
		return ErrPastDeadline
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.override = &Override{TargetDeci: targetDeci, Until: until}
	return nil
}

// ClearOverride removes any active override. Clearing a room with no
// override is not an error.
func (s *Store) ClearOverride(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.override = nil
	return nil
}

// Override returns a copy of the override active at the given instant,
// or nil. Unlike TargetDeci this never clears expired state.
func (s *Store) Override(name string, at time.Time) (*Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	if r.override == nil || !at.Before(r.override.Until) {
		return nil, nil
	}
	ov := *r.override
	return &ov, nil
}

// SetDisabledUntil suppresses heating decisions for the room until the
// deadline passes. Expiry is handled lazily on evaluation.
func (s *Store) SetDisabledUntil(name string, until, now time.Time) error {
	if !until.After(now) {
		return ErrPastDeadline
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.disabledUntil = until
	return nil
}

// ClearDisabled re-enables heating decisions immediately.
func (s *Store) ClearDisabled(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.disabledUntil = time.Time{}
	return nil
}

// Disabled reports whether heating decisions are currently suppressed,
// clearing an expired window as a side effect.
func (s *Store) Disabled(name string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	if r.disabledUntil.IsZero() {
		return false, nil
	}
	if !now.Before(r.disabledUntil) {
		r.disabledUntil = time.Time{}
		return false, nil
	}
	return true, nil
}

// TargetDeci resolves the effective target for a room at the given
// instant: an active override wins, otherwise the schedule is
// interpolated. An expired override is cleared here. The boolean is
// false when the room has no schedule and no override.
func (s *Store) TargetDeci(name string, at time.Time) (int32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return 0, false, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	return s.targetLocked(r, at), s.hasTargetLocked(r, at), nil
}

func (s *Store) targetLocked(r *room, at time.Time) int32 {
	if r.override != nil {
		if at.Before(r.override.Until) {
			return r.override.TargetDeci
		}
		r.override = nil
	}
	if deci, ok := r.settings.Schedule.TargetDeciAt(at); ok {
		return deci
	}
	return 0
}

func (s *Store) hasTargetLocked(r *room, at time.Time) bool {
	if r.override != nil && at.Before(r.override.Until) {
		return true
	}
	return len(r.settings.Schedule) > 0
}

// SetRelayCommanded records the heater state last sent to the relay.
func (s *Store) SetRelayCommanded(name string, on bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.relay.Commanded = &on
	r.relay.CommandedAt = now
	return nil
}

// SetRelayObserved records a heater state reported by the relay itself
// and clears any unconfirmed flag.
func (s *Store) SetRelayObserved(name string, on bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.relay.Confirmed = &on
	r.relay.ConfirmedAt = now
	r.relay.Unconfirmed = false
	return nil
}

// MarkRelayUnconfirmed flags that the last command exhausted its
// retries without an acknowledgement.
func (s *Store) MarkRelayUnconfirmed(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.relay.Unconfirmed = true
	return nil
}

// Relay returns the current relay status for a room.
func (s *Store) Relay(name string) (RelayStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[name]
	if !ok {
		return RelayStatus{}, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	return copyRelay(r.relay), nil
}

// AppendSample records one control-loop evaluation in the room's
// bounded history.
func (s *Store) AppendSample(name string, sm Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	r.hist.append(sm)
	return nil
}

// SnapshotRoom builds a deep-copied view of one room.
func (s *Store) SnapshotRoom(name string, now time.Time) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	return s.snapshotLocked(r, now), nil
}

// Snapshot builds deep-copied views of every room, ordered by name.
func (s *Store) Snapshot(now time.Time) []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		out = append(out, s.snapshotLocked(s.rooms[name], now))
	}
	return out
}

func (s *Store) snapshotLocked(r *room, now time.Time) Snapshot {
	snap := Snapshot{
		Name:           r.settings.Name,
		SensorID:       r.settings.SensorID,
		RelayID:        r.settings.RelayID,
		RelayHost:      r.settings.RelayHost,
		CorrectionDeci: r.settings.CorrectionDeci,
		Strategy:       r.settings.Strategy,
		Relay:          copyRelay(r.relay),
		History:        r.hist.snapshot(),
	}
	if r.lastReading != nil {
		cp := *r.lastReading
		if cp.HumidityDeci != nil {
			h := *cp.HumidityDeci
			cp.HumidityDeci = &h
		}
		if cp.SensorErr != nil {
			e := *cp.SensorErr
			cp.SensorErr = &e
		}
		if cp.Button != nil {
			b := *cp.Button
			cp.Button = &b
		}
		snap.LastReading = &cp
	}
	if r.override != nil && now.Before(r.override.Until) {
		ov := *r.override
		snap.Override = &ov
	}
	if !r.disabledUntil.IsZero() && now.Before(r.disabledUntil) {
		du := r.disabledUntil
		snap.DisabledUntil = &du
	}
	if s.hasTargetLocked(r, now) {
		t := s.targetLocked(r, now)
		snap.TargetDeci = &t
	}
	return snap
}

func copyRelay(in RelayStatus) RelayStatus {
	out := in
	if in.Commanded != nil {
		v := *in.Commanded
		out.Commanded = &v
	}
	if in.Confirmed != nil {
		v := *in.Confirmed
		out.Confirmed = &v
	}
	return out
}
