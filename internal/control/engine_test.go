package control

import (
	"testing"
	"time"

	"github.com/hearthd/hearthd/internal/device"
	"github.com/hearthd/hearthd/internal/room"
)

type fakeStatus struct {
	status map[uint32]device.Status
}

func (f *fakeStatus) Status(id uint32, _ time.Time) device.Status {
	if s, ok := f.status[id]; ok {
		return s
	}
	return device.Available
}

type submission struct {
	room  string
	on    bool
	delay time.Duration
}

type fakeSink struct {
	sent []submission
}

func (f *fakeSink) Submit(roomName string, on bool, delay time.Duration) {
	f.sent = append(f.sent, submission{room: roomName, on: on, delay: delay})
}

func engineConfig() Config {
	return Config{
		TickInterval:      time.Minute,
		HysteresisC:       0.2,
		Lookahead:         10 * time.Minute,
		ForceHeatTargetC:  21.5,
		ForceHeatDuration: time.Hour,
		DutyCycle:         DefaultDutyCycleParams(),
	}
}

func newTestEngine(t *testing.T, status *fakeStatus, sink *fakeSink) (*Engine, *room.Store) {
	t.Helper()
	store, err := room.NewStore([]room.Settings{{
		Name:        "lounge",
		SensorID:    101,
		RelayID:     201,
		RelayHost:   "192.168.1.50",
		Strategy:    StrategyThreshold,
		Schedule:    room.Schedule{{Hour: 0, TargetC: 18}, {Hour: 24, TargetC: 18}},
		HistorySize: 32,
	}})
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	eng, err := NewEngine(engineConfig(), store, status, sink, nil)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return eng, store
}

func reading(deci int32) room.Reading {
	return room.Reading{Time: time.Now(), RawDeci: deci}
}

func TestEngineCommandsHeatWhenCold(t *testing.T) {
	sink := &fakeSink{}
	eng, store := newTestEngine(t, &fakeStatus{}, sink)
	now := time.Now()

	// 16.0 C against a target of 18.0 C.
	if err := store.ApplyReading("lounge", reading(160)); err != nil {
		t.Fatal(err)
	}
	eng.Tick(now)

	if len(sink.sent) != 1 {
		t.Fatalf("submissions = %d, want 1", len(sink.sent))
	}
	if !sink.sent[0].on {
		t.Fatal("want heater on")
	}

	st, err := store.Relay("lounge")
	if err != nil {
		t.Fatal(err)
	}
	if st.Commanded == nil || !*st.Commanded {
		t.Fatal("commanded state not recorded")
	}
}

func TestEngineSilentWhileConfirmedMatches(t *testing.T) {
	sink := &fakeSink{}
	eng, store := newTestEngine(t, &fakeStatus{}, sink)
	now := time.Now()

	if err := store.ApplyReading("lounge", reading(160)); err != nil {
		t.Fatal(err)
	}
	// The relay already confirmed it is on.
	if err := store.SetRelayObserved("lounge", true, now); err != nil {
		t.Fatal(err)
	}

	eng.Tick(now)
	if len(sink.sent) != 0 {
		t.Fatalf("submissions = %d, want 0 while confirmed state matches", len(sink.sent))
	}
}

func TestEngineSkipsUnavailableSensor(t *testing.T) {
	sink := &fakeSink{}
	status := &fakeStatus{status: map[uint32]device.Status{101: device.Unavailable}}
	eng, store := newTestEngine(t, status, sink)
	now := time.Now()

	if err := store.ApplyReading("lounge", reading(150)); err != nil {
		t.Fatal(err)
	}
	eng.Tick(now)

	if len(sink.sent) != 0 {
		t.Fatalf("submissions = %d, want 0 for unavailable sensor", len(sink.sent))
	}

	// History still records the tick.
	snap, err := store.SnapshotRoom("lounge", now)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.History) != 1 {
		t.Fatalf("history = %d samples, want 1", len(snap.History))
	}
}

func TestEngineSkipsSensorError(t *testing.T) {
	sink := &fakeSink{}
	eng, store := newTestEngine(t, &fakeStatus{}, sink)
	now := time.Now()

	code := int32(153)
	rd := reading(150)
	rd.SensorErr = &code
	if err := store.ApplyReading("lounge", rd); err != nil {
		t.Fatal(err)
	}
	eng.Tick(now)

	if len(sink.sent) != 0 {
		t.Fatalf("submissions = %d, want 0 for errored reading", len(sink.sent))
	}
}

func TestEngineHonoursDisableWindow(t *testing.T) {
	sink := &fakeSink{}
	eng, store := newTestEngine(t, &fakeStatus{}, sink)
	now := time.Now()

	if err := store.ApplyReading("lounge", reading(160)); err != nil {
		t.Fatal(err)
	}
	if err := store.SetDisabledUntil("lounge", now.Add(2*time.Hour), now); err != nil {
		t.Fatal(err)
	}

	eng.Tick(now.Add(time.Minute))
	eng.Tick(now.Add(time.Hour))
	if len(sink.sent) != 0 {
		t.Fatalf("submissions = %d, want 0 inside disable window", len(sink.sent))
	}

	// Past the window, control resumes on its own.
	eng.Tick(now.Add(2*time.Hour + time.Minute))
	if len(sink.sent) != 1 {
		t.Fatalf("submissions = %d, want 1 after window expiry", len(sink.sent))
	}

	// Samples were recorded throughout, flagged while disabled.
	snap, err := store.SnapshotRoom("lounge", now.Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.History) != 3 {
		t.Fatalf("history = %d samples, want 3", len(snap.History))
	}
	if !snap.History[0].Disabled || snap.History[2].Disabled {
		t.Fatalf("disabled flags = %v, %v, want true, false", snap.History[0].Disabled, snap.History[2].Disabled)
	}
}

func TestEngineForceHeat(t *testing.T) {
	sink := &fakeSink{}
	eng, store := newTestEngine(t, &fakeStatus{}, sink)
	now := time.Now()

	// 20.5 C sits above the scheduled 18.0 C target: normally off.
	if err := store.ApplyReading("lounge", reading(205)); err != nil {
		t.Fatal(err)
	}
	eng.Tick(now)
	if len(sink.sent) != 1 || sink.sent[0].on {
		t.Fatalf("submissions = %+v, want a single off command", sink.sent)
	}

	// The boost pins the target to 21.5 C, well above the reading.
	eng.ForceHeat(now)
	eng.Tick(now.Add(time.Minute))
	last := sink.sent[len(sink.sent)-1]
	if !last.on {
		t.Fatal("want heater on during force-heat window")
	}

	if _, ok := eng.ForcedUntil(); !ok {
		t.Fatal("ForcedUntil() reports no active window")
	}

	// After the window the schedule target applies again.
	eng.Tick(now.Add(2 * time.Hour))
	last = sink.sent[len(sink.sent)-1]
	if last.on {
		t.Fatal("want heater off after force-heat expiry")
	}
	if _, ok := eng.ForcedUntil(); ok {
		t.Fatal("ForcedUntil() still reports a window after expiry")
	}
}
