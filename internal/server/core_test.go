package server

import (
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/hearthd/hearthd/internal/control"
	"github.com/hearthd/hearthd/internal/device"
	"github.com/hearthd/hearthd/internal/dispatch"
	"github.com/hearthd/hearthd/internal/export"
	"github.com/hearthd/hearthd/internal/room"
	"github.com/hearthd/hearthd/internal/wire"
)

type fakeSender struct {
	sent int
}

func (f *fakeSender) SendRelayControl(string, bool, time.Duration) error {
	f.sent++
	return nil
}

type fakeSink struct {
	observations []export.Observation
}

func (f *fakeSink) Publish(obs export.Observation) {
	f.observations = append(f.observations, obs)
}

type fakeResponder struct {
	replies []string
}

func (f *fakeResponder) SendText(_ netip.AddrPort, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

type coreFixture struct {
	core       *Core
	store      *room.Store
	registry   *device.Registry
	dispatcher *dispatch.Dispatcher
	engine     *control.Engine
	sink       *fakeSink
	responder  *fakeResponder
}

func newFixture(t *testing.T) *coreFixture {
	t.Helper()

	store, err := room.NewStore([]room.Settings{{
		Name:           "lounge",
		SensorID:       101,
		RelayID:        201,
		RelayHost:      "192.168.1.50",
		CorrectionDeci: -5,
		Strategy:       control.StrategyThreshold,
		Schedule:       room.Schedule{{Hour: 0, TargetC: 18}, {Hour: 24, TargetC: 18}},
		HistorySize:    16,
	}})
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	registry := device.NewRegistry(3 * time.Minute)
	dispatcher := dispatch.New(
		dispatch.Config{RetryInterval: 5 * time.Second, MaxRetries: 3},
		&fakeSender{},
		map[string]string{"lounge": "192.168.1.50"},
		nil, nil, nil,
	)
	engine, err := control.NewEngine(control.Config{
		TickInterval:      time.Minute,
		HysteresisC:       0.2,
		Lookahead:         10 * time.Minute,
		ForceHeatTargetC:  21.5,
		ForceHeatDuration: time.Hour,
		DutyCycle:         control.DefaultDutyCycleParams(),
	}, store, registry, dispatcher, nil)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}

	sink := &fakeSink{}
	core := NewCore(Config{FreshnessWindow: 3 * time.Minute}, registry, store, dispatcher, engine, sink, nil)
	responder := &fakeResponder{}
	core.SetResponder(responder)

	return &coreFixture{
		core:       core,
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		engine:     engine,
		sink:       sink,
		responder:  responder,
	}
}

func sensorOrigin() netip.AddrPort { return netip.MustParseAddrPort("192.168.1.40:4000") }
func relayOrigin() netip.AddrPort  { return netip.MustParseAddrPort("192.168.1.50:4000") }

func sensorMessage(deci int32) *wire.DeviceMessage {
	return &wire.DeviceMessage{Sensor: &wire.SensorReport{
		Info:            &wire.DeviceInfo{ID: 101},
		TemperatureDeci: wire.Int32(deci),
		HumidityDeci:    wire.Uint32(480),
	}}
}

func TestSensorReportUpdatesRoomAndExports(t *testing.T) {
	fx := newFixture(t)

	fx.core.HandleMessage(sensorOrigin(), sensorMessage(215))

	rd, err := fx.store.LastReading("lounge")
	if err != nil || rd == nil {
		t.Fatalf("LastReading() = %v, %v", rd, err)
	}
	if rd.CorrectedDeci != 210 {
		t.Fatalf("corrected = %d, want 210 after -0.5 correction", rd.CorrectedDeci)
	}

	if status := fx.registry.Status(101, time.Now()); status != device.Available {
		t.Fatalf("sensor status = %v, want available", status)
	}

	if len(fx.sink.observations) != 1 {
		t.Fatalf("observations = %d, want 1", len(fx.sink.observations))
	}
	obs := fx.sink.observations[0]
	if obs.Room != "lounge" || obs.CorrectedDeci != 210 {
		t.Fatalf("observation = %+v", obs)
	}
	if obs.TargetDeci == nil || *obs.TargetDeci != 180 {
		t.Fatalf("observation target = %v, want 180", obs.TargetDeci)
	}
}

func TestSensorReportWithoutTemperature(t *testing.T) {
	fx := newFixture(t)

	code := wire.SensorChecksum
	fx.core.HandleMessage(sensorOrigin(), &wire.DeviceMessage{Sensor: &wire.SensorReport{
		Info:        &wire.DeviceInfo{ID: 101},
		SensorError: &code,
	}})

	rd, err := fx.store.LastReading("lounge")
	if err != nil {
		t.Fatal(err)
	}
	if rd != nil {
		t.Fatal("errored report without a reading must not store one")
	}
	// The sighting still counts.
	if status := fx.registry.Status(101, time.Now()); status != device.Available {
		t.Fatalf("sensor status = %v, want available", status)
	}
}

func TestRelayReportConfirmsPendingCommand(t *testing.T) {
	fx := newFixture(t)

	fx.dispatcher.Submit("lounge", true, 0)
	if !fx.dispatcher.Pending("lounge") {
		t.Fatal("no pending command after submit")
	}

	fx.core.HandleMessage(relayOrigin(), &wire.DeviceMessage{Relay: &wire.RelayReport{
		Info:        &wire.DeviceInfo{ID: 201},
		RelayStatus: wire.Bool(true),
	}})

	if fx.dispatcher.Pending("lounge") {
		t.Fatal("pending command survived a matching relay report")
	}
	st, err := fx.store.Relay("lounge")
	if err != nil {
		t.Fatal(err)
	}
	if st.Confirmed == nil || !*st.Confirmed {
		t.Fatalf("relay status = %+v, want confirmed on", st)
	}
}

func TestDiagReply(t *testing.T) {
	fx := newFixture(t)

	fx.core.HandleMessage(sensorOrigin(), sensorMessage(215))
	fx.core.HandleMessage(relayOrigin(), &wire.DeviceMessage{Relay: &wire.RelayReport{
		Info:        &wire.DeviceInfo{ID: 201},
		RelayStatus: wire.Bool(true),
	}})

	fx.core.HandleMessage(sensorOrigin(), &wire.DeviceMessage{FormatDiag: wire.Bool(true)})

	if len(fx.responder.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(fx.responder.replies))
	}
	reply := fx.responder.replies[0]
	if !strings.Contains(reply, "lounge: 21.0") {
		t.Fatalf("reply %q missing room temperature", reply)
	}
	if !strings.Contains(reply, "[ON]") {
		t.Fatalf("reply %q missing on marker", reply)
	}
	if strings.Contains(reply, "FAIL") {
		t.Fatalf("reply %q flags failure while devices are fresh", reply)
	}
}

func TestDiagFlagsSilentDevices(t *testing.T) {
	fx := newFixture(t)

	// No device has ever reported.
	fx.core.HandleMessage(sensorOrigin(), &wire.DeviceMessage{FormatDiag: wire.Bool(true)})

	if len(fx.responder.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(fx.responder.replies))
	}
	if !strings.Contains(fx.responder.replies[0], "FAIL: lounge sensor") {
		t.Fatalf("reply %q missing sensor failure line", fx.responder.replies[0])
	}
}

func TestHeatOnOpensBoostWindow(t *testing.T) {
	fx := newFixture(t)

	fx.core.HandleMessage(sensorOrigin(), &wire.DeviceMessage{HeatOn: wire.Bool(true)})

	if _, ok := fx.engine.ForcedUntil(); !ok {
		t.Fatal("heat_on did not open the boost window")
	}
}

func TestButtonPressOpensBoostWindow(t *testing.T) {
	fx := newFixture(t)

	button := wire.ButtonForceOn
	fx.core.HandleMessage(sensorOrigin(), &wire.DeviceMessage{Sensor: &wire.SensorReport{
		Info:            &wire.DeviceInfo{ID: 101},
		TemperatureDeci: wire.Int32(200),
		Button:          &button,
	}})

	if _, ok := fx.engine.ForcedUntil(); !ok {
		t.Fatal("button press did not open the boost window")
	}
}

func TestRoomStatusComposite(t *testing.T) {
	fx := newFixture(t)
	now := time.Now()

	fx.core.HandleMessage(sensorOrigin(), sensorMessage(215))

	statuses := fx.core.RoomStatuses(now)
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	st := statuses[0]
	if st.SensorAvailability != device.Available {
		t.Fatalf("sensor availability = %v, want available", st.SensorAvailability)
	}
	if st.RelayAvailability != device.Unavailable {
		t.Fatalf("relay availability = %v, want unavailable (never seen)", st.RelayAvailability)
	}
}
