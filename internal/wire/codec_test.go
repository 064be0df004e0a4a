package wire_test

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/hearthd/hearthd/internal/wire"
)

func TestSensorReportRoundTrip(t *testing.T) {
	in := &wire.DeviceMessage{
		Sensor: &wire.SensorReport{
			Info:            &wire.DeviceInfo{ID: 2, Started: true, OfflineSec: wire.Uint32(42)},
			TemperatureDeci: wire.Int32(215),
			HumidityDeci:    wire.Uint32(480),
		},
	}

	out, err := wire.DecodeDeviceMessage(wire.EncodeDeviceMessage(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Sensor == nil {
		t.Fatal("sensor report missing")
	}
	if got := out.Sensor.Info; got == nil || got.ID != 2 || !got.Started || got.OfflineSec == nil || *got.OfflineSec != 42 {
		t.Errorf("device info = %+v", got)
	}
	if out.Sensor.TemperatureDeci == nil || *out.Sensor.TemperatureDeci != 215 {
		t.Errorf("temperature = %v, want 215", out.Sensor.TemperatureDeci)
	}
	if out.Sensor.HumidityDeci == nil || *out.Sensor.HumidityDeci != 480 {
		t.Errorf("humidity = %v, want 480", out.Sensor.HumidityDeci)
	}
	if !out.Sensor.HasReading() {
		t.Error("HasReading() = false for a plain temperature report")
	}
}

func TestSensorReportNegativeTemperature(t *testing.T) {
	in := &wire.DeviceMessage{
		Sensor: &wire.SensorReport{
			Info:            &wire.DeviceInfo{ID: 7},
			TemperatureDeci: wire.Int32(-38),
		},
	}

	out, err := wire.DecodeDeviceMessage(wire.EncodeDeviceMessage(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Sensor.TemperatureDeci == nil || *out.Sensor.TemperatureDeci != -38 {
		t.Errorf("temperature = %v, want -38", out.Sensor.TemperatureDeci)
	}
}

func TestSensorErrorSuppressesReading(t *testing.T) {
	e := wire.SensorChecksum
	in := &wire.DeviceMessage{
		Sensor: &wire.SensorReport{
			Info:            &wire.DeviceInfo{ID: 2},
			TemperatureDeci: wire.Int32(999),
			SensorError:     &e,
		},
	}

	out, err := wire.DecodeDeviceMessage(wire.EncodeDeviceMessage(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Sensor.SensorError == nil || *out.Sensor.SensorError != wire.SensorChecksum {
		t.Errorf("sensor error = %v, want S_CHECKSUM", out.Sensor.SensorError)
	}
	if out.Sensor.HasReading() {
		t.Error("HasReading() = true despite sensor error")
	}
}

func TestDecodeUnknownEnumValues(t *testing.T) {
	// A sensor report with an out-of-schema error code.
	var sensor []byte
	sensor = protowire.AppendTag(sensor, 4, protowire.VarintType)
	sensor = protowire.AppendVarint(sensor, 99)
	var msg []byte
	msg = protowire.AppendTag(msg, 1, protowire.BytesType)
	msg = protowire.AppendBytes(msg, sensor)

	if _, err := wire.DecodeDeviceMessage(msg); !errors.Is(err, wire.ErrUnknownVariant) {
		t.Errorf("sensor_error 99: error = %v, want ErrUnknownVariant", err)
	}

	// A relay control with an out-of-schema state.
	var rc []byte
	rc = protowire.AppendTag(rc, 1, protowire.VarintType)
	rc = protowire.AppendVarint(rc, 2)

	if _, err := wire.DecodeRelayControl(rc); !errors.Is(err, wire.ErrUnknownVariant) {
		t.Errorf("relay state 2: error = %v, want ErrUnknownVariant", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated tag", []byte{0xff}},
		{"truncated nested message", []byte{0x0a, 0x10, 0x01}},
		{"truncated varint", []byte{0x18, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := wire.DecodeDeviceMessage(tt.data); !errors.Is(err, wire.ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	b := wire.EncodeDeviceMessage(&wire.DeviceMessage{FormatDiag: wire.Bool(true)})
	// A future firmware revision appends a field this schema ignores.
	b = protowire.AppendTag(b, 15, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	out, err := wire.DecodeDeviceMessage(b)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.FormatDiag == nil || !*out.FormatDiag {
		t.Error("format_diag lost next to unknown field")
	}
}

func TestRelayControlRoundTrip(t *testing.T) {
	state := wire.RelayOn
	in := &wire.RelayControl{
		State: &state,
		Dummy: wire.Bool(true),
		Delay: wire.Uint32(300_000),
	}

	out, err := wire.DecodeRelayControl(wire.EncodeRelayControl(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.State == nil || *out.State != wire.RelayOn {
		t.Errorf("state = %v, want ON", out.State)
	}
	if out.Delay == nil || *out.Delay != 300_000 {
		t.Errorf("delay = %v, want 300000", out.Delay)
	}
}

func TestLoggerControlPartialFields(t *testing.T) {
	in := &wire.LoggerControl{
		SendLog:     wire.Bool(true),
		LogToSerial: wire.Bool(false),
	}

	out, err := wire.DecodeLoggerControl(wire.EncodeLoggerControl(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.SendLog == nil || !*out.SendLog {
		t.Error("send_log lost")
	}
	if out.LogToSerial == nil || *out.LogToSerial {
		t.Error("log_to_serial should decode as explicitly false")
	}
	// Fields never sent stay unset, so the device keeps its values.
	if out.StoreLog != nil || out.DeviceRestart != nil || out.SendOnce != nil || out.Experiment != nil {
		t.Errorf("unexpected fields set: %+v", out)
	}
}

func TestLoggerProtoRoundTrip(t *testing.T) {
	warn := wire.MsgWarn
	debug := wire.MsgDebug
	in := &wire.LoggerProto{
		Record: []wire.LogMsg{
			{Type: &warn, TS: wire.Uint64(1000), Text: wire.String("sensor retry")},
			{Type: &debug, TS: wire.Uint64(2000), Text: wire.String("report sent")},
		},
		LastTS:    wire.Uint64(2000),
		CurrentTS: wire.Uint64(2500),
	}

	out, err := wire.DecodeLoggerProto(wire.EncodeLoggerProto(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.Record) != 2 {
		t.Fatalf("records = %d, want 2", len(out.Record))
	}
	if *out.Record[0].Type != wire.MsgWarn || *out.Record[0].Text != "sensor retry" {
		t.Errorf("record[0] = %+v", out.Record[0])
	}
	if out.CurrentTS == nil || *out.CurrentTS != 2500 {
		t.Errorf("current_ts = %v, want 2500", out.CurrentTS)
	}
}

func TestRelayStateString(t *testing.T) {
	if got := wire.RelayOn.String(); got != "ON" {
		t.Errorf("RelayOn.String() = %q", got)
	}
	if got := wire.SensorChecksum.String(); got != "S_CHECKSUM" {
		t.Errorf("SensorChecksum.String() = %q", got)
	}
}
