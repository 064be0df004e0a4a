package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// The device firmware speaks a fixed proto2 schema. The message set is
// small and hand-maintained here, marshalled with protowire so the server
// stays byte-compatible with the generated code on the device side.
//
// All Encode/Decode functions are pure and safe for concurrent use.

// EncodeDeviceMessage encodes a DeviceMessage to its wire form.
func EncodeDeviceMessage(m *DeviceMessage) []byte {
	var b []byte
	if m.Sensor != nil {
		b = appendMessage(b, 1, encodeSensorReport(m.Sensor))
	}
	if m.Relay != nil {
		b = appendMessage(b, 2, encodeRelayReport(m.Relay))
	}
	if m.FormatDiag != nil {
		b = appendBool(b, 3, *m.FormatDiag)
	}
	if m.HeatOn != nil {
		b = appendBool(b, 4, *m.HeatOn)
	}
	return b
}

// DecodeDeviceMessage decodes a DeviceMessage from its wire form.
//
// Truncated or corrupt input fails with ErrMalformed; a valid buffer
// carrying an out-of-schema enum value fails with ErrUnknownVariant.
// Unknown fields are skipped for schema compatibility.
func DecodeDeviceMessage(data []byte) (*DeviceMessage, error) {
	m := &DeviceMessage{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			sensor, err := decodeSensorReport(field)
			if err != nil {
				return err
			}
			m.Sensor = sensor
		case num == 2 && typ == protowire.BytesType:
			relay, err := decodeRelayReport(field)
			if err != nil {
				return err
			}
			m.Relay = relay
		case num == 3 && typ == protowire.VarintType:
			m.FormatDiag = Bool(varintBool(field))
		case num == 4 && typ == protowire.VarintType:
			m.HeatOn = Bool(varintBool(field))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func encodeSensorReport(r *SensorReport) []byte {
	var b []byte
	if r.TemperatureDeci != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*r.TemperatureDeci)))
	}
	if r.HumidityDeci != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*r.HumidityDeci))
	}
	if r.SensorError != nil {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*r.SensorError)))
	}
	if r.Button != nil {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*r.Button)))
	}
	if r.Info != nil {
		b = appendMessage(b, 10, encodeDeviceInfo(r.Info))
	}
	return b
}

func decodeSensorReport(data []byte) (*SensorReport, error) {
	r := &SensorReport{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == 10 && typ == protowire.BytesType:
			info, err := decodeDeviceInfo(field)
			if err != nil {
				return err
			}
			r.Info = info
		case num == 2 && typ == protowire.VarintType:
			r.TemperatureDeci = Int32(varintInt32(field))
		case num == 3 && typ == protowire.VarintType:
			r.HumidityDeci = Uint32(uint32(varintUint64(field)))
		case num == 4 && typ == protowire.VarintType:
			v := varintInt32(field)
			if !validSensorError(v) {
				return fmt.Errorf("%w: sensor_error %d", ErrUnknownVariant, v)
			}
			e := SensorError(v)
			r.SensorError = &e
		case num == 5 && typ == protowire.VarintType:
			v := varintInt32(field)
			if !validButtonState(v) {
				return fmt.Errorf("%w: button %d", ErrUnknownVariant, v)
			}
			s := ButtonState(v)
			r.Button = &s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func encodeRelayReport(r *RelayReport) []byte {
	var b []byte
	if r.Info != nil {
		b = appendMessage(b, 1, encodeDeviceInfo(r.Info))
	}
	if r.RelayStatus != nil {
		b = appendBool(b, 2, *r.RelayStatus)
	}
	return b
}

func decodeRelayReport(data []byte) (*RelayReport, error) {
	r := &RelayReport{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			info, err := decodeDeviceInfo(field)
			if err != nil {
				return err
			}
			r.Info = info
		case num == 2 && typ == protowire.VarintType:
			r.RelayStatus = Bool(varintBool(field))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func encodeDeviceInfo(info *DeviceInfo) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(info.ID))
	if info.Started {
		b = appendBool(b, 2, true)
	}
	if info.OfflineSec != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*info.OfflineSec))
	}
	return b
}

func decodeDeviceInfo(data []byte) (*DeviceInfo, error) {
	info := &DeviceInfo{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == 1 && typ == protowire.VarintType:
			info.ID = uint32(varintUint64(field))
		case num == 2 && typ == protowire.VarintType:
			info.Started = varintBool(field)
		case num == 3 && typ == protowire.VarintType:
			info.OfflineSec = Uint32(uint32(varintUint64(field)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// EncodeRelayControl encodes a RelayControl command to its wire form.
func EncodeRelayControl(m *RelayControl) []byte {
	var b []byte
	if m.State != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*m.State)))
	}
	if m.Dummy != nil {
		b = appendBool(b, 2, *m.Dummy)
	}
	if m.Delay != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*m.Delay))
	}
	return b
}

// DecodeRelayControl decodes a RelayControl command from its wire form.
func DecodeRelayControl(data []byte) (*RelayControl, error) {
	m := &RelayControl{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v := varintInt32(field)
			if !validRelayState(v) {
				return fmt.Errorf("%w: relay state %d", ErrUnknownVariant, v)
			}
			s := RelayState(v)
			m.State = &s
		case num == 2 && typ == protowire.VarintType:
			m.Dummy = Bool(varintBool(field))
		case num == 3 && typ == protowire.VarintType:
			m.Delay = Uint32(uint32(varintUint64(field)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeLoggerControl encodes a LoggerControl command to its wire form.
func EncodeLoggerControl(m *LoggerControl) []byte {
	var b []byte
	fields := []struct {
		num protowire.Number
		val *bool
	}{
		{1, m.LogToSerial},
		{2, m.StoreLog},
		{3, m.SendOnce},
		{4, m.DeviceRestart},
		{5, m.SendLog},
		{6, m.Experiment},
	}
	for _, f := range fields {
		if f.val != nil {
			b = appendBool(b, f.num, *f.val)
		}
	}
	return b
}

// DecodeLoggerControl decodes a LoggerControl command from its wire form.
func DecodeLoggerControl(data []byte) (*LoggerControl, error) {
	m := &LoggerControl{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		if typ != protowire.VarintType {
			return nil
		}
		v := Bool(varintBool(field))
		switch num {
		case 1:
			m.LogToSerial = v
		case 2:
			m.StoreLog = v
		case 3:
			m.SendOnce = v
		case 4:
			m.DeviceRestart = v
		case 5:
			m.SendLog = v
		case 6:
			m.Experiment = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeLoggerProto encodes a LoggerProto batch to its wire form.
func EncodeLoggerProto(m *LoggerProto) []byte {
	var b []byte
	for i := range m.Record {
		b = appendMessage(b, 1, encodeLogMsg(&m.Record[i]))
	}
	if m.LastTS != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, *m.LastTS)
	}
	if m.CurrentTS != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, *m.CurrentTS)
	}
	return b
}

// DecodeLoggerProto decodes a LoggerProto batch from its wire form.
func DecodeLoggerProto(data []byte) (*LoggerProto, error) {
	m := &LoggerProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			rec, err := decodeLogMsg(field)
			if err != nil {
				return err
			}
			m.Record = append(m.Record, *rec)
		case num == 2 && typ == protowire.VarintType:
			m.LastTS = Uint64(varintUint64(field))
		case num == 3 && typ == protowire.VarintType:
			m.CurrentTS = Uint64(varintUint64(field))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func encodeLogMsg(m *LogMsg) []byte {
	var b []byte
	if m.Type != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*m.Type)))
	}
	if m.TS != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, *m.TS)
	}
	if m.Text != nil {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, *m.Text)
	}
	return b
}

func decodeLogMsg(data []byte) (*LogMsg, error) {
	m := &LogMsg{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v := varintInt32(field)
			if !validMsgType(v) {
				return fmt.Errorf("%w: log type %d", ErrUnknownVariant, v)
			}
			t := MsgType(v)
			m.Type = &t
		case num == 2 && typ == protowire.VarintType:
			m.TS = Uint64(varintUint64(field))
		case num == 3 && typ == protowire.BytesType:
			m.Text = String(string(field))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// walkFields iterates over the top-level fields of a wire-format buffer,
// handing each recognised field's raw value to fn. The field slice passed
// to fn is the varint bytes for VarintType fields and the payload for
// BytesType fields. Fields of other wire types are validated and skipped.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, field []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: invalid tag", ErrMalformed)
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			_, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("%w: truncated varint in field %d", ErrMalformed, num)
			}
			if err := fn(num, typ, data[:n]); err != nil {
				return err
			}
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("%w: truncated bytes in field %d", ErrMalformed, num)
			}
			if err := fn(num, typ, v); err != nil {
				return err
			}
			data = data[n:]
		default:
			// Unknown wire type for this schema; skip if well formed.
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: invalid field %d", ErrMalformed, num)
			}
			data = data[n:]
		}
	}
	return nil
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func varintUint64(field []byte) uint64 {
	v, _ := protowire.ConsumeVarint(field)
	return v
}

func varintInt32(field []byte) int32 {
	return int32(int64(varintUint64(field)))
}

func varintBool(field []byte) bool {
	return varintUint64(field) != 0
}
