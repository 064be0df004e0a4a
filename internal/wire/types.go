package wire

import "fmt"

// RelayState is the commanded or reported state of a heating relay.
type RelayState int32

// RelayState values from the shared device schema.
const (
	RelayOff RelayState = 0
	RelayOn  RelayState = 1
)

// String returns the schema name of the relay state.
func (s RelayState) String() string {
	switch s {
	case RelayOff:
		return "OFF"
	case RelayOn:
		return "ON"
	default:
		return fmt.Sprintf("RelayState(%d)", int32(s))
	}
}

func validRelayState(v int32) bool {
	return v == int32(RelayOff) || v == int32(RelayOn)
}

// SensorError is a device-reported fault code. A report carrying one of
// these has no usable temperature reading.
type SensorError int32

// SensorError values from the shared device schema.
const (
	SensorTimeoutLowPulse  SensorError = 150
	SensorTimeoutHighPulse SensorError = 151
	SensorTimePulse        SensorError = 152
	SensorChecksum         SensorError = 153
	SensorButtonEvent      SensorError = 160
)

// String returns the schema name of the sensor error.
func (e SensorError) String() string {
	switch e {
	case SensorTimeoutLowPulse:
		return "S_TIMEOUT_LOW_PULSE"
	case SensorTimeoutHighPulse:
		return "S_TIMEOUT_HIGH_PULSE"
	case SensorTimePulse:
		return "S_TIME_PULSE"
	case SensorChecksum:
		return "S_CHECKSUM"
	case SensorButtonEvent:
		return "S_BUTTON_EVENT"
	default:
		return fmt.Sprintf("SensorError(%d)", int32(e))
	}
}

func validSensorError(v int32) bool {
	switch SensorError(v) {
	case SensorTimeoutLowPulse, SensorTimeoutHighPulse, SensorTimePulse, SensorChecksum, SensorButtonEvent:
		return true
	default:
		return false
	}
}

// ButtonState reports the physical override button on a sensor device.
type ButtonState int32

// ButtonState values from the shared device schema.
const (
	ButtonOff     ButtonState = 0
	ButtonForceOn ButtonState = 1
)

func validButtonState(v int32) bool {
	return v == int32(ButtonOff) || v == int32(ButtonForceOn)
}

// MsgType classifies a device log record.
type MsgType int32

// MsgType values from the shared device schema.
const (
	MsgDebug MsgType = 0
	MsgWarn  MsgType = 1
	MsgError MsgType = 2
)

func validMsgType(v int32) bool {
	return v >= int32(MsgDebug) && v <= int32(MsgError)
}

// DeviceInfo identifies the originating device and its self-reported status.
// It accompanies sensor and relay reports.
type DeviceInfo struct {
	ID         uint32
	Started    bool
	OfflineSec *uint32
}

// SensorReport is a temperature/humidity reading from a sensor device.
// Temperature and humidity are in tenths of a unit. A set SensorError
// means the reading fields are not usable.
type SensorReport struct {
	Info            *DeviceInfo
	TemperatureDeci *int32
	HumidityDeci    *uint32
	SensorError     *SensorError
	Button          *ButtonState
}

// HasReading reports whether the report carries a usable temperature.
func (r *SensorReport) HasReading() bool {
	return r.TemperatureDeci != nil && r.SensorError == nil
}

// RelayReport is a relay device's current output state.
type RelayReport struct {
	Info        *DeviceInfo
	RelayStatus *bool
}

// RelayControl commands a relay device to a state, optionally after a delay.
// Dummy pads the message so the encoded form is never empty.
type RelayControl struct {
	State *RelayState
	Dummy *bool
	Delay *uint32
}

// LoggerControl adjusts a device's logging behaviour or restarts it.
type LoggerControl struct {
	LogToSerial   *bool
	StoreLog      *bool
	SendOnce      *bool
	DeviceRestart *bool
	SendLog       *bool
	Experiment    *bool
}

// LogMsg is one device log record with a device-relative timestamp in
// milliseconds since device boot.
type LogMsg struct {
	Type *MsgType
	TS   *uint64
	Text *string
}

// LoggerProto is a batch of device log records, with the device's current
// uptime clock for reconstructing wall-clock times.
type LoggerProto struct {
	Record    []LogMsg
	LastTS    *uint64
	CurrentTS *uint64
}

// DeviceMessage is the tagged union carried by every device report datagram.
// Exactly one of the fields is expected to be meaningful.
type DeviceMessage struct {
	Sensor     *SensorReport
	Relay      *RelayReport
	FormatDiag *bool
	HeatOn     *bool
}

// Uint32 returns a pointer to v, for building optional fields.
func Uint32(v uint32) *uint32 { return &v }

// Int32 returns a pointer to v, for building optional fields.
func Int32(v int32) *int32 { return &v }

// Uint64 returns a pointer to v, for building optional fields.
func Uint64(v uint64) *uint64 { return &v }

// Bool returns a pointer to v, for building optional fields.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v, for building optional fields.
func String(v string) *string { return &v }
