package room

import "time"

// Reading is a corrected sensor observation attributed to a room. The
// correction offset has already been applied to CorrectedDeci; RawDeci
// keeps the value the sensor actually reported.
type Reading struct {
	Time          time.Time `json:"time"`
	RawDeci       int32     `json:"raw_deci"`
	CorrectedDeci int32     `json:"corrected_deci"`
	HumidityDeci  *int32    `json:"humidity_deci,omitempty"`
	SensorErr     *int32    `json:"sensor_error,omitempty"`
	Button        *int32    `json:"button,omitempty"`
}

// Override pins a room's target temperature until a deadline, taking
// precedence over the schedule.
type Override struct {
	TargetDeci int32     `json:"target_deci"`
	Until      time.Time `json:"until"`
}

// RelayStatus tracks the commanded and confirmed heater state for a
// room's relay. Commanded is what was last sent; Confirmed is what the
// relay last reported back. Unconfirmed is set when a command exhausted
// its retries without an acknowledgement.
type RelayStatus struct {
	Commanded   *bool     `json:"commanded,omitempty"`
	CommandedAt time.Time `json:"commanded_at,omitzero"`
	Confirmed   *bool     `json:"confirmed,omitempty"`
	ConfirmedAt time.Time `json:"confirmed_at,omitzero"`
	Unconfirmed bool      `json:"unconfirmed"`
}

// Settings is the static per-room configuration the store is built
// from. Runtime state lives in the store itself.
type Settings struct {
	Name           string
	SensorID       uint32
	RelayID        uint32
	RelayHost      string
	CorrectionDeci int32
	Strategy       string
	Schedule       Schedule
	HistorySize    int
	HistoryMaxAge  time.Duration
}

// Snapshot is a deep-copied, read-only view of one room's state.
type Snapshot struct {
	Name           string      `json:"name"`
	SensorID       uint32      `json:"sensor_id"`
	RelayID        uint32      `json:"relay_id"`
	RelayHost      string      `json:"relay_host"`
	CorrectionDeci int32       `json:"correction_deci"`
	Strategy       string      `json:"strategy"`
	LastReading    *Reading    `json:"last_reading,omitempty"`
	Override       *Override   `json:"override,omitempty"`
	DisabledUntil  *time.Time  `json:"disabled_until,omitempty"`
	Relay          RelayStatus `json:"relay"`
	TargetDeci     *int32      `json:"target_deci,omitempty"`
	History        []Sample    `json:"history,omitempty"`
}

// room is the mutable per-room record guarded by the store mutex.
type room struct {
	settings Settings

	lastReading   *Reading
	override      *Override
	disabledUntil time.Time
	relay         RelayStatus
	hist          *history
}
