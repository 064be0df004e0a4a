package control

import "time"

// Threshold is a plain hysteresis controller: on below the dead band,
// off above it, hold inside. Suits rooms where relay wear matters more
// than tight tracking.
//
// The configured hysteresis is the full width of the dead band centred
// on the target, so a band of 0.3 degrees switches on at target-0.15
// and off at target+0.15.
type Threshold struct {
	halfBand float64
	on       bool
}

// NewThreshold builds a threshold strategy with the given dead-band
// width in degrees Celsius.
func NewThreshold(bandC float64) *Threshold {
	return &Threshold{halfBand: bandC / 2}
}

// Decide turns the heater on when the temperature sits at or below the
// lower band edge, off at or above the upper edge, and keeps the
// current state inside the band.
func (t *Threshold) Decide(in Input) Decision {
	dt := in.CurrentC - in.TargetC
	switch {
	case dt <= -t.halfBand:
		return Decision{On: true}
	case dt >= t.halfBand:
		return Decision{On: false}
	default:
		return Decision{On: t.on}
	}
}

// Apply records the issued state.
func (t *Threshold) Apply(d Decision, _ time.Time) {
	t.on = d.On
}
