package control

import "time"

// maxPendingDelay caps how far ahead a delayed switch may be scheduled.
// Longer delays are treated as "no change planned this period".
const maxPendingDelay = time.Minute

// offsetAvgInterval is the window length, in evaluations, of the
// moving average that adapts the duty-cycle offset.
const offsetAvgInterval = 40.0

// DutyCycleParams are the tunable constants of the duty-cycle curve.
type DutyCycleParams struct {
	// Smoothing is the EWMA weight kept from the previous smoothed
	// reading, in [0, 1).
	Smoothing float64

	// InitialOffset seeds the adaptive offset in degrees. Negative
	// values bias towards heating.
	InitialOffset float64

	// OffsetMin and OffsetMax clamp the adaptive offset.
	OffsetMin float64
	OffsetMax float64

	// PulseScale converts temperature error to pulse width, in minutes
	// per degree.
	PulseScale float64
}

// DefaultDutyCycleParams mirror the tuning the strategy was developed
// with: heavy smoothing, a slight heating bias and ten-minute pulses
// per degree of error.
func DefaultDutyCycleParams() DutyCycleParams {
	return DutyCycleParams{
		Smoothing:     0.5,
		InitialOffset: -0.36,
		OffsetMin:     -0.7,
		OffsetMax:     0.3,
		PulseScale:    10,
	}
}

// DutyCycle modulates the heater with variable-width pulses so the
// time-averaged output tracks the target instead of oscillating a full
// hysteresis band around it.
//
// The controller smooths readings with an EWMA, adds a slowly adapting
// offset that absorbs systematic bias (sensor placement, heater lag),
// and maps the resulting error to a pulse width. Decisions carry a
// delay so the relay can flip mid-period; the pending switch is
// tracked locally and promoted once its time arrives.
type DutyCycle struct {
	p DutyCycleParams

	on        bool
	onSince   time.Time
	smooth    float64
	smoothSet bool
	offset    float64

	pendingOn bool
	pendingAt time.Time
}

// NewDutyCycle builds a duty-cycle strategy from the given params.
func NewDutyCycle(p DutyCycleParams) *DutyCycle {
	return &DutyCycle{
		p:         p,
		offset:    p.InitialOffset,
		pendingOn: true,
	}
}

// Decide evaluates the pulse curve against a fresh reading.
func (c *DutyCycle) Decide(in Input) Decision {
	// Promote a pending delayed switch once its time has come.
	if !in.Now.Before(c.pendingAt) {
		if c.on != c.pendingOn {
			c.onSince = c.pendingAt
		}
		c.on = c.pendingOn
	}

	if !c.smoothSet {
		c.smooth = in.CurrentC
		c.smoothSet = true
	} else {
		c.smooth = c.smooth*c.p.Smoothing + in.CurrentC*(1-c.p.Smoothing)
	}

	aboveTarget := c.smooth - in.FutureTargetC
	dt := aboveTarget + c.offset

	// Adapting against a moving target would fold schedule ramps into
	// the offset, so only learn while the target is steady.
	if in.FutureTargetC == in.TargetC {
		c.updateOffset(aboveTarget)
	}

	// Far outside the band no pulsing is needed: hold saturated.
	if dt <= -0.9 && c.on {
		return Decision{On: true}
	}
	if dt >= -0.1 && !c.on {
		return Decision{On: false}
	}

	inState := in.Now.Sub(c.onSince).Minutes()
	width := pulseWidth(dt, c.on, c.p.PulseScale)

	if inState < width {
		remaining := time.Duration((width - inState) * float64(time.Minute))
		if remaining < 0 {
			remaining = 0
		}
		return Decision{On: !c.on, Delay: remaining}
	}
	return Decision{On: !c.on}
}

// Apply records an issued decision, scheduling the delayed switch the
// relay was asked to perform.
func (c *DutyCycle) Apply(d Decision, now time.Time) {
	if d.Delay < maxPendingDelay {
		c.pendingOn = d.On
		c.pendingAt = now.Add(d.Delay)
	}
}

// updateOffset folds the current steady-state error into the adaptive
// offset: overshoot while heating or undershoot while idle both mean
// the bias needs correcting.
func (c *DutyCycle) updateOffset(aboveTarget float64) {
	offset := c.offset
	if (c.on && aboveTarget > 0) || (!c.on && aboveTarget < 0) {
		offset += aboveTarget
	}
	offset = ((offsetAvgInterval-1)*c.offset + offset) / offsetAvgInterval
	c.offset = clamp(offset, c.p.OffsetMin, c.p.OffsetMax)
}

// pulseWidth maps the biased error to the length in minutes of the
// current pulse. While heating the on pulse lengthens with the deficit;
// while idle the off pulse shortens as the room cools further below
// target. Either way a larger deficit yields a larger heating share of
// the period.
func pulseWidth(dt float64, on bool, scale float64) float64 {
	if on {
		return dt * -scale
	}
	return (1 + dt) * scale
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
