package room

import (
	"fmt"
	"time"
)

// SchedulePoint is one control point of a day's target curve.
// Hour is a fractional hour of day in [0, 24].
type SchedulePoint struct {
	Hour    float64
	TargetC float64
}

// Schedule is an ordered set of control points interpolated into a
// continuous target-temperature curve over the day.
type Schedule []SchedulePoint

// Validate checks that hours are within the day and strictly increasing.
func (s Schedule) Validate() error {
	prev := -1.0
	for _, p := range s {
		if p.Hour < 0 || p.Hour > 24 {
			return fmt.Errorf("%w: hour %.2f out of range", ErrInvalidSchedule, p.Hour)
		}
		if p.Hour <= prev {
			return fmt.Errorf("%w: hours must be strictly increasing", ErrInvalidSchedule)
		}
		prev = p.Hour
	}
	return nil
}

// TargetAt interpolates the schedule at the given time's hour of day.
//
// Between two bracketing points the target is piecewise-linear; before
// the first point or after the last the nearest endpoint value holds.
// ok is false when the schedule has no points.
func (s Schedule) TargetAt(t time.Time) (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}

	hour := hourOfDay(t)

	if hour <= s[0].Hour {
		return s[0].TargetC, true
	}
	for i := 1; i < len(s); i++ {
		if hour <= s[i].Hour {
			return linear(s[i-1], s[i], hour), true
		}
	}
	return s[len(s)-1].TargetC, true
}

// TargetDeciAt is TargetAt rounded to deci-degrees for integer comparison
// against corrected sensor readings.
func (s Schedule) TargetDeciAt(t time.Time) (int32, bool) {
	c, ok := s.TargetAt(t)
	if !ok {
		return 0, false
	}
	return DeciFromC(c), true
}

// hourOfDay returns the local fractional hour in [0, 24).
func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// linear interpolates between two schedule points at the given hour.
func linear(a, b SchedulePoint, hour float64) float64 {
	progress := (hour - a.Hour) / (b.Hour - a.Hour)
	return a.TargetC + (b.TargetC-a.TargetC)*progress
}

// DeciFromC converts degrees Celsius to deci-degrees, rounding half away
// from zero.
func DeciFromC(c float64) int32 {
	if c < 0 {
		return int32(c*10 - 0.5)
	}
	return int32(c*10 + 0.5)
}

// CFromDeci converts deci-degrees to degrees Celsius for display.
func CFromDeci(deci int32) float64 {
	return float64(deci) / 10
}
