package control

import (
	"fmt"
	"time"
)

// Strategy names accepted in room configuration.
const (
	StrategyThreshold = "threshold"
	StrategyDutyCycle = "duty_cycle"
)

// Input is one evaluation of a room: the corrected temperature, the
// target now and the target a little ahead of now. Temperatures are in
// degrees Celsius; deci-degree readings are converted at the engine
// boundary.
type Input struct {
	CurrentC      float64
	TargetC       float64
	FutureTargetC float64
	Now           time.Time
}

// Decision is a strategy's verdict: the heater state to request and an
// optional activation delay carried to the relay, letting the device
// flip mid-period without another round trip.
type Decision struct {
	On    bool
	Delay time.Duration
}

// Strategy decides the heater state for one room. Implementations are
// stateful and not safe for concurrent use; the engine serialises
// calls per room.
//
// Decide computes the next decision from a fresh input. Apply records
// that the decision was issued, so the strategy can track the mode the
// relay will assume. The engine calls Apply after every Decide even
// when no command needs sending.
type Strategy interface {
	Decide(in Input) Decision
	Apply(d Decision, now time.Time)
}

// NewStrategy builds a strategy instance by configured name.
func NewStrategy(name string, hysteresisC float64, params DutyCycleParams) (Strategy, error) {
	switch name {
	case StrategyThreshold:
		return NewThreshold(hysteresisC), nil
	case StrategyDutyCycle:
		return NewDutyCycle(params), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
