package export

import "time"

// Observation is one published room observation: the corrected reading
// together with the target and heater state at that moment.
type Observation struct {
	Room          string
	Time          time.Time
	CorrectedDeci int32
	TargetDeci    *int32
	HumidityDeci  *uint32
	HeaterOn      bool
}

// Sink receives observations. Implementations must not block the
// caller; slow destinations buffer or drop internally.
type Sink interface {
	Publish(obs Observation)
}

// Sinks fans one observation out to several sinks.
type Sinks []Sink

// Publish forwards the observation to every sink.
func (s Sinks) Publish(obs Observation) {
	for _, sink := range s {
		sink.Publish(obs)
	}
}
