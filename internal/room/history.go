package room

import "time"

// Sample is one control-tick observation kept for the status feed.
type Sample struct {
	Time          time.Time `json:"time"`
	CorrectedDeci int32     `json:"corrected_deci"`
	TargetDeci    int32     `json:"target_deci"`
	HeaterOn      bool      `json:"heater_on"`
	Disabled      bool      `json:"disabled"`
}

// history is a bounded window of samples. Once the capacity or the age
// bound is exceeded the oldest samples are evicted.
type history struct {
	samples []Sample
	cap     int
	maxAge  time.Duration
}

func newHistory(capacity int, maxAge time.Duration) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{
		samples: make([]Sample, 0, capacity),
		cap:     capacity,
		maxAge:  maxAge,
	}
}

// append adds a sample and evicts anything over the capacity or age bound.
func (h *history) append(s Sample) {
	h.samples = append(h.samples, s)

	if over := len(h.samples) - h.cap; over > 0 {
		h.samples = h.samples[over:]
	}
	if h.maxAge > 0 {
		cutoff := s.Time.Add(-h.maxAge)
		first := 0
		for first < len(h.samples) && h.samples[first].Time.Before(cutoff) {
			first++
		}
		if first > 0 {
			h.samples = h.samples[first:]
		}
	}
}

// snapshot returns a copy of the window, oldest first.
func (h *history) snapshot() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}
