package mqtt

import (
	"encoding/json"
	"time"

	"github.com/hearthd/hearthd/internal/export"
)

// Logger is the minimal logging interface the state publisher needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// StatePublisher publishes room observations as retained JSON state
// messages, one topic per room. It satisfies the observation sink
// interface used by the server core.
type StatePublisher struct {
	client *Client
	logger Logger
}

// NewStatePublisher wraps a connected client. A nil logger is
// replaced with a no-op.
func NewStatePublisher(client *Client, logger Logger) *StatePublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StatePublisher{client: client, logger: logger}
}

// roomState is the JSON shape published to the per-room state topic.
type roomState struct {
	Room         string   `json:"room"`
	Time         string   `json:"time"`
	TemperatureC float64  `json:"temperature_c"`
	TargetC      *float64 `json:"target_c,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
	HeaterOn     bool     `json:"heater_on"`
}

// Publish sends the observation as a retained message. Publishing
// happens on a separate goroutine so a slow broker never blocks the
// datagram path; failures are logged and the observation dropped.
func (p *StatePublisher) Publish(obs export.Observation) {
	if !p.client.IsConnected() {
		return
	}

	state := roomState{
		Room:         obs.Room,
		Time:         obs.Time.UTC().Format(time.RFC3339),
		TemperatureC: float64(obs.CorrectedDeci) / 10,
		HeaterOn:     obs.HeaterOn,
	}
	if obs.TargetDeci != nil {
		target := float64(*obs.TargetDeci) / 10
		state.TargetC = &target
	}
	if obs.HumidityDeci != nil {
		humidity := float64(*obs.HumidityDeci) / 10
		state.HumidityPct = &humidity
	}

	payload, err := json.Marshal(state)
	if err != nil {
		p.logger.Warn("room state marshal failed", "room", obs.Room, "error", err)
		return
	}

	topic := p.client.topics.RoomState(obs.Room)
	go func() {
		if err := p.client.PublishRetained(topic, payload); err != nil {
			p.logger.Warn("room state publish failed", "room", obs.Room, "error", err)
		}
	}()
}
