package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the daemon's instrumentation. A nil *Metrics is a
// valid no-op receiver so packages can be tested without a registry.
type Metrics struct {
	datagramsTotal      *prometheus.CounterVec
	decodeErrors        prometheus.Counter
	reassembliesTotal   prometheus.Counter
	fragmentsDropped    prometheus.Counter
	pendingReassemblies prometheus.Gauge
	commandsSent        prometheus.Counter
	commandRetries      prometheus.Counter
	commandsConfirmed   prometheus.Counter
	commandsAbandoned   prometheus.Counter
}

// New builds and registers the daemon's metric set on the default
// registry.
func New() *Metrics {
	m := &Metrics{
		datagramsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearthd_datagrams_total",
			Help: "UDP datagrams received, by handling outcome.",
		}, []string{"outcome"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearthd_decode_errors_total",
			Help: "Reassembled messages that failed to decode.",
		}),
		reassembliesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearthd_reassemblies_total",
			Help: "Fragmented messages successfully reassembled.",
		}),
		fragmentsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearthd_fragments_dropped_total",
			Help: "Pending reassemblies discarded by the timeout sweep.",
		}),
		pendingReassemblies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearthd_pending_reassemblies",
			Help: "Reassemblies currently awaiting fragments.",
		}),
		commandsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearthd_relay_commands_sent_total",
			Help: "Relay commands sent, including retries.",
		}),
		commandRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearthd_relay_command_retries_total",
			Help: "Relay command resends after a missed confirmation.",
		}),
		commandsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearthd_relay_commands_confirmed_total",
			Help: "Relay commands confirmed by a device report.",
		}),
		commandsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearthd_relay_commands_abandoned_total",
			Help: "Relay commands abandoned after exhausting retries.",
		}),
	}

	prometheus.MustRegister(
		m.datagramsTotal,
		m.decodeErrors,
		m.reassembliesTotal,
		m.fragmentsDropped,
		m.pendingReassemblies,
		m.commandsSent,
		m.commandRetries,
		m.commandsConfirmed,
		m.commandsAbandoned,
	)

	return m
}

// Handler exposes the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Datagram counts one received datagram with its handling outcome
// ("report", "confirmation", "keepalive", "bad").
func (m *Metrics) Datagram(outcome string) {
	if m == nil {
		return
	}
	m.datagramsTotal.WithLabelValues(outcome).Inc()
}

// DecodeError counts a reassembled message that failed to decode.
func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// Reassembled counts a completed reassembly.
func (m *Metrics) Reassembled() {
	if m == nil {
		return
	}
	m.reassembliesTotal.Inc()
}

// FragmentsDropped counts pending reassemblies discarded by a sweep.
func (m *Metrics) FragmentsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fragmentsDropped.Add(float64(n))
}

// PendingReassemblies records the current reassembly backlog.
func (m *Metrics) PendingReassemblies(n int) {
	if m == nil {
		return
	}
	m.pendingReassemblies.Set(float64(n))
}

// CommandSent counts one relay command send.
func (m *Metrics) CommandSent() {
	if m == nil {
		return
	}
	m.commandsSent.Inc()
}

// CommandRetried counts one relay command resend.
func (m *Metrics) CommandRetried() {
	if m == nil {
		return
	}
	m.commandRetries.Inc()
}

// CommandConfirmed counts one confirmed relay command.
func (m *Metrics) CommandConfirmed() {
	if m == nil {
		return
	}
	m.commandsConfirmed.Inc()
}

// CommandAbandoned counts one abandoned relay command.
func (m *Metrics) CommandAbandoned() {
	if m == nil {
		return
	}
	m.commandsAbandoned.Inc()
}
