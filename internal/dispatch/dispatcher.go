package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hearthd/hearthd/internal/infrastructure/metrics"
)

// Logger is the minimal logging interface the dispatcher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sender delivers a relay command datagram to a relay host. The
// transport package implements it; tests substitute a recorder.
type Sender interface {
	SendRelayControl(host string, on bool, delay time.Duration) error
}

// Config tunes the retry behaviour.
type Config struct {
	// RetryInterval seeds the backoff between resends and paces the
	// sweep ticker.
	RetryInterval time.Duration

	// MaxRetries is how many resends are attempted before a command is
	// abandoned.
	MaxRetries int
}

// pendingCommand is one unacknowledged relay command.
type pendingCommand struct {
	on        bool
	delay     time.Duration
	sentAt    time.Time
	retries   int
	nextRetry time.Time
	bo        *backoff.ExponentialBackOff
}

// Dispatcher owns outbound relay commands: it sends them, dedupes
// repeats while one is in flight, resends on a backoff cadence when no
// confirmation arrives, and abandons after a capped number of retries
// so a dead relay surfaces as a status condition instead of endless
// traffic.
type Dispatcher struct {
	cfg     Config
	sender  Sender
	hosts   map[string]string
	logger  Logger
	metrics *metrics.Metrics

	// onAbandoned is invoked outside the lock when a command exhausts
	// its retries.
	onAbandoned func(roomName string)

	mu      sync.Mutex
	pending map[string]*pendingCommand
}

// New builds a dispatcher. hosts maps room names to relay hostnames;
// onAbandoned may be nil.
func New(cfg Config, sender Sender, hosts map[string]string, onAbandoned func(string), logger Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	h := make(map[string]string, len(hosts))
	for k, v := range hosts {
		h[k] = v
	}
	return &Dispatcher{
		cfg:         cfg,
		sender:      sender,
		hosts:       h,
		logger:      logger,
		metrics:     m,
		onAbandoned: onAbandoned,
		pending:     make(map[string]*pendingCommand),
	}
}

// Submit requests a relay state for a room. A pending command with the
// same desired state is left in place; a differing one is replaced and
// the new command sent immediately.
func (d *Dispatcher) Submit(roomName string, on bool, delay time.Duration) {
	host, ok := d.hosts[roomName]
	if !ok {
		d.logger.Warn("no relay host for room", "room", roomName)
		return
	}

	d.mu.Lock()
	if p, exists := d.pending[roomName]; exists && p.on == on {
		d.mu.Unlock()
		return
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.RetryInterval
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0

	now := time.Now()
	d.pending[roomName] = &pendingCommand{
		on:        on,
		delay:     delay,
		sentAt:    now,
		nextRetry: now.Add(bo.NextBackOff()),
		bo:        bo,
	}
	d.mu.Unlock()

	d.send(roomName, host, on, delay, 0)
}

// Confirm reports a relay state observed from a device report. When it
// matches the room's pending desired state the command is cleared and
// Confirm returns true.
func (d *Dispatcher) Confirm(roomName string, on bool) bool {
	d.mu.Lock()
	p, ok := d.pending[roomName]
	if !ok || p.on != on {
		d.mu.Unlock()
		return false
	}
	delete(d.pending, roomName)
	d.mu.Unlock()

	d.metrics.CommandConfirmed()
	d.logger.Debug("relay command confirmed", "room", roomName, "on", on)
	return true
}

// Pending reports whether a room has an unacknowledged command.
func (d *Dispatcher) Pending(roomName string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[roomName]
	return ok
}

// Sweep resends commands whose retry time has passed and abandons any
// that exhausted their attempts. Safe to call at any cadence.
func (d *Dispatcher) Sweep(now time.Time) {
	type resend struct {
		room  string
		host  string
		on    bool
		delay time.Duration
		retry int
	}

	var resends []resend
	var abandoned []string

	d.mu.Lock()
	for roomName, p := range d.pending {
		if now.Before(p.nextRetry) {
			continue
		}
		if p.retries >= d.cfg.MaxRetries {
			delete(d.pending, roomName)
			abandoned = append(abandoned, roomName)
			continue
		}
		p.retries++
		p.nextRetry = now.Add(p.bo.NextBackOff())
		resends = append(resends, resend{
			room:  roomName,
			host:  d.hosts[roomName],
			on:    p.on,
			delay: p.delay,
			retry: p.retries,
		})
	}
	d.mu.Unlock()

	for _, r := range resends {
		d.metrics.CommandRetried()
		d.send(r.room, r.host, r.on, r.delay, r.retry)
	}
	for _, roomName := range abandoned {
		d.metrics.CommandAbandoned()
		d.logger.Warn("relay command abandoned",
			"room", roomName,
			"retries", d.cfg.MaxRetries)
		if d.onAbandoned != nil {
			d.onAbandoned(roomName)
		}
	}
}

// Run sweeps on the retry cadence until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			d.Sweep(now)
		}
	}
}

func (d *Dispatcher) send(roomName, host string, on bool, delay time.Duration, retry int) {
	d.metrics.CommandSent()
	if err := d.sender.SendRelayControl(host, on, delay); err != nil {
		d.logger.Error("relay send failed",
			"room", roomName,
			"host", host,
			"error", err.Error())
		return
	}
	d.logger.Debug("relay command sent",
		"room", roomName,
		"host", host,
		"on", on,
		"retry", retry)
}
