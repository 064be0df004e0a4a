package device

import (
	"net/netip"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Role classifies what a device does.
type Role string

// Device roles.
const (
	RoleSensor Role = "sensor"
	RoleRelay  Role = "relay"
)

// Status is the derived availability of a device.
type Status string

// Device availability states.
//
// Unavailable means the device's reported origin does not match the
// configured expected origin, or the device has never reported: its data
// is treated as unverified and automatic control must not act on it.
// Stale means the last report is older than the freshness window; the
// reading is still displayed but trusted less. Available means fresh and
// verified.
const (
	Available   Status = "available"
	Stale       Status = "stale"
	Unavailable Status = "unavailable"
)

// Device tracks the identity and liveness of one sensor or relay.
type Device struct {
	// ID is the numeric identity the device reports about itself.
	ID uint32

	// Role classifies the device as sensor or relay.
	Role Role

	// ExpectedOrigin is the address reports must come from, from static
	// configuration. A zero value disables origin checking for the device.
	ExpectedOrigin netip.Addr

	// LastSeen is when the last valid report arrived. Zero if never seen.
	LastSeen time.Time

	// LastOrigin is the source address of the last report.
	LastOrigin netip.Addr

	// Started is set when the device announced a fresh boot in its last report.
	Started bool

	// OfflineSec is the device's self-reported offline duration, if any.
	OfflineSec uint32
}

// Registry tracks per-device last-seen times and report origins and
// derives availability. Devices are created on first observation or
// pre-registered from configuration, and live for the process lifetime.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	devices   map[uint32]*Device
	freshness time.Duration
	logger    Logger
}

// NewRegistry creates a registry with the given freshness window.
// A report older than the window downgrades the device to Stale.
func NewRegistry(freshness time.Duration) *Registry {
	return &Registry{
		devices:   make(map[uint32]*Device),
		freshness: freshness,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Preregister records a device known from static configuration, with its
// role and expected report origin. Identity checks only apply to devices
// with a valid expected origin.
func (r *Registry) Preregister(id uint32, role Role, expected netip.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		d.Role = role
		d.ExpectedOrigin = expected
		return
	}
	r.devices[id] = &Device{
		ID:             id,
		Role:           role,
		ExpectedOrigin: expected,
	}
}

// Observe records a fresh sighting of a device. Unknown devices are
// created on first observation with no expected origin.
func (r *Registry) Observe(id uint32, origin netip.Addr, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		d = &Device{ID: id}
		r.devices[id] = d
		r.logger.Info("new device observed", "id", id, "origin", origin)
	}

	if d.ExpectedOrigin.IsValid() && d.LastOrigin != origin && origin != d.ExpectedOrigin {
		r.logger.Warn("device reporting from unexpected origin",
			"id", id,
			"origin", origin,
			"expected", d.ExpectedOrigin,
		)
	}

	d.LastSeen = now
	d.LastOrigin = origin
}

// ObserveInfo records a sighting together with the device's self-reported
// boot and offline status.
func (r *Registry) ObserveInfo(id uint32, origin netip.Addr, now time.Time, started bool, offlineSec uint32) {
	r.Observe(id, origin, now)

	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.devices[id]
	d.Started = started
	d.OfflineSec = offlineSec
}

// Status derives the availability of a device at time now.
//
// Origin mismatch wins over staleness: a device that moved address is
// Unavailable regardless of how recently it reported.
func (r *Registry) Status(id uint32, now time.Time) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok || d.LastSeen.IsZero() {
		return Unavailable
	}
	if d.ExpectedOrigin.IsValid() && d.LastOrigin != d.ExpectedOrigin {
		return Unavailable
	}
	if now.Sub(d.LastSeen) > r.freshness {
		return Stale
	}
	return Available
}

// LastSeen returns when the device last reported, and whether it is known.
func (r *Registry) LastSeen(id uint32) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return time.Time{}, false
	}
	return d.LastSeen, true
}

// Get returns a copy of the device record, and whether it is known.
func (r *Registry) Get(id uint32) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// List returns copies of all device records.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	return out
}
