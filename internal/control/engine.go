package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hearthd/hearthd/internal/device"
	"github.com/hearthd/hearthd/internal/room"
)

// Logger is the minimal logging interface the engine needs. The
// daemon's structured logger satisfies it; tests can pass nil.
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

// CommandSink receives the engine's desired relay states. The
// dispatcher implements it; tests substitute a recorder.
type CommandSink interface {
	Submit(roomName string, on bool, delay time.Duration)
}

// StatusSource reports device availability. Satisfied by
// *device.Registry.
type StatusSource interface {
	Status(id uint32, now time.Time) device.Status
}

// Config carries the engine's operating parameters, already converted
// from the daemon configuration's raw units.
type Config struct {
	// TickInterval is the evaluation period.
	TickInterval time.Duration

	// HysteresisC is the threshold strategy dead-band width in degrees.
	HysteresisC float64

	// Lookahead is how far ahead the schedule is sampled for the
	// duty-cycle strategy's future target.
	Lookahead time.Duration

	// ForceHeatTargetC and ForceHeatDuration shape the button-triggered
	// heating boost.
	ForceHeatTargetC  float64
	ForceHeatDuration time.Duration

	// DutyCycle holds the duty-cycle strategy constants.
	DutyCycle DutyCycleParams
}

// Engine runs the periodic control loop: each tick it resolves every
// room's target, evaluates the room's strategy against the freshest
// reading and hands desired state changes to the command sink. Rooms
// with an unavailable sensor or an active disable window are left
// alone; their relays keep the last commanded state.
type Engine struct {
	cfg      Config
	store    *room.Store
	devices  StatusSource
	sink     CommandSink
	logger   Logger
	clock    func() time.Time
	strategy map[string]Strategy

	mu         sync.Mutex
	forceUntil time.Time
}

// NewEngine builds the engine, instantiating one strategy per
// configured room.
func NewEngine(cfg Config, store *room.Store, devices StatusSource, sink CommandSink, logger Logger) (*Engine, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	e := &Engine{
		cfg:      cfg,
		store:    store,
		devices:  devices,
		sink:     sink,
		logger:   logger,
		clock:    time.Now,
		strategy: make(map[string]Strategy),
	}
	for _, name := range store.Names() {
		settings, err := store.Settings(name)
		if err != nil {
			return nil, err
		}
		strat, err := NewStrategy(settings.Strategy, cfg.HysteresisC, cfg.DutyCycle)
		if err != nil {
			return nil, fmt.Errorf("room %q: %w", name, err)
		}
		e.strategy[name] = strat
	}
	return e, nil
}

// Run ticks the control loop until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.logger.Info("control engine started",
		"tick_interval", e.cfg.TickInterval.String(),
		"rooms", len(e.strategy))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("control engine stopped")
			return ctx.Err()
		case now := <-ticker.C:
			e.Tick(now)
		}
	}
}

// ForceHeat opens the boost window: every room's target is pinned to
// the configured boost temperature until the window closes. Triggered
// by a device button press or the API.
func (e *Engine) ForceHeat(now time.Time) {
	until := now.Add(e.cfg.ForceHeatDuration)
	e.mu.Lock()
	e.forceUntil = until
	e.mu.Unlock()
	e.logger.Info("force heat engaged",
		"target_c", e.cfg.ForceHeatTargetC,
		"until", until.Format(time.RFC3339))
}

// ForcedUntil returns the end of the active boost window, if any.
func (e *Engine) ForcedUntil() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.forceUntil.IsZero() {
		return time.Time{}, false
	}
	return e.forceUntil, true
}

func (e *Engine) forced(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.forceUntil.IsZero() {
		return false
	}
	if !now.Before(e.forceUntil) {
		e.forceUntil = time.Time{}
		return false
	}
	return true
}

// Tick evaluates every room once. Exported so tests can drive the loop
// with a synthetic clock.
func (e *Engine) Tick(now time.Time) {
	forced := e.forced(now)
	for _, name := range e.store.Names() {
		if err := e.evaluate(name, now, forced); err != nil {
			e.logger.Error("room evaluation failed", "room", name, "error", err.Error())
		}
	}
}

func (e *Engine) evaluate(name string, now time.Time, forced bool) error {
	settings, err := e.store.Settings(name)
	if err != nil {
		return err
	}

	disabled, err := e.store.Disabled(name, now)
	if err != nil {
		return err
	}

	targetDeci, hasTarget, err := e.store.TargetDeci(name, now)
	if err != nil {
		return err
	}
	if forced {
		targetDeci = room.DeciFromC(e.cfg.ForceHeatTargetC)
		hasTarget = true
	}

	reading, err := e.store.LastReading(name)
	if err != nil {
		return err
	}

	sensorOK := reading != nil &&
		reading.SensorErr == nil &&
		e.devices.Status(settings.SensorID, now) != device.Unavailable

	heaterOn := false
	if relay, relayErr := e.store.Relay(name); relayErr == nil {
		if relay.Confirmed != nil {
			heaterOn = *relay.Confirmed
		} else if relay.Commanded != nil {
			heaterOn = *relay.Commanded
		}
	}

	sample := room.Sample{
		Time:       now,
		TargetDeci: targetDeci,
		HeaterOn:   heaterOn,
		Disabled:   disabled,
	}
	if reading != nil {
		sample.CorrectedDeci = reading.CorrectedDeci
	}
	if err := e.store.AppendSample(name, sample); err != nil {
		return err
	}

	if !hasTarget || !sensorOK || disabled {
		return nil
	}

	strat, ok := e.strategy[name]
	if !ok {
		return fmt.Errorf("%w: no strategy for room %q", ErrUnknownStrategy, name)
	}

	in := Input{
		CurrentC:      room.CFromDeci(reading.CorrectedDeci),
		TargetC:       room.CFromDeci(targetDeci),
		FutureTargetC: e.futureTarget(settings, targetDeci, now, forced),
		Now:           now,
	}

	decision := strat.Decide(in)
	strat.Apply(decision, now)

	relay, err := e.store.Relay(name)
	if err != nil {
		return err
	}
	if relay.Confirmed != nil && *relay.Confirmed == decision.On && decision.Delay == 0 {
		return nil
	}

	e.logger.Debug("relay command",
		"room", name,
		"on", decision.On,
		"delay", decision.Delay.String(),
		"current_c", in.CurrentC,
		"target_c", in.TargetC)
	e.sink.Submit(name, decision.On, decision.Delay)
	return e.store.SetRelayCommanded(name, decision.On, now)
}

// futureTarget samples the schedule a little ahead so the duty-cycle
// strategy can anticipate ramps. Overrides and boost windows pin the
// future to the present target.
func (e *Engine) futureTarget(settings room.Settings, targetDeci int32, now time.Time, forced bool) float64 {
	if !forced {
		ov, err := e.store.Override(settings.Name, now)
		if err == nil && ov == nil {
			if deci, ok := settings.Schedule.TargetDeciAt(now.Add(e.cfg.Lookahead)); ok {
				return room.CFromDeci(deci)
			}
		}
	}
	return room.CFromDeci(targetDeci)
}
