package server

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/hearthd/hearthd/internal/control"
	"github.com/hearthd/hearthd/internal/device"
	"github.com/hearthd/hearthd/internal/dispatch"
	"github.com/hearthd/hearthd/internal/export"
	"github.com/hearthd/hearthd/internal/room"
	"github.com/hearthd/hearthd/internal/wire"
)

// Logger is the minimal logging interface the core needs.
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

// TextResponder answers diagnostics requests with a plain text
// datagram. The transport listener implements it.
type TextResponder interface {
	SendText(origin netip.AddrPort, text string) error
}

// Config tunes the core's report handling.
type Config struct {
	// FreshnessWindow is how long a device may stay silent before the
	// diagnostics text flags it as failed.
	FreshnessWindow time.Duration
}

// Core glues the inbound message path to the domain state: sensor
// reports feed the registry, room store and exporters; relay reports
// confirm dispatched commands; diagnostics and boost requests are
// answered directly.
type Core struct {
	cfg        Config
	logger     Logger
	registry   *device.Registry
	store      *room.Store
	dispatcher *dispatch.Dispatcher
	engine     *control.Engine
	sinks      export.Sink
	responder  TextResponder
}

// NewCore wires the core. sinks may be nil; the responder is attached
// later with SetResponder because the listener needs the core first.
func NewCore(cfg Config, registry *device.Registry, store *room.Store, dispatcher *dispatch.Dispatcher, engine *control.Engine, sinks export.Sink, logger Logger) *Core {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Core{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		store:      store,
		dispatcher: dispatcher,
		engine:     engine,
		sinks:      sinks,
	}
}

// SetResponder attaches the diagnostics responder.
func (c *Core) SetResponder(r TextResponder) {
	c.responder = r
}

// HandleMessage routes one decoded device message.
func (c *Core) HandleMessage(origin netip.AddrPort, msg *wire.DeviceMessage) {
	now := time.Now()

	switch {
	case msg.Sensor != nil:
		c.handleSensor(origin, msg.Sensor, now)
	case msg.Relay != nil:
		c.handleRelay(origin, msg.Relay, now)
	case msg.FormatDiag != nil && *msg.FormatDiag:
		c.handleDiag(origin, now)
	case msg.HeatOn != nil && *msg.HeatOn:
		c.engine.ForceHeat(now)
	default:
		c.logger.Warn("unknown message kind", "origin", origin.String())
	}
}

// HandleConfirmation records a legacy single-byte confirmation: just a
// sighting of the device, the state itself arrives in relay reports.
func (c *Core) HandleConfirmation(origin netip.AddrPort, id uint8) {
	c.registry.Observe(uint32(id), origin.Addr(), time.Now())
	c.logger.Debug("legacy confirmation", "id", id, "origin", origin.String())
}

func (c *Core) handleSensor(origin netip.AddrPort, report *wire.SensorReport, now time.Time) {
	if report.Info == nil {
		c.logger.Warn("sensor report without device info", "origin", origin.String())
		return
	}
	id := report.Info.ID
	c.observeDevice(report.Info, origin, now)

	roomName, ok := c.store.NameBySensor(id)
	if !ok {
		c.logger.Warn("report from unconfigured sensor", "id", id, "origin", origin.String())
		return
	}

	if report.Button != nil && *report.Button == wire.ButtonForceOn {
		c.engine.ForceHeat(now)
	}

	if report.SensorError != nil {
		c.logger.Warn("sensor fault reported",
			"room", roomName,
			"id", id,
			"code", int32(*report.SensorError))
	}

	if report.TemperatureDeci == nil {
		return
	}

	rd := room.Reading{Time: now, RawDeci: *report.TemperatureDeci}
	if report.HumidityDeci != nil {
		h := int32(*report.HumidityDeci)
		rd.HumidityDeci = &h
	}
	if report.SensorError != nil {
		e := int32(*report.SensorError)
		rd.SensorErr = &e
	}
	if report.Button != nil {
		b := int32(*report.Button)
		rd.Button = &b
	}
	if err := c.store.ApplyReading(roomName, rd); err != nil {
		c.logger.Error("reading not applied", "room", roomName, "error", err.Error())
		return
	}

	c.logger.Info("sensor report",
		"room", roomName,
		"id", id,
		"raw_c", room.CFromDeci(*report.TemperatureDeci))

	c.publish(roomName, now)
}

func (c *Core) handleRelay(origin netip.AddrPort, report *wire.RelayReport, now time.Time) {
	if report.Info == nil {
		c.logger.Warn("relay report without device info", "origin", origin.String())
		return
	}
	id := report.Info.ID
	c.observeDevice(report.Info, origin, now)

	roomName, ok := c.store.NameByRelay(id)
	if !ok {
		c.logger.Warn("report from unconfigured relay", "id", id, "origin", origin.String())
		return
	}

	on := report.RelayStatus != nil && *report.RelayStatus
	if err := c.store.SetRelayObserved(roomName, on, now); err != nil {
		c.logger.Error("relay state not recorded", "room", roomName, "error", err.Error())
		return
	}
	confirmed := c.dispatcher.Confirm(roomName, on)

	c.logger.Info("relay report",
		"room", roomName,
		"id", id,
		"on", on,
		"confirmed_pending", confirmed)
}

func (c *Core) handleDiag(origin netip.AddrPort, now time.Time) {
	text := c.diagText(now)
	c.logger.Info("diag request", "origin", origin.String())
	if c.responder == nil {
		return
	}
	if err := c.responder.SendText(origin, text); err != nil {
		c.logger.Warn("diag reply failed", "origin", origin.String(), "error", err.Error())
	}
}

// diagText builds the compact status string shown on small displays:
// one temperature entry per room with an [ON] marker, then FAIL lines
// for devices silent beyond the freshness window.
func (c *Core) diagText(now time.Time) string {
	var parts []string
	var fails []string

	names := c.store.Names()
	sort.Strings(names)
	for _, name := range names {
		snap, err := c.store.SnapshotRoom(name, now)
		if err != nil {
			continue
		}
		entry := name + ": ?"
		if snap.LastReading != nil {
			entry = fmt.Sprintf("%s: %.1f", name, room.CFromDeci(snap.LastReading.CorrectedDeci))
		}
		if snap.Relay.Confirmed != nil && *snap.Relay.Confirmed {
			entry += " [ON]"
		}
		parts = append(parts, entry)

		if c.silent(snap.SensorID, now) {
			fails = append(fails, "FAIL: "+name+" sensor")
		} else if c.silent(snap.RelayID, now) {
			fails = append(fails, "FAIL: "+name+" relay")
		}
	}

	out := strings.Join(parts, ", ")
	if len(fails) > 0 {
		out += "\n" + strings.Join(fails, "\n")
	}
	return out
}

func (c *Core) silent(id uint32, now time.Time) bool {
	last, ok := c.registry.LastSeen(id)
	if !ok {
		return true
	}
	return now.Sub(last) > c.cfg.FreshnessWindow
}

func (c *Core) observeDevice(info *wire.DeviceInfo, origin netip.AddrPort, now time.Time) {
	var offline uint32
	if info.OfflineSec != nil {
		offline = *info.OfflineSec
	}
	c.registry.ObserveInfo(info.ID, origin.Addr(), now, info.Started, offline)

	if info.Started {
		c.logger.Info("device (re)started", "id", info.ID, "origin", origin.String())
	}
	if info.OfflineSec != nil {
		c.logger.Warn("device reports offline gap",
			"id", info.ID,
			"offline_sec", *info.OfflineSec)
	}
}

// publish fans the room's freshest observation out to the exporters.
func (c *Core) publish(roomName string, now time.Time) {
	if c.sinks == nil {
		return
	}
	snap, err := c.store.SnapshotRoom(roomName, now)
	if err != nil || snap.LastReading == nil {
		return
	}
	obs := export.Observation{
		Room:          roomName,
		Time:          now,
		CorrectedDeci: snap.LastReading.CorrectedDeci,
		TargetDeci:    snap.TargetDeci,
		HeaterOn:      snap.Relay.Confirmed != nil && *snap.Relay.Confirmed,
	}
	if snap.LastReading.HumidityDeci != nil {
		h := uint32(*snap.LastReading.HumidityDeci)
		obs.HumidityDeci = &h
	}
	c.sinks.Publish(obs)
}
