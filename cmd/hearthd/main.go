// hearthd - multi-room heating control daemon
//
// hearthd listens for UDP reports from embedded temperature sensors
// and heating relays, runs a per-room control loop against scheduled
// targets, and commands the relays back over UDP. A small HTTP API
// exposes room state and manual overrides.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearthd/hearthd/internal/api"
	"github.com/hearthd/hearthd/internal/control"
	"github.com/hearthd/hearthd/internal/device"
	"github.com/hearthd/hearthd/internal/dispatch"
	"github.com/hearthd/hearthd/internal/export"
	"github.com/hearthd/hearthd/internal/infrastructure/config"
	"github.com/hearthd/hearthd/internal/infrastructure/influxdb"
	"github.com/hearthd/hearthd/internal/infrastructure/logging"
	"github.com/hearthd/hearthd/internal/infrastructure/metrics"
	"github.com/hearthd/hearthd/internal/infrastructure/mqtt"
	"github.com/hearthd/hearthd/internal/room"
	"github.com/hearthd/hearthd/internal/server"
	"github.com/hearthd/hearthd/internal/transport"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting hearthd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	m := metrics.New()

	registry := device.NewRegistry(cfg.GetFreshnessWindow())
	registry.SetLogger(log)
	preregisterDevices(registry, cfg.Rooms, log)

	settings, err := buildRoomSettings(cfg.Rooms)
	if err != nil {
		return fmt.Errorf("building room settings: %w", err)
	}
	store, err := room.NewStore(settings)
	if err != nil {
		return fmt.Errorf("building room store: %w", err)
	}
	log.Info("room store initialised", "rooms", len(settings))

	sender, err := transport.NewSender(transport.SenderConfig{
		RelayPort:         cfg.UDP.RelayPort,
		LoggerControlPort: cfg.UDP.LoggerControlPort,
	})
	if err != nil {
		return fmt.Errorf("opening command socket: %w", err)
	}
	defer sender.Close()

	hosts := make(map[string]string, len(cfg.Rooms))
	for _, rc := range cfg.Rooms {
		hosts[rc.Name] = rc.RelayHost
	}
	dispatcher := dispatch.New(
		dispatch.Config{
			RetryInterval: cfg.GetRetryInterval(),
			MaxRetries:    cfg.Control.MaxRetries,
		},
		sender,
		hosts,
		func(roomName string) {
			log.Error("relay command abandoned", "room", roomName)
			if markErr := store.MarkRelayUnconfirmed(roomName); markErr != nil {
				log.Error("marking relay unconfirmed", "room", roomName, "error", markErr)
			}
		},
		log,
		m,
	)

	engine, err := control.NewEngine(
		control.Config{
			TickInterval:      cfg.GetTickInterval(),
			HysteresisC:       float64(cfg.Control.HysteresisDeci) / 10,
			Lookahead:         time.Duration(cfg.Control.DutyCycle.Lookahead) * time.Minute,
			ForceHeatTargetC:  cfg.Control.ForceHeat.TargetC,
			ForceHeatDuration: time.Duration(cfg.Control.ForceHeat.DurationMin) * time.Minute,
			DutyCycle: control.DutyCycleParams{
				Smoothing:     cfg.Control.DutyCycle.Smoothing,
				InitialOffset: cfg.Control.DutyCycle.InitialOffset,
				OffsetMin:     cfg.Control.DutyCycle.OffsetMin,
				OffsetMax:     cfg.Control.DutyCycle.OffsetMax,
				PulseScale:    cfg.Control.DutyCycle.PulseScale,
			},
		},
		store,
		registry,
		dispatcher,
		log,
	)
	if err != nil {
		return fmt.Errorf("building control engine: %w", err)
	}

	sinks, closeSinks, err := buildSinks(cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	core := server.NewCore(
		server.Config{FreshnessWindow: cfg.GetFreshnessWindow()},
		registry,
		store,
		dispatcher,
		engine,
		sinks,
		log,
	)

	listener := transport.NewListener(
		transport.ListenerConfig{
			Bind:              cfg.UDP.Bind,
			MaxDatagram:       cfg.UDP.MaxDatagram,
			ReassemblyTimeout: cfg.GetReassemblyTimeout(),
		},
		core,
		log,
		m,
	)
	core.SetResponder(listener)

	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Core:    core,
		Metrics: m,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("building API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	errCh := make(chan error, 3)
	go func() { errCh <- listener.Run(ctx) }()
	go func() { errCh <- engine.Run(ctx) }()
	go func() { errCh <- dispatcher.Run(ctx) }()

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	log.Info("hearthd stopped")
	return nil
}

// preregisterDevices seeds the registry with the devices named in the
// room configuration, with their expected origin addresses.
func preregisterDevices(registry *device.Registry, rooms []config.RoomConfig, log *logging.Logger) {
	for _, rc := range rooms {
		registry.Preregister(rc.SensorID, device.RoleSensor, parseOrigin(rc.SensorOrigin, log))
		registry.Preregister(rc.RelayID, device.RoleRelay, parseOrigin(rc.RelayOrigin, log))
	}
}

// parseOrigin parses an expected device address; unset or invalid
// addresses disable origin checking for that device.
func parseOrigin(s string, log *logging.Logger) netip.Addr {
	if s == "" {
		return netip.Addr{}
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		log.Warn("invalid device origin address, origin checking disabled", "addr", s, "error", err)
		return netip.Addr{}
	}
	return addr
}

// buildRoomSettings converts room configuration into store settings.
func buildRoomSettings(rooms []config.RoomConfig) ([]room.Settings, error) {
	settings := make([]room.Settings, 0, len(rooms))
	for _, rc := range rooms {
		schedule := make(room.Schedule, 0, len(rc.Schedule))
		for _, p := range rc.Schedule {
			schedule = append(schedule, room.SchedulePoint{Hour: p.Hour, TargetC: p.TargetC})
		}
		if err := schedule.Validate(); err != nil {
			return nil, fmt.Errorf("room %s: %w", rc.Name, err)
		}
		settings = append(settings, room.Settings{
			Name:           rc.Name,
			SensorID:       rc.SensorID,
			RelayID:        rc.RelayID,
			RelayHost:      rc.RelayHost,
			CorrectionDeci: int32(rc.CorrectionDeci),
			Strategy:       rc.Strategy,
			Schedule:       schedule,
			HistorySize:    rc.HistorySize,
			HistoryMaxAge:  rc.GetHistoryMaxAge(),
		})
	}
	return settings, nil
}

// buildSinks assembles the enabled observation sinks. The returned
// close function shuts down whichever clients were opened.
func buildSinks(cfg *config.Config, log *logging.Logger) (export.Sink, func(), error) {
	var (
		sinks   export.Sinks
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Export.Enabled {
		fw, err := export.NewFileWriter(cfg.Export.Dir, log)
		if err != nil {
			return nil, closeAll, fmt.Errorf("opening export dir: %w", err)
		}
		sinks = append(sinks, fw)
		log.Info("file export enabled", "dir", cfg.Export.Dir)
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		closers = append(closers, func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		})
		sinks = append(sinks, influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		closers = append(closers, func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		})
		sinks = append(sinks, mqtt.NewStatePublisher(mqttClient, log))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	return sinks, closeAll, nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTHD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTHD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
