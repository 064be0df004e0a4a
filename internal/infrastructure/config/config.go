package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultHistorySize keeps 24 hours of samples at the default one-minute tick.
const defaultHistorySize = 1440

// Config is the root configuration structure for hearthd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	UDP      UDPConfig      `yaml:"udp"`
	Control  ControlConfig  `yaml:"control"`
	Rooms    []RoomConfig   `yaml:"rooms"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Export   ExportConfig   `yaml:"export"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// UDPConfig contains the device transport settings.
type UDPConfig struct {
	// Bind is the listen address for device reports, e.g. "0.0.0.0:4000".
	Bind string `yaml:"bind"`

	// RelayPort is the destination port for RelayControl commands on the device.
	RelayPort int `yaml:"relay_port"`

	// LoggerControlPort is the destination port for LoggerControl commands.
	LoggerControlPort int `yaml:"logger_control_port"`

	// LoggerBind is the listen address for LoggerProto log streams (devicelog binary).
	LoggerBind string `yaml:"logger_bind"`

	// MaxDatagram is the largest datagram sent or accepted, including the
	// fragment header. Must fit within the path MTU for the device network.
	MaxDatagram int `yaml:"max_datagram"`
}

// ControlConfig contains the control loop and sweep timing policy.
// Temperatures are in deci-degrees (tenths of a degree Celsius) where noted.
type ControlConfig struct {
	// TickInterval is the control evaluation period in seconds.
	TickInterval int `yaml:"tick_interval"`

	// HysteresisDeci is the threshold strategy dead-band width in
	// deci-degrees, centred on the target.
	HysteresisDeci int `yaml:"hysteresis_deci"`

	// FreshnessWindow is how long a device report stays fresh, in seconds.
	// Past this the device is reported Stale.
	FreshnessWindow int `yaml:"freshness_window"`

	// ReassemblyTimeout bounds how long incomplete fragment sets are kept, in seconds.
	ReassemblyTimeout int `yaml:"reassembly_timeout"`

	// RetryInterval is the initial relay command resend interval in seconds.
	// Subsequent resends back off exponentially.
	RetryInterval int `yaml:"retry_interval"`

	// MaxRetries is the number of resends before a relay command is abandoned.
	MaxRetries int `yaml:"max_retries"`

	// ForceHeat configures the button-triggered heating boost.
	ForceHeat ForceHeatConfig `yaml:"force_heat"`

	// DutyCycle configures the duty-cycle strategy curve.
	DutyCycle DutyCycleConfig `yaml:"duty_cycle"`
}

// ForceHeatConfig configures the temporary target raise triggered by a
// device button press or heat_on message.
type ForceHeatConfig struct {
	TargetC     float64 `yaml:"target_c"`
	DurationMin int     `yaml:"duration_minutes"`
}

// DutyCycleConfig contains the tunable constants of the duty-cycle strategy.
// The defaults reproduce the curve the controller was originally tuned with.
type DutyCycleConfig struct {
	// Smoothing is the EWMA weight kept from the previous smoothed reading (0..1).
	Smoothing float64 `yaml:"smoothing"`

	// InitialOffset seeds the adaptive offset, in degrees.
	InitialOffset float64 `yaml:"initial_offset"`

	// OffsetMin and OffsetMax clamp the adaptive offset, in degrees.
	OffsetMin float64 `yaml:"offset_min"`
	OffsetMax float64 `yaml:"offset_max"`

	// PulseScale converts temperature error to pulse width, in minutes per degree.
	PulseScale float64 `yaml:"pulse_scale"`

	// Lookahead is how far ahead the schedule is sampled for the future
	// target, in minutes.
	Lookahead int `yaml:"lookahead"`
}

// RoomConfig describes one controlled room and its devices.
type RoomConfig struct {
	Name string `yaml:"name"`

	// SensorID and RelayID are the numeric device identities from reports.
	SensorID uint32 `yaml:"sensor_id"`
	RelayID  uint32 `yaml:"relay_id"`

	// RelayHost is the hostname or address RelayControl commands are sent to.
	RelayHost string `yaml:"relay_host"`

	// SensorOrigin and RelayOrigin are the expected source addresses of
	// device reports. A report from elsewhere marks the device Unavailable.
	SensorOrigin string `yaml:"sensor_origin"`
	RelayOrigin  string `yaml:"relay_origin"`

	// CorrectionDeci is added to raw sensor readings, in deci-degrees.
	CorrectionDeci int `yaml:"correction_deci"`

	// Strategy selects the control strategy: "threshold" or "duty_cycle".
	Strategy string `yaml:"strategy"`

	// HistorySize bounds the in-memory sample window.
	HistorySize int `yaml:"history_size"`

	// HistoryMaxAge bounds the age of retained samples, in seconds.
	// Zero disables the age bound and only capacity evicts.
	HistoryMaxAge int `yaml:"history_max_age"`

	// Schedule is the day's target temperature curve.
	Schedule []SchedulePoint `yaml:"schedule"`
}

// SchedulePoint is one control point of a room schedule.
// Hour is a fractional hour of day in [0, 24].
type SchedulePoint struct {
	Hour    float64 `yaml:"hour"`
	TargetC float64 `yaml:"target_c"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains the optional sample export settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MQTTConfig contains the optional room-state publisher settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ExportConfig contains the file-based metrics export settings.
// The files are consumed by an external monitoring collector.
type ExportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HEARTHD_SECTION_KEY
// For example: HEARTHD_UDP_BIND, HEARTHD_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	for i := range cfg.Rooms {
		if cfg.Rooms[i].HistorySize < 1 {
			cfg.Rooms[i].HistorySize = defaultHistorySize
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		UDP: UDPConfig{
			Bind:              "0.0.0.0:4000",
			RelayPort:         4210,
			LoggerControlPort: 6000,
			LoggerBind:        "0.0.0.0:6001",
			MaxDatagram:       1460,
		},
		Control: ControlConfig{
			TickInterval:      60,
			HysteresisDeci:    2,
			FreshnessWindow:   180,
			ReassemblyTimeout: 30,
			RetryInterval:     5,
			MaxRetries:        5,
			ForceHeat: ForceHeatConfig{
				TargetC:     21.5,
				DurationMin: 60,
			},
			DutyCycle: DutyCycleConfig{
				Smoothing:     0.5,
				InitialOffset: -0.36,
				OffsetMin:     -0.7,
				OffsetMax:     0.3,
				PulseScale:    10,
				Lookahead:     10,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hearthd",
			},
			QoS:         1,
			TopicPrefix: "hearthd",
		},
		Export: ExportConfig{
			Dir: "/var/lib/temperature",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HEARTHD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEARTHD_UDP_BIND"); v != "" {
		cfg.UDP.Bind = v
	}
	if v := os.Getenv("HEARTHD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HEARTHD_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("HEARTHD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("HEARTHD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEARTHD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("HEARTHD_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.UDP.Bind == "" {
		errs = append(errs, "udp.bind is required")
	}
	if c.UDP.MaxDatagram < 64 {
		errs = append(errs, "udp.max_datagram must be at least 64 bytes")
	}
	if c.UDP.RelayPort < 1 || c.UDP.RelayPort > 65535 {
		errs = append(errs, "udp.relay_port must be between 1 and 65535")
	}

	if c.Control.TickInterval < 1 {
		errs = append(errs, "control.tick_interval must be at least 1 second")
	}
	if c.Control.HysteresisDeci < 0 {
		errs = append(errs, "control.hysteresis_deci must not be negative")
	}
	if c.Control.MaxRetries < 1 {
		errs = append(errs, "control.max_retries must be at least 1")
	}
	if s := c.Control.DutyCycle.Smoothing; s < 0 || s >= 1 {
		errs = append(errs, "control.duty_cycle.smoothing must be in [0, 1)")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	names := make(map[string]bool, len(c.Rooms))
	for i := range c.Rooms {
		room := &c.Rooms[i]
		prefix := fmt.Sprintf("rooms[%d]", i)
		if room.Name == "" {
			errs = append(errs, prefix+".name is required")
		}
		if names[room.Name] {
			errs = append(errs, prefix+".name duplicates another room")
		}
		names[room.Name] = true
		if room.RelayHost == "" {
			errs = append(errs, prefix+".relay_host is required")
		}
		if room.Strategy != "threshold" && room.Strategy != "duty_cycle" {
			errs = append(errs, prefix+`.strategy must be "threshold" or "duty_cycle"`)
		}
		if room.HistoryMaxAge < 0 {
			errs = append(errs, prefix+".history_max_age must not be negative")
		}
		for _, origin := range []string{room.SensorOrigin, room.RelayOrigin} {
			if origin == "" {
				continue
			}
			if _, err := netip.ParseAddr(origin); err != nil {
				errs = append(errs, fmt.Sprintf("%s: invalid origin address %q", prefix, origin))
			}
		}
		prev := -1.0
		for _, p := range room.Schedule {
			if p.Hour < 0 || p.Hour > 24 {
				errs = append(errs, prefix+".schedule hours must be in [0, 24]")
				break
			}
			if p.Hour <= prev {
				errs = append(errs, prefix+".schedule hours must be strictly increasing")
				break
			}
			prev = p.Hour
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.Export.Enabled && c.Export.Dir == "" {
		errs = append(errs, "export.dir is required when export is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTickInterval returns the control tick period as a Duration.
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Control.TickInterval) * time.Second
}

// GetFreshnessWindow returns the device freshness window as a Duration.
func (c *Config) GetFreshnessWindow() time.Duration {
	return time.Duration(c.Control.FreshnessWindow) * time.Second
}

// GetReassemblyTimeout returns the fragment reassembly timeout as a Duration.
func (c *Config) GetReassemblyTimeout() time.Duration {
	return time.Duration(c.Control.ReassemblyTimeout) * time.Second
}

// GetRetryInterval returns the initial command retry interval as a Duration.
func (c *Config) GetRetryInterval() time.Duration {
	return time.Duration(c.Control.RetryInterval) * time.Second
}

// GetHistoryMaxAge returns the room's sample age bound as a Duration.
func (r *RoomConfig) GetHistoryMaxAge() time.Duration {
	return time.Duration(r.HistoryMaxAge) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
