package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Device class names accepted in the devices list.
const (
	ClassSensor    = "sensor"
	ClassAppliance = "appliance"
)

// Config is the root configuration structure for the climate daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	Devices   []DeviceConfig  `yaml:"devices"`
	Sensor    ClassConfig     `yaml:"sensor"`
	Appliance ClassConfig     `yaml:"appliance"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Health    HealthConfig    `yaml:"health"`
	Indicator IndicatorConfig `yaml:"indicator"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// DeviceConfig describes one polled device. The list order is the polling order.
type DeviceConfig struct {
	// RoomID is the natural key used in every persisted table (e.g. "0.1").
	RoomID string `yaml:"room_id"`

	// Name is the human-readable room name stored in the rooms table.
	Name string `yaml:"name"`

	// Address is the MAC address for sensors or the IP/hostname for appliances.
	Address string `yaml:"address"`

	// Class is either "sensor" or "appliance".
	Class string `yaml:"class"`
}

// ClassConfig holds the cadences and retry timing for one device class.
type ClassConfig struct {
	// CycleTime is the interval between successive polls of the class.
	CycleTime time.Duration `yaml:"cycle_time"`

	// ReportTime is the interval between successive flushes of queued rows.
	ReportTime time.Duration `yaml:"report_time"`

	// RetryDelay is the cool-down before the single retry of failed devices.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Relax is an optional pause between two device polls of this class.
	Relax time.Duration `yaml:"relax"`

	// PollTimeout bounds a single device poll.
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// SchedulerConfig contains the control loop and flush retry settings.
type SchedulerConfig struct {
	Tick              time.Duration `yaml:"tick"`
	FlushAttempts     int           `yaml:"flush_attempts"`
	FlushBackoff      time.Duration `yaml:"flush_backoff"`
	FlushMaxBackoff   time.Duration `yaml:"flush_max_backoff"`
	MaxStalledReports int           `yaml:"max_stalled_reports"`
	MaxQueueDepth     int           `yaml:"max_queue_depth"`
}

// HealthConfig contains the battery references, score deltas and LED thresholds.
type HealthConfig struct {
	VoltageLow        float64 `yaml:"voltage_low"`
	VoltageHigh       float64 `yaml:"voltage_high"`
	SuccessReward     int     `yaml:"success_reward"`
	FailurePenalty    int     `yaml:"failure_penalty"`
	CriticalThreshold int     `yaml:"critical_threshold"`
	HealthyThreshold  int     `yaml:"healthy_threshold"`
	DefaultScore      int     `yaml:"default_score"`
}

// IndicatorConfig contains the LED indicator outputs.
type IndicatorConfig struct {
	// AssetDir holds red.png, orange.png and green.png.
	AssetDir string `yaml:"asset_dir"`

	// OutputDir receives one <room_id>.png per room. Empty disables file output.
	OutputDir string `yaml:"output_dir"`

	// MQTT publishes the LED colour as a retained message when true.
	MQTT bool `yaml:"mqtt"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the status/metrics HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CLIMATE_SECTION_KEY
// For example: CLIMATE_DATABASE_PATH, CLIMATE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// The sensor cadence follows the BLE thermometers: a read takes ~12s and
// the cycle is kept long to spare the coin cells.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic Climate",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/climate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Sensor: ClassConfig{
			CycleTime:   2100 * time.Second,
			ReportTime:  2100 * time.Second,
			RetryDelay:  20 * time.Second,
			PollTimeout: 30 * time.Second,
		},
		Appliance: ClassConfig{
			CycleTime:   120 * time.Second,
			ReportTime:  600 * time.Second,
			RetryDelay:  13 * time.Second,
			PollTimeout: 3 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Tick:              time.Second,
			FlushAttempts:     3,
			FlushBackoff:      500 * time.Millisecond,
			FlushMaxBackoff:   5 * time.Second,
			MaxStalledReports: 3,
			MaxQueueDepth:     5000,
		},
		Health: HealthConfig{
			VoltageLow:        2.2,
			VoltageHigh:       3.0,
			SuccessReward:     1,
			FailurePenalty:    5,
			CriticalThreshold: 25,
			HealthyThreshold:  50,
			DefaultScore:      50,
		},
		Indicator: IndicatorConfig{
			AssetDir: "./www",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-climate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CLIMATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CLIMATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CLIMATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CLIMATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CLIMATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("CLIMATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Indicator
	if v := os.Getenv("CLIMATE_INDICATOR_OUTPUT_DIR"); v != "" {
		cfg.Indicator.OutputDir = v
	}

	// API
	if v := os.Getenv("CLIMATE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

// Validate checks the configuration for errors.
// Any failure here is fatal at startup, before the scheduler begins.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	errs = append(errs, c.validateDevices()...)
	errs = append(errs, validateClass("sensor", c.Sensor)...)
	errs = append(errs, validateClass("appliance", c.Appliance)...)

	if c.Scheduler.Tick <= 0 {
		errs = append(errs, "scheduler.tick must be positive")
	}
	if c.Scheduler.FlushAttempts < 1 {
		errs = append(errs, "scheduler.flush_attempts must be at least 1")
	}
	if c.Scheduler.MaxStalledReports < 1 {
		errs = append(errs, "scheduler.max_stalled_reports must be at least 1")
	}

	h := c.Health
	if h.VoltageHigh <= h.VoltageLow {
		errs = append(errs, "health.voltage_high must be greater than health.voltage_low")
	}
	if h.CriticalThreshold >= h.HealthyThreshold {
		errs = append(errs, "health.critical_threshold must be below health.healthy_threshold")
	}
	if h.SuccessReward < 0 || h.FailurePenalty < 0 {
		errs = append(errs, "health.success_reward and health.failure_penalty must not be negative")
	}
	if h.DefaultScore < 0 || h.DefaultScore > 100 {
		errs = append(errs, "health.default_score must be between 0 and 100")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Indicator.MQTT && !c.MQTT.Enabled {
		errs = append(errs, "indicator.mqtt requires mqtt.enabled")
	}
	if c.HasClass(ClassSensor) && !c.MQTT.Enabled {
		errs = append(errs, "sensor devices require mqtt.enabled (readings arrive through the MQTT gateway)")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateDevices checks the static device list.
func (c *Config) validateDevices() []string {
	if len(c.Devices) == 0 {
		return []string{"devices list is required"}
	}

	var errs []string
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.RoomID == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].room_id is required", i))
		} else if seen[d.RoomID] {
			errs = append(errs, fmt.Sprintf("devices[%d].room_id %q is duplicated", i, d.RoomID))
		}
		seen[d.RoomID] = true

		if d.Address == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].address is required", i))
		}
		if d.Class != ClassSensor && d.Class != ClassAppliance {
			errs = append(errs, fmt.Sprintf("devices[%d].class must be %q or %q", i, ClassSensor, ClassAppliance))
		}
	}
	return errs
}

func validateClass(name string, cc ClassConfig) []string {
	var errs []string
	if cc.CycleTime <= 0 {
		errs = append(errs, name+".cycle_time must be positive")
	}
	if cc.ReportTime <= 0 {
		errs = append(errs, name+".report_time must be positive")
	}
	if cc.RetryDelay < 0 || cc.Relax < 0 {
		errs = append(errs, name+".retry_delay and "+name+".relax must not be negative")
	}
	return errs
}

// HasClass reports whether at least one configured device has the given class.
func (c *Config) HasClass(class string) bool {
	for _, d := range c.Devices {
		if d.Class == class {
			return true
		}
	}
	return false
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
