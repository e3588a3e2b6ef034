package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
devices:
  - room_id: "0.1"
    name: "woonkamer"
    address: "A4:C1:38:59:9A:9B"
    class: sensor
  - room_id: "airco0"
    name: "airco living"
    address: "192.168.2.30"
    class: appliance
sensor:
  cycle_time: 35m
  report_time: 35m
  retry_delay: 20s
appliance:
  cycle_time: 2m
  report_time: 10m
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
health:
  critical_threshold: 10
  healthy_threshold: 40
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// validConfig returns a Config that passes validation.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.MQTT.Enabled = true
	cfg.Devices = []DeviceConfig{
		{RoomID: "0.1", Name: "woonkamer", Address: "A4:C1:38:59:9A:9B", Class: ClassSensor},
		{RoomID: "airco0", Name: "airco", Address: "192.168.2.30", Class: ClassAppliance},
	}
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(cfg.Devices))
	}
	if cfg.Devices[1].Class != ClassAppliance {
		t.Errorf("Devices[1].Class = %q, want %q", cfg.Devices[1].Class, ClassAppliance)
	}
	if cfg.Sensor.CycleTime != 35*time.Minute {
		t.Errorf("Sensor.CycleTime = %v, want 35m", cfg.Sensor.CycleTime)
	}
	if cfg.Appliance.ReportTime != 10*time.Minute {
		t.Errorf("Appliance.ReportTime = %v, want 10m", cfg.Appliance.ReportTime)
	}
	// Unset values keep their defaults.
	if cfg.Appliance.RetryDelay != 13*time.Second {
		t.Errorf("Appliance.RetryDelay = %v, want default 13s", cfg.Appliance.RetryDelay)
	}
	if cfg.Health.CriticalThreshold != 10 || cfg.Health.HealthyThreshold != 40 {
		t.Errorf("Health thresholds = %d/%d, want 10/40", cfg.Health.CriticalThreshold, cfg.Health.HealthyThreshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingDevices(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for missing devices, got nil")
	}
	if !strings.Contains(err.Error(), "devices list is required") {
		t.Errorf("error = %v, want mention of devices list", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "zero sensor cycle time",
			mutate:  func(c *Config) { c.Sensor.CycleTime = 0 },
			wantErr: true,
		},
		{
			name:    "negative appliance report time",
			mutate:  func(c *Config) { c.Appliance.ReportTime = -time.Second },
			wantErr: true,
		},
		{
			name: "thresholds not monotonic",
			mutate: func(c *Config) {
				c.Health.CriticalThreshold = 60
				c.Health.HealthyThreshold = 60
			},
			wantErr: true,
		},
		{
			name: "voltage references inverted",
			mutate: func(c *Config) {
				c.Health.VoltageLow = 3.0
				c.Health.VoltageHigh = 2.2
			},
			wantErr: true,
		},
		{
			name: "duplicate room id",
			mutate: func(c *Config) {
				c.Devices[1].RoomID = c.Devices[0].RoomID
			},
			wantErr: true,
		},
		{
			name:    "unknown device class",
			mutate:  func(c *Config) { c.Devices[0].Class = "thermostat" },
			wantErr: true,
		},
		{
			name:    "sensor devices without mqtt",
			mutate:  func(c *Config) { c.MQTT.Enabled = false },
			wantErr: true,
		},
		{
			name: "appliances only without mqtt",
			mutate: func(c *Config) {
				c.MQTT.Enabled = false
				c.Devices = c.Devices[1:]
			},
			wantErr: false,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "zero flush attempts",
			mutate:  func(c *Config) { c.Scheduler.FlushAttempts = 0 },
			wantErr: true,
		},
		{
			name: "api enabled with invalid port",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 70000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("CLIMATE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("CLIMATE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("CLIMATE_MQTT_USERNAME", "testuser")
	t.Setenv("CLIMATE_MQTT_PASSWORD", "testpass")
	t.Setenv("CLIMATE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("CLIMATE_INDICATOR_OUTPUT_DIR", "/run/climate/img")
	t.Setenv("CLIMATE_API_PORT", "9100")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Indicator.OutputDir != "/run/climate/img" {
		t.Errorf("Indicator.OutputDir = %q, want %q", cfg.Indicator.OutputDir, "/run/climate/img")
	}
	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.Sensor.CycleTime != 2100*time.Second {
		t.Errorf("defaultConfig Sensor.CycleTime = %v, want 2100s", cfg.Sensor.CycleTime)
	}
	if cfg.Appliance.CycleTime != 120*time.Second {
		t.Errorf("defaultConfig Appliance.CycleTime = %v, want 120s", cfg.Appliance.CycleTime)
	}
	if cfg.Health.CriticalThreshold >= cfg.Health.HealthyThreshold {
		t.Error("defaultConfig health thresholds must be monotonic")
	}
}

func TestHasClass(t *testing.T) {
	cfg := validConfig()
	if !cfg.HasClass(ClassSensor) || !cfg.HasClass(ClassAppliance) {
		t.Error("HasClass() = false for a configured class")
	}
	cfg.Devices = cfg.Devices[:1]
	if cfg.HasClass(ClassAppliance) {
		t.Error("HasClass(appliance) = true with sensors only")
	}
}
