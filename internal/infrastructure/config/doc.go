// Package config handles loading and validating the climate daemon configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (CLIMATE_*)
//   - Validation of the device list, cadences and health thresholds
//   - Default value handling
//
// Configuration is immutable after Load: it is built once at startup and
// handed to the scheduler by pointer. Nothing in the daemon mutates it.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/climate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sensor.CycleTime)
package config
