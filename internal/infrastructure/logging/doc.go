// Package logging provides structured logging for the climate daemon.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default fields service and version on every entry.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Starting the daemon with --debug replaces level and format via DebugConfig.
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("sampling", "class", "sensor", "devices", 4)
//
// Never log secrets such as the MQTT password or InfluxDB token.
package logging
