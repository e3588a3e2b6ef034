package scheduler

import (
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/buffer"
	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

// finalFlushTimeout bounds the flush performed on shutdown.
const finalFlushTimeout = 30 * time.Second

// ClassConfig holds the cadences of one device class.
type ClassConfig struct {
	CycleTime   time.Duration
	ReportTime  time.Duration
	RetryDelay  time.Duration
	Relax       time.Duration
	PollTimeout time.Duration
}

// Config is the immutable scheduler configuration.
type Config struct {
	Classes map[device.Class]ClassConfig

	// Tick is the polling granularity of the control loop.
	Tick time.Duration

	// Flush bounds every flush attempt made on a report tick and on shutdown.
	Flush buffer.RetryPolicy

	// MaxStalledReports is the number of consecutive failed report ticks
	// after which the sink is reported as unavailable.
	MaxStalledReports int
}

// ConfigFrom builds a scheduler Config from the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	classCfg := func(c config.ClassConfig) ClassConfig {
		return ClassConfig{
			CycleTime:   c.CycleTime,
			ReportTime:  c.ReportTime,
			RetryDelay:  c.RetryDelay,
			Relax:       c.Relax,
			PollTimeout: c.PollTimeout,
		}
	}
	return Config{
		Classes: map[device.Class]ClassConfig{
			device.ClassSensor:    classCfg(cfg.Sensor),
			device.ClassAppliance: classCfg(cfg.Appliance),
		},
		Tick: cfg.Scheduler.Tick,
		Flush: buffer.RetryPolicy{
			Attempts:   cfg.Scheduler.FlushAttempts,
			Backoff:    cfg.Scheduler.FlushBackoff,
			MaxBackoff: cfg.Scheduler.FlushMaxBackoff,
		},
		MaxStalledReports: cfg.Scheduler.MaxStalledReports,
	}
}
