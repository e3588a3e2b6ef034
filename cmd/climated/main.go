// Gray Logic Climate - room climate logging daemon
//
// This is the main entry point for the climate daemon. It polls BLE
// temperature sensors (through an MQTT gateway) and Daikin air conditioners
// on two independent cadences, scores each sensor's reachability, drives a
// per-room health LED, and persists everything to SQLite.
//
// Usage:
//
//	climated --start [--config path]
//	climated --debug [--config path]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-climate/migrations"

	"github.com/nerrad567/gray-logic-climate/internal/api"
	"github.com/nerrad567/gray-logic-climate/internal/bridges/daikin"
	"github.com/nerrad567/gray-logic-climate/internal/bridges/sensor"
	"github.com/nerrad567/gray-logic-climate/internal/buffer"
	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/health"
	"github.com/nerrad567/gray-logic-climate/internal/indicator"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-climate/internal/metrics"
	"github.com/nerrad567/gray-logic-climate/internal/scheduler"
	"github.com/nerrad567/gray-logic-climate/internal/storage"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/climate.yaml"
	configEnvVar      = "CLIMATE_CONFIG"
)

var errNoMode = errors.New("one of --start or --debug is required")

// options are the parsed command-line flags.
type options struct {
	debug      bool
	configPath string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. Exactly one of --start and --debug
// must be given; --config falls back to $CLIMATE_CONFIG and then to the
// default path.
func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("climated", flag.ContinueOnError)
	fs.SetOutput(output)

	start := fs.Bool("start", false, "start polling with the configured log settings")
	debug := fs.Bool("debug", false, "start polling with debug-level text logging")
	configPath := fs.String("config", "", "path to the YAML configuration file")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	switch {
	case *start && *debug:
		return options{}, errors.New("--start and --debug are mutually exclusive")
	case !*start && !*debug:
		fs.Usage()
		return options{}, errNoMode
	}

	return options{
		debug:      *debug,
		configPath: resolveConfigPath(*configPath),
	}, nil
}

// resolveConfigPath prefers the flag, then the environment, then the default.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the daemon body, separated from main for testability.
// It returns nil on a clean signal-driven shutdown.
func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting climate daemon",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	logCfg := cfg.Logging
	if opts.debug {
		logCfg = logging.DebugConfig(logCfg)
	}
	log = logging.New(logCfg, version)
	log.Info("logger initialised", "level", logCfg.Level, "format", logCfg.Format)

	params := health.FromConfig(cfg.Health)
	if err := params.Validate(); err != nil {
		return fmt.Errorf("health parameters: %w", err)
	}

	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	if v, verr := db.SQLiteVersion(ctx); verr == nil {
		log.Info("database ready", "path", cfg.Database.Path, "sqlite_version", v)
	}

	// MQTT carries the sensor gateway feed and, optionally, the LED topics.
	var mqttClient *mqtt.Client
	var sensors *sensor.Cache
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		sensors = sensor.NewCache()
		sensors.SetLogger(log.With("component", "sensor"))
	} else {
		log.Info("MQTT disabled")
	}

	devices, err := buildDevices(cfg, sensors)
	if err != nil {
		return err
	}
	if sensors != nil {
		// Subscribe after Build so every configured MAC is already tracked.
		if subErr := sensors.Subscribe(mqttClient, byte(cfg.MQTT.QoS)); subErr != nil {
			return fmt.Errorf("subscribing to sensor feed: %w", subErr)
		}
	}

	sink := storage.NewSQLiteSink(db.DB)
	sink.SetLogger(log.With("component", "storage"))

	// Only sensor rooms carry a health score and an LED.
	sensorDevices := device.OfClass(devices, device.ClassSensor)
	rooms := make([]device.Info, 0, len(sensorDevices))
	roomIDs := make([]string, 0, len(sensorDevices))
	for _, d := range sensorDevices {
		rooms = append(rooms, d.Identity())
		roomIDs = append(roomIDs, d.Identity().RoomID)
	}
	if seedErr := sink.SeedRooms(ctx, rooms, params.DefaultScore); seedErr != nil {
		return fmt.Errorf("seeding rooms: %w", seedErr)
	}

	leds := buildIndicator(cfg, mqttClient, log)
	// Every room shows "degraded" until its first sensor cycle completes.
	indicator.SetAll(leds, roomIDs, health.StateDegraded)

	buf := buffer.New(sink, cfg.Scheduler.MaxQueueDepth, storage.Tables()...)
	buf.SetLogger(log.With("component", "buffer"))

	collector := metrics.New()

	sched := scheduler.New(scheduler.ConfigFrom(cfg), devices, buf, sink, params)
	sched.SetLogger(log.With("component", "scheduler"))
	sched.SetIndicator(leds)
	sched.SetObserver(collector)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sched.SetMirror(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.API.Enabled {
		srv, srvErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.With("component", "api"),
			Status:  sched,
			Metrics: collector.Handler(),
			Checks:  healthChecks(db, mqttClient, influxClient),
			Version: version,
		})
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete",
		"sensors", len(sensorDevices),
		"appliances", len(device.OfClass(devices, device.ClassAppliance)),
	)

	if runErr := sched.Run(ctx); runErr != nil {
		return fmt.Errorf("scheduler: %w", runErr)
	}

	log.Info("climate daemon stopped")
	return nil
}

// buildDevices binds each configured device to its reading source.
// sensors is nil when MQTT is disabled; config validation guarantees no
// sensor is configured in that case.
func buildDevices(cfg *config.Config, sensors *sensor.Cache) ([]device.Device, error) {
	var sensorSrc device.SensorSource
	if sensors != nil {
		sensorSrc = sensors
	}

	var applianceSrc device.ApplianceSource
	if cfg.HasClass(config.ClassAppliance) {
		applianceSrc = daikin.NewClient(cfg.Appliance.PollTimeout)
	}

	devices, err := device.Build(cfg.Devices, sensorSrc, applianceSrc)
	if err != nil {
		return nil, fmt.Errorf("building devices: %w", err)
	}
	return devices, nil
}

// buildIndicator combines the configured LED outputs. With none
// configured the returned Multi is empty and Set is a no-op.
func buildIndicator(cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) indicator.Multi {
	var leds indicator.Multi
	if cfg.Indicator.OutputDir != "" {
		fs := indicator.NewFileSink(cfg.Indicator.AssetDir, cfg.Indicator.OutputDir)
		fs.SetLogger(log.With("component", "indicator"))
		leds = append(leds, fs)
	}
	if cfg.Indicator.MQTT && mqttClient != nil {
		ms := indicator.NewMQTTSink(mqttClient)
		ms.SetLogger(log.With("component", "indicator"))
		leds = append(leds, ms)
	}
	return leds
}

// healthChecks lists the components reported by /api/v1/health.
// Disabled components are omitted.
func healthChecks(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	return checks
}
