// Telemetry Core - MQTT telemetry ingest, rule automation and feedback relay.
//
// The process subscribes to telemetry envelopes on the bus, records numeric
// values as time-series samples, evaluates automation rules against each
// value and publishes actuation commands. Operator writes to feedback
// channels are streamed back out as commands. A small admin API manages the
// rule set.
//
// Usage:
//
//	telemetrycore                     run the service
//	telemetrycore token -role admin   print a signed admin API token
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/telemetry-core/internal/api"
	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/automation"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/telemetry-core/internal/telemetry"
	"github.com/nerrad567/telemetry-core/internal/timeseries"
	"github.com/nerrad567/telemetry-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service together and blocks until ctx is cancelled or a
// loop fails. Components are closed in reverse start order: API, engine,
// channel writers, MQTT, InfluxDB, database.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Telemetry Core",
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

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Best-effort flush on exit
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Commands published on a topic the ingest filter matches would be
	// re-ingested and could drive rules in a loop.
	if err := telemetry.CheckTopics(cfg.MQTT.Topics.Telemetry, cfg.MQTT.Topics.Command); err != nil {
		return fmt.Errorf("checking topics: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rules := automation.NewRegistry(automation.NewSQLiteRepository(db.DB))
	rules.SetLogger(log.With("component", "rules"))
	if loadErr := rules.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading automation rules: %w", loadErr)
	}
	if importErr := importRules(ctx, cfg.Automation.RulesImportFile, rules, log); importErr != nil {
		return importErr
	}
	if gaugeErr := automation.RegisterRuleGauge(reg, rules); gaugeErr != nil {
		return fmt.Errorf("registering rule gauge: %w", gaugeErr)
	}
	log.Info("automation rules loaded", "rules", rules.Count())

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"telemetry", cfg.MQTT.Topics.Telemetry,
		"command", cfg.MQTT.Topics.Command,
	)

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		influxClient = nil
		log.Info("InfluxDB disabled; samples will not be recorded and feedback is off")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Samples stays a nil interface when InfluxDB is off so the executor
	// and ingestor skip writes entirely.
	var (
		samples   automation.SampleWriter
		tsService *timeseries.Service
		bindings  *timeseries.Bindings
	)
	if influxClient != nil {
		tsService = timeseries.NewService(timeseries.NewCatalog(db.DB), influxClient, influxClient, cfg.TimeSeries, log.With("component", "timeseries"))
		bindings = provisionChannels(ctx, cfg.TimeSeries.ChannelsFile, tsService, log)
		defer func() {
			if closeErr := bindings.Close(); closeErr != nil {
				log.Error("error closing channel writers", "error", closeErr)
			}
		}()
		samples = bindings
	}

	autoMetrics, err := automation.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("registering automation metrics: %w", err)
	}
	tlmMetrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("registering telemetry metrics: %w", err)
	}

	hub := api.NewHub(cfg.WebSocket, log)
	tracker := automation.NewTracker()
	publisher := telemetry.NewCommandPublisher(mqttClient, cfg.MQTT.Topics.Command, byte(cfg.MQTT.QoS))
	retry := automation.RetryPolicyFromConfig(cfg.Automation.Retry)

	autoLog := log.With("component", "automation")
	executor := automation.NewExecutor(samples, publisher, retry, autoLog)
	engine := automation.NewEngine(rules, tracker, executor, automation.EngineConfig{
		DelayedRevalidate: cfg.Automation.DelayedRevalidate,
		Hub:               hub,
		Metrics:           autoMetrics,
	}, autoLog)
	defer func() {
		log.Info("stopping automation engine", "pending", engine.PendingCount())
		engine.Close()
	}()

	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Rules:    rules,
		Values:   tracker,
		Triggers: engine,
		Audit:    audit.NewSQLiteRepository(db.DB),
		Hub:      hub,
		Registry: reg,
		Checks:   checks,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	msgs, err := telemetry.SubscribeTelemetry(gctx, mqttClient, cfg.MQTT.Topics.Telemetry, byte(cfg.MQTT.QoS), cfg.MQTT.IngestBuffer)
	if err != nil {
		return fmt.Errorf("subscribing to telemetry: %w", err)
	}
	ingestor := telemetry.NewIngestor(tracker, samples, engine, tlmMetrics, log.With("component", "ingest"))
	g.Go(func() error {
		return ingestor.Run(gctx, msgs)
	})

	if cfg.Feedback.Enabled && tsService != nil {
		loop := telemetry.NewFeedbackLoop(
			func(channels []string) telemetry.FrameStream { return tsService.OpenStreamer(channels) },
			publisher,
			telemetry.FeedbackConfig{
				Channels:       bindings.FeedbackChannels(),
				Source:         cfg.Feedback.Source,
				ReconnectDelay: time.Duration(cfg.Feedback.ReconnectDelayMS) * time.Millisecond,
				Retry:          retry,
			},
			hub,
			tlmMetrics,
			log.With("component", "feedback"),
		)
		g.Go(func() error {
			return loop.Run(gctx)
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns TELEMETRYCORE_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("TELEMETRYCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// importRules seeds an empty rule store from a legacy rules file. A missing
// file is not an error.
func importRules(ctx context.Context, path string, rules *automation.Registry, log *logging.Logger) error {
	if path == "" {
		return nil
	}

	loaded, err := automation.LoadRulesFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("rules import file not found, skipping", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading rules import file: %w", err)
	}

	n, err := rules.ImportIfEmpty(ctx, loaded)
	if err != nil {
		return fmt.Errorf("importing rules: %w", err)
	}
	if n > 0 {
		log.Info("imported automation rules", "path", path, "rules", n)
	}
	return nil
}

// provisionChannels creates the channels listed in path. Failures are logged;
// the returned bindings cover whatever was provisioned.
func provisionChannels(ctx context.Context, path string, svc *timeseries.Service, log *logging.Logger) *timeseries.Bindings {
	entries, err := config.LoadChannels(path)
	if err != nil {
		log.Warn("channel provisioning skipped", "path", path, "error", err)
		entries = nil
	}

	bindings, err := timeseries.NewProvisioner(svc, log).Provision(ctx, entries)
	if err != nil {
		log.Error("channel provisioning incomplete", "error", err)
	}
	log.Info("channels provisioned",
		"channels", len(bindings.Channels()),
		"feedback", len(bindings.FeedbackChannels()),
	)
	return bindings
}

// healthCheck verifies the infrastructure connections. influxClient may be nil.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
