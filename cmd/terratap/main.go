// TerraTap hub - MQTT home-automation hub for garden watering
//
// The hub publishes the settings of its modules as retained MQTT messages,
// routes incoming messages to the modules that own their topics, and keeps
// the shared watering flag across restarts.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/terratap-core/migrations"

	"github.com/nerrad567/terratap-core/internal/api"
	"github.com/nerrad567/terratap-core/internal/hub"
	"github.com/nerrad567/terratap-core/internal/infrastructure/config"
	"github.com/nerrad567/terratap-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/terratap-core/internal/infrastructure/logging"
	"github.com/nerrad567/terratap-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/terratap-core/internal/modules"
	"github.com/nerrad567/terratap-core/internal/persist"
	"github.com/nerrad567/terratap-core/internal/process"
	"github.com/nerrad567/terratap-core/internal/settings"
	"github.com/nerrad567/terratap-core/internal/state"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) (err error) {
	log := logging.Default()
	log.Info("starting TerraTap hub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Persistence: settings and state survive restarts.
	store, closeStore, err := persist.Open(ctx, cfg.Persistence)
	if err != nil {
		return fmt.Errorf("opening persistence: %w", err)
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			log.Error("error closing persistence", "error", closeErr)
		}
	}()
	persistLog := log.Component("persist")
	loaded := persist.LoadOrDefault(ctx, store, persist.KeySettings, settings.Default, persistLog)
	shared := state.NewShared(persist.LoadOrDefault(ctx, store, persist.KeyState, state.Default, persistLog))
	log.Info("persistence ready",
		"backend", cfg.Persistence.Backend,
		"check_time", loaded.CheckTime.String(),
		"check_duration", loaded.CheckDuration,
		"open_duration", loaded.OpenDuration,
	)

	// Both documents are written back whatever the shutdown path.
	defer func() {
		saveCtx := context.WithoutCancel(ctx)
		saveErr := errors.Join(
			persist.Save(saveCtx, store, persist.KeySettings, loaded),
			saveSnapshot(saveCtx, store, shared),
		)
		if saveErr != nil {
			log.Error("error saving state", "error", saveErr)
			err = errors.Join(err, fmt.Errorf("saving state: %w", saveErr))
			return
		}
		log.Info("settings and state saved")
	}()

	// Supervised broker (optional).
	var broker *process.Manager
	if cfg.Broker.Managed {
		broker, err = startBroker(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("starting broker: %w", err)
		}
		defer func() {
			log.Info("stopping broker")
			if stopErr := broker.Stop(); stopErr != nil {
				log.Error("error stopping broker", "error", stopErr)
			}
		}()
	}

	// Watering event log (optional).
	var recorder modules.Recorder
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Metrics and the event queue fed by MQTT callbacks.
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := hub.NewMetrics(promReg)

	inbox := hub.NewInbox(hub.DefaultInboxSize)
	defer inbox.Close()
	inbox.SetOnDrop(metrics.MessagesDropped.Inc)

	mqttLog := log.Component("mqtt")
	mqttClient, err := mqtt.Connect(cfg.MQTT,
		mqtt.WithOnConnect(inbox.Connected),
		mqtt.WithOnDisconnect(func(err error) {
			mqttLog.Warn("MQTT disconnected", "error", err)
		}),
		mqtt.WithLogger(mqttLog),
	)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", brokerAddr(cfg.MQTT),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	registry, err := buildRegistry(loaded, shared, mqttClient, metrics, recorder, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return registry.Run(gctx, mqttClient, inbox)
	})

	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{"mqtt": mqttClient}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			State:    shared,
			Registry: registry,
			Gatherer: promReg,
			Broker:   broker,
			Checks:   checks,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr := server.Start(gctx); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		g.Go(func() error {
			<-gctx.Done()
			return server.Close()
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("event loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// buildRegistry registers the sensor and watering modules, in that order.
func buildRegistry(
	s settings.Settings,
	shared *state.SharedState,
	pub *mqtt.Client,
	metrics *hub.Metrics,
	recorder modules.Recorder,
	log *logging.Logger,
) (*hub.Registry, error) {
	opts := []modules.Option{modules.WithLogger(log.Component("modules"))}
	if recorder != nil {
		opts = append(opts, modules.WithRecorder(recorder))
	}

	registry := hub.NewRegistry(
		hub.WithLogger(log.Component("hub")),
		hub.WithMetrics(metrics),
	)
	if err := registry.Register(modules.NewSensor(s, shared, opts...)); err != nil {
		return nil, fmt.Errorf("registering sensor module: %w", err)
	}
	if err := registry.Register(modules.NewWatering(s, shared, pub, opts...)); err != nil {
		return nil, fmt.Errorf("registering watering module: %w", err)
	}
	return registry, nil
}

// saveSnapshot persists the current shared state.
func saveSnapshot(ctx context.Context, store persist.Store, shared *state.SharedState) error {
	snap, err := shared.Snapshot(ctx)
	if err != nil {
		return err
	}
	return persist.Save(ctx, store, persist.KeyState, snap)
}

// startBroker launches the MQTT broker under supervision and waits until
// it accepts connections on the configured MQTT address.
func startBroker(ctx context.Context, cfg *config.Config, log *logging.Logger) (*process.Manager, error) {
	brokerLog := log.Component("broker")
	manager := process.NewManager(process.FromBroker(cfg.Broker, brokerAddr(cfg.MQTT)))
	manager.SetLogger(brokerLog)

	brokerLog.Info("starting broker", "binary", cfg.Broker.Binary)
	if err := manager.Start(ctx); err != nil {
		return nil, err
	}
	brokerLog.Info("broker started", "pid", manager.PID())
	return manager, nil
}

func brokerAddr(cfg config.MQTTConfig) string {
	return net.JoinHostPort(cfg.Broker.Host, strconv.Itoa(cfg.Broker.Port))
}

// getConfigPath returns the configuration file path.
// Uses TERRATAP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TERRATAP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
