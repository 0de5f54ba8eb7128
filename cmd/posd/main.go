// Command posd is the on-device agent. It owns the durable local state
// snapshot, queues offline mutations, and reconciles with the remote sync
// service whenever connectivity allows.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comptoirlabs/comptoir-backend/api"
	"github.com/comptoirlabs/comptoir-backend/api/device"
	"github.com/comptoirlabs/comptoir-backend/internal/fiscal"
	"github.com/comptoirlabs/comptoir-backend/internal/pos"
	"github.com/comptoirlabs/comptoir-backend/internal/queue"
	"github.com/comptoirlabs/comptoir-backend/internal/reconcile"
	"github.com/comptoirlabs/comptoir-backend/internal/remote"
	"github.com/comptoirlabs/comptoir-backend/internal/storage"
	"github.com/comptoirlabs/comptoir-backend/internal/store"
	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	"github.com/comptoirlabs/comptoir-backend/pkg/db"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/metrics"
	"github.com/comptoirlabs/comptoir-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "posd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "posd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "device agent stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "device agent shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	if cfg.Device.RestaurantID == "" {
		return fmt.Errorf("restaurant id is required")
	}
	if cfg.Device.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}

	ctx = logg.WithRestaurantID(ctx, cfg.Device.RestaurantID)
	ctx = logg.WithDeviceID(ctx, cfg.Device.DeviceID)

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	gormDB, err := db.OpenSQLite(cfg.Device.LocalDBPath)
	if err != nil {
		return fmt.Errorf("opening local database: %w", err)
	}

	durable, err := storage.NewSQLiteStore(gormDB, syncMetrics)
	if err != nil {
		return fmt.Errorf("preparing local snapshot store: %w", err)
	}
	queueRepo, err := queue.NewRepository(gormDB)
	if err != nil {
		return fmt.Errorf("preparing action queue: %w", err)
	}

	remoteClient, err := remote.NewHTTPClient(cfg.Remote, cfg.Device.Token, logg)
	if err != nil {
		return fmt.Errorf("building remote client: %w", err)
	}
	checker, err := remote.NewHealthChecker(cfg.Remote)
	if err != nil {
		return fmt.Errorf("building health checker: %w", err)
	}
	processor, err := queue.NewProcessor(cfg.Device.RestaurantID, queueRepo, remoteClient, logg, syncMetrics, cfg.Queue.MaxAttempts)
	if err != nil {
		return fmt.Errorf("building queue processor: %w", err)
	}

	// Mobile terminals keep serving offline: permissive stock checks and
	// the replay queue. Primary terminals stay strict and defer to the
	// reconnect resync instead of queueing.
	policy := pos.StockPolicyStrict
	if cfg.Device.IsMobile() {
		policy = pos.StockPolicyPermissive
	}
	mutator, err := pos.NewMutator(policy, logg, syncMetrics)
	if err != nil {
		return fmt.Errorf("building mutator: %w", err)
	}
	engine, err := reconcile.NewEngine(logg, syncMetrics)
	if err != nil {
		return fmt.Errorf("building reconcile engine: %w", err)
	}

	var archiver fiscal.Archiver = fiscal.Noop{}
	if cfg.Fiscal.ArchiveURL != "" {
		archiver, err = fiscal.NewHTTPArchiver(cfg.Fiscal, logg)
		if err != nil {
			return fmt.Errorf("building fiscal archiver: %w", err)
		}
	}

	st, err := store.New(store.Config{
		RestaurantID: cfg.Device.RestaurantID,
		QueueEnabled: cfg.Device.IsMobile(),
		Mutator:      mutator,
		Storage:      durable,
		Remote:       remoteClient,
		Checker:      checker,
		Queue:        queueRepo,
		Processor:    processor,
		Engine:       engine,
		Archiver:     archiver,
		Logger:       logg,
	})
	if err != nil {
		return fmt.Errorf("building store: %w", err)
	}
	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	watcher, err := remote.NewWatcher(checker, cfg.Remote.ProbeInterval, logg)
	if err != nil {
		return fmt.Errorf("building connectivity watcher: %w", err)
	}
	go watcher.Run(ctx, func(ctx context.Context) {
		if err := st.Resync(ctx); err != nil {
			logg.Error(ctx, "resync after reconnect failed", err)
		}
	})

	// Snapshot pushes are optional: without a subscription the device
	// still converges through the reconnect resync path.
	if cfg.PubSub.SnapshotSubscription != "" && cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return fmt.Errorf("building pubsub client: %w", err)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub client", err)
			}
		}()

		subscriber, err := remote.NewSnapshotSubscriber(cfg.Device.RestaurantID, pubsubClient.SnapshotSubscription(), logg)
		if err != nil {
			return fmt.Errorf("building snapshot subscriber: %w", err)
		}
		go func() {
			err := subscriber.Run(ctx, func(ctx context.Context, doc []byte) {
				if err := st.OnRemoteChange(ctx, doc); err != nil {
					logg.Error(ctx, "applying snapshot push failed", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "snapshot subscriber stopped", err)
			}
		}()
	}

	addr := ":" + cfg.Device.LocalPort
	ctx = logg.WithFields(ctx, map[string]any{
		"addr": addr,
		"role": cfg.Device.Role,
	})
	logg.Info(ctx, "starting device agent")

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	server := api.NewServer(addr, device.NewRouter(st, logg, metricsHandler), logg)
	return server.Run(ctx)
}
