package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/frontdesk-api/config"
	"github.com/jwalitptl/frontdesk-api/internal/handler/health"
	promHandler "github.com/jwalitptl/frontdesk-api/internal/handler/prometheus"
	"github.com/jwalitptl/frontdesk-api/internal/repository/postgres"
	"github.com/jwalitptl/frontdesk-api/internal/service/notification"
	cleanup "github.com/jwalitptl/frontdesk-api/internal/worker"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/messaging/redis"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
	"github.com/jwalitptl/frontdesk-api/pkg/worker"
)

func main() {
	cmd := &cobra.Command{
		Use:          "frontdesk-worker",
		Short:        "Relay outbox events to Redis, notify on them and purge old ones",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, _ := cmd.Flags().GetStringSlice("config-path")
			addr, _ := cmd.Flags().GetString("health-addr")
			cfg, err := config.LoadConfig(paths...)
			if err != nil {
				return err
			}
			return run(cfg, addr)
		},
	}
	cmd.Flags().StringSlice("config-path", nil, "Directories searched for config.yml")
	cmd.Flags().String("health-addr", ":8081", "Listen address for health and metrics endpoints")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, healthAddr string) error {
	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	}).With("service", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics("frontdesk", "worker", registry)

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log.Zerolog())
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	workerCfg := cfg.Outbox.ToWorkerConfig()
	workerCfg.Channel = cfg.Redis.Channel
	processor, err := worker.NewOutboxProcessor(outboxRepo, postgres.NewTxManager(db), broker, workerCfg, log, m)
	if err != nil {
		return err
	}

	cleaner, err := cleanup.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, cfg.Outbox.CleanupSchedule, log, m)
	if err != nil {
		return err
	}

	notifier := notification.NewService(broker, cfg.Redis.Channel,
		notification.LogSender{Logger: log.With("component", "notification")}, log)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	health.NewHandler(db).RegisterRoutes(engine)
	engine.GET("/metrics", promHandler.New(registry).Handler())
	srv := &http.Server{Addr: healthAddr, Handler: engine}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		processor.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return cleaner.Start(ctx)
	})
	g.Go(func() error {
		return notifier.Run(ctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
