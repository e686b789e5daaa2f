package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/frontdesk-api/config"
	"github.com/jwalitptl/frontdesk-api/internal/app"
	"github.com/jwalitptl/frontdesk-api/internal/handler/health"
	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository/memory"
	"github.com/jwalitptl/frontdesk-api/internal/repository/postgres"
	"github.com/jwalitptl/frontdesk-api/internal/service/notification"
	"github.com/jwalitptl/frontdesk-api/pkg/auth"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/messaging"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
	"github.com/jwalitptl/frontdesk-api/pkg/worker"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "frontdesk-api",
		Short:        "Hospital front desk API: appointments and billing",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringSlice("config-path", nil, "Directories searched for config.yml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	paths, _ := cmd.Flags().GetStringSlice("config-path")
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _ := cmd.Flags().GetString("store")
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cfg, log, store)
		},
	}
	cmd.Flags().String("store", storePostgres, "Persistence backend: postgres or memory")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info("Migrations applied", "count", len(applied), "versions", applied)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed staff token for local use",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			r := model.Role(strings.ToUpper(role))
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := auth.SignToken(cfg.JWT.Secret, cfg.JWT.Issuer, model.Caller{UserID: userID, Name: name, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64("user", 1, "Staff user ID")
	cmd.Flags().String("name", "", "Staff display name")
	cmd.Flags().String("role", string(model.RoleReceptionist), "ADMIN, RECEPTIONIST or CASHIER")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func runServer(cfg *config.Config, log *logger.Logger, store string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := app.Options{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
	}

	switch store {
	case storePostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Stores = app.PostgresStores(db)
		opts.DB = health.Pinger(db)
	case storeMemory:
		mem := memory.NewStore()
		demo := app.SeedDemo(mem)
		log.Warn("Running on the in-memory store; data is lost on exit",
			"patients", demo.PatientIDs, "schedules", demo.ScheduleIDs, "tests", demo.TestIDs)
		opts.Stores = app.MemoryStores(mem)

		// No separate worker shares this process's memory, so relay events here.
		broker := messaging.NewMemoryBroker()
		relay, err := worker.NewOutboxProcessor(
			opts.Stores.Outbox,
			opts.Stores.Tx,
			broker,
			withChannel(cfg),
			log.With("component", "outbox"),
			metrics.NewMetrics("frontdesk", "relay", registry),
		)
		if err != nil {
			return err
		}
		notifier := notification.NewService(broker, cfg.Redis.Channel,
			notification.LogSender{Logger: log.With("component", "notification")}, log)
		go relay.Start(ctx)
		go func() {
			if err := notifier.Run(ctx); err != nil {
				log.Error(err, "Notification listener stopped")
			}
		}()
	default:
		return fmt.Errorf("unknown store %q, want %s or %s", store, storePostgres, storeMemory)
	}

	api, err := app.NewAPI(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "store", store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited properly")
	return nil
}

func withChannel(cfg *config.Config) worker.OutboxProcessorConfig {
	wc := cfg.Outbox.ToWorkerConfig()
	wc.Channel = cfg.Redis.Channel
	return wc
}
