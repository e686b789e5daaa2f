// Package app assembles the front desk API from configuration and a set of
// repositories. Both the server binary and the end-to-end tests build on it.
package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/frontdesk-api/config"
	"github.com/jwalitptl/frontdesk-api/internal/availability"
	appointmentHandler "github.com/jwalitptl/frontdesk-api/internal/handler/appointment"
	billHandler "github.com/jwalitptl/frontdesk-api/internal/handler/bill"
	"github.com/jwalitptl/frontdesk-api/internal/handler/health"
	masterdataHandler "github.com/jwalitptl/frontdesk-api/internal/handler/masterdata"
	promHandler "github.com/jwalitptl/frontdesk-api/internal/handler/prometheus"
	scheduleHandler "github.com/jwalitptl/frontdesk-api/internal/handler/schedule"
	"github.com/jwalitptl/frontdesk-api/internal/middleware"
	"github.com/jwalitptl/frontdesk-api/internal/repository"
	"github.com/jwalitptl/frontdesk-api/internal/repository/memory"
	"github.com/jwalitptl/frontdesk-api/internal/repository/postgres"
	"github.com/jwalitptl/frontdesk-api/internal/router"
	"github.com/jwalitptl/frontdesk-api/internal/service/appointment"
	"github.com/jwalitptl/frontdesk-api/internal/service/billing"
	"github.com/jwalitptl/frontdesk-api/internal/service/event"
	"github.com/jwalitptl/frontdesk-api/internal/service/masterdata"
	"github.com/jwalitptl/frontdesk-api/pkg/auth"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
)

const metricsNamespace = "frontdesk"

// Stores is the persistence the services run on.
type Stores struct {
	Tx           repository.TxManager
	Appointments repository.AppointmentRepository
	Bills        repository.BillRepository
	Directory    repository.DirectoryRepository
	Settings     repository.SettingsRepository
	Outbox       repository.OutboxRepository
}

func PostgresStores(db *sqlx.DB) Stores {
	return Stores{
		Tx:           postgres.NewTxManager(db),
		Appointments: postgres.NewAppointmentRepository(db),
		Bills:        postgres.NewBillRepository(db),
		Directory:    postgres.NewDirectoryRepository(db),
		Settings:     postgres.NewSettingsRepository(db),
		Outbox:       postgres.NewOutboxRepository(db),
	}
}

func MemoryStores(s *memory.Store) Stores {
	return Stores{
		Tx:           s,
		Appointments: s.Appointments(),
		Bills:        s.Bills(),
		Directory:    s.Directory(),
		Settings:     s.Settings(),
		Outbox:       s.Outbox(),
	}
}

type Options struct {
	Config *config.Config
	Stores Stores
	// DB backs the readiness probe. Nil means always ready.
	DB       health.Pinger
	Logger   *logger.Logger
	Registry *prometheus.Registry
	// Clock overrides the configured timezone clock.
	Clock availability.Clock
}

// API is the assembled HTTP application.
type API struct {
	Appointments *appointment.Service
	Billing      *billing.Service
	MasterData   *masterdata.Service
	Metrics      *metrics.Metrics
	Router       *router.Router
}

func NewAPI(opts Options) (*API, error) {
	cfg := opts.Config
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Clock == nil {
		loc, err := cfg.Location()
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone: %w", err)
		}
		opts.Clock = availability.SystemClock{Location: loc}
	}

	m := metrics.NewMetrics(metricsNamespace, "api", opts.Registry)
	events := event.NewService(opts.Stores.Outbox)

	// Initialize services
	masterSvc := masterdata.NewService(
		opts.Stores.Settings,
		cfg.Billing.HospitalCharge(),
		cfg.Billing.MasterDataCacheTTL,
		opts.Logger.With("component", "masterdata"),
	)
	appointmentSvc := appointment.NewService(appointment.Deps{
		Tx:           opts.Stores.Tx,
		Appointments: opts.Stores.Appointments,
		Bills:        opts.Stores.Bills,
		Directory:    opts.Stores.Directory,
		Charges:      masterSvc,
		Events:       events,
		Clock:        opts.Clock,
		Config: appointment.Config{
			DailyLimit:           cfg.Billing.DailyLimit,
			RescheduleWindowDays: cfg.Billing.RescheduleWindowDays,
		},
		Logger:  opts.Logger.With("component", "appointment"),
		Metrics: m,
	})
	billingSvc := billing.NewService(
		opts.Stores.Tx,
		opts.Stores.Bills,
		opts.Stores.Appointments,
		opts.Stores.Directory,
		events,
		opts.Logger.With("component", "billing"),
		m,
	)

	// Initialize middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer))

	r, err := router.NewRouter(
		router.RouterConfig{
			RequestTimeout:   cfg.Server.RequestTimeout,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSOrigins:      cfg.CORS.AllowedOrigins,
		},
		authMiddleware,
		health.NewHandler(opts.DB),
		promHandler.New(opts.Registry),
		m,
		opts.Logger,
		appointmentHandler.NewHandler(appointmentSvc),
		billHandler.NewHandler(billingSvc, appointmentSvc),
		scheduleHandler.NewHandler(appointmentSvc),
		masterdataHandler.NewHandler(masterSvc),
	)
	if err != nil {
		return nil, err
	}
	r.Setup()

	return &API{
		Appointments: appointmentSvc,
		Billing:      billingSvc,
		MasterData:   masterSvc,
		Metrics:      m,
		Router:       r,
	}, nil
}
