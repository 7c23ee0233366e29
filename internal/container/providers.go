package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/garyjia/travel-report/internal/application/dispatcher"
	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
	"github.com/garyjia/travel-report/internal/infrastructure/auth"
	"github.com/garyjia/travel-report/internal/infrastructure/cache"
	"github.com/garyjia/travel-report/internal/infrastructure/export"
	"github.com/garyjia/travel-report/internal/infrastructure/mail"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-report/internal/infrastructure/render"
	"github.com/garyjia/travel-report/internal/infrastructure/storage"
	"github.com/garyjia/travel-report/internal/infrastructure/worker"
	"github.com/garyjia/travel-report/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// AdapterBundle holds the infrastructure adapters behind application ports.
type AdapterBundle struct {
	FileStorage   *storage.LocalFileStorage
	Mailer        port.MailSender
	StatsCache    port.StatsCache
	Renderer      port.MarkdownRenderer
	Exporter      port.ReportExporter
	Authenticator *auth.JWTAuthenticator
}

// ProvideDatabase opens the database and applies the bundled migrations.
// Returns DatabaseBundle containing sql.DB and TransactionManager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
// Returns RepositoryBundle containing all repository implementations.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database is required")
	}

	return &RepositoryBundle{
		Assignment:    repository.NewAssignmentRepository(sqlDB, logger),
		Report:        repository.NewReportRepository(sqlDB, logger),
		Expense:       repository.NewExpenseRepository(sqlDB, logger),
		Review:        repository.NewReviewRepository(sqlDB, logger),
		Documentation: repository.NewDocumentationRepository(sqlDB, logger),
		WorkUnit:      repository.NewWorkUnitRepository(sqlDB, logger),
		User:          repository.NewUserRepository(sqlDB, logger),
		Fullboard:     repository.NewFullboardPriceRepository(sqlDB, logger),
		Stats:         repository.NewStatsRepository(sqlDB, logger),
	}, nil
}

// ProvideAdapters creates file storage, mail, cache, rendering, export and
// token verification.
func ProvideAdapters(cfg *Config, logger *zap.Logger) (*AdapterBundle, error) {
	if err := os.MkdirAll(cfg.Storage.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	statsCache, err := cache.NewStatsCache(cfg.Dashboard.CacheSize, cfg.Dashboard.CacheTTL)
	if err != nil {
		return nil, err
	}

	authenticator, err := auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	if cfg.Mail.Host == "" {
		logger.Warn("SMTP host not configured, assignment notifications will be skipped")
	}

	return &AdapterBundle{
		FileStorage: storage.NewLocalFileStorage(cfg.Storage.BaseDir, cfg.Storage.PublicURL, logger),
		Mailer: mail.NewSMTPSender(mail.Config{
			Host:          cfg.Mail.Host,
			Port:          cfg.Mail.Port,
			Username:      cfg.Mail.Username,
			Password:      cfg.Mail.Password,
			From:          cfg.Mail.From,
			StartTLS:      cfg.Mail.StartTLS,
			SkipTLSVerify: cfg.Mail.SkipTLSVerify,
			Timeout:       cfg.Mail.Timeout,
		}, logger),
		StatsCache:    statsCache,
		Renderer:      render.NewMarkdownRenderer(logger),
		Exporter:      export.NewExcelExporter(logger),
		Authenticator: authenticator,
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
// Returns dispatcher.Dispatcher implementation.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Adapters   *AdapterBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Location   *time.Location
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
// Returns ServiceBundle containing all service implementations.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Adapters == nil {
		return nil, fmt.Errorf("repositories and adapters are required")
	}
	if deps.TxManager == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("transaction manager and dispatcher are required")
	}

	repos := deps.Repos
	adapters := deps.Adapters
	logger := &zapLoggerAdapter{logger: deps.Logger.Named("service")}
	clock := service.SystemClock

	return &ServiceBundle{
		Assignment: service.NewAssignmentService(
			repos.Assignment, repos.User, repos.Documentation, repos.Report, repos.Expense,
			adapters.FileStorage, deps.TxManager, deps.Dispatcher, clock, logger),
		Documentation: service.NewDocumentationService(
			repos.Documentation, repos.Assignment, adapters.FileStorage,
			deps.TxManager, deps.Dispatcher, clock, logger),
		Report: service.NewReportService(service.ReportServiceDeps{
			Reports:     repos.Report,
			Expenses:    repos.Expense,
			Reviews:     repos.Review,
			Assignments: repos.Assignment,
			Docs:        repos.Documentation,
			Users:       repos.User,
			WorkUnits:   repos.WorkUnit,
			Fullboard:   repos.Fullboard,
			Storage:     adapters.FileStorage,
			Renderer:    adapters.Renderer,
			Exporter:    adapters.Exporter,
			TxManager:   deps.TxManager,
			Events:      deps.Dispatcher,
			Clock:       clock,
			Logger:      logger,
		}),
		Review: service.NewReviewService(
			repos.Report, repos.Review, repos.User, repos.WorkUnit,
			deps.TxManager, deps.Dispatcher, clock, logger),
		Dashboard: service.NewDashboardService(
			repos.Stats, adapters.StatsCache, deps.Location, clock, logger),
		Leadership: service.NewLeadershipService(
			repos.User, repos.WorkUnit, repos.Assignment,
			deps.TxManager, deps.Dispatcher, clock, logger),
		WorkUnit: service.NewWorkUnitService(
			repos.WorkUnit, deps.TxManager, deps.Dispatcher, clock, logger),
		Notification: service.NewNotificationService(
			repos.Assignment, repos.User, adapters.Mailer, adapters.Renderer, logger),
	}, nil
}

// RegisterEventHandlers subscribes side-effect handlers to the dispatcher.
// Participant notification follows assignment writes; every data-changing
// event invalidates cached dashboards.
func RegisterEventHandlers(d dispatcher.Dispatcher, services *ServiceBundle) {
	d.SubscribeNamed(event.TypeAssignmentCreated, notifyParticipantsHandler, services.Notification.HandleAssignmentEvent)
	d.SubscribeNamed(event.TypeAssignmentUpdated, notifyParticipantsHandler, services.Notification.HandleAssignmentEvent)

	for _, t := range event.DataChanging {
		d.SubscribeNamed(t, dashboardInvalidateHandler, services.Dashboard.HandleEvent)
	}
}

const (
	notifyParticipantsHandler  = "notify_participants"
	dashboardInvalidateHandler = "dashboard_invalidate"
)

// systemActor performs maintenance on behalf of the service itself
var systemActor = &entity.Actor{ID: 0, Name: "system", Roles: []entity.Role{entity.RoleSuperadmin}}

// ProvideWorkers creates the background workers, registered but not
// started. A zero status interval registers none.
func ProvideWorkers(cfg *WorkerConfig, services *ServiceBundle, logger *zap.Logger) *worker.WorkerManager {
	manager := worker.NewWorkerManager(logger.Named("worker"))
	if cfg.StatusInterval <= 0 {
		return manager
	}

	reconcile := func(ctx context.Context) (int, int, error) {
		result, err := services.Review.UpdateAllReportStatuses(ctx, systemActor)
		if err != nil {
			return 0, 0, err
		}
		return result.Checked, result.Changed, nil
	}
	manager.Register(worker.NewStatusWorker(cfg.StatusInterval, reconcile, logger.Named("worker")))
	return manager
}
