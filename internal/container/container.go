package container

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/garyjia/travel-report/internal/application/dispatcher"
	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/internal/domain/event"
	"github.com/garyjia/travel-report/internal/infrastructure/auth"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-report/internal/infrastructure/worker"
	httpapi "github.com/garyjia/travel-report/internal/interfaces/http"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Adapters
	adapters *AdapterBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Interfaces
	server *httpapi.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Assignment    port.AssignmentRepository
	Report        port.ReportRepository
	Expense       port.ExpenseRepository
	Review        port.ReviewRepository
	Documentation port.DocumentationRepository
	WorkUnit      port.WorkUnitRepository
	User          port.UserRepository
	Fullboard     port.FullboardPriceRepository
	Stats         port.StatsRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Assignment    service.AssignmentService
	Documentation service.DocumentationService
	Report        service.ReportService
	Review        service.ReviewService
	Dashboard     service.DashboardService
	Leadership    service.LeadershipService
	WorkUnit      service.WorkUnitService
	Notification  service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database, migrations and repositories
// 2. Adapters (storage, mail, cache, rendering, export, tokens)
// 3. Event dispatcher
// 4. Application services and their event subscriptions
// 5. Workers
// 6. HTTP server (built, not listening)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize adapters
	if err := c.initAdapters(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize adapters: %w", err)
	}
	c.logger.Info("Adapters initialized")

	// Step 3: Initialize dispatcher
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp

	// Step 4: Initialize application services
	if err := c.initServices(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 5: Start workers
	c.workers = ProvideWorkers(&c.config.Worker, c.services, c.logger)
	if err := c.workers.StartAll(c.ctx); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers started", zap.Int("count", c.workers.GetWorkerCount()))

	// Step 6: Build HTTP server
	c.initServer()

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop HTTP server (reverse of step 6)
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}

	// Step 2: Stop workers (reverse of step 5)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	// Step 3: Close dispatcher (reverse of step 3)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 4: Drop cached dashboards (reverse of step 2)
	if c.adapters != nil && c.adapters.StatsCache != nil {
		c.adapters.StatsCache.Purge()
	}

	// Step 5: Close database (reverse of step 1)
	if err := c.closeDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.sqlDB != nil {
		if err := c.sqlDB.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check dispatcher
	if c.dispatcher != nil {
		status.Components["dispatcher"] = dispatcherHealth(c.dispatcher)
		if !status.Components["dispatcher"].Healthy {
			status.Overall = false
		}
	} else {
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check services
	if c.services != nil {
		status.Components["services"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["services"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check workers
	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		status.Components["workers"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	mail := ComponentHealth{Healthy: true}
	if c.config.Mail.Host == "" {
		mail.Message = "disabled"
	}
	status.Components["mail"] = mail

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) initAdapters() error {
	adapters, err := ProvideAdapters(c.config, c.logger)
	if err != nil {
		return err
	}
	c.adapters = adapters
	return nil
}

// initServices initializes all application services and subscribes their
// event handlers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		Adapters:   c.adapters,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Location:   c.config.Location,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	RegisterEventHandlers(c.dispatcher, services)
	c.services = services
	return nil
}

func (c *Container) initServer() {
	c.server = httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
			Mode:         c.config.Server.Mode,
		},
		httpapi.Services{
			Assignments:   c.services.Assignment,
			Documentation: c.services.Documentation,
			Reports:       c.services.Report,
			Reviews:       c.services.Review,
			Dashboard:     c.services.Dashboard,
			Leadership:    c.services.Leadership,
			WorkUnits:     c.services.WorkUnit,
		},
		httpapi.Dependencies{
			Verifier: c.adapters.Authenticator,
			Users:    c.repositories.User,
			Files:    c.adapters.FileStorage,
			DB:       c.sqlDB,
		},
		&zapLoggerAdapter{logger: c.logger.Named("http")},
	)
}

func (c *Container) closeDatabase() error {
	if c.sqlDB == nil {
		return nil
	}
	err := c.sqlDB.Close()
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	} else {
		c.logger.Info("Database closed")
	}
	c.sqlDB = nil
	return err
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// FileStorage returns the file storage.
func (c *Container) FileStorage() port.FileStorage {
	return c.adapters.FileStorage
}

// Authenticator returns the bearer token issuer and verifier.
func (c *Container) Authenticator() *auth.JWTAuthenticator {
	return c.adapters.Authenticator
}

// dispatcherHealth fails when a data-changing event has no cache
// invalidation subscribed, which would leave dashboards stale.
func dispatcherHealth(d dispatcher.Dispatcher) ComponentHealth {
	subscriptions := 0
	var missing []string
	for _, t := range event.DataChanging {
		handlers := d.ListHandlers(t)
		subscriptions += len(handlers)
		invalidates := false
		for _, h := range handlers {
			if h.Name == dashboardInvalidateHandler {
				invalidates = true
			}
		}
		if !invalidates {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		return ComponentHealth{
			Healthy: false,
			Message: "no dashboard invalidation for: " + strings.Join(missing, ", "),
		}
	}
	return ComponentHealth{Healthy: true, Message: fmt.Sprintf("subscriptions: %d", subscriptions)}
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service, dispatcher and http
// Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
