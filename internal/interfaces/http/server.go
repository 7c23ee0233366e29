// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/pkg/utils"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Pinger reports database reachability for the health check
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Mode         string // gin mode: debug, release or test
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Mode:         gin.ReleaseMode,
	}
}

// Services groups the application services exposed over HTTP
type Services struct {
	Assignments   service.AssignmentService
	Documentation service.DocumentationService
	Reports       service.ReportService
	Reviews       service.ReviewService
	Dashboard     service.DashboardService
	Leadership    service.LeadershipService
	WorkUnits     service.WorkUnitService
}

// Dependencies are the collaborators of the HTTP server besides services
type Dependencies struct {
	Verifier port.TokenVerifier
	Users    UserLookup
	Files    port.FileStorage
	DB       Pinger
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	deps       Dependencies
	validate   *validator.Validate
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, deps Dependencies, logger Logger) *Server {
	mode := config.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		deps:     deps,
		validate: utils.NewValidator(),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.deps, s.validate, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(authMiddleware(s.deps.Verifier, s.deps.Users, s.logger))
	{
		api.GET("/dashboard", h.GetDashboard)
		api.DELETE("/dashboard/cache", h.ClearDashboardCache)

		api.GET("/assignments", h.ListAssignments)
		api.POST("/assignments", h.CreateAssignment)
		api.POST("/assignments/bulk-delete", h.BulkDeleteAssignments)
		api.GET("/assignments/:id", h.GetAssignment)
		api.PUT("/assignments/:id", h.UpdateAssignment)
		api.DELETE("/assignments/:id", h.DeleteAssignment)
		api.GET("/assignments/:id/documentation", h.ListDocumentation)
		api.POST("/assignments/:id/documentation", h.AddDocumentation)
		api.DELETE("/documentation/:id", h.DeleteDocumentation)

		api.GET("/reports", h.ListReports)
		api.POST("/reports", h.CreateReport)
		api.GET("/reports/export", h.ExportReports)
		api.POST("/reports/recompute-statuses", h.RecomputeStatuses)
		api.GET("/reports/:id", h.GetReport)
		api.PUT("/reports/:id", h.UpdateReport)
		api.DELETE("/reports/:id", h.DeleteReport)
		api.POST("/reports/:id/submit", h.SubmitReport)
		api.POST("/reports/:id/files/:slot", h.AttachReportFile)
		api.GET("/reports/:id/reviews", h.ListReviews)
		api.POST("/reports/:id/reviews", h.SubmitReview)

		api.POST("/employees", h.CreateEmployee)
		api.PUT("/employees/:id/roles", h.SetEmployeeRoles)
		api.DELETE("/employees/:id", h.DeleteEmployee)

		api.POST("/work-units", h.CreateWorkUnit)
		api.DELETE("/work-units/:id", h.DeleteWorkUnit)

		api.GET("/files/*path", h.ServeFile)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
