package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/pkg/utils"
)

const dateLayout = "2006-01-02"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	deps     Dependencies
	validate *validator.Validate
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, deps Dependencies, validate *validator.Validate, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		deps:     deps,
		validate: validate,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Database:  "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.DB.PingContext(ctx); err != nil {
			h.logger.Error("Database ping failed", "error", err)
			resp.Status = "unhealthy"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: resp, Error: "database unreachable"})
			return
		}
	}

	respondOK(c, http.StatusOK, resp)
}

// GetDashboard handles GET /api/dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	stats, err := h.services.Dashboard.Compute(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, "dashboard.compute", err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}

// ClearDashboardCache handles DELETE /api/dashboard/cache
func (h *Handlers) ClearDashboardCache(c *gin.Context) {
	if err := h.services.Dashboard.ClearCache(c.Request.Context(), actorFrom(c)); err != nil {
		h.respondError(c, "dashboard.clear_cache", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"cleared": true})
}

// pathID parses a positive integer path parameter. It answers 400 and
// returns false when the value is malformed.
func pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondMessage(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// bindJSON decodes the body into req and runs struct validation. It
// answers 400 for malformed JSON and 422 for failed validation.
func (h *Handlers) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return h.check(c, req)
}

func (h *Handlers) check(c *gin.Context, req interface{}) bool {
	if err := h.validate.Struct(req); err != nil {
		if fields := utils.FieldErrors(err); fields != nil {
			respondValidation(c, fields)
			return false
		}
		h.respondError(c, "request.validate", err)
		return false
	}
	return true
}

// readUpload loads a multipart file field into an Upload. Oversized files
// are truncated one byte past the limit so the size check still fails.
func readUpload(c *gin.Context, field string) (port.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return port.Upload{}, entity.FieldError(field, "file is required")
		}
		return port.Upload{}, entity.FieldError(field, "file could not be read")
	}
	f, err := fh.Open()
	if err != nil {
		return port.Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, entity.MaxUploadBytes+1))
	if err != nil {
		return port.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return port.Upload{Filename: fh.Filename, Size: fh.Size, Content: content}, nil
}

// parseDate parses an optional YYYY-MM-DD value as a civil date at UTC
// midnight. Empty input yields the zero time.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, value, time.UTC)
}
