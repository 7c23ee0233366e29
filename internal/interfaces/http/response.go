package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/infrastructure/storage"
)

// Response represents a standard JSON response
type Response struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ListResponse wraps a page of records with the unpaged total
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg})
}

func respondValidation(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{
		Success: false,
		Error:   "validation failed",
		Fields:  fields,
	})
}

// respondError maps a service error onto a status code. Unexpected errors
// are logged with the actor and operation and answered with a generic
// message.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(c, verr.Fields)
	case errors.Is(err, service.ErrForbidden):
		respondMessage(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, storage.ErrInvalidPath):
		respondMessage(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrDependentRecords),
		errors.Is(err, service.ErrInvalidState):
		respondMessage(c, http.StatusConflict, err.Error())
	default:
		var actorID int64
		if actor := actorFrom(c); actor != nil {
			actorID = actor.ID
		}
		h.logger.Error("Request failed", "operation", op, "actor_id", actorID, "error", err)
		respondMessage(c, http.StatusInternalServerError, "internal server error")
	}
}
