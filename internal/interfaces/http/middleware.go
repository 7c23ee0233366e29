package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
)

const actorKey = "actor"

// UserLookup loads the account behind a verified token
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		var actorID int64
		if actor := actorFrom(c); actor != nil {
			actorID = actor.ID
		}
		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"actor_id", actorID,
		)
	}
}

// authMiddleware resolves the bearer token to an actor. The account is
// reloaded on every request so role changes apply immediately.
func authMiddleware(verifier port.TokenVerifier, users UserLookup, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondMessage(c, http.StatusUnauthorized, "authorization header is required")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			respondMessage(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			respondMessage(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to load user for token", "user_id", userID, "error", err)
			respondMessage(c, http.StatusInternalServerError, "internal server error")
			return
		}
		if user == nil {
			respondMessage(c, http.StatusUnauthorized, "user not found")
			return
		}

		c.Set(actorKey, user.Actor())
		c.Next()
	}
}

// actorFrom returns the authenticated actor, or nil outside /api.
func actorFrom(c *gin.Context) *entity.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*entity.Actor)
	return actor
}
