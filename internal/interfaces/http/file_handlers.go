package http

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeFile handles GET /api/files/*path, the target of stored file URLs
func (h *Handlers) ServeFile(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	ctx := c.Request.Context()
	if rel == "" || !h.deps.Files.Exists(ctx, rel) {
		respondMessage(c, http.StatusNotFound, "file not found")
		return
	}

	data, err := h.deps.Files.Read(ctx, rel)
	if err != nil {
		h.respondError(c, "files.read", err)
		return
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(rel)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	c.Data(http.StatusOK, contentType, data)
}
