package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness checks
type HealthHandler struct {
	db      Pinger
	version string
	logger  *logrus.Logger
}

func NewHealthHandler(db Pinger, version string, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, version: version, logger: logger}
}

// Health - GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code, database := "healthy", http.StatusOK, "connected"
	if err := h.db.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Health check: database unreachable")
		status, code, database = "unhealthy", http.StatusServiceUnavailable, "unreachable"
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  "booking-engine",
		"version":  h.version,
		"database": database,
		"time":     time.Now().UTC(),
	})
}
