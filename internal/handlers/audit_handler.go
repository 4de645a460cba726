package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/services"
)

// AuditHandler exposes the audit trail to admins
type AuditHandler struct {
	audit  *services.AuditService
	logger *logrus.Logger
}

func NewAuditHandler(audit *services.AuditService, logger *logrus.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// parseTimeQuery accepts RFC 3339 timestamps or plain dates
func parseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, models.ValidationError{Field: name, Msg: "must be RFC 3339 or YYYY-MM-DD"}
}

// ListAuditLogs - GET /audit-logs?user_id=&action=&entity_type=&entity_id=&from=&to=&page=&limit=
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	filter := models.AuditLogFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
	}
	var err error
	if filter.UserID, err = optionalUUIDQuery(c, "user_id"); err != nil {
		RespondError(c, err, h.logger)
		return
	}
	if filter.FromDate, err = parseTimeQuery(c, "from"); err != nil {
		RespondError(c, err, h.logger)
		return
	}
	if filter.ToDate, err = parseTimeQuery(c, "to"); err != nil {
		RespondError(c, err, h.logger)
		return
	}
	filter.Page, filter.Limit = pageQuery(c)

	logs, err := h.audit.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, logs)
}
