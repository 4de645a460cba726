package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/services"
)

// AnalyticsHandler serves the reporting endpoints
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
	logger    *logrus.Logger
}

func NewAnalyticsHandler(analytics *services.AnalyticsService, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// scope resolves the caller and the from/to window shared by every report
func (h *AnalyticsHandler) scope(c *gin.Context) (models.Actor, models.DateRange, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return actor, models.DateRange{}, false
	}
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		RespondError(c, err, h.logger)
		return actor, models.DateRange{}, false
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		RespondError(c, err, h.logger)
		return actor, models.DateRange{}, false
	}
	r, err := h.analytics.ResolveRange(from, to)
	if err != nil {
		RespondError(c, err, h.logger)
		return actor, r, false
	}
	return actor, r, true
}

// Revenue - GET /analytics/revenue?group_by=month|route|method
func (h *AnalyticsHandler) Revenue(c *gin.Context) {
	actor, r, ok := h.scope(c)
	if !ok {
		return
	}
	groupBy := models.RevenueGroupBy(c.DefaultQuery("group_by", string(models.RevenueByMonth)))

	points, err := h.analytics.RevenueTrends(c.Request.Context(), actor, r, groupBy)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "group_by": groupBy, "data": points})
}

// SeatUtilization - GET /analytics/seat-utilization
func (h *AnalyticsHandler) SeatUtilization(c *gin.Context) {
	actor, r, ok := h.scope(c)
	if !ok {
		return
	}

	rows, err := h.analytics.SeatUtilization(c.Request.Context(), actor, r)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "data": rows})
}

// Cancellations - GET /analytics/cancellations
func (h *AnalyticsHandler) Cancellations(c *gin.Context) {
	actor, r, ok := h.scope(c)
	if !ok {
		return
	}

	stats, err := h.analytics.CancellationStats(c.Request.Context(), actor, r)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "data": stats})
}

// Holds - GET /analytics/holds
func (h *AnalyticsHandler) Holds(c *gin.Context) {
	actor, r, ok := h.scope(c)
	if !ok {
		return
	}

	holds, err := h.analytics.HoldAnalytics(c.Request.Context(), actor, r)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "data": holds})
}
