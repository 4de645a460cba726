package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/services"
)

// ScheduleHandler serves schedules and their seat maps
type ScheduleHandler struct {
	fleet  *services.FleetService
	seats  *services.SeatInventoryService
	logger *logrus.Logger
}

func NewScheduleHandler(fleet *services.FleetService, seats *services.SeatInventoryService, logger *logrus.Logger) *ScheduleHandler {
	return &ScheduleHandler{fleet: fleet, seats: seats, logger: logger}
}

// CreateSchedule - POST /schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.CreateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.fleet.CreateSchedule(c.Request.Context(), actor, req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// GetSchedule - GET /schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	schedule, err := h.fleet.GetSchedule(c.Request.Context(), actor, id)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ListSeats - GET /schedules/:id/seats
func (h *ScheduleHandler) ListSeats(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	seats, err := h.seats.ListSeats(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}

	available := 0
	for _, s := range seats {
		if !s.IsBooked {
			available++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"schedule_id":     id,
		"seats":           seats,
		"total_seats":     len(seats),
		"available_seats": available,
	})
}

// RegenerateSeats rebuilds the seat map from the bus layout
// @Summary Regenerate seat map
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Param force query bool false "Cancel live bookings with a full refund"
// @Success 200 {object} services.RegenerateResult
// @Failure 409 {object} map[string]interface{} "Live bookings exist"
// @Router /schedules/{id}/regenerate-seats [post]
func (h *ScheduleHandler) RegenerateSeats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, models.ValidationError{Field: "force", Msg: "must be true or false"}, h.logger)
			return
		}
		force = parsed
	}

	result, err := h.seats.RegenerateSeats(c.Request.Context(), actor, id, force)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}
