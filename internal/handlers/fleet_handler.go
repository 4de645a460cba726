package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/services"
)

// FleetHandler manages routes and buses
type FleetHandler struct {
	fleet  *services.FleetService
	logger *logrus.Logger
}

func NewFleetHandler(fleet *services.FleetService, logger *logrus.Logger) *FleetHandler {
	return &FleetHandler{fleet: fleet, logger: logger}
}

func (h *FleetHandler) CreateRoute(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.RouteRequest
	if !bindJSON(c, &req) {
		return
	}

	route, err := h.fleet.CreateRoute(c.Request.Context(), actor, req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, route)
}

func (h *FleetHandler) UpdateRoute(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.RouteRequest
	if !bindJSON(c, &req) {
		return
	}

	route, err := h.fleet.UpdateRoute(c.Request.Context(), actor, id, req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (h *FleetHandler) DeleteRoute(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.fleet.DeleteRoute(c.Request.Context(), actor, id); err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted"})
}

func (h *FleetHandler) CreateBus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.BusRequest
	if !bindJSON(c, &req) {
		return
	}

	bus, err := h.fleet.CreateBus(c.Request.Context(), actor, req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, bus)
}

func (h *FleetHandler) UpdateBus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.BusRequest
	if !bindJSON(c, &req) {
		return
	}

	bus, err := h.fleet.UpdateBus(c.Request.Context(), actor, id, req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, bus)
}

func (h *FleetHandler) DeleteBus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.fleet.DeleteBus(c.Request.Context(), actor, id); err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bus deleted"})
}
