package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/services"
)

// BookingHandler serves the booking lifecycle endpoints
type BookingHandler struct {
	bookings      *services.BookingService
	cancellations *services.CancellationService
	tickets       *services.TicketService
	sweeper       *services.OrphanSweeper
	logger        *logrus.Logger
}

func NewBookingHandler(
	bookings *services.BookingService,
	cancellations *services.CancellationService,
	tickets *services.TicketService,
	sweeper *services.OrphanSweeper,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookings:      bookings,
		cancellations: cancellations,
		tickets:       tickets,
		sweeper:       sweeper,
		logger:        logger,
	}
}

// ============================================================================
// RESERVATION
// ============================================================================

// CreateBooking reserves seats for the caller
// @Summary Book seats
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Seats and passengers"
// @Success 201 {object} models.TicketDetail
// @Failure 409 {object} map[string]interface{} "Seat already booked"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.bookings.CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// CreateBookingForUser books on behalf of a user, optionally with a return leg.
// A failed return leg still answers 201 with partial set.
// @Router /bookings/admin [post]
func (h *BookingHandler) CreateBookingForUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.AdminBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.bookings.CreateBookingForUser(c.Request.Context(), actor, req)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ============================================================================
// LOOKUPS
// ============================================================================

// ListMyBookings - GET /bookings/me
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page, limit := pageQuery(c)

	result, err := h.tickets.ListMyBookings(c.Request.Context(), actor, page, limit)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListBookings - GET /bookings?user_id=&schedule_id=&status=&page=&limit=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var filter models.BookingFilter
	var err error
	if filter.UserID, err = optionalUUIDQuery(c, "user_id"); err != nil {
		RespondError(c, err, h.logger)
		return
	}
	if filter.ScheduleID, err = optionalUUIDQuery(c, "schedule_id"); err != nil {
		RespondError(c, err, h.logger)
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := models.BookingStatus(strings.ToUpper(raw))
		filter.Status = &status
	}
	filter.Page, filter.Limit = pageQuery(c)

	result, err := h.tickets.ListBookings(c.Request.Context(), actor, filter)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTicket - GET /bookings/ticket/:ticketNumber
func (h *BookingHandler) GetTicket(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ticket, err := h.tickets.GetTicket(c.Request.Context(), actor, strings.ToUpper(c.Param("ticketNumber")))
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// GetBooking - GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.tickets.GetBooking(c.Request.Context(), actor, id)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ============================================================================
// CANCELLATION
// ============================================================================

// CancelBooking cancels the caller's own booking with the tiered fee
// @Summary Cancel own booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 403 {object} map[string]interface{} "Not the owner"
// @Failure 409 {object} map[string]interface{} "Not cancellable"
// @Router /bookings/{id}/cancel [delete]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.cancellations.CancelBooking(c.Request.Context(), actor, id)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          "Booking cancelled",
		"booking":          booking,
		"cancellation_fee": booking.CancellationFee,
		"refunded_amount":  booking.RefundedAmount,
	})
}

// AdminCancelBooking - DELETE /bookings/:id/cancel-admin
// The reason comes from the JSON body or the reason query parameter.
func (h *BookingHandler) AdminCancelBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.AdminCancelRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}

	booking, err := h.cancellations.AdminCancelBooking(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled", "booking": booking})
}

// UpdateBookingStatus - PATCH /bookings/:id/status
func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateBookingStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	status := models.BookingStatus(strings.ToUpper(string(req.Status)))
	booking, err := h.cancellations.UpdateBookingStatus(c.Request.Context(), actor, id, status, req.Reason)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// RemoveSeat - DELETE /bookings/:id/seat/:seatNumber
func (h *BookingHandler) RemoveSeat(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.cancellations.RemoveSeatFromBooking(c.Request.Context(), actor, id, c.Param("seatNumber"))
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Seat removed from booking", "booking": booking})
}

// ============================================================================
// MAINTENANCE
// ============================================================================

// ResetSeats - POST /bookings/reset-seats/:scheduleId
func (h *BookingHandler) ResetSeats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	scheduleID, ok := uuidParam(c, "scheduleId")
	if !ok {
		return
	}

	released, err := h.sweeper.ResetSeatStatus(c.Request.Context(), actor, scheduleID)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule_id": scheduleID, "released_seats": released})
}

// CleanupOrphaned - POST /bookings/cleanup-orphaned
func (h *BookingHandler) CleanupOrphaned(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.sweeper.CleanupOrphanedBookings(c.Request.Context(), &actor)
	if err != nil {
		RespondError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}
