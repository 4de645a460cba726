package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/events"
)

// BookingEvent is the payload of booking lifecycle events
type BookingEvent struct {
	BookingID  uuid.UUID            `json:"booking_id"`
	TicketID   uuid.UUID            `json:"ticket_id"`
	ScheduleID uuid.UUID            `json:"schedule_id"`
	SeatNumber string               `json:"seat_number"`
	Status     models.BookingStatus `json:"status"`
	Refund     float64              `json:"refund,omitempty"`
	Reason     string               `json:"reason,omitempty"`
}

// TicketEvent is the payload of booking.created
type TicketEvent struct {
	TicketID     uuid.UUID `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	UserID       uuid.UUID `json:"user_id"`
	ScheduleID   uuid.UUID `json:"schedule_id"`
	Seats        []string  `json:"seats"`
	Amount       float64   `json:"amount"`
}

func newBookingEvent(b *models.Booking) BookingEvent {
	ev := BookingEvent{
		BookingID:  b.ID,
		TicketID:   b.TicketID,
		ScheduleID: b.ScheduleID,
		SeatNumber: b.SeatNumber,
		Status:     b.Status,
	}
	if b.RefundedAmount != nil {
		ev.Refund = *b.RefundedAmount
	}
	if b.CancellationReason != nil {
		ev.Reason = *b.CancellationReason
	}
	return ev
}

// publish sends an event after commit. Delivery failures are logged only;
// the committed state is authoritative.
func publish(ctx context.Context, pub events.Publisher, logger *logrus.Logger, key string, v interface{}) {
	if pub == nil {
		return
	}
	if err := pub.PublishJSON(ctx, key, v); err != nil {
		logger.WithError(err).WithField("event", key).Warn("Failed to publish event")
	}
}
