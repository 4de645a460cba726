package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket groups the bookings created by one atomic purchase
type Ticket struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TicketNumber   string     `json:"ticket_number" db:"ticket_number"`
	QRPayload      *string    `json:"qr_payload,omitempty" db:"qr_payload"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	ScheduleID     uuid.UUID  `json:"schedule_id" db:"schedule_id"`
	LinkedTicketID *uuid.UUID `json:"linked_ticket_id,omitempty" db:"linked_ticket_id"`
	BookerName     string     `json:"booker_name" db:"booker_name"`
	BookerPhone    *string    `json:"booker_phone,omitempty" db:"booker_phone"`
	BookerEmail    *string    `json:"booker_email,omitempty" db:"booker_email"`
	CreatedBy      uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// BookingLine is a member booking with its seat attached
type BookingLine struct {
	Booking
	Seat *Seat `json:"seat,omitempty"`
}

// TicketDetail is a ticket with every member booking and its trip context
type TicketDetail struct {
	Ticket
	Schedule ScheduleDetail `json:"schedule"`
	Bookings []BookingLine  `json:"bookings"`
	Payment  *Payment       `json:"payment,omitempty"`
}

// AdminBookingResult reports both legs of an admin booking.
// ReturnError is set when the return leg failed after the onward leg committed.
type AdminBookingResult struct {
	Onward      *TicketDetail `json:"onward"`
	Return      *TicketDetail `json:"return,omitempty"`
	ReturnError string        `json:"return_error,omitempty"`
	Partial     bool          `json:"partial"`
}

// BookingDetail is one booking with the ticket and trip it belongs to
type BookingDetail struct {
	BookingLine
	TicketNumber string         `json:"ticket_number"`
	Schedule     ScheduleDetail `json:"schedule"`
	Payment      *Payment       `json:"payment,omitempty"`
}
