package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking is the reservation of one seat on one schedule for one passenger
type Booking struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	TicketID           uuid.UUID     `json:"ticket_id" db:"ticket_id"`
	UserID             uuid.UUID     `json:"user_id" db:"user_id"`
	ScheduleID         uuid.UUID     `json:"schedule_id" db:"schedule_id"`
	SeatID             *uuid.UUID    `json:"seat_id,omitempty" db:"seat_id"`
	SeatNumber         string        `json:"seat_number" db:"seat_number"`
	PassengerName      string        `json:"passenger_name" db:"passenger_name"`
	PassengerPhone     *string       `json:"passenger_phone,omitempty" db:"passenger_phone"`
	PassengerEmail     *string       `json:"passenger_email,omitempty" db:"passenger_email"`
	PassengerIDNumber  *string       `json:"passenger_id_number,omitempty" db:"passenger_id_number"`
	Fare               float64       `json:"fare" db:"fare"`
	Status             BookingStatus `json:"status" db:"status"`
	CancellationFee    *float64      `json:"cancellation_fee,omitempty" db:"cancellation_fee"`
	RefundedAmount     *float64      `json:"refunded_amount,omitempty" db:"refunded_amount"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledBy        *uuid.UUID    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	Version            int           `json:"version" db:"version"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
	DeletedAt          *time.Time    `json:"-" db:"deleted_at"`
}

// Passenger is the traveller occupying a seat
type Passenger struct {
	Name     string  `json:"name" binding:"required"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	IDNumber *string `json:"id_number"`
}

// SeatSelection pairs a requested seat with its passenger
type SeatSelection struct {
	SeatNumber string    `json:"seat_number" binding:"required"`
	Passenger  Passenger `json:"passenger"`
}

// Booker is the contact of the person paying for the ticket
type Booker struct {
	Name  string  `json:"name" binding:"required"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

// CreateBookingRequest reserves one or more seats on a schedule
type CreateBookingRequest struct {
	ScheduleID uuid.UUID       `json:"schedule_id" binding:"required"`
	Booker     Booker          `json:"booker"`
	Seats      []SeatSelection `json:"seats" binding:"required,min=1,dive"`
}

// AdminBookingRequest books on behalf of a user, optionally with a return leg
type AdminBookingRequest struct {
	UserID           uuid.UUID       `json:"user_id" binding:"required"`
	ScheduleID       uuid.UUID       `json:"schedule_id" binding:"required"`
	Booker           Booker          `json:"booker"`
	Seats            []SeatSelection `json:"seats" binding:"required,min=1,dive"`
	ReturnScheduleID *uuid.UUID      `json:"return_schedule_id"`
	ReturnSeats      []SeatSelection `json:"return_seats" binding:"omitempty,dive"`
	PaymentMethod    *PaymentMethod  `json:"payment_method"`
}

// BookingFilter narrows the admin booking listing
type BookingFilter struct {
	UserID     *uuid.UUID
	ScheduleID *uuid.UUID
	Status     *BookingStatus
	Page       int
	Limit      int
}

// PaginatedBookings is a page of bookings with its totals
type PaginatedBookings struct {
	Bookings   []Booking `json:"bookings"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
	Reason string        `json:"reason" binding:"required"`
}

type AdminCancelRequest struct {
	Reason string `json:"reason"`
}
