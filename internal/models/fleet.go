package models

import (
	"time"

	"github.com/google/uuid"
)

// Route is an origin/destination pair buses run on
type Route struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Origin      string    `json:"origin" db:"origin"`
	Destination string    `json:"destination" db:"destination"`
	Name        string    `json:"name" db:"name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type RouteRequest struct {
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Name        string `json:"name"`
}

// Bus describes a vehicle and its seat layout.
// LayoutType encodes the left/right seat columns, e.g. "2/2".
type Bus struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	LayoutType string    `json:"layout_type" db:"layout_type"`
	SeatCount  int       `json:"seat_count" db:"seat_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type BusRequest struct {
	Name       string `json:"name" binding:"required"`
	LayoutType string `json:"layout_type" binding:"required"`
	SeatCount  int    `json:"seat_count" binding:"required"`
}

// Schedule is one departure of a bus on a route
type Schedule struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RouteID     uuid.UUID `json:"route_id" db:"route_id"`
	BusID       uuid.UUID `json:"bus_id" db:"bus_id"`
	DepartureAt time.Time `json:"departure_at" db:"departure_at"`
	Fare        float64   `json:"fare" db:"fare"`
	IsReturn    bool      `json:"is_return" db:"is_return"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Departed reports whether the schedule has left at the given instant
func (s *Schedule) Departed(now time.Time) bool {
	return !s.DepartureAt.After(now)
}

type CreateScheduleRequest struct {
	RouteID     uuid.UUID `json:"route_id" binding:"required"`
	BusID       uuid.UUID `json:"bus_id" binding:"required"`
	DepartureAt time.Time `json:"departure_at" binding:"required"`
	Fare        float64   `json:"fare" binding:"gte=0"`
	IsReturn    bool      `json:"is_return"`
}

// ScheduleDetail is a schedule joined with its route and bus
type ScheduleDetail struct {
	Schedule
	Route          Route `json:"route"`
	Bus            Bus   `json:"bus"`
	AvailableSeats int   `json:"available_seats"`
}

// Seat is one bookable position on a schedule
type Seat struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ScheduleID uuid.UUID `json:"schedule_id" db:"schedule_id"`
	SeatNumber string    `json:"seat_number" db:"seat_number"`
	RowLabel   string    `json:"row_label" db:"row_label"`
	Column     int       `json:"column" db:"col_index"`
	Side       SeatSide  `json:"side" db:"side"`
	IsWindow   bool      `json:"is_window" db:"is_window"`
	IsAisle    bool      `json:"is_aisle" db:"is_aisle"`
	IsBooked   bool      `json:"is_booked" db:"is_booked"`
	Version    int       `json:"-" db:"version"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
