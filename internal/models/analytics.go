package models

import (
	"time"

	"github.com/google/uuid"
)

// RevenueGroupBy selects the revenue aggregation key
type RevenueGroupBy string

const (
	RevenueByMonth  RevenueGroupBy = "month"
	RevenueByRoute  RevenueGroupBy = "route"
	RevenueByMethod RevenueGroupBy = "method"
)

func (g RevenueGroupBy) Valid() bool {
	return g == RevenueByMonth || g == RevenueByRoute || g == RevenueByMethod
}

// DateRange bounds an analytics query, From inclusive and To exclusive
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RevenuePoint is one bucket of a revenue trend
type RevenuePoint struct {
	Key      string  `json:"key" db:"key"`
	Label    string  `json:"label" db:"label"`
	Gross    float64 `json:"gross" db:"gross"`
	Refunded float64 `json:"refunded" db:"refunded"`
	Net      float64 `json:"net" db:"net"`
	Tickets  int64   `json:"tickets" db:"tickets"`
}

// BusUtilization is seat occupancy for one bus over a range
type BusUtilization struct {
	BusID         uuid.UUID `json:"bus_id" db:"bus_id"`
	BusName       string    `json:"bus_name" db:"bus_name"`
	Schedules     int64     `json:"schedules" db:"schedules"`
	TotalSeats    int64     `json:"total_seats" db:"total_seats"`
	BookedSeats   int64     `json:"booked_seats" db:"booked_seats"`
	OccupancyRate float64   `json:"occupancy_rate" db:"-"`
}

// CancellationStats summarizes cancellations over a range
type CancellationStats struct {
	TotalBookings    int64   `json:"total_bookings" db:"total_bookings"`
	Cancelled        int64   `json:"cancelled" db:"cancelled"`
	OrphanReleased   int64   `json:"orphan_released" db:"orphan_released"`
	FeesCollected    float64 `json:"fees_collected" db:"fees_collected"`
	TotalRefunded    float64 `json:"total_refunded" db:"total_refunded"`
	CancellationRate float64 `json:"cancellation_rate" db:"-"`
}

// HoldBucket counts tickets whose payment completed within a duration band
type HoldBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// HoldAnalytics describes how reservation holds resolve
type HoldAnalytics struct {
	Tickets    int64        `json:"tickets" db:"tickets"`
	Paid       int64        `json:"paid" db:"paid"`
	Orphaned   int64        `json:"orphaned" db:"orphaned"`
	Pending    int64        `json:"pending" db:"pending"`
	OrphanRate float64      `json:"orphan_rate" db:"-"`
	Buckets    []HoldBucket `json:"time_to_payment" db:"-"`
}
