package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketService_Lookups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 600, 96*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1", "A2")

	_, err := env.tickets.GetTicket(ctx, env.client, ticket.TicketNumber)
	assert.True(t, models.IsForbidden(err))

	got, err := env.tickets.GetTicket(ctx, env.admin, ticket.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	assert.Len(t, got.Bookings, 2)

	_, err = env.tickets.GetTicket(ctx, env.admin, "TK-19700101-ABCDEF")
	assert.True(t, models.IsNotFound(err))

	detail, err := env.tickets.GetBooking(ctx, env.admin, ticket.Bookings[1].ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketNumber, detail.TicketNumber)
	assert.Equal(t, "A2", detail.SeatNumber)
	require.NotNil(t, detail.Seat)
	assert.Equal(t, "A", detail.Seat.RowLabel)
	assert.Equal(t, 1200.0, detail.Payment.Amount)

	_, err = env.tickets.GetBooking(ctx, env.admin, uuid.New())
	assert.True(t, models.IsNotFound(err))
}

func TestTicketService_Listings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 600, 96*time.Hour)
	other := env.seedUser(t, "Other", models.RoleClient)

	env.book(t, env.client, schedule.ID, "A1", "A2")
	env.clock.Advance(time.Minute)
	env.book(t, other, schedule.ID, "B1")

	mine, err := env.tickets.ListMyBookings(ctx, env.client, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
	assert.Equal(t, models.DefaultLimit, mine.Limit)
	for _, b := range mine.Bookings {
		assert.Equal(t, env.client.UserID, b.UserID)
	}

	_, err = env.tickets.ListBookings(ctx, env.client, models.BookingFilter{})
	assert.True(t, models.IsForbidden(err))

	bogus := models.BookingStatus("PAID")
	_, err = env.tickets.ListBookings(ctx, env.admin, models.BookingFilter{Status: &bogus})
	assert.True(t, models.IsValidation(err))

	page, err := env.tickets.ListBookings(ctx, env.admin, models.BookingFilter{ScheduleID: &schedule.ID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Bookings, 2)
	assert.Equal(t, "B1", page.Bookings[0].SeatNumber, "newest first")
}
