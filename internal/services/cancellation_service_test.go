package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelBooking_FeeTiers(t *testing.T) {
	cases := []struct {
		name          string
		departsIn     time.Duration
		paid          bool
		wantFee       float64
		wantRefund    float64
		wantPayStatus models.PaymentStatus
	}{
		{"free above 72h", 100 * time.Hour, true, 0, 1000, models.PaymentStatusRefunded},
		{"exactly 72h", 72 * time.Hour, true, 0, 1000, models.PaymentStatusRefunded},
		{"ten percent above 24h", 48 * time.Hour, true, 100, 900, models.PaymentStatusRefunded},
		{"late tier with flat fee", 5 * time.Hour, true, 300, 700, models.PaymentStatusRefunded},
		{"unpaid owes nothing", 5 * time.Hour, false, 0, 0, models.PaymentStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			schedule := env.seedSchedule(t, "2/2", 8, 1000, tc.departsIn)
			ticket := env.book(t, env.client, schedule.ID, "A1")
			if tc.paid {
				env.pay(t, ticket.TicketNumber)
			}

			b, err := env.cancellations.CancelBooking(context.Background(), env.client, ticket.Bookings[0].ID)
			require.NoError(t, err)

			assert.Equal(t, models.BookingStatusCancelled, b.Status)
			require.NotNil(t, b.CancellationFee)
			require.NotNil(t, b.RefundedAmount)
			assert.Equal(t, tc.wantFee, *b.CancellationFee)
			assert.Equal(t, tc.wantRefund, *b.RefundedAmount)
			require.NotNil(t, b.CancelledBy)
			assert.Equal(t, env.client.UserID, *b.CancelledBy)

			data := env.store.snapshot()
			seat, _ := data.seatByNumber(schedule.ID, "A1")
			assert.False(t, seat.IsBooked)
			payment := data.paymentOfTicket(ticket.ID)
			assert.Equal(t, tc.wantPayStatus, payment.Status)
			assert.Equal(t, tc.wantRefund, payment.RefundedAmount)

			assert.Equal(t, 1, env.auditCount(AuditBookingCancel))
			assert.Equal(t, 1, env.pub.published(events.BookingCancelled))
		})
	}
}

func TestCancelBooking_PartialTicketKeepsPaymentOpen(t *testing.T) {
	env := newTestEnv(t)
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 48*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1", "A2")
	env.pay(t, ticket.TicketNumber)

	_, err := env.cancellations.CancelBooking(context.Background(), env.client, ticket.Bookings[0].ID)
	require.NoError(t, err)

	data := env.store.snapshot()
	payment := data.paymentOfTicket(ticket.ID)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, 900.0, payment.RefundedAmount)

	bookings := data.bookingsOfTicket(ticket.ID)
	require.Len(t, bookings, 2)
	assert.Equal(t, models.BookingStatusCancelled, bookings[0].Status)
	assert.Equal(t, models.BookingStatusBooked, bookings[1].Status)
}

func TestCancelBooking_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 48*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1")
	bookingID := ticket.Bookings[0].ID

	stranger := env.seedUser(t, "Stranger", models.RoleClient)
	_, err := env.cancellations.CancelBooking(ctx, stranger, bookingID)
	assert.True(t, models.IsForbidden(err))

	// admins use the admin path, only the owner or a superadmin cancels here
	_, err = env.cancellations.CancelBooking(ctx, env.admin, bookingID)
	assert.True(t, models.IsForbidden(err))

	_, err = env.cancellations.CancelBooking(ctx, env.client, uuid.New())
	assert.True(t, models.IsNotFound(err))

	_, err = env.cancellations.CancelBooking(ctx, env.superAdmin, bookingID)
	require.NoError(t, err)

	_, err = env.cancellations.CancelBooking(ctx, env.client, bookingID)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, 1, env.auditCount(AuditBookingCancel))
}

func TestCancelBooking_AfterDeparture(t *testing.T) {
	env := newTestEnv(t)
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 2*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1")
	env.clock.Advance(3 * time.Hour)

	_, err := env.cancellations.CancelBooking(context.Background(), env.client, ticket.Bookings[0].ID)
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))

	b := env.store.snapshot().bookings[ticket.Bookings[0].ID]
	assert.Equal(t, models.BookingStatusBooked, b.Status)
}

func TestAdminCancelBooking_FullRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 5*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1")
	env.pay(t, ticket.TicketNumber)

	_, err := env.cancellations.AdminCancelBooking(ctx, env.admin, ticket.Bookings[0].ID, "  ")
	assert.True(t, models.IsValidation(err))

	_, err = env.cancellations.AdminCancelBooking(ctx, env.client, ticket.Bookings[0].ID, "bus broke down")
	assert.True(t, models.IsForbidden(err))

	b, err := env.cancellations.AdminCancelBooking(ctx, env.admin, ticket.Bookings[0].ID, "bus broke down")
	require.NoError(t, err)
	assert.Equal(t, 0.0, *b.CancellationFee)
	assert.Equal(t, 1000.0, *b.RefundedAmount)
	assert.Equal(t, "bus broke down", *b.CancellationReason)

	payment := env.store.snapshot().paymentOfTicket(ticket.ID)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, 1000.0, payment.RefundedAmount)

	logs, err := env.audit.ListAuditLogs(ctx, models.AuditLogFilter{Action: AuditBookingAdminCancel})
	require.NoError(t, err)
	require.Len(t, logs.Data, 1)
	entry := logs.Data[0]
	require.NotNil(t, entry.UserID)
	assert.Equal(t, env.admin.UserID, *entry.UserID)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "bus broke down", *entry.Reason)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "203.0.113.7", *entry.IPAddress)
}

func TestAdminCancelBooking_AuditFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 48*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1")
	env.store.failOn("InsertAuditLog", uuid.Nil, errors.New("disk full"))

	_, err := env.cancellations.AdminCancelBooking(context.Background(), env.admin, ticket.Bookings[0].ID, "duplicate")
	require.Error(t, err)

	data := env.store.snapshot()
	assert.Equal(t, models.BookingStatusBooked, data.bookings[ticket.Bookings[0].ID].Status)
	seat, _ := data.seatByNumber(schedule.ID, "A1")
	assert.True(t, seat.IsBooked)
	assert.Equal(t, models.PaymentStatusPending, data.paymentOfTicket(ticket.ID).Status)
	assert.Equal(t, 0, env.pub.published(events.BookingCancelled))
}

func TestRemoveSeatFromBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 48*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1", "A2", "A3")
	env.pay(t, ticket.TicketNumber)
	anchor := ticket.Bookings[0].ID

	removed, err := env.cancellations.RemoveSeatFromBooking(ctx, env.admin, anchor, "a2")
	require.NoError(t, err)
	assert.Equal(t, "A2", removed.SeatNumber)
	assert.Equal(t, 1000.0, *removed.RefundedAmount)

	data := env.store.snapshot()
	statuses := map[string]models.BookingStatus{}
	for _, b := range data.bookingsOfTicket(ticket.ID) {
		statuses[b.SeatNumber] = b.Status
	}
	assert.Equal(t, map[string]models.BookingStatus{
		"A1": models.BookingStatusBooked,
		"A2": models.BookingStatusCancelled,
		"A3": models.BookingStatusBooked,
	}, statuses)
	seat, _ := data.seatByNumber(schedule.ID, "A2")
	assert.False(t, seat.IsBooked)
	assert.Equal(t, models.PaymentStatusCompleted, data.paymentOfTicket(ticket.ID).Status)

	_, err = env.cancellations.RemoveSeatFromBooking(ctx, env.admin, anchor, "A2")
	assert.True(t, models.IsConflict(err))

	_, err = env.cancellations.RemoveSeatFromBooking(ctx, env.admin, anchor, "B4")
	assert.True(t, models.IsNotFound(err))

	assert.Equal(t, 1, env.auditCount(AuditBookingRemoveSeat))
}

func TestRemoveSeatFromBooking_BeforePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 100*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1", "A2")

	ids := map[string]uuid.UUID{}
	for _, b := range ticket.Bookings {
		ids[b.SeatNumber] = b.ID
	}

	_, err := env.cancellations.RemoveSeatFromBooking(ctx, env.admin, ids["A2"], "A1")
	require.NoError(t, err)
	payment := env.store.snapshot().paymentOfTicket(ticket.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, 1000.0, payment.Amount, "the removed seat is no longer owed")

	env.pay(t, ticket.TicketNumber)
	assert.Equal(t, 1000.0, env.store.snapshot().paymentOfTicket(ticket.ID).Amount)

	b, err := env.cancellations.AdminCancelBooking(ctx, env.admin, ids["A2"], "route closed")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, *b.RefundedAmount)

	payment = env.store.snapshot().paymentOfTicket(ticket.ID)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, payment.Amount, payment.RefundedAmount, "everything captured is returned")
}

func TestUpdateBookingStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 48*time.Hour)
	ticket := env.book(t, env.client, schedule.ID, "A1", "A2")
	env.pay(t, ticket.TicketNumber)
	first, second := ticket.Bookings[0].ID, ticket.Bookings[1].ID

	_, err := env.cancellations.UpdateBookingStatus(ctx, env.admin, first, models.BookingStatusCompleted, "")
	assert.True(t, models.IsValidation(err))

	_, err = env.cancellations.UpdateBookingStatus(ctx, env.admin, first, "LOST", "typo")
	assert.True(t, models.IsValidation(err))

	_, err = env.cancellations.UpdateBookingStatus(ctx, env.admin, first, models.BookingStatusBooked, "noop")
	assert.True(t, models.IsConflict(err))

	done, err := env.cancellations.UpdateBookingStatus(ctx, env.admin, first, models.BookingStatusCompleted, "boarded")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = env.cancellations.UpdateBookingStatus(ctx, env.admin, first, models.BookingStatusCancelled, "undo")
	assert.True(t, models.IsConflict(err), "terminal bookings do not move")

	cancelled, err := env.cancellations.UpdateBookingStatus(ctx, env.admin, second, models.BookingStatusCancelled, "no show")
	require.NoError(t, err)
	assert.Equal(t, 0.0, *cancelled.CancellationFee)
	assert.Equal(t, 0.0, *cancelled.RefundedAmount)

	data := env.store.snapshot()
	seat, _ := data.seatByNumber(schedule.ID, "A2")
	assert.False(t, seat.IsBooked)
	// one booking is COMPLETED, so the payment stays settled
	assert.Equal(t, models.PaymentStatusCompleted, data.paymentOfTicket(ticket.ID).Status)

	assert.Equal(t, 2, env.auditCount(AuditBookingStatusOverride))
	assert.Equal(t, 1, env.pub.published(events.BookingStatusChanged))
	assert.Equal(t, 1, env.pub.published(events.BookingCancelled))
}

func TestCompleteDepartedBookings(t *testing.T) {
	env := newTestEnv(t)
	schedule := env.seedSchedule(t, "2/2", 8, 1000, 2*time.Hour)
	paid := env.book(t, env.client, schedule.ID, "A1")
	unpaid := env.book(t, env.client, schedule.ID, "A2")
	env.pay(t, paid.TicketNumber)

	n, err := env.cancellations.CompleteDepartedBookings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(3 * time.Hour)
	n, err = env.cancellations.CompleteDepartedBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	data := env.store.snapshot()
	assert.Equal(t, models.BookingStatusCompleted, data.bookingsOfTicket(paid.ID)[0].Status)
	assert.Equal(t, models.BookingStatusBooked, data.bookingsOfTicket(unpaid.ID)[0].Status)
}
