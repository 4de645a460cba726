package database

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewPostgresStore(db, logger), mock
}

func TestWithTx_SeatConflictRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	seatID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE seats SET is_booked = TRUE(.+)RETURNING id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(seatID.String()))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_active_seat"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(q Querier) error {
		if _, err := q.MarkSeatsBooked(context.Background(), []uuid.UUID{seatID}); err != nil {
			return err
		}
		return q.CreateBooking(context.Background(), &models.Booking{
			TicketID:   uuid.New(),
			ScheduleID: uuid.New(),
			SeatID:     &seatID,
			SeatNumber: "C4",
			Status:     models.BookingStatusBooked,
		})
	})

	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, "C4", models.ConflictSeat(err))
	requireExpectations(t, mock)
}

func TestWithTx_Commits(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE seats SET is_booked = FALSE(.+)WHERE id = \$1 AND is_booked = TRUE`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(q Querier) error {
		_, err := q.ReleaseSeat(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	requireExpectations(t, mock)
}
