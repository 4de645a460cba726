package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db sqlx.ExtContext
}

func NewBookingRepository(db sqlx.ExtContext) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, ticket_id, user_id, schedule_id, seat_id, seat_number,
	passenger_name, passenger_phone, passenger_email, passenger_id_number, fare, status,
	cancellation_fee, refunded_amount, cancellation_reason, cancelled_by, cancelled_at,
	completed_at, version, created_at, updated_at, deleted_at`

// CreateBooking inserts a booking. A second live booking for the same seat
// violates bookings_active_seat and surfaces as a ConflictError naming the seat.
func (r *BookingRepository) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.UpdatedAt = b.CreatedAt
	if b.Version == 0 {
		b.Version = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (id, ticket_id, user_id, schedule_id, seat_id, seat_number,
			passenger_name, passenger_phone, passenger_email, passenger_id_number, fare, status,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		b.ID, b.TicketID, b.UserID, b.ScheduleID, b.SeatID, b.SeatNumber,
		b.PassengerName, b.PassengerPhone, b.PassengerEmail, b.PassengerIDNumber, b.Fare, b.Status,
		b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		err = classify(err, "booking")
		if models.IsConflict(err) {
			return models.ConflictError{Seat: b.SeatNumber, Msg: "seat is already booked", Err: err}
		}
		return err
	}
	return nil
}

func (r *BookingRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := sqlx.GetContext(ctx, r.db, &b,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, notFound(err, "booking", id.String())
	}
	return &b, nil
}

// LockBooking reads the booking under a row lock for a state transition
func (r *BookingRepository) LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := sqlx.GetContext(ctx, r.db, &b,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "booking", id.String())
	}
	return &b, nil
}

func (r *BookingRepository) ListBookingsByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := sqlx.SelectContext(ctx, r.db, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE ticket_id = $1 AND deleted_at IS NULL
		ORDER BY seat_number`, ticketID)
	if err != nil {
		return nil, classify(err, "booking")
	}
	return bookings, nil
}

// LockActiveBookingsBySchedule locks every non-cancelled booking of a schedule
func (r *BookingRepository) LockActiveBookingsBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := sqlx.SelectContext(ctx, r.db, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE schedule_id = $1 AND status <> 'CANCELLED' AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE`, scheduleID)
	if err != nil {
		return nil, classify(err, "booking")
	}
	return bookings, nil
}

// ListBookings returns one page of bookings matching the filter, newest first
func (r *BookingRepository) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int64, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ScheduleID != nil {
		args = append(args, *filter.ScheduleID)
		conditions = append(conditions, fmt.Sprintf("schedule_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, classify(err, "booking")
	}

	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	bookings := []models.Booking{}
	if err := sqlx.SelectContext(ctx, r.db, &bookings, query, args...); err != nil {
		return nil, 0, classify(err, "booking")
	}
	return bookings, total, nil
}

// UpdateBookingState persists a lifecycle transition if the row still has
// expectedVersion. On success b.Version is advanced.
func (r *BookingRepository) UpdateBookingState(ctx context.Context, b *models.Booking, expectedVersion int) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET
			status = $3,
			cancellation_fee = $4,
			refunded_amount = $5,
			cancellation_reason = $6,
			cancelled_by = $7,
			cancelled_at = $8,
			completed_at = $9,
			version = version + 1,
			updated_at = $10
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL`,
		b.ID, expectedVersion, b.Status, b.CancellationFee, b.RefundedAmount,
		b.CancellationReason, b.CancelledBy, b.CancelledAt, b.CompletedAt, now,
	)
	if err != nil {
		return classify(err, "booking")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return staleWrite("booking")
	}
	b.Version = expectedVersion + 1
	b.UpdatedAt = now
	return nil
}

// FindOrphanCandidates lists bookings still holding a seat without a settled
// payment past the cutoff. It takes no locks; callers re-check per row.
func (r *BookingRepository) FindOrphanCandidates(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, r.db, &ids, `
		SELECT b.id
		FROM bookings b
		JOIN payments p ON p.ticket_id = b.ticket_id
		WHERE b.status = 'BOOKED'
		  AND b.deleted_at IS NULL
		  AND p.status IN ('PENDING', 'FAILED')
		  AND b.created_at < $1
		ORDER BY b.created_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, classify(err, "booking")
	}
	return ids, nil
}

// CompleteDepartedBookings moves paid bookings of departed schedules to COMPLETED
func (r *BookingRepository) CompleteDepartedBookings(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings b
		SET status = 'COMPLETED', completed_at = $1, version = b.version + 1, updated_at = $1
		FROM schedules s, payments p
		WHERE s.id = b.schedule_id
		  AND p.ticket_id = b.ticket_id
		  AND b.status = 'BOOKED'
		  AND b.deleted_at IS NULL
		  AND p.status = 'COMPLETED'
		  AND s.departure_at <= $1`, now)
	if err != nil {
		return 0, classify(err, "booking")
	}
	return res.RowsAffected()
}
