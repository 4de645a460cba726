package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/booking-engine/internal/models"
)

// SeatRepository handles seat inventory database operations
type SeatRepository struct {
	db sqlx.ExtContext
}

func NewSeatRepository(db sqlx.ExtContext) *SeatRepository {
	return &SeatRepository{db: db}
}

const seatColumns = `id, schedule_id, seat_number, row_label, col_index, side,
	is_window, is_aisle, is_booked, version, created_at, updated_at`

// InsertSeats bulk-inserts a generated seat map
func (r *SeatRepository) InsertSeats(ctx context.Context, seats []models.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	now := time.Now()
	for i := range seats {
		if seats[i].ID == uuid.Nil {
			seats[i].ID = uuid.New()
		}
		if seats[i].CreatedAt.IsZero() {
			seats[i].CreatedAt = now
		}
		seats[i].UpdatedAt = seats[i].CreatedAt
		if seats[i].Version == 0 {
			seats[i].Version = 1
		}
	}

	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO seats (id, schedule_id, seat_number, row_label, col_index, side,
			is_window, is_aisle, is_booked, version, created_at, updated_at)
		VALUES (:id, :schedule_id, :seat_number, :row_label, :col_index, :side,
			:is_window, :is_aisle, :is_booked, :version, :created_at, :updated_at)`, seats)
	if err != nil {
		return classify(err, "seat")
	}
	return nil
}

func (r *SeatRepository) ListSeats(ctx context.Context, scheduleID uuid.UUID) ([]models.Seat, error) {
	var seats []models.Seat
	err := sqlx.SelectContext(ctx, r.db, &seats, `
		SELECT `+seatColumns+` FROM seats
		WHERE schedule_id = $1
		ORDER BY LENGTH(row_label), row_label, col_index`, scheduleID)
	if err != nil {
		return nil, classify(err, "seat")
	}
	return seats, nil
}

// LockSeatsByNumbers write-locks the requested seats ordered by seat number
// so concurrent callers acquire locks in the same order.
func (r *SeatRepository) LockSeatsByNumbers(ctx context.Context, scheduleID uuid.UUID, numbers []string) ([]models.Seat, error) {
	var seats []models.Seat
	err := sqlx.SelectContext(ctx, r.db, &seats, `
		SELECT `+seatColumns+` FROM seats
		WHERE schedule_id = $1 AND seat_number = ANY($2)
		ORDER BY seat_number
		FOR UPDATE`, scheduleID, pq.Array(numbers))
	if err != nil {
		return nil, classify(err, "seat")
	}
	return seats, nil
}

// MarkSeatsBooked flips available seats to booked and returns the ids it
// flipped. Seats booked in the meantime are left out.
func (r *SeatRepository) MarkSeatsBooked(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var flipped []uuid.UUID
	err := sqlx.SelectContext(ctx, r.db, &flipped, `
		UPDATE seats SET is_booked = TRUE, version = version + 1, updated_at = NOW()
		WHERE id = ANY($1::uuid[]) AND is_booked = FALSE
		RETURNING id`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, classify(err, "seat")
	}
	return flipped, nil
}

// ReleaseSeat makes one booked seat available again
func (r *SeatRepository) ReleaseSeat(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE seats SET is_booked = FALSE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND is_booked = TRUE`, id)
	if err != nil {
		return 0, classify(err, "seat")
	}
	return res.RowsAffected()
}

// ReleaseAllSeats force-releases every seat of a schedule
func (r *SeatRepository) ReleaseAllSeats(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE seats SET is_booked = FALSE, version = version + 1, updated_at = NOW()
		WHERE schedule_id = $1 AND is_booked = TRUE`, scheduleID)
	if err != nil {
		return 0, classify(err, "seat")
	}
	return res.RowsAffected()
}

func (r *SeatRepository) DeleteSeats(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM seats WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return 0, classify(err, "seat")
	}
	return res.RowsAffected()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
