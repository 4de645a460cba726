package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// ScheduleRepository handles schedule database operations
type ScheduleRepository struct {
	db sqlx.ExtContext
}

func NewScheduleRepository(db sqlx.ExtContext) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, route_id, bus_id, departure_at, fare, is_return, created_at, updated_at`

func (r *ScheduleRepository) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = s.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, route_id, bus_id, departure_at, fare, is_return, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.RouteID, s.BusID, s.DepartureAt, s.Fare, s.IsReturn, s.CreatedAt, s.UpdatedAt,
	)
	return classify(err, "schedule")
}

func (r *ScheduleRepository) GetScheduleByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var s models.Schedule
	err := sqlx.GetContext(ctx, r.db, &s, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "schedule", id.String())
	}
	return &s, nil
}

// LockSchedule takes a row lock that still lets bookings reference the
// schedule (FOR NO KEY UPDATE does not block the foreign-key share lock).
func (r *ScheduleRepository) LockSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var s models.Schedule
	err := sqlx.GetContext(ctx, r.db, &s,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1 FOR NO KEY UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "schedule", id.String())
	}
	return &s, nil
}

// ShareLockSchedule blocks seat map rebuilds (LockSchedule) while letting
// concurrent bookers on the same schedule proceed.
func (r *ScheduleRepository) ShareLockSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var s models.Schedule
	err := sqlx.GetContext(ctx, r.db, &s,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1 FOR SHARE`, id)
	if err != nil {
		return nil, notFound(err, "schedule", id.String())
	}
	return &s, nil
}

type scheduleDetailRow struct {
	models.Schedule
	RouteOrigin      string    `db:"route_origin"`
	RouteDestination string    `db:"route_destination"`
	RouteName        string    `db:"route_name"`
	RouteCreatedAt   time.Time `db:"route_created_at"`
	RouteUpdatedAt   time.Time `db:"route_updated_at"`
	BusName          string    `db:"bus_name"`
	BusLayoutType    string    `db:"bus_layout_type"`
	BusSeatCount     int       `db:"bus_seat_count"`
	BusCreatedAt     time.Time `db:"bus_created_at"`
	BusUpdatedAt     time.Time `db:"bus_updated_at"`
	AvailableSeats   int       `db:"available_seats"`
}

// GetScheduleDetail returns the schedule with its route, bus and free seat count
func (r *ScheduleRepository) GetScheduleDetail(ctx context.Context, id uuid.UUID) (*models.ScheduleDetail, error) {
	var row scheduleDetailRow
	err := sqlx.GetContext(ctx, r.db, &row, `
		SELECT s.id, s.route_id, s.bus_id, s.departure_at, s.fare, s.is_return, s.created_at, s.updated_at,
			rt.origin AS route_origin, rt.destination AS route_destination, rt.name AS route_name,
			rt.created_at AS route_created_at, rt.updated_at AS route_updated_at,
			b.name AS bus_name, b.layout_type AS bus_layout_type, b.seat_count AS bus_seat_count,
			b.created_at AS bus_created_at, b.updated_at AS bus_updated_at,
			(SELECT COUNT(*) FROM seats st WHERE st.schedule_id = s.id AND NOT st.is_booked) AS available_seats
		FROM schedules s
		JOIN routes rt ON rt.id = s.route_id
		JOIN buses b ON b.id = s.bus_id
		WHERE s.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "schedule", id.String())
	}

	return &models.ScheduleDetail{
		Schedule: row.Schedule,
		Route: models.Route{
			ID:          row.RouteID,
			Origin:      row.RouteOrigin,
			Destination: row.RouteDestination,
			Name:        row.RouteName,
			CreatedAt:   row.RouteCreatedAt,
			UpdatedAt:   row.RouteUpdatedAt,
		},
		Bus: models.Bus{
			ID:         row.BusID,
			Name:       row.BusName,
			LayoutType: row.BusLayoutType,
			SeatCount:  row.BusSeatCount,
			CreatedAt:  row.BusCreatedAt,
			UpdatedAt:  row.BusUpdatedAt,
		},
		AvailableSeats: row.AvailableSeats,
	}, nil
}
