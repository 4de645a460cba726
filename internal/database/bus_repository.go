package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// BusRepository handles bus database operations
type BusRepository struct {
	db sqlx.ExtContext
}

func NewBusRepository(db sqlx.ExtContext) *BusRepository {
	return &BusRepository{db: db}
}

func (r *BusRepository) CreateBus(ctx context.Context, bus *models.Bus) error {
	if bus.ID == uuid.Nil {
		bus.ID = uuid.New()
	}
	if bus.CreatedAt.IsZero() {
		bus.CreatedAt = time.Now()
	}
	bus.UpdatedAt = bus.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO buses (id, name, layout_type, seat_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		bus.ID, bus.Name, bus.LayoutType, bus.SeatCount, bus.CreatedAt, bus.UpdatedAt,
	)
	return classify(err, "bus")
}

func (r *BusRepository) GetBusByID(ctx context.Context, id uuid.UUID) (*models.Bus, error) {
	var bus models.Bus
	err := sqlx.GetContext(ctx, r.db, &bus, `
		SELECT id, name, layout_type, seat_count, created_at, updated_at
		FROM buses WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "bus", id.String())
	}
	return &bus, nil
}

// UpdateBus changes the layout for future schedules only; existing seat maps
// change through explicit regeneration.
func (r *BusRepository) UpdateBus(ctx context.Context, bus *models.Bus) error {
	bus.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE buses SET name = $2, layout_type = $3, seat_count = $4, updated_at = $5
		WHERE id = $1`,
		bus.ID, bus.Name, bus.LayoutType, bus.SeatCount, bus.UpdatedAt,
	)
	if err != nil {
		return classify(err, "bus")
	}
	return requireOneRow(res, "bus", bus.ID.String())
}

func (r *BusRepository) DeleteBus(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM buses WHERE id = $1`, id)
	if err != nil {
		return classify(err, "bus")
	}
	return requireOneRow(res, "bus", id.String())
}
