package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// RouteRepository handles route database operations
type RouteRepository struct {
	db sqlx.ExtContext
}

func NewRouteRepository(db sqlx.ExtContext) *RouteRepository {
	return &RouteRepository{db: db}
}

func (r *RouteRepository) CreateRoute(ctx context.Context, route *models.Route) error {
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}
	if route.CreatedAt.IsZero() {
		route.CreatedAt = time.Now()
	}
	route.UpdatedAt = route.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO routes (id, origin, destination, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		route.ID, route.Origin, route.Destination, route.Name, route.CreatedAt, route.UpdatedAt,
	)
	return classify(err, "route")
}

func (r *RouteRepository) GetRouteByID(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	var route models.Route
	err := sqlx.GetContext(ctx, r.db, &route, `
		SELECT id, origin, destination, name, created_at, updated_at
		FROM routes WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "route", id.String())
	}
	return &route, nil
}

func (r *RouteRepository) UpdateRoute(ctx context.Context, route *models.Route) error {
	route.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE routes SET origin = $2, destination = $3, name = $4, updated_at = $5
		WHERE id = $1`,
		route.ID, route.Origin, route.Destination, route.Name, route.UpdatedAt,
	)
	if err != nil {
		return classify(err, "route")
	}
	return requireOneRow(res, "route", route.ID.String())
}

// DeleteRoute fails with a ConflictError while schedules reference the route
func (r *RouteRepository) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return classify(err, "route")
	}
	return requireOneRow(res, "route", id.String())
}
