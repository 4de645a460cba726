package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new user repository
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, phone, role, created_at, updated_at, deleted_at`

// CreateUser inserts a user, assigning id and timestamps when unset
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.UpdatedAt = u.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	return classify(err, "user")
}

// GetUserByID returns a non-deleted user
func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, r.db, &u,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, notFound(err, "user", id.String())
	}
	return &u, nil
}

// UpdateUser persists name, contact and role
func (r *UserRepository) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3, phone = $4, role = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL`,
		u.ID, u.Name, u.Email, u.Phone, u.Role, u.UpdatedAt,
	)
	if err != nil {
		return classify(err, "user")
	}
	return requireOneRow(res, "user", u.ID.String())
}

// SoftDeleteUser marks the user deleted
func (r *UserRepository) SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return classify(err, "user")
	}
	return requireOneRow(res, "user", id.String())
}
