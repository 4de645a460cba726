package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a booker or an operator of the system
type User struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     *string    `json:"email,omitempty" db:"email"`
	Phone     *string    `json:"phone,omitempty" db:"phone"`
	Role      Role       `json:"role" db:"role"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateUserRequest is the admin payload for creating a user
type CreateUserRequest struct {
	Name  string  `json:"name" binding:"required"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Role  Role    `json:"role" binding:"required"`
}

// UpdateUserRequest carries the fields an admin may change
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Role  *Role   `json:"role"`
}

// Actor is the authenticated caller of an operation.
// A nil *Actor denotes the system (cron jobs).
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	IPAddress string
	UserAgent string
}
