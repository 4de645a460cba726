package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an immutable record of a state change
type AuditLog struct {
	ID         int64      `json:"id" db:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Action     string     `json:"action" db:"action"`
	EntityType string     `json:"entity_type" db:"entity_type"`
	EntityID   *string    `json:"entity_id,omitempty" db:"entity_id"`
	Before     JSONB      `json:"before" db:"before"`
	After      JSONB      `json:"after" db:"after"`
	Reason     *string    `json:"reason,omitempty" db:"reason"`
	IPAddress  *string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string    `json:"user_agent,omitempty" db:"user_agent"`
	Details    JSONB      `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// AuditLogFilter narrows an audit log listing
type AuditLogFilter struct {
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	FromDate   *time.Time
	ToDate     *time.Time
	Page       int
	Limit      int
}

// PaginatedAuditLogs is a page of audit logs with its totals
type PaginatedAuditLogs struct {
	Data       []AuditLog `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

// Page defaults shared by paginated listings
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// NormalizePage applies the listing defaults and caps
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// TotalPages computes the page count for total rows at the given limit
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
