package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// AuditLogRepository appends and reads audit logs. Rows are append-only and
// the table trigger rejects UPDATE and DELETE.
type AuditLogRepository struct {
	db sqlx.ExtContext
}

func NewAuditLogRepository(db sqlx.ExtContext) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) InsertAuditLog(ctx context.Context, l *models.AuditLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	err := sqlx.GetContext(ctx, r.db, &l.ID, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, before, after,
			reason, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		l.UserID, l.Action, l.EntityType, l.EntityID, l.Before, l.After,
		l.Reason, l.IPAddress, l.UserAgent, l.Details, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns one page of audit logs, newest first
func (r *AuditLogRepository) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int64, error) {
	var conditions []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}
	if filter.FromDate != nil {
		add("created_at >= $%d", *filter.FromDate)
	}
	if filter.ToDate != nil {
		add("created_at < $%d", *filter.ToDate)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT id, user_id, action, entity_type, entity_id, before, after, reason,
			ip_address, user_agent, details, created_at
		FROM audit_logs%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	logs := []models.AuditLog{}
	if err := sqlx.SelectContext(ctx, r.db, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
