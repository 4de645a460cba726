package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/utils"
)

// Audit actions written by the engine
const (
	AuditBookingCreateForUser  = "booking.create_for_user"
	AuditBookingCancel         = "booking.cancel"
	AuditBookingAdminCancel    = "booking.admin_cancel"
	AuditBookingStatusOverride = "booking.status_override"
	AuditBookingRemoveSeat     = "booking.remove_seat"
	AuditBookingOrphanRelease  = "booking.orphan_release"
	AuditScheduleResetSeats    = "schedule.reset_seats"
	AuditScheduleRegenerate    = "schedule.regenerate_seats"
	AuditScheduleCreate        = "schedule.create"
	AuditRouteCreate           = "route.create"
	AuditRouteUpdate           = "route.update"
	AuditRouteDelete           = "route.delete"
	AuditBusCreate             = "bus.create"
	AuditBusUpdate             = "bus.update"
	AuditBusDelete             = "bus.delete"
	AuditUserCreate            = "user.create"
	AuditUserUpdate            = "user.update"
	AuditUserDelete            = "user.delete"
	AuditPaymentUpdateStatus   = "payment.update_status"
)

// AuditEntry describes one state change to record.
// A nil Actor records the change as made by the system.
type AuditEntry struct {
	Actor      *models.Actor
	Action     string
	EntityType string
	EntityID   string
	Before     interface{}
	After      interface{}
	Reason     string
	Details    map[string]interface{}
}

// AuditService writes and reads the audit trail
type AuditService struct {
	store  database.Store
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store database.Store, logger *logrus.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger,
	}
}

// Record writes entry through q, the caller's transaction, so the audit row
// commits or rolls back together with the change it describes.
func (s *AuditService) Record(ctx context.Context, q database.Querier, entry AuditEntry) error {
	before, err := models.NewJSONB(entry.Before)
	if err != nil {
		return fmt.Errorf("failed to encode audit before-state: %w", err)
	}
	after, err := models.NewJSONB(entry.After)
	if err != nil {
		return fmt.Errorf("failed to encode audit after-state: %w", err)
	}

	details := make(map[string]interface{}, len(entry.Details)+1)
	for k, v := range entry.Details {
		details[k] = v
	}

	log := &models.AuditLog{
		Action:     entry.Action,
		EntityType: entry.EntityType,
		Before:     before,
		After:      after,
	}
	if entry.EntityID != "" {
		log.EntityID = &entry.EntityID
	}
	if entry.Reason != "" {
		log.Reason = &entry.Reason
	}

	if a := entry.Actor; a != nil {
		userID := a.UserID
		log.UserID = &userID
		if a.IPAddress != "" {
			ip := a.IPAddress
			log.IPAddress = &ip
		}
		if a.UserAgent != "" {
			ua := a.UserAgent
			log.UserAgent = &ua
			details["device_info"] = utils.ParseUserAgent(ua)
		}
		details["actor_role"] = a.Role
	} else {
		details["actor"] = "system"
	}

	if log.Details, err = models.NewJSONB(details); err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	if err := q.InsertAuditLog(ctx, log); err != nil {
		return fmt.Errorf("failed to write audit log %s: %w", entry.Action, err)
	}
	return nil
}

// ListAuditLogs returns audit rows matching filter, newest first
func (s *AuditService) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) (*models.PaginatedAuditLogs, error) {
	if filter.FromDate != nil && filter.ToDate != nil && !filter.FromDate.Before(*filter.ToDate) {
		return nil, models.ValidationError{Field: "from", Msg: "must be before to"}
	}
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)

	logs, total, err := s.store.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedAuditLogs{
		Data:       logs,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: models.TotalPages(total, filter.Limit),
	}, nil
}
