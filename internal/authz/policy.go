// Package authz holds the single authorization policy for every operation.
package authz

import (
	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/models"
)

// Action names an operation subject to authorization
type Action string

const (
	CreateBooking        Action = "booking:create"
	ViewOwnBookings      Action = "booking:list_own"
	CancelBooking        Action = "booking:cancel"
	ListBookings         Action = "booking:list"
	ViewBooking          Action = "booking:view"
	ViewTicket           Action = "ticket:view"
	CreateBookingForUser Action = "booking:create_for_user"
	AdminCancelBooking   Action = "booking:admin_cancel"
	UpdateBookingStatus  Action = "booking:update_status"
	RemoveSeat           Action = "booking:remove_seat"
	ResetSeats           Action = "seats:reset"
	CleanupOrphans       Action = "booking:cleanup_orphans"
	RegenerateSeats      Action = "seats:regenerate"
	ViewSchedule         Action = "schedule:view"
	ManageFleet          Action = "fleet:manage"
	ManageUsers          Action = "user:manage"
	DeleteUser           Action = "user:delete"
	UpdatePayment        Action = "payment:update"
	ViewAuditLogs        Action = "audit:view"
	ViewAnalytics        Action = "analytics:view"
)

// Resource describes what an action targets. OwnerID is set for actions
// whose outcome depends on ownership.
type Resource struct {
	OwnerID *uuid.UUID
}

// Owned builds a Resource owned by id
func Owned(id uuid.UUID) Resource {
	return Resource{OwnerID: &id}
}

type rule func(actor models.Actor, res Resource) bool

func anyRole(actor models.Actor, _ Resource) bool {
	return actor.Role.Valid()
}

func adminOnly(actor models.Actor, _ Resource) bool {
	return actor.Role.IsAdmin()
}

func superAdminOnly(actor models.Actor, _ Resource) bool {
	return actor.Role == models.RoleSuperAdmin
}

// ownerOrSuperAdmin lets the owning user (any role) or a SUPERADMIN through.
// Without an OwnerID it only checks that the caller could own something.
func ownerOrSuperAdmin(actor models.Actor, res Resource) bool {
	if actor.Role == models.RoleSuperAdmin {
		return true
	}
	if res.OwnerID == nil {
		return actor.Role.Valid()
	}
	return actor.Role.Valid() && *res.OwnerID == actor.UserID
}

var policy = map[Action]rule{
	CreateBooking:        anyRole,
	ViewOwnBookings:      anyRole,
	ViewSchedule:         anyRole,
	CancelBooking:        ownerOrSuperAdmin,
	ListBookings:         adminOnly,
	ViewBooking:          adminOnly,
	ViewTicket:           adminOnly,
	CreateBookingForUser: adminOnly,
	AdminCancelBooking:   adminOnly,
	UpdateBookingStatus:  adminOnly,
	RemoveSeat:           adminOnly,
	ResetSeats:           adminOnly,
	CleanupOrphans:       adminOnly,
	RegenerateSeats:      adminOnly,
	ManageFleet:          adminOnly,
	ManageUsers:          adminOnly,
	DeleteUser:           superAdminOnly,
	UpdatePayment:        adminOnly,
	ViewAuditLogs:        adminOnly,
	ViewAnalytics:        adminOnly,
}

// Authorize returns a ForbiddenError unless actor may perform action on res.
// Unknown actions are denied.
func Authorize(actor models.Actor, action Action, res Resource) error {
	allowed, ok := policy[action]
	if !ok || !allowed(actor, res) {
		return models.ForbiddenError{Msg: "you don't have permission to perform " + string(action)}
	}
	return nil
}
