package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/validator"
)

// UserService lets admins manage user records
type UserService struct {
	store  database.Store
	audit  *AuditService
	phones *validator.PhoneValidator
	now    Clock
}

func NewUserService(store database.Store, audit *AuditService, now Clock) *UserService {
	return &UserService{
		store:  store,
		audit:  audit,
		phones: validator.NewPhoneValidator(),
		now:    now.orSystem(),
	}
}

func (s *UserService) normalize(u *models.User) error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return models.ValidationError{Field: "name", Msg: "is required"}
	}
	if !u.Role.Valid() {
		return models.ValidationError{Field: "role", Msg: "must be CLIENT, ADMIN or SUPERADMIN"}
	}
	if u.Phone != nil {
		canonical, err := s.phones.Validate(*u.Phone)
		if err != nil {
			return models.ValidationError{Field: "phone", Msg: err.Error()}
		}
		u.Phone = &canonical
	}
	if u.Email != nil {
		email := strings.TrimSpace(*u.Email)
		if err := validator.ValidateEmail(email); err != nil {
			return models.ValidationError{Field: "email", Msg: err.Error()}
		}
		u.Email = &email
	}
	return nil
}

// guardRole stops admins from granting or touching SUPERADMIN accounts
func guardRole(actor models.Actor, role models.Role) error {
	if role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return models.ForbiddenError{Msg: "only a SUPERADMIN may manage SUPERADMIN accounts"}
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, actor models.Actor, req models.CreateUserRequest) (*models.User, error) {
	if err := authz.Authorize(actor, authz.ManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}
	u := &models.User{Name: req.Name, Email: req.Email, Phone: req.Phone, Role: req.Role, CreatedAt: s.now()}
	if err := s.normalize(u); err != nil {
		return nil, err
	}
	if err := guardRole(actor, u.Role); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(q database.Querier) error {
		if err := q.CreateUser(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditUserCreate, EntityType: "user", EntityID: u.ID.String(), After: u,
		})
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actor models.Actor, id uuid.UUID, req models.UpdateUserRequest) (*models.User, error) {
	if err := authz.Authorize(actor, authz.ManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		current, err := q.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if err := guardRole(actor, current.Role); err != nil {
			return err
		}
		before := *current

		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.Email != nil {
			current.Email = req.Email
		}
		if req.Phone != nil {
			current.Phone = req.Phone
		}
		if req.Role != nil {
			if err := guardRole(actor, *req.Role); err != nil {
				return err
			}
			current.Role = *req.Role
		}
		if err := s.normalize(current); err != nil {
			return err
		}

		if err := q.UpdateUser(ctx, current); err != nil {
			return err
		}
		user = current
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditUserUpdate, EntityType: "user", EntityID: id.String(), Before: before, After: current,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser soft-deletes a user; their bookings stay untouched
func (s *UserService) DeleteUser(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.DeleteUser, authz.Resource{}); err != nil {
		return err
	}
	if id == actor.UserID {
		return models.ConflictError{Resource: "user", Msg: "you cannot delete your own account"}
	}

	return s.store.WithTx(ctx, func(q database.Querier) error {
		current, err := q.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if err := q.SoftDeleteUser(ctx, id, s.now()); err != nil {
			return err
		}
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditUserDelete, EntityType: "user", EntityID: id.String(), Before: current,
		})
	})
}
