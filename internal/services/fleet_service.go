package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
)

// FleetService administers routes, buses and schedules
type FleetService struct {
	store  database.Store
	audit  *AuditService
	seats  *SeatInventoryService
	logger *logrus.Logger
	now    Clock
}

func NewFleetService(store database.Store, audit *AuditService, seats *SeatInventoryService, logger *logrus.Logger, now Clock) *FleetService {
	return &FleetService{
		store:  store,
		audit:  audit,
		seats:  seats,
		logger: logger,
		now:    now.orSystem(),
	}
}

func normalizeRoute(req models.RouteRequest) (models.RouteRequest, error) {
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	req.Name = strings.TrimSpace(req.Name)
	if req.Origin == "" || req.Destination == "" {
		return req, models.ValidationError{Field: "origin", Msg: "origin and destination are required"}
	}
	if strings.EqualFold(req.Origin, req.Destination) {
		return req, models.ValidationError{Field: "destination", Msg: "must differ from origin"}
	}
	if req.Name == "" {
		req.Name = req.Origin + " - " + req.Destination
	}
	return req, nil
}

func (s *FleetService) CreateRoute(ctx context.Context, actor models.Actor, req models.RouteRequest) (*models.Route, error) {
	if err := authz.Authorize(actor, authz.ManageFleet, authz.Resource{}); err != nil {
		return nil, err
	}
	req, err := normalizeRoute(req)
	if err != nil {
		return nil, err
	}

	route := &models.Route{Origin: req.Origin, Destination: req.Destination, Name: req.Name, CreatedAt: s.now()}
	err = s.store.WithTx(ctx, func(q database.Querier) error {
		if err := q.CreateRoute(ctx, route); err != nil {
			return err
		}
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditRouteCreate, EntityType: "route", EntityID: route.ID.String(), After: route,
		})
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (s *FleetService) UpdateRoute(ctx context.Context, actor models.Actor, id uuid.UUID, req models.RouteRequest) (*models.Route, error) {
	if err := authz.Authorize(actor, authz.ManageFleet, authz.Resource{}); err != nil {
		return nil, err
	}
	req, err := normalizeRoute(req)
	if err != nil {
		return nil, err
	}

	var route *models.Route
	err = s.store.WithTx(ctx, func(q database.Querier) error {
		current, err := q.GetRouteByID(ctx, id)
		if err != nil {
			return err
		}
		before := *current
		current.Origin, current.Destination, current.Name = req.Origin, req.Destination, req.Name
		if err := q.UpdateRoute(ctx, current); err != nil {
			return err
		}
		route = current
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditRouteUpdate, EntityType: "route", EntityID: id.String(), Before: before, After: current,
		})
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// DeleteRoute removes a route no schedule references
func (s *FleetService) DeleteRoute(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ManageFleet, authz.Resource{}); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(q database.Querier) error {
		current, err := q.GetRouteByID(ctx, id)
		if err != nil {
			return err
		}
		if err := q.DeleteRoute(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditRouteDelete, EntityType: "route", EntityID: id.String(), Before: current,
		})
	})
}

func normalizeBus(req models.BusRequest) (models.BusRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.LayoutType = strings.TrimSpace(req.LayoutType)
	if req.Name == "" {
		return req, models.ValidationError{Field: "name", Msg: "is required"}
	}
	return req, ValidateBusLayout(req.LayoutType, req.SeatCount)
}

func (s *FleetService) CreateBus(ctx context.Context, actor models.Actor, req models.BusRequest) (*models.Bus, error) {
	if err := authz.Authorize(actor, authz.ManageFleet, authz.Resource{}); err != nil {
		return nil, err
	}
	req, err := normalizeBus(req)
	if err != nil {
		return nil, err
	}

	bus := &models.Bus{Name: req.Name, LayoutType: req.LayoutType, SeatCount: req.SeatCount, CreatedAt: s.now()}
	err = s.store.WithTx(ctx, func(q database.Querier) error {
		if err := q.CreateBus(ctx, bus); err != nil {
			return err
		}
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditBusCreate, EntityType: "bus", EntityID: bus.ID.String(), After: bus,
		})
	})
	if err != nil {
		return nil, err
	}
	return bus, nil
}

// UpdateBus changes a bus. Existing seat maps keep their layout until regenerated.
func (s *FleetService) UpdateBus(ctx context.Context, actor models.Actor, id uuid.UUID, req models.BusRequest) (*models.Bus, error) {
	if err := authz.Authorize(actor, authz.ManageFleet, authz.Resource{}); err != nil {
		return nil, err
	}
	req, err := normalizeBus(req)
	if err != nil {
		return nil, err
	}

	var bus *models.Bus
	err = s.store.WithTx(ctx, func(q database.Querier) error {
		current, err := q.GetBusByID(ctx, id)
		if err != nil {
			return err
		}
		before := *current
		current.Name, current.LayoutType, current.SeatCount = req.Name, req.LayoutType, req.SeatCount
		if err := q.UpdateBus(ctx, current); err != nil {
			return err
		}
		bus = current
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditBusUpdate, EntityType: "bus", EntityID: id.String(), Before: before, After: current,
		})
	})
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func (s *FleetService) DeleteBus(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ManageFleet, authz.Resource{}); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(q database.Querier) error {
		current, err := q.GetBusByID(ctx, id)
		if err != nil {
			return err
		}
		if err := q.DeleteBus(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, q, AuditEntry{
			Actor: &actor, Action: AuditBusDelete, EntityType: "bus", EntityID: id.String(), Before: current,
		})
	})
}

// CreateSchedule adds a departure and materializes its seat map in the same transaction
func (s *FleetService) CreateSchedule(ctx context.Context, actor models.Actor, req models.CreateScheduleRequest) (*models.ScheduleDetail, error) {
	if err := authz.Authorize(actor, authz.ManageFleet, authz.Resource{}); err != nil {
		return nil, err
	}
	now := s.now()
	if req.Fare < 0 {
		return nil, models.ValidationError{Field: "fare", Msg: "must not be negative"}
	}
	if !req.DepartureAt.After(now) {
		return nil, models.ValidationError{Field: "departure_at", Msg: "must be in the future"}
	}

	var detail *models.ScheduleDetail
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		if _, err := q.GetRouteByID(ctx, req.RouteID); err != nil {
			return err
		}
		if _, err := q.GetBusByID(ctx, req.BusID); err != nil {
			return err
		}

		schedule := &models.Schedule{
			RouteID:     req.RouteID,
			BusID:       req.BusID,
			DepartureAt: req.DepartureAt,
			Fare:        models.RoundMoney(req.Fare),
			IsReturn:    req.IsReturn,
			CreatedAt:   now,
		}
		if err := q.CreateSchedule(ctx, schedule); err != nil {
			return err
		}
		seats, err := s.seats.generateInTx(ctx, q, schedule)
		if err != nil {
			return err
		}

		if err := s.audit.Record(ctx, q, AuditEntry{
			Actor:      &actor,
			Action:     AuditScheduleCreate,
			EntityType: "schedule",
			EntityID:   schedule.ID.String(),
			After:      schedule,
			Details:    map[string]interface{}{"seats": len(seats)},
		}); err != nil {
			return err
		}

		detail, err = q.GetScheduleDetail(ctx, schedule.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": detail.ID,
		"departure":   detail.DepartureAt,
		"seats":       detail.AvailableSeats,
	}).Info("Schedule created")
	return detail, nil
}

func (s *FleetService) GetSchedule(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.ScheduleDetail, error) {
	if err := authz.Authorize(actor, authz.ViewSchedule, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.store.GetScheduleDetail(ctx, id)
}
