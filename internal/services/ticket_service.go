package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/utils"
)

const ticketNumberAttempts = 10

// TicketService issues ticket numbers and assembles ticket views
type TicketService struct {
	store  database.Store
	logger *logrus.Logger
}

func NewTicketService(store database.Store, logger *logrus.Logger) *TicketService {
	return &TicketService{store: store, logger: logger}
}

// newTicketNumber returns an unused TK-YYYYMMDD-XXXXXX number. The unique
// index on tickets still guards against a concurrent duplicate.
func (s *TicketService) newTicketNumber(ctx context.Context, q database.Querier, now time.Time) (string, error) {
	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		code, err := utils.RandomCode(6)
		if err != nil {
			return "", err
		}
		number := fmt.Sprintf("TK-%s-%s", now.Format("20060102"), code)

		exists, err := q.TicketNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique ticket number after %d attempts", ticketNumberAttempts)
}

// newQRPayload returns the string encoded in a ticket's QR code
func newQRPayload(now time.Time) (string, error) {
	code, err := utils.RandomCode(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QR-%s-%s", now.Format("20060102150405"), code), nil
}

// detail loads everything shown on a ticket through q
func (s *TicketService) detail(ctx context.Context, q database.Querier, t *models.Ticket) (*models.TicketDetail, error) {
	schedule, err := q.GetScheduleDetail(ctx, t.ScheduleID)
	if err != nil {
		return nil, err
	}
	bookings, err := q.ListBookingsByTicket(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	seats, err := seatIndex(ctx, q, t.ScheduleID)
	if err != nil {
		return nil, err
	}
	payment, err := q.GetPaymentByTicket(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	lines := make([]models.BookingLine, 0, len(bookings))
	for _, b := range bookings {
		lines = append(lines, models.BookingLine{Booking: b, Seat: seatFor(seats, b.SeatID)})
	}

	return &models.TicketDetail{
		Ticket:   *t,
		Schedule: *schedule,
		Bookings: lines,
		Payment:  payment,
	}, nil
}

func seatIndex(ctx context.Context, q database.Querier, scheduleID uuid.UUID) (map[uuid.UUID]models.Seat, error) {
	seats, err := q.ListSeats(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]models.Seat, len(seats))
	for _, seat := range seats {
		index[seat.ID] = seat
	}
	return index, nil
}

func seatFor(index map[uuid.UUID]models.Seat, id *uuid.UUID) *models.Seat {
	if id == nil {
		return nil
	}
	if seat, ok := index[*id]; ok {
		return &seat
	}
	return nil
}

// GetTicket returns a ticket with all member bookings
func (s *TicketService) GetTicket(ctx context.Context, actor models.Actor, ticketNumber string) (*models.TicketDetail, error) {
	if err := authz.Authorize(actor, authz.ViewTicket, authz.Resource{}); err != nil {
		return nil, err
	}
	t, err := s.store.GetTicketByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, s.store, t)
}

// GetBooking returns one booking with its ticket context
func (s *TicketService) GetBooking(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.BookingDetail, error) {
	if err := authz.Authorize(actor, authz.ViewBooking, authz.Resource{}); err != nil {
		return nil, err
	}
	b, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTicketByID(ctx, b.TicketID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.store.GetScheduleDetail(ctx, b.ScheduleID)
	if err != nil {
		return nil, err
	}
	seats, err := seatIndex(ctx, s.store, b.ScheduleID)
	if err != nil {
		return nil, err
	}
	payment, err := s.store.GetPaymentByTicket(ctx, b.TicketID)
	if err != nil {
		return nil, err
	}

	return &models.BookingDetail{
		BookingLine:  models.BookingLine{Booking: *b, Seat: seatFor(seats, b.SeatID)},
		TicketNumber: t.TicketNumber,
		Schedule:     *schedule,
		Payment:      payment,
	}, nil
}

// ListMyBookings pages through the caller's own bookings
func (s *TicketService) ListMyBookings(ctx context.Context, actor models.Actor, page, limit int) (*models.PaginatedBookings, error) {
	if err := authz.Authorize(actor, authz.ViewOwnBookings, authz.Resource{}); err != nil {
		return nil, err
	}
	userID := actor.UserID
	return s.list(ctx, models.BookingFilter{UserID: &userID, Page: page, Limit: limit})
}

// ListBookings pages through all bookings matching filter
func (s *TicketService) ListBookings(ctx context.Context, actor models.Actor, filter models.BookingFilter) (*models.PaginatedBookings, error) {
	if err := authz.Authorize(actor, authz.ListBookings, authz.Resource{}); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, models.ValidationError{Field: "status", Msg: "must be BOOKED, CANCELLED or COMPLETED"}
	}
	return s.list(ctx, filter)
}

func (s *TicketService) list(ctx context.Context, filter models.BookingFilter) (*models.PaginatedBookings, error) {
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	bookings, total, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return &models.PaginatedBookings{
		Bookings:   bookings,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: models.TotalPages(total, filter.Limit),
	}, nil
}
