package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/events"
	"github.com/smarttransit/booking-engine/pkg/validator"
)

// BookingServiceConfig wires the booking coordinator
type BookingServiceConfig struct {
	Store     database.Store
	Audit     *AuditService
	Tickets   *TicketService
	Publisher events.Publisher
	Logger    *logrus.Logger
	Now       Clock
}

// BookingService reserves seats and issues tickets, all-or-nothing per ticket
type BookingService struct {
	store     database.Store
	audit     *AuditService
	tickets   *TicketService
	publisher events.Publisher
	phones    *validator.PhoneValidator
	logger    *logrus.Logger
	now       Clock
}

func NewBookingService(cfg BookingServiceConfig) *BookingService {
	return &BookingService{
		store:     cfg.Store,
		audit:     cfg.Audit,
		tickets:   cfg.Tickets,
		publisher: cfg.Publisher,
		phones:    validator.NewPhoneValidator(),
		logger:    cfg.Logger,
		now:       cfg.Now.orSystem(),
	}
}

// leg is one ticket's worth of seats on one schedule
type leg struct {
	userID        uuid.UUID
	scheduleID    uuid.UUID
	booker        models.Booker
	seats         []models.SeatSelection
	linkedTicket  *uuid.UUID
	paymentMethod *models.PaymentMethod
	// audited is set when booking on someone else's behalf
	audited bool
}

// CreateBooking books seats for the caller
func (s *BookingService) CreateBooking(ctx context.Context, actor models.Actor, req models.CreateBookingRequest) (*models.TicketDetail, error) {
	if err := authz.Authorize(actor, authz.CreateBooking, authz.Resource{}); err != nil {
		return nil, err
	}

	l := leg{
		userID:     actor.UserID,
		scheduleID: req.ScheduleID,
		booker:     req.Booker,
		seats:      req.Seats,
	}
	if err := s.validateLeg(&l); err != nil {
		return nil, err
	}
	return s.book(ctx, actor, l)
}

// CreateBookingForUser books on behalf of another user, optionally with a
// return leg. The return leg runs in its own transaction: when it fails the
// onward ticket stands and the result is marked partial.
func (s *BookingService) CreateBookingForUser(ctx context.Context, actor models.Actor, req models.AdminBookingRequest) (*models.AdminBookingResult, error) {
	if err := authz.Authorize(actor, authz.CreateBookingForUser, authz.Resource{}); err != nil {
		return nil, err
	}
	if req.PaymentMethod != nil && !req.PaymentMethod.Valid() {
		return nil, models.ValidationError{Field: "payment_method", Msg: "unknown payment method"}
	}

	onward := leg{
		userID:        req.UserID,
		scheduleID:    req.ScheduleID,
		booker:        req.Booker,
		seats:         req.Seats,
		paymentMethod: req.PaymentMethod,
		audited:       true,
	}
	if err := s.validateLeg(&onward); err != nil {
		return nil, err
	}

	var ret *leg
	if req.ReturnScheduleID != nil {
		if *req.ReturnScheduleID == req.ScheduleID {
			return nil, models.ValidationError{Field: "return_schedule_id", Msg: "must differ from schedule_id"}
		}
		ret = &leg{
			userID:        req.UserID,
			scheduleID:    *req.ReturnScheduleID,
			booker:        req.Booker,
			seats:         req.ReturnSeats,
			paymentMethod: req.PaymentMethod,
			audited:       true,
		}
		if err := s.validateLeg(ret); err != nil {
			return nil, prefixField(err, "return_")
		}
	} else if len(req.ReturnSeats) > 0 {
		return nil, models.ValidationError{Field: "return_schedule_id", Msg: "required when return_seats are given"}
	}

	result := &models.AdminBookingResult{}
	onwardTicket, err := s.book(ctx, actor, onward)
	if err != nil {
		return nil, err
	}
	result.Onward = onwardTicket

	if ret != nil {
		ret.linkedTicket = &onwardTicket.ID
		returnTicket, err := s.book(ctx, actor, *ret)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"onward_ticket":      onwardTicket.TicketNumber,
				"return_schedule_id": ret.scheduleID,
			}).Warn("Return leg failed after onward leg committed")
			result.ReturnError = err.Error()
			result.Partial = true
			return result, nil
		}
		result.Return = returnTicket
	}

	return result, nil
}

// validateLeg checks and normalizes a leg's input
func (s *BookingService) validateLeg(l *leg) error {
	if l.scheduleID == uuid.Nil {
		return models.ValidationError{Field: "schedule_id", Msg: "is required"}
	}
	if len(l.seats) == 0 {
		return models.ValidationError{Field: "seats", Msg: "at least one seat is required"}
	}

	l.booker.Name = strings.TrimSpace(l.booker.Name)
	if l.booker.Name == "" {
		return models.ValidationError{Field: "booker.name", Msg: "is required"}
	}
	if err := s.normalizeContact("booker", &l.booker.Phone, &l.booker.Email); err != nil {
		return err
	}

	seen := make(map[string]bool, len(l.seats))
	for i := range l.seats {
		seat := &l.seats[i]
		seat.SeatNumber = strings.ToUpper(strings.TrimSpace(seat.SeatNumber))
		if seat.SeatNumber == "" {
			return models.ValidationError{Field: "seats.seat_number", Msg: "is required"}
		}
		if seen[seat.SeatNumber] {
			return models.ValidationError{Field: "seats", Msg: "seat " + seat.SeatNumber + " is requested twice"}
		}
		seen[seat.SeatNumber] = true

		seat.Passenger.Name = strings.TrimSpace(seat.Passenger.Name)
		if seat.Passenger.Name == "" {
			return models.ValidationError{Field: "seats.passenger.name", Msg: "is required for seat " + seat.SeatNumber}
		}
		if err := s.normalizeContact("seats.passenger", &seat.Passenger.Phone, &seat.Passenger.Email); err != nil {
			return err
		}
	}
	return nil
}

// normalizeContact validates optional phone and email, rewriting the phone
// to its canonical 10-digit form
func (s *BookingService) normalizeContact(field string, phone, email **string) error {
	if *phone != nil && strings.TrimSpace(**phone) != "" {
		canonical, err := s.phones.Validate(**phone)
		if err != nil {
			return models.ValidationError{Field: field + ".phone", Msg: err.Error()}
		}
		*phone = &canonical
	} else {
		*phone = nil
	}

	if *email != nil && strings.TrimSpace(**email) != "" {
		trimmed := strings.TrimSpace(**email)
		if err := validator.ValidateEmail(trimmed); err != nil {
			return models.ValidationError{Field: field + ".email", Msg: err.Error()}
		}
		*email = &trimmed
	} else {
		*email = nil
	}
	return nil
}

func prefixField(err error, prefix string) error {
	if v, ok := err.(models.ValidationError); ok {
		v.Field = prefix + v.Field
		return v
	}
	return err
}

// book runs one leg in a single transaction
func (s *BookingService) book(ctx context.Context, actor models.Actor, l leg) (*models.TicketDetail, error) {
	now := s.now()

	numbers := make([]string, len(l.seats))
	passengers := make(map[string]models.Passenger, len(l.seats))
	for i, sel := range l.seats {
		numbers[i] = sel.SeatNumber
		passengers[sel.SeatNumber] = sel.Passenger
	}
	sort.Strings(numbers)

	var detail *models.TicketDetail
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		if l.audited {
			if _, err := q.GetUserByID(ctx, l.userID); err != nil {
				return err
			}
		}

		// 1. Schedule must exist and not have left. The share lock keeps a
		// seat map rebuild out until this transaction ends.
		schedule, err := q.ShareLockSchedule(ctx, l.scheduleID)
		if err != nil {
			return err
		}
		if schedule.Departed(now) {
			return models.ConflictError{Resource: "schedule", Msg: "schedule has already departed"}
		}

		// 2. Lock the requested seats in seat-number order
		seats, err := q.LockSeatsByNumbers(ctx, l.scheduleID, numbers)
		if err != nil {
			return err
		}
		byNumber := make(map[string]models.Seat, len(seats))
		for _, seat := range seats {
			byNumber[seat.SeatNumber] = seat
		}

		// 3. Every seat must exist and be free
		ids := make([]uuid.UUID, 0, len(numbers))
		for _, number := range numbers {
			seat, ok := byNumber[number]
			if !ok {
				return models.NotFoundError{Resource: "seat", ID: number}
			}
			if seat.IsBooked {
				return models.ConflictError{Seat: number, Msg: "seat is already booked"}
			}
			ids = append(ids, seat.ID)
		}

		// 4. Flip them; a seat missing from the result was taken by someone else
		flipped, err := q.MarkSeatsBooked(ctx, ids)
		if err != nil {
			return err
		}
		if len(flipped) != len(ids) {
			return models.ConflictError{Seat: firstUnflipped(numbers, byNumber, flipped), Msg: "seat is already booked"}
		}

		// 5. Ticket
		number, err := s.tickets.newTicketNumber(ctx, q, now)
		if err != nil {
			return err
		}
		qr, err := newQRPayload(now)
		if err != nil {
			return err
		}
		ticket := &models.Ticket{
			TicketNumber:   number,
			QRPayload:      &qr,
			UserID:         l.userID,
			ScheduleID:     l.scheduleID,
			LinkedTicketID: l.linkedTicket,
			BookerName:     l.booker.Name,
			BookerPhone:    l.booker.Phone,
			BookerEmail:    l.booker.Email,
			CreatedBy:      actor.UserID,
			CreatedAt:      now,
		}
		if err := q.CreateTicket(ctx, ticket); err != nil {
			return err
		}

		// 6. One booking per seat
		for _, seatNumber := range numbers {
			seat := byNumber[seatNumber]
			seatID := seat.ID
			p := passengers[seatNumber]
			b := &models.Booking{
				TicketID:          ticket.ID,
				UserID:            l.userID,
				ScheduleID:        l.scheduleID,
				SeatID:            &seatID,
				SeatNumber:        seatNumber,
				PassengerName:     p.Name,
				PassengerPhone:    p.Phone,
				PassengerEmail:    p.Email,
				PassengerIDNumber: p.IDNumber,
				Fare:              schedule.Fare,
				Status:            models.BookingStatusBooked,
				CreatedAt:         now,
			}
			if err := q.CreateBooking(ctx, b); err != nil {
				return err
			}
		}

		// 7. Payment hold
		payment := &models.Payment{
			TicketID: ticket.ID,
			Amount:   models.RoundMoney(schedule.Fare * float64(len(numbers))),
			Method:   l.paymentMethod,
			Status:   models.PaymentStatusPending,
		}
		if err := q.CreatePayment(ctx, payment); err != nil {
			return err
		}

		// 8. Admin bookings are audited
		if l.audited {
			err := s.audit.Record(ctx, q, AuditEntry{
				Actor:      &actor,
				Action:     AuditBookingCreateForUser,
				EntityType: "ticket",
				EntityID:   ticket.ID.String(),
				After: map[string]interface{}{
					"ticket_number": ticket.TicketNumber,
					"user_id":       l.userID,
					"schedule_id":   l.scheduleID,
					"seats":         numbers,
					"amount":        payment.Amount,
				},
				Details: map[string]interface{}{"linked_ticket_id": l.linkedTicket},
			})
			if err != nil {
				return err
			}
		}

		detail, err = s.tickets.detail(ctx, q, ticket)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.BookingCreated, TicketEvent{
		TicketID:     detail.ID,
		TicketNumber: detail.TicketNumber,
		UserID:       detail.UserID,
		ScheduleID:   detail.ScheduleID,
		Seats:        numbers,
		Amount:       detail.Payment.Amount,
	})

	s.logger.WithFields(logrus.Fields{
		"ticket_number": detail.TicketNumber,
		"schedule_id":   l.scheduleID,
		"seats":         len(numbers),
		"user_id":       l.userID,
	}).Info("Booking created")

	return detail, nil
}

// firstUnflipped returns the first requested seat number whose id is not in flipped
func firstUnflipped(numbers []string, byNumber map[string]models.Seat, flipped []uuid.UUID) string {
	done := make(map[uuid.UUID]bool, len(flipped))
	for _, id := range flipped {
		done[id] = true
	}
	for _, number := range numbers {
		if !done[byNumber[number].ID] {
			return number
		}
	}
	return ""
}
