package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/events"
)

// CancellationServiceConfig wires the cancellation engine
type CancellationServiceConfig struct {
	Store     database.Store
	Audit     *AuditService
	Publisher events.Publisher
	FeePolicy models.FeePolicy
	Logger    *logrus.Logger
	Now       Clock
}

// CancellationService drives booking state transitions and refunds
type CancellationService struct {
	store     database.Store
	audit     *AuditService
	publisher events.Publisher
	fees      models.FeePolicy
	logger    *logrus.Logger
	now       Clock
}

func NewCancellationService(cfg CancellationServiceConfig) *CancellationService {
	return &CancellationService{
		store:     cfg.Store,
		audit:     cfg.Audit,
		publisher: cfg.Publisher,
		fees:      cfg.FeePolicy,
		logger:    cfg.Logger,
		now:       cfg.Now.orSystem(),
	}
}

// CancelBooking cancels the caller's own booking, charging the tiered fee
func (s *CancellationService) CancelBooking(ctx context.Context, actor models.Actor, bookingID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		b, err := q.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(actor, authz.CancelBooking, authz.Owned(b.UserID)); err != nil {
			return err
		}
		if b.Status != models.BookingStatusBooked {
			return models.ConflictError{Resource: "booking", Msg: "booking is " + string(b.Status)}
		}

		schedule, err := q.GetScheduleByID(ctx, b.ScheduleID)
		if err != nil {
			return err
		}
		now := s.now()
		if schedule.Departed(now) {
			return models.ConflictError{Resource: "booking", Msg: "schedule has already departed"}
		}

		payment, err := q.LockPaymentByTicket(ctx, b.TicketID)
		if err != nil {
			return err
		}

		before := bookingSnapshot(b)
		paid := paidShare(b, payment)
		fee := s.fees.Fee(paid, schedule.DepartureAt.Sub(now))
		err = cancelInTx(ctx, q, b, payment, cancellation{
			fee:    fee,
			refund: models.Refund(paid, fee),
			reason: "cancelled by passenger",
			by:     &actor.UserID,
			at:     now,
		})
		if err != nil {
			return err
		}

		booking = b
		return s.audit.Record(ctx, q, AuditEntry{
			Actor:      &actor,
			Action:     AuditBookingCancel,
			EntityType: "booking",
			EntityID:   b.ID.String(),
			Before:     before,
			After:      bookingSnapshot(b),
			Details: map[string]interface{}{
				"paid":           paid,
				"hours_left":     schedule.DepartureAt.Sub(now).Hours(),
				"payment_status": payment.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.announceCancel(ctx, booking)
	return booking, nil
}

// AdminCancelBooking cancels any BOOKED booking without a fee
func (s *CancellationService) AdminCancelBooking(ctx context.Context, actor models.Actor, bookingID uuid.UUID, reason string) (*models.Booking, error) {
	if err := authz.Authorize(actor, authz.AdminCancelBooking, authz.Resource{}); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.ValidationError{Field: "reason", Msg: "is required"}
	}

	var booking *models.Booking
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		b, err := q.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		booking = b
		return s.adminCancelInTx(ctx, q, actor, b, reason, AuditBookingAdminCancel, nil)
	})
	if err != nil {
		return nil, err
	}

	s.announceCancel(ctx, booking)
	return booking, nil
}

// RemoveSeatFromBooking cancels only the sibling booking holding seatNumber
// on the same ticket as bookingID
func (s *CancellationService) RemoveSeatFromBooking(ctx context.Context, actor models.Actor, bookingID uuid.UUID, seatNumber string) (*models.Booking, error) {
	if err := authz.Authorize(actor, authz.RemoveSeat, authz.Resource{}); err != nil {
		return nil, err
	}
	seatNumber = strings.ToUpper(strings.TrimSpace(seatNumber))
	if seatNumber == "" {
		return nil, models.ValidationError{Field: "seat_number", Msg: "is required"}
	}

	var removed *models.Booking
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		anchor, err := q.GetBookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		siblings, err := q.ListBookingsByTicket(ctx, anchor.TicketID)
		if err != nil {
			return err
		}

		var targetID uuid.UUID
		for _, sib := range siblings {
			if sib.SeatNumber == seatNumber && sib.Status == models.BookingStatusBooked {
				targetID = sib.ID
				break
			}
		}
		if targetID == uuid.Nil {
			for _, sib := range siblings {
				if sib.SeatNumber == seatNumber {
					return models.ConflictError{Seat: seatNumber, Msg: "booking is " + string(sib.Status)}
				}
			}
			return models.NotFoundError{Resource: "seat on ticket", ID: seatNumber}
		}

		b, err := q.LockBooking(ctx, targetID)
		if err != nil {
			return err
		}
		removed = b
		return s.adminCancelInTx(ctx, q, actor, b, "seat removed by admin", AuditBookingRemoveSeat,
			map[string]interface{}{"requested_via_booking": bookingID})
	})
	if err != nil {
		return nil, err
	}

	s.announceCancel(ctx, removed)
	return removed, nil
}

// adminCancelInTx cancels a locked booking with fee 0 and a full refund of
// what was paid, then audits it under action
func (s *CancellationService) adminCancelInTx(ctx context.Context, q database.Querier, actor models.Actor, b *models.Booking, reason, action string, details map[string]interface{}) error {
	if b.Status != models.BookingStatusBooked {
		return models.ConflictError{Resource: "booking", Msg: "booking is " + string(b.Status)}
	}
	payment, err := q.LockPaymentByTicket(ctx, b.TicketID)
	if err != nil {
		return err
	}

	before := bookingSnapshot(b)
	paid := paidShare(b, payment)
	err = cancelInTx(ctx, q, b, payment, cancellation{
		refund: paid,
		reason: reason,
		by:     &actor.UserID,
		at:     s.now(),
	})
	if err != nil {
		return err
	}

	if details == nil {
		details = map[string]interface{}{}
	}
	details["paid"] = paid
	details["ticket_id"] = b.TicketID
	return s.audit.Record(ctx, q, AuditEntry{
		Actor:      &actor,
		Action:     action,
		EntityType: "booking",
		EntityID:   b.ID.String(),
		Before:     before,
		After:      bookingSnapshot(b),
		Reason:     reason,
		Details:    details,
	})
}

// UpdateBookingStatus overrides a BOOKED booking's status. Cancelling this
// way frees the seat but computes no fee or refund.
func (s *CancellationService) UpdateBookingStatus(ctx context.Context, actor models.Actor, bookingID uuid.UUID, status models.BookingStatus, reason string) (*models.Booking, error) {
	if err := authz.Authorize(actor, authz.UpdateBookingStatus, authz.Resource{}); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, models.ValidationError{Field: "status", Msg: "must be BOOKED, CANCELLED or COMPLETED"}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.ValidationError{Field: "reason", Msg: "is required"}
	}

	var booking *models.Booking
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		b, err := q.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingStatusBooked {
			return models.ConflictError{Resource: "booking", Msg: "booking is " + string(b.Status)}
		}
		if status == models.BookingStatusBooked {
			return models.ConflictError{Resource: "booking", Msg: "booking is already BOOKED"}
		}

		before := bookingSnapshot(b)
		now := s.now()
		switch status {
		case models.BookingStatusCancelled:
			payment, err := q.LockPaymentByTicket(ctx, b.TicketID)
			if err != nil {
				return err
			}
			if err := cancelInTx(ctx, q, b, payment, cancellation{reason: reason, by: &actor.UserID, at: now}); err != nil {
				return err
			}
		case models.BookingStatusCompleted:
			b.Status = models.BookingStatusCompleted
			b.CompletedAt = &now
			if err := q.UpdateBookingState(ctx, b, b.Version); err != nil {
				return err
			}
		}

		booking = b
		return s.audit.Record(ctx, q, AuditEntry{
			Actor:      &actor,
			Action:     AuditBookingStatusOverride,
			EntityType: "booking",
			EntityID:   b.ID.String(),
			Before:     before,
			After:      bookingSnapshot(b),
			Reason:     reason,
		})
	})
	if err != nil {
		return nil, err
	}

	key := events.BookingStatusChanged
	if booking.Status == models.BookingStatusCancelled {
		key = events.BookingCancelled
	}
	publish(ctx, s.publisher, s.logger, key, newBookingEvent(booking))
	return booking, nil
}

// CompleteDepartedBookings marks paid bookings of departed schedules COMPLETED
func (s *CancellationService) CompleteDepartedBookings(ctx context.Context) (int64, error) {
	n, err := s.store.CompleteDepartedBookings(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("Completed departed bookings")
	}
	return n, nil
}

func (s *CancellationService) announceCancel(ctx context.Context, b *models.Booking) {
	publish(ctx, s.publisher, s.logger, events.BookingCancelled, newBookingEvent(b))
	s.logger.WithFields(logrus.Fields{
		"booking_id":  b.ID,
		"seat_number": b.SeatNumber,
		"refund":      derefFloat(b.RefundedAmount),
	}).Info("Booking cancelled")
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
