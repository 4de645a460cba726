package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/events"
)

// OrphanSweeperConfig wires the orphan sweeper
type OrphanSweeperConfig struct {
	Store          database.Store
	Audit          *AuditService
	Publisher      events.Publisher
	Logger         *logrus.Logger
	Now            Clock
	HoldWindow     time.Duration
	BatchSize      int
	AllowSeatReset bool
}

// OrphanSweeper releases seats held by bookings whose payment never settled
type OrphanSweeper struct {
	store          database.Store
	audit          *AuditService
	publisher      events.Publisher
	logger         *logrus.Logger
	now            Clock
	holdWindow     time.Duration
	batchSize      int
	allowSeatReset bool
}

func NewOrphanSweeper(cfg OrphanSweeperConfig) *OrphanSweeper {
	if cfg.HoldWindow <= 0 {
		cfg.HoldWindow = 48 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &OrphanSweeper{
		store:          cfg.Store,
		audit:          cfg.Audit,
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
		now:            cfg.Now.orSystem(),
		holdWindow:     cfg.HoldWindow,
		batchSize:      cfg.BatchSize,
		allowSeatReset: cfg.AllowSeatReset,
	}
}

type sweepOutcome int

const (
	sweepSkipped sweepOutcome = iota
	sweepReleased
)

// CleanupOrphanedBookings cancels BOOKED bookings whose payment is still
// PENDING or FAILED after the hold window. A nil actor is the scheduler.
//
// Candidates are found without locks; each one is then re-checked and
// released in its own transaction, so one bad row never aborts the sweep
// and running it twice releases nothing new.
func (s *OrphanSweeper) CleanupOrphanedBookings(ctx context.Context, actor *models.Actor) (*models.SweepResult, error) {
	if actor != nil {
		if err := authz.Authorize(*actor, authz.CleanupOrphans, authz.Resource{}); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	cutoff := s.now().Add(-s.holdWindow)
	candidates, err := s.store.FindOrphanCandidates(ctx, cutoff, s.batchSize)
	if err != nil {
		return nil, err
	}

	result := &models.SweepResult{Scanned: len(candidates), Bookings: []uuid.UUID{}}
	for _, id := range candidates {
		if ctx.Err() != nil {
			break
		}
		outcome, err := s.releaseOne(ctx, actor, id, cutoff)
		switch {
		case err != nil:
			result.Failed++
			s.logger.WithError(err).WithField("booking_id", id).Error("Failed to release orphaned booking")
		case outcome == sweepReleased:
			result.Released++
			result.Bookings = append(result.Bookings, id)
		default:
			result.Skipped++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"scanned":  result.Scanned,
		"released": result.Released,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"cutoff":   cutoff,
		"duration": time.Since(started),
	}).Info("Orphan sweep finished")

	return result, nil
}

// releaseOne re-checks a candidate under lock and cancels it if still orphaned
func (s *OrphanSweeper) releaseOne(ctx context.Context, actor *models.Actor, id uuid.UUID, cutoff time.Time) (sweepOutcome, error) {
	outcome := sweepSkipped
	var released *models.Booking

	err := s.store.WithTx(ctx, func(q database.Querier) error {
		b, err := q.LockBooking(ctx, id)
		if err != nil {
			if models.IsNotFound(err) {
				return nil
			}
			return err
		}
		if b.Status != models.BookingStatusBooked || !b.CreatedAt.Before(cutoff) {
			return nil
		}
		payment, err := q.LockPaymentByTicket(ctx, b.TicketID)
		if err != nil {
			return err
		}
		if !payment.Status.Unsettled() {
			return nil
		}

		var by *uuid.UUID
		if actor != nil {
			by = &actor.UserID
		}
		before := bookingSnapshot(b)
		err = cancelInTx(ctx, q, b, payment, cancellation{
			reason: models.OrphanReleaseReason,
			by:     by,
			at:     s.now(),
		})
		if err != nil {
			return err
		}

		err = s.audit.Record(ctx, q, AuditEntry{
			Actor:      actor,
			Action:     AuditBookingOrphanRelease,
			EntityType: "booking",
			EntityID:   b.ID.String(),
			Before:     before,
			After:      bookingSnapshot(b),
			Reason:     models.OrphanReleaseReason,
			Details: map[string]interface{}{
				"payment_status": payment.Status,
				"held_since":     b.CreatedAt,
				"cutoff":         cutoff,
			},
		})
		if err != nil {
			return err
		}
		outcome = sweepReleased
		released = b
		return nil
	})
	if err != nil {
		return sweepSkipped, err
	}

	if released != nil {
		publish(ctx, s.publisher, s.logger, events.BookingOrphanReleased, newBookingEvent(released))
	}
	return outcome, nil
}

// ResetSeatStatus marks every seat of a schedule available without touching
// bookings. It exists for repairing test and staging data.
func (s *OrphanSweeper) ResetSeatStatus(ctx context.Context, actor models.Actor, scheduleID uuid.UUID) (int64, error) {
	if err := authz.Authorize(actor, authz.ResetSeats, authz.Resource{}); err != nil {
		return 0, err
	}
	if !s.allowSeatReset {
		return 0, models.ForbiddenError{Msg: "seat reset is disabled in this environment"}
	}

	var released int64
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		if _, err := q.LockSchedule(ctx, scheduleID); err != nil {
			return err
		}
		n, err := q.ReleaseAllSeats(ctx, scheduleID)
		if err != nil {
			return err
		}
		released = n
		return s.audit.Record(ctx, q, AuditEntry{
			Actor:      &actor,
			Action:     AuditScheduleResetSeats,
			EntityType: "schedule",
			EntityID:   scheduleID.String(),
			After:      map[string]interface{}{"released_seats": n},
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"released":    released,
		"user_id":     actor.UserID,
	}).Warn("Seat status reset")
	return released, nil
}
