package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/events"
)

const (
	maxSeatsPerBus    = 120
	maxColumnsPerSide = 3
)

const regenerateReason = "seat map regenerated"

// ParseLayout splits a layout such as "2/2" into left and right column counts
func ParseLayout(layout string) (left, right int, err error) {
	parts := strings.Split(strings.TrimSpace(layout), "/")
	if len(parts) != 2 {
		return 0, 0, models.ValidationError{Field: "layout_type", Msg: "must look like L/R, e.g. 2/2"}
	}
	left, errL := strconv.Atoi(parts[0])
	right, errR := strconv.Atoi(parts[1])
	if errL != nil || errR != nil ||
		left < 1 || left > maxColumnsPerSide || right < 1 || right > maxColumnsPerSide {
		return 0, 0, models.ValidationError{
			Field: "layout_type",
			Msg:   fmt.Sprintf("each side must have 1 to %d columns", maxColumnsPerSide),
		}
	}
	return left, right, nil
}

// ValidateBusLayout checks a layout and seat count pair
func ValidateBusLayout(layout string, seatCount int) error {
	if _, _, err := ParseLayout(layout); err != nil {
		return err
	}
	if seatCount < 1 || seatCount > maxSeatsPerBus {
		return models.ValidationError{
			Field: "seat_count",
			Msg:   fmt.Sprintf("must be between 1 and %d", maxSeatsPerBus),
		}
	}
	return nil
}

// GenerateSeatMap lays out seatCount seats row by row, left to right.
// Seat numbers are the row label plus the 1-based column ("A1", "A2", ...).
// The outermost columns are window seats and the columns either side of the
// aisle are aisle seats. The last row may be partial.
func GenerateSeatMap(scheduleID uuid.UUID, layout string, seatCount int) ([]models.Seat, error) {
	if err := ValidateBusLayout(layout, seatCount); err != nil {
		return nil, err
	}
	left, right, _ := ParseLayout(layout)
	perRow := left + right

	seats := make([]models.Seat, 0, seatCount)
	for i := 0; i < seatCount; i++ {
		row := i/perRow + 1
		col := i%perRow + 1
		label := rowLabel(row)

		side := models.SeatSideLeft
		if col > left {
			side = models.SeatSideRight
		}

		seats = append(seats, models.Seat{
			ScheduleID: scheduleID,
			SeatNumber: label + strconv.Itoa(col),
			RowLabel:   label,
			Column:     col,
			Side:       side,
			IsWindow:   col == 1 || col == perRow,
			IsAisle:    col == left || col == left+1,
		})
	}
	return seats, nil
}

// rowLabel converts a 1-based row number to A..Z, AA, AB, ...
func rowLabel(n int) string {
	label := ""
	for n > 0 {
		n--
		label = string(rune('A'+n%26)) + label
		n /= 26
	}
	return label
}

// SeatInventoryConfig wires the seat inventory
type SeatInventoryConfig struct {
	Store     database.Store
	Audit     *AuditService
	Publisher events.Publisher
	Logger    *logrus.Logger
	Now       Clock
}

// SeatInventoryService materializes and rebuilds per-schedule seat maps
type SeatInventoryService struct {
	store     database.Store
	audit     *AuditService
	publisher events.Publisher
	logger    *logrus.Logger
	now       Clock
}

// RegenerateResult reports a seat map rebuild
type RegenerateResult struct {
	ScheduleID        uuid.UUID   `json:"schedule_id"`
	SeatsBefore       int64       `json:"seats_before"`
	SeatsAfter        int         `json:"seats_after"`
	CancelledBookings []uuid.UUID `json:"cancelled_bookings"`
}

func NewSeatInventoryService(cfg SeatInventoryConfig) *SeatInventoryService {
	return &SeatInventoryService{
		store:     cfg.Store,
		audit:     cfg.Audit,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       cfg.Now.orSystem(),
	}
}

// GenerateSeats creates the seat map of a schedule that has none yet
func (s *SeatInventoryService) GenerateSeats(ctx context.Context, scheduleID uuid.UUID) ([]models.Seat, error) {
	var seats []models.Seat
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		schedule, err := q.LockSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		existing, err := q.ListSeats(ctx, scheduleID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return models.ConflictError{Resource: "schedule", Msg: "seats already generated, regenerate instead"}
		}
		seats, err = s.generateInTx(ctx, q, schedule)
		return err
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// generateInTx inserts the seat map for schedule using its bus layout
func (s *SeatInventoryService) generateInTx(ctx context.Context, q database.Querier, schedule *models.Schedule) ([]models.Seat, error) {
	bus, err := q.GetBusByID(ctx, schedule.BusID)
	if err != nil {
		return nil, err
	}
	seats, err := GenerateSeatMap(schedule.ID, bus.LayoutType, bus.SeatCount)
	if err != nil {
		return nil, err
	}
	if err := q.InsertSeats(ctx, seats); err != nil {
		return nil, err
	}
	return seats, nil
}

// ListSeats returns the seat map of a schedule with availability
func (s *SeatInventoryService) ListSeats(ctx context.Context, scheduleID uuid.UUID) ([]models.Seat, error) {
	if _, err := s.store.GetScheduleByID(ctx, scheduleID); err != nil {
		return nil, err
	}
	seats, err := s.store.ListSeats(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []models.Seat{}
	}
	return seats, nil
}

// RegenerateSeats rebuilds a schedule's seat map from its bus layout.
//
// Without force any live booking blocks the rebuild. With force, BOOKED
// bookings are cancelled with a full refund of what was paid; COMPLETED
// bookings always block.
func (s *SeatInventoryService) RegenerateSeats(ctx context.Context, actor models.Actor, scheduleID uuid.UUID, force bool) (*RegenerateResult, error) {
	if err := authz.Authorize(actor, authz.RegenerateSeats, authz.Resource{}); err != nil {
		return nil, err
	}
	now := s.now()
	result := &RegenerateResult{ScheduleID: scheduleID, CancelledBookings: []uuid.UUID{}}
	var cancelled []models.Booking

	err := s.store.WithTx(ctx, func(q database.Querier) error {
		result.CancelledBookings = result.CancelledBookings[:0]
		cancelled = cancelled[:0]

		// 1. Lock the schedule so concurrent rebuilds serialize
		schedule, err := q.LockSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.Departed(now) {
			return models.ConflictError{Resource: "schedule", Msg: "schedule has already departed"}
		}

		// 2. Check live bookings
		active, err := q.LockActiveBookingsBySchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if len(active) > 0 && !force {
			return models.ConflictError{
				Resource: "schedule",
				Msg:      fmt.Sprintf("%d active bookings exist, use force to cancel them", len(active)),
			}
		}
		for _, b := range active {
			if b.Status == models.BookingStatusCompleted {
				return models.ConflictError{Resource: "schedule", Msg: "completed bookings cannot be rewritten"}
			}
		}

		// 3. Cancel what remains with a full refund
		for i := range active {
			b := &active[i]
			payment, err := q.LockPaymentByTicket(ctx, b.TicketID)
			if err != nil {
				return err
			}
			c := cancellation{
				refund: paidShare(b, payment),
				reason: regenerateReason,
				by:     &actor.UserID,
				at:     now,
			}
			if err := cancelInTx(ctx, q, b, payment, c); err != nil {
				return err
			}
			result.CancelledBookings = append(result.CancelledBookings, b.ID)
			cancelled = append(cancelled, *b)
		}

		// 4. Replace the seat map
		result.SeatsBefore, err = q.DeleteSeats(ctx, scheduleID)
		if err != nil {
			return err
		}
		seats, err := s.generateInTx(ctx, q, schedule)
		if err != nil {
			return err
		}
		result.SeatsAfter = len(seats)

		return s.audit.Record(ctx, q, AuditEntry{
			Actor:      &actor,
			Action:     AuditScheduleRegenerate,
			EntityType: "schedule",
			EntityID:   scheduleID.String(),
			Before:     map[string]interface{}{"seat_count": result.SeatsBefore},
			After:      map[string]interface{}{"seat_count": result.SeatsAfter},
			Details: map[string]interface{}{
				"force":              force,
				"cancelled_bookings": result.CancelledBookings,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	for i := range cancelled {
		publish(ctx, s.publisher, s.logger, events.BookingCancelled, newBookingEvent(&cancelled[i]))
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"seats":       result.SeatsAfter,
		"cancelled":   len(result.CancelledBookings),
		"force":       force,
	}).Info("Seat map regenerated")

	return result, nil
}
