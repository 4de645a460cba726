package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
)

// cancellation is the outcome applied to one booking
type cancellation struct {
	fee    float64
	refund float64
	reason string
	by     *uuid.UUID
	at     time.Time
}

// paidShare is what the booker paid for this booking's seat
func paidShare(b *models.Booking, p *models.Payment) float64 {
	if p != nil && p.Status == models.PaymentStatusCompleted {
		return b.Fare
	}
	return 0
}

// cancelInTx moves a locked BOOKED booking to CANCELLED, frees its seat and
// settles the ticket's locked payment. Callers must hold the booking and
// payment row locks, taken in that order.
func cancelInTx(ctx context.Context, q database.Querier, b *models.Booking, p *models.Payment, c cancellation) error {
	if b.Status != models.BookingStatusBooked {
		return models.ConflictError{Resource: "booking", Msg: "booking is " + string(b.Status)}
	}

	fee, refund := models.RoundMoney(c.fee), models.RoundMoney(c.refund)
	at := c.at
	b.Status = models.BookingStatusCancelled
	b.CancellationFee = &fee
	b.RefundedAmount = &refund
	if c.reason != "" {
		reason := c.reason
		b.CancellationReason = &reason
	}
	b.CancelledBy = c.by
	b.CancelledAt = &at
	if err := q.UpdateBookingState(ctx, b, b.Version); err != nil {
		return err
	}

	// The seat may already be free after a forced seat reset.
	if b.SeatID != nil {
		if _, err := q.ReleaseSeat(ctx, *b.SeatID); err != nil {
			return err
		}
	}

	return settlePayment(ctx, q, b, p, refund)
}

// settlePayment adds refund to the payment and closes it once every booking
// on the ticket is cancelled. An unsettled payment stops covering the
// cancelled seat, so a later capture charges only the live bookings.
func settlePayment(ctx context.Context, q database.Querier, b *models.Booking, p *models.Payment, refund float64) error {
	if p == nil {
		return nil
	}
	if p.Status.Unsettled() {
		p.Amount = models.RoundMoney(math.Max(0, p.Amount-b.Fare))
	}

	siblings, err := q.ListBookingsByTicket(ctx, b.TicketID)
	if err != nil {
		return err
	}
	allCancelled := true
	for _, s := range siblings {
		if s.Status != models.BookingStatusCancelled {
			allCancelled = false
			break
		}
	}

	p.RefundedAmount = models.RoundMoney(p.RefundedAmount + refund)
	if allCancelled {
		switch p.Status {
		case models.PaymentStatusCompleted:
			p.Status = models.PaymentStatusRefunded
		case models.PaymentStatusPending, models.PaymentStatusFailed:
			p.Status = models.PaymentStatusCancelled
		}
	}
	return q.UpdatePayment(ctx, p)
}

func bookingSnapshot(b *models.Booking) map[string]interface{} {
	snap := map[string]interface{}{
		"status":      b.Status,
		"seat_number": b.SeatNumber,
		"version":     b.Version,
	}
	if b.CancellationFee != nil {
		snap["cancellation_fee"] = *b.CancellationFee
	}
	if b.RefundedAmount != nil {
		snap["refunded_amount"] = *b.RefundedAmount
	}
	return snap
}
