package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/events"
)

// PaymentService applies settlement results reported by payment gateways
type PaymentService struct {
	store     database.Store
	audit     *AuditService
	publisher events.Publisher
	logger    *logrus.Logger
	now       Clock
}

func NewPaymentService(store database.Store, audit *AuditService, publisher events.Publisher, logger *logrus.Logger, now Clock) *PaymentService {
	return &PaymentService{
		store:     store,
		audit:     audit,
		publisher: publisher,
		logger:    logger,
		now:       now.orSystem(),
	}
}

// PaymentEvent is the payload of payment.updated
type PaymentEvent struct {
	TicketNumber string               `json:"ticket_number"`
	Status       models.PaymentStatus `json:"status"`
	Amount       float64              `json:"amount"`
}

// UpdatePaymentStatus marks a ticket's payment COMPLETED or FAILED.
// Only PENDING and FAILED payments can move; COMPLETED needs a method.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, actor models.Actor, ticketNumber string, req models.UpdatePaymentRequest) (*models.Payment, error) {
	if err := authz.Authorize(actor, authz.UpdatePayment, authz.Resource{}); err != nil {
		return nil, err
	}
	if req.Status != models.PaymentStatusCompleted && req.Status != models.PaymentStatusFailed {
		return nil, models.ValidationError{Field: "status", Msg: "must be COMPLETED or FAILED"}
	}
	if req.Method != nil && !req.Method.Valid() {
		return nil, models.ValidationError{Field: "method", Msg: "unknown payment method"}
	}
	if req.TransactionID != nil {
		trimmed := strings.TrimSpace(*req.TransactionID)
		req.TransactionID = &trimmed
	}

	var payment *models.Payment
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		ticket, err := q.GetTicketByNumber(ctx, ticketNumber)
		if err != nil {
			return err
		}
		p, err := q.LockPaymentByTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if !p.Status.Unsettled() {
			return models.ConflictError{Resource: "payment", Msg: "payment is " + string(p.Status)}
		}

		before := *p
		if req.Method != nil {
			p.Method = req.Method
		}
		if req.Status == models.PaymentStatusCompleted {
			if p.Method == nil {
				return models.ValidationError{Field: "method", Msg: "is required to complete a payment"}
			}
			now := s.now()
			p.CompletedAt = &now
		}
		p.Status = req.Status
		if req.TransactionID != nil && *req.TransactionID != "" {
			p.TransactionID = req.TransactionID
		}

		if err := q.UpdatePayment(ctx, p); err != nil {
			return err
		}
		payment = p
		return s.audit.Record(ctx, q, AuditEntry{
			Actor:      &actor,
			Action:     AuditPaymentUpdateStatus,
			EntityType: "payment",
			EntityID:   p.ID.String(),
			Before:     before,
			After:      p,
			Details:    map[string]interface{}{"ticket_number": ticketNumber},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.PaymentUpdated, PaymentEvent{
		TicketNumber: ticketNumber,
		Status:       payment.Status,
		Amount:       payment.Amount,
	})
	return payment, nil
}
