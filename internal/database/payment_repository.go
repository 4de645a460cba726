package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// PaymentRepository handles payment database operations
type PaymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, ticket_id, amount, refunded_amount, method, status,
	transaction_id, completed_at, created_at, updated_at`

func (r *PaymentRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, ticket_id, amount, refunded_amount, method, status,
			transaction_id, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.TicketID, p.Amount, p.RefundedAmount, p.Method, p.Status,
		p.TransactionID, p.CompletedAt, p.CreatedAt, p.UpdatedAt,
	)
	return classify(err, "payment")
}

func (r *PaymentRepository) GetPaymentByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := sqlx.GetContext(ctx, r.db, &p,
		`SELECT `+paymentColumns+` FROM payments WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return nil, notFound(err, "payment", ticketID.String())
	}
	return &p, nil
}

// LockPaymentByTicket reads the payment under a row lock so a concurrent
// settlement and a cancellation serialize on it.
func (r *PaymentRepository) LockPaymentByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := sqlx.GetContext(ctx, r.db, &p,
		`SELECT `+paymentColumns+` FROM payments WHERE ticket_id = $1 FOR UPDATE`, ticketID)
	if err != nil {
		return nil, notFound(err, "payment", ticketID.String())
	}
	return &p, nil
}

func (r *PaymentRepository) UpdatePayment(ctx context.Context, p *models.Payment) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET amount = $2, refunded_amount = $3, method = $4, status = $5,
			transaction_id = $6, completed_at = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.Amount, p.RefundedAmount, p.Method, p.Status, p.TransactionID, p.CompletedAt, p.UpdatedAt,
	)
	if err != nil {
		return classify(err, "payment")
	}
	return requireOneRow(res, "payment", p.ID.String())
}
