package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment is the settlement record of a ticket
type Payment struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	TicketID       uuid.UUID      `json:"ticket_id" db:"ticket_id"`
	Amount         float64        `json:"amount" db:"amount"`
	RefundedAmount float64        `json:"refunded_amount" db:"refunded_amount"`
	Method         *PaymentMethod `json:"method,omitempty" db:"method"`
	Status         PaymentStatus  `json:"status" db:"status"`
	TransactionID  *string        `json:"transaction_id,omitempty" db:"transaction_id"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// UpdatePaymentRequest is fed by payment gateway callbacks
type UpdatePaymentRequest struct {
	Status        PaymentStatus  `json:"status" binding:"required"`
	Method        *PaymentMethod `json:"method"`
	TransactionID *string        `json:"transaction_id"`
}
