package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// TicketRepository handles ticket database operations
type TicketRepository struct {
	db sqlx.ExtContext
}

func NewTicketRepository(db sqlx.ExtContext) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, ticket_number, qr_payload, user_id, schedule_id, linked_ticket_id,
	booker_name, booker_phone, booker_email, created_by, created_at`

// TicketNumberExists checks a candidate ticket number for uniqueness
func (r *TicketRepository) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM tickets WHERE ticket_number = $1`, number)
	if err != nil {
		return false, classify(err, "ticket")
	}
	return count > 0, nil
}

func (r *TicketRepository) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tickets (id, ticket_number, qr_payload, user_id, schedule_id, linked_ticket_id,
			booker_name, booker_phone, booker_email, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.TicketNumber, t.QRPayload, t.UserID, t.ScheduleID, t.LinkedTicketID,
		t.BookerName, t.BookerPhone, t.BookerEmail, t.CreatedBy, t.CreatedAt,
	)
	return classify(err, "ticket")
}

func (r *TicketRepository) GetTicketByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var t models.Ticket
	err := sqlx.GetContext(ctx, r.db, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "ticket", id.String())
	}
	return &t, nil
}

func (r *TicketRepository) GetTicketByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	var t models.Ticket
	err := sqlx.GetContext(ctx, r.db, &t, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_number = $1`, number)
	if err != nil {
		return nil, notFound(err, "ticket", number)
	}
	return &t, nil
}
