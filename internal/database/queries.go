package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// Querier is every data operation the engine performs. Implementations are
// bound either to the pool or to a single transaction.
type Querier interface {
	// users
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error

	// routes, buses, schedules
	CreateRoute(ctx context.Context, r *models.Route) error
	GetRouteByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
	UpdateRoute(ctx context.Context, r *models.Route) error
	DeleteRoute(ctx context.Context, id uuid.UUID) error
	CreateBus(ctx context.Context, b *models.Bus) error
	GetBusByID(ctx context.Context, id uuid.UUID) (*models.Bus, error)
	UpdateBus(ctx context.Context, b *models.Bus) error
	DeleteBus(ctx context.Context, id uuid.UUID) error
	CreateSchedule(ctx context.Context, s *models.Schedule) error
	GetScheduleByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	LockSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	ShareLockSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	GetScheduleDetail(ctx context.Context, id uuid.UUID) (*models.ScheduleDetail, error)

	// seats
	InsertSeats(ctx context.Context, seats []models.Seat) error
	ListSeats(ctx context.Context, scheduleID uuid.UUID) ([]models.Seat, error)
	LockSeatsByNumbers(ctx context.Context, scheduleID uuid.UUID, numbers []string) ([]models.Seat, error)
	MarkSeatsBooked(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	ReleaseSeat(ctx context.Context, id uuid.UUID) (int64, error)
	ReleaseAllSeats(ctx context.Context, scheduleID uuid.UUID) (int64, error)
	DeleteSeats(ctx context.Context, scheduleID uuid.UUID) (int64, error)

	// tickets
	TicketNumberExists(ctx context.Context, number string) (bool, error)
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicketByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	GetTicketByNumber(ctx context.Context, number string) (*models.Ticket, error)

	// bookings
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookingsByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.Booking, error)
	LockActiveBookingsBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int64, error)
	UpdateBookingState(ctx context.Context, b *models.Booking, expectedVersion int) error
	FindOrphanCandidates(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	CompleteDepartedBookings(ctx context.Context, now time.Time) (int64, error)

	// payments
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error)
	LockPaymentByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error

	// audit
	InsertAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int64, error)
}

// Queries composes the per-entity repositories over one executor
type Queries struct {
	*UserRepository
	*RouteRepository
	*BusRepository
	*ScheduleRepository
	*SeatRepository
	*TicketRepository
	*BookingRepository
	*PaymentRepository
	*AuditLogRepository
}

var _ Querier = (*Queries)(nil)

// NewQueries binds the repositories to a pool or a transaction
func NewQueries(db sqlx.ExtContext) *Queries {
	return &Queries{
		UserRepository:     NewUserRepository(db),
		RouteRepository:    NewRouteRepository(db),
		BusRepository:      NewBusRepository(db),
		ScheduleRepository: NewScheduleRepository(db),
		SeatRepository:     NewSeatRepository(db),
		TicketRepository:   NewTicketRepository(db),
		BookingRepository:  NewBookingRepository(db),
		PaymentRepository:  NewPaymentRepository(db),
		AuditLogRepository: NewAuditLogRepository(db),
	}
}
