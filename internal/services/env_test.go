package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

// published counts the events sent under key
func (m *mockPublisher) published(key string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == "PublishJSON" && call.Arguments.String(1) == key {
			n++
		}
	}
	return n
}

// testClock is a settable clock shared by every service of an env
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store         *memStore
	clock         *testClock
	pub           *mockPublisher
	logger        *logrus.Logger
	audit         *AuditService
	tickets       *TicketService
	seats         *SeatInventoryService
	bookings      *BookingService
	cancellations *CancellationService
	sweeper       *OrphanSweeper
	fleet         *FleetService
	users         *UserService
	payments      *PaymentService

	superAdmin models.Actor
	admin      models.Actor
	client     models.Actor
}

// defaultFees: free above 72h, 10% above 24h, otherwise 25% plus 50
var defaultFees = []models.FeeTier{
	{MinHoursBefore: 72, Percent: 0},
	{MinHoursBefore: 24, Percent: 10},
	{MinHoursBefore: 0, Percent: 25, Flat: 50},
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	pub := &mockPublisher{}
	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	clock := &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	now := Clock(clock.Now)

	store := newMemStore()
	audit := NewAuditService(store, logger)
	tickets := NewTicketService(store, logger)
	seats := NewSeatInventoryService(SeatInventoryConfig{
		Store: store, Audit: audit, Publisher: pub, Logger: logger, Now: now,
	})

	env := &testEnv{
		store:   store,
		clock:   clock,
		pub:     pub,
		logger:  logger,
		audit:   audit,
		tickets: tickets,
		seats:   seats,
		bookings: NewBookingService(BookingServiceConfig{
			Store: store, Audit: audit, Tickets: tickets, Publisher: pub, Logger: logger, Now: now,
		}),
		cancellations: NewCancellationService(CancellationServiceConfig{
			Store: store, Audit: audit, Publisher: pub, FeePolicy: models.NewFeePolicy(defaultFees), Logger: logger, Now: now,
		}),
		sweeper: NewOrphanSweeper(OrphanSweeperConfig{
			Store: store, Audit: audit, Publisher: pub, Logger: logger, Now: now, HoldWindow: 48 * time.Hour,
		}),
		fleet:    NewFleetService(store, audit, seats, logger, now),
		users:    NewUserService(store, audit, now),
		payments: NewPaymentService(store, audit, pub, logger, now),
	}

	env.superAdmin = env.seedUser(t, "Root", models.RoleSuperAdmin)
	env.admin = env.seedUser(t, "Operator", models.RoleAdmin)
	env.client = env.seedUser(t, "Passenger", models.RoleClient)
	return env
}

func (e *testEnv) seedUser(t *testing.T, name string, role models.Role) models.Actor {
	t.Helper()
	u := &models.User{Name: name, Role: role, CreatedAt: e.clock.Now()}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return models.Actor{UserID: u.ID, Role: role, IPAddress: "203.0.113.7", UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"}
}

// seedSchedule creates a route, a bus with the given layout and a schedule
// departing in the given time, with its seat map
func (e *testEnv) seedSchedule(t *testing.T, layout string, seatCount int, fare float64, departsIn time.Duration) *models.ScheduleDetail {
	t.Helper()
	ctx := context.Background()

	route, err := e.fleet.CreateRoute(ctx, e.admin, models.RouteRequest{Origin: "Kathmandu", Destination: "Pokhara"})
	require.NoError(t, err)
	bus, err := e.fleet.CreateBus(ctx, e.admin, models.BusRequest{Name: "Deluxe " + uuid.NewString()[:4], LayoutType: layout, SeatCount: seatCount})
	require.NoError(t, err)
	schedule, err := e.fleet.CreateSchedule(ctx, e.admin, models.CreateScheduleRequest{
		RouteID:     route.ID,
		BusID:       bus.ID,
		DepartureAt: e.clock.Now().Add(departsIn),
		Fare:        fare,
	})
	require.NoError(t, err)
	return schedule
}

func seatsFor(passengers ...string) []models.SeatSelection {
	out := make([]models.SeatSelection, 0, len(passengers))
	for _, p := range passengers {
		// "A1:Ram" style pairs
		number, name := p, "Passenger "+p
		for i := range p {
			if p[i] == ':' {
				number, name = p[:i], p[i+1:]
				break
			}
		}
		out = append(out, models.SeatSelection{SeatNumber: number, Passenger: models.Passenger{Name: name}})
	}
	return out
}

func (e *testEnv) book(t *testing.T, actor models.Actor, scheduleID uuid.UUID, seats ...string) *models.TicketDetail {
	t.Helper()
	ticket, err := e.bookings.CreateBooking(context.Background(), actor, models.CreateBookingRequest{
		ScheduleID: scheduleID,
		Booker:     models.Booker{Name: "Sita Sharma"},
		Seats:      seatsFor(seats...),
	})
	require.NoError(t, err)
	return ticket
}

// pay completes the ticket's payment
func (e *testEnv) pay(t *testing.T, ticketNumber string) {
	t.Helper()
	method := models.PaymentMethodEsewa
	_, err := e.payments.UpdatePaymentStatus(context.Background(), e.admin, ticketNumber, models.UpdatePaymentRequest{
		Status: models.PaymentStatusCompleted,
		Method: &method,
	})
	require.NoError(t, err)
}

func (e *testEnv) auditCount(action string) int {
	n := 0
	for _, a := range e.store.snapshot().auditActions() {
		if a == action {
			n++
		}
	}
	return n
}
