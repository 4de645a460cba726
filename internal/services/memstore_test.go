package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/models"
)

// memStore is a transactional in-memory database.Store. Transactions are
// serialized and roll back to a snapshot when fn fails.
type memStore struct {
	*memTx
	txMu sync.Mutex
}

type memData struct {
	users     map[uuid.UUID]models.User
	routes    map[uuid.UUID]models.Route
	buses     map[uuid.UUID]models.Bus
	schedules map[uuid.UUID]models.Schedule
	seats     map[uuid.UUID]models.Seat
	tickets   map[uuid.UUID]models.Ticket
	bookings  map[uuid.UUID]models.Booking
	payments  map[uuid.UUID]models.Payment
	audit     []models.AuditLog
	auditSeq  int64
}

// memTx implements database.Querier over memData. guard is set on the
// store-level instance so reads outside a transaction don't race with one.
type memTx struct {
	data  *memData
	guard *sync.Mutex
	// fail injects an error for an operation name and optional entity id
	fail func(op string, id uuid.UUID) error
}

var _ database.Store = (*memStore)(nil)

func newMemStore() *memStore {
	s := &memStore{}
	s.memTx = &memTx{data: newMemData(), guard: &s.txMu}
	return s
}

func newMemData() *memData {
	return &memData{
		users:     map[uuid.UUID]models.User{},
		routes:    map[uuid.UUID]models.Route{},
		buses:     map[uuid.UUID]models.Bus{},
		schedules: map[uuid.UUID]models.Schedule{},
		seats:     map[uuid.UUID]models.Seat{},
		tickets:   map[uuid.UUID]models.Ticket{},
		bookings:  map[uuid.UUID]models.Booking{},
		payments:  map[uuid.UUID]models.Payment{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		users:     cloneMap(d.users),
		routes:    cloneMap(d.routes),
		buses:     cloneMap(d.buses),
		schedules: cloneMap(d.schedules),
		seats:     cloneMap(d.seats),
		tickets:   cloneMap(d.tickets),
		bookings:  cloneMap(d.bookings),
		payments:  cloneMap(d.payments),
		audit:     append([]models.AuditLog(nil), d.audit...),
		auditSeq:  d.auditSeq,
	}
}

func (s *memStore) WithTx(ctx context.Context, fn func(q database.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.clone()
	if err := fn(&memTx{data: s.data, fail: s.fail}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

// failOn makes op fail with err, for every id when id is uuid.Nil
func (s *memStore) failOn(op string, id uuid.UUID, err error) {
	s.fail = func(gotOp string, gotID uuid.UUID) error {
		if gotOp == op && (id == uuid.Nil || id == gotID) {
			return err
		}
		return nil
	}
}

// snapshot returns a copy of the committed data for assertions
func (s *memStore) snapshot() *memData {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.data.clone()
}

func (t *memTx) lock() func() {
	if t.guard == nil {
		return func() {}
	}
	t.guard.Lock()
	return t.guard.Unlock
}

func (t *memTx) check(op string, id uuid.UUID) error {
	if t.fail == nil {
		return nil
	}
	return t.fail(op, id)
}

// users

func (t *memTx) CreateUser(_ context.Context, u *models.User) error {
	defer t.lock()()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.UpdatedAt = u.CreatedAt
	t.data.users[u.ID] = *u
	return nil
}

func (t *memTx) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	defer t.lock()()
	u, ok := t.data.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, models.NotFoundError{Resource: "user", ID: id.String()}
	}
	return &u, nil
}

func (t *memTx) UpdateUser(_ context.Context, u *models.User) error {
	defer t.lock()()
	cur, ok := t.data.users[u.ID]
	if !ok || cur.DeletedAt != nil {
		return models.NotFoundError{Resource: "user", ID: u.ID.String()}
	}
	u.UpdatedAt = time.Now()
	t.data.users[u.ID] = *u
	return nil
}

func (t *memTx) SoftDeleteUser(_ context.Context, id uuid.UUID, at time.Time) error {
	defer t.lock()()
	u, ok := t.data.users[id]
	if !ok || u.DeletedAt != nil {
		return models.NotFoundError{Resource: "user", ID: id.String()}
	}
	u.DeletedAt = &at
	t.data.users[id] = u
	return nil
}

// routes, buses, schedules

func (t *memTx) CreateRoute(_ context.Context, r *models.Route) error {
	defer t.lock()()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.UpdatedAt = r.CreatedAt
	t.data.routes[r.ID] = *r
	return nil
}

func (t *memTx) GetRouteByID(_ context.Context, id uuid.UUID) (*models.Route, error) {
	defer t.lock()()
	r, ok := t.data.routes[id]
	if !ok {
		return nil, models.NotFoundError{Resource: "route", ID: id.String()}
	}
	return &r, nil
}

func (t *memTx) UpdateRoute(_ context.Context, r *models.Route) error {
	defer t.lock()()
	if _, ok := t.data.routes[r.ID]; !ok {
		return models.NotFoundError{Resource: "route", ID: r.ID.String()}
	}
	t.data.routes[r.ID] = *r
	return nil
}

func (t *memTx) DeleteRoute(_ context.Context, id uuid.UUID) error {
	defer t.lock()()
	if _, ok := t.data.routes[id]; !ok {
		return models.NotFoundError{Resource: "route", ID: id.String()}
	}
	for _, s := range t.data.schedules {
		if s.RouteID == id {
			return models.ConflictError{Resource: "route", Msg: "still referenced by other records"}
		}
	}
	delete(t.data.routes, id)
	return nil
}

func (t *memTx) CreateBus(_ context.Context, b *models.Bus) error {
	defer t.lock()()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.UpdatedAt = b.CreatedAt
	t.data.buses[b.ID] = *b
	return nil
}

func (t *memTx) GetBusByID(_ context.Context, id uuid.UUID) (*models.Bus, error) {
	defer t.lock()()
	b, ok := t.data.buses[id]
	if !ok {
		return nil, models.NotFoundError{Resource: "bus", ID: id.String()}
	}
	return &b, nil
}

func (t *memTx) UpdateBus(_ context.Context, b *models.Bus) error {
	defer t.lock()()
	if _, ok := t.data.buses[b.ID]; !ok {
		return models.NotFoundError{Resource: "bus", ID: b.ID.String()}
	}
	t.data.buses[b.ID] = *b
	return nil
}

func (t *memTx) DeleteBus(_ context.Context, id uuid.UUID) error {
	defer t.lock()()
	if _, ok := t.data.buses[id]; !ok {
		return models.NotFoundError{Resource: "bus", ID: id.String()}
	}
	for _, s := range t.data.schedules {
		if s.BusID == id {
			return models.ConflictError{Resource: "bus", Msg: "still referenced by other records"}
		}
	}
	delete(t.data.buses, id)
	return nil
}

func (t *memTx) CreateSchedule(_ context.Context, s *models.Schedule) error {
	defer t.lock()()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if _, ok := t.data.routes[s.RouteID]; !ok {
		return models.ConflictError{Resource: "schedule", Msg: "still referenced by other records"}
	}
	if _, ok := t.data.buses[s.BusID]; !ok {
		return models.ConflictError{Resource: "schedule", Msg: "still referenced by other records"}
	}
	s.UpdatedAt = s.CreatedAt
	t.data.schedules[s.ID] = *s
	return nil
}

func (t *memTx) getSchedule(id uuid.UUID) (*models.Schedule, error) {
	s, ok := t.data.schedules[id]
	if !ok {
		return nil, models.NotFoundError{Resource: "schedule", ID: id.String()}
	}
	return &s, nil
}

func (t *memTx) GetScheduleByID(_ context.Context, id uuid.UUID) (*models.Schedule, error) {
	defer t.lock()()
	return t.getSchedule(id)
}

func (t *memTx) LockSchedule(_ context.Context, id uuid.UUID) (*models.Schedule, error) {
	defer t.lock()()
	return t.getSchedule(id)
}

func (t *memTx) ShareLockSchedule(_ context.Context, id uuid.UUID) (*models.Schedule, error) {
	defer t.lock()()
	return t.getSchedule(id)
}

func (t *memTx) GetScheduleDetail(_ context.Context, id uuid.UUID) (*models.ScheduleDetail, error) {
	defer t.lock()()
	s, err := t.getSchedule(id)
	if err != nil {
		return nil, err
	}
	available := 0
	for _, seat := range t.data.seats {
		if seat.ScheduleID == id && !seat.IsBooked {
			available++
		}
	}
	return &models.ScheduleDetail{
		Schedule:       *s,
		Route:          t.data.routes[s.RouteID],
		Bus:            t.data.buses[s.BusID],
		AvailableSeats: available,
	}, nil
}

// seats

func (t *memTx) InsertSeats(_ context.Context, seats []models.Seat) error {
	defer t.lock()()
	for i := range seats {
		for _, existing := range t.data.seats {
			if existing.ScheduleID == seats[i].ScheduleID && existing.SeatNumber == seats[i].SeatNumber {
				return models.ConflictError{Resource: "seat", Msg: "already exists"}
			}
		}
		if seats[i].ID == uuid.Nil {
			seats[i].ID = uuid.New()
		}
		if seats[i].Version == 0 {
			seats[i].Version = 1
		}
		t.data.seats[seats[i].ID] = seats[i]
	}
	return nil
}

func (t *memTx) seatsOf(scheduleID uuid.UUID, keep func(models.Seat) bool) []models.Seat {
	var out []models.Seat
	for _, seat := range t.data.seats {
		if seat.ScheduleID == scheduleID && (keep == nil || keep(seat)) {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out
}

func (t *memTx) ListSeats(_ context.Context, scheduleID uuid.UUID) ([]models.Seat, error) {
	defer t.lock()()
	seats := t.seatsOf(scheduleID, nil)
	sort.SliceStable(seats, func(i, j int) bool {
		a, b := seats[i], seats[j]
		if len(a.RowLabel) != len(b.RowLabel) {
			return len(a.RowLabel) < len(b.RowLabel)
		}
		if a.RowLabel != b.RowLabel {
			return a.RowLabel < b.RowLabel
		}
		return a.Column < b.Column
	})
	return seats, nil
}

func (t *memTx) LockSeatsByNumbers(_ context.Context, scheduleID uuid.UUID, numbers []string) ([]models.Seat, error) {
	defer t.lock()()
	want := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	return t.seatsOf(scheduleID, func(s models.Seat) bool { return want[s.SeatNumber] }), nil
}

func (t *memTx) MarkSeatsBooked(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	defer t.lock()()
	flipped := []uuid.UUID{}
	for _, id := range ids {
		seat, ok := t.data.seats[id]
		if !ok || seat.IsBooked {
			continue
		}
		seat.IsBooked = true
		seat.Version++
		t.data.seats[id] = seat
		flipped = append(flipped, id)
	}
	return flipped, nil
}

func (t *memTx) ReleaseSeat(_ context.Context, id uuid.UUID) (int64, error) {
	defer t.lock()()
	seat, ok := t.data.seats[id]
	if !ok || !seat.IsBooked {
		return 0, nil
	}
	seat.IsBooked = false
	seat.Version++
	t.data.seats[id] = seat
	return 1, nil
}

func (t *memTx) ReleaseAllSeats(_ context.Context, scheduleID uuid.UUID) (int64, error) {
	defer t.lock()()
	var n int64
	for id, seat := range t.data.seats {
		if seat.ScheduleID == scheduleID && seat.IsBooked {
			seat.IsBooked = false
			seat.Version++
			t.data.seats[id] = seat
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteSeats(_ context.Context, scheduleID uuid.UUID) (int64, error) {
	defer t.lock()()
	var n int64
	for id, seat := range t.data.seats {
		if seat.ScheduleID != scheduleID {
			continue
		}
		delete(t.data.seats, id)
		n++
		for bid, b := range t.data.bookings {
			if b.SeatID != nil && *b.SeatID == id {
				b.SeatID = nil
				t.data.bookings[bid] = b
			}
		}
	}
	return n, nil
}

// tickets

func (t *memTx) TicketNumberExists(_ context.Context, number string) (bool, error) {
	defer t.lock()()
	for _, tk := range t.data.tickets {
		if tk.TicketNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateTicket(_ context.Context, tk *models.Ticket) error {
	defer t.lock()()
	for _, existing := range t.data.tickets {
		if existing.TicketNumber == tk.TicketNumber {
			return models.ConflictError{Resource: "ticket", Msg: "already exists"}
		}
	}
	if tk.ID == uuid.Nil {
		tk.ID = uuid.New()
	}
	t.data.tickets[tk.ID] = *tk
	return nil
}

func (t *memTx) GetTicketByID(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	defer t.lock()()
	tk, ok := t.data.tickets[id]
	if !ok {
		return nil, models.NotFoundError{Resource: "ticket", ID: id.String()}
	}
	return &tk, nil
}

func (t *memTx) GetTicketByNumber(_ context.Context, number string) (*models.Ticket, error) {
	defer t.lock()()
	for _, tk := range t.data.tickets {
		if tk.TicketNumber == number {
			return &tk, nil
		}
	}
	return nil, models.NotFoundError{Resource: "ticket", ID: number}
}

// bookings

func (t *memTx) CreateBooking(_ context.Context, b *models.Booking) error {
	defer t.lock()()
	if err := t.check("CreateBooking", b.ScheduleID); err != nil {
		return err
	}
	for _, existing := range t.data.bookings {
		if existing.ScheduleID == b.ScheduleID && existing.SeatID != nil && b.SeatID != nil &&
			*existing.SeatID == *b.SeatID && existing.Status != models.BookingStatusCancelled {
			return models.ConflictError{Seat: b.SeatNumber, Msg: "seat is already booked"}
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	b.UpdatedAt = b.CreatedAt
	t.data.bookings[b.ID] = *b
	return nil
}

func (t *memTx) getBooking(id uuid.UUID) (*models.Booking, error) {
	b, ok := t.data.bookings[id]
	if !ok || b.DeletedAt != nil {
		return nil, models.NotFoundError{Resource: "booking", ID: id.String()}
	}
	return &b, nil
}

func (t *memTx) GetBookingByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	defer t.lock()()
	return t.getBooking(id)
}

func (t *memTx) LockBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	defer t.lock()()
	if err := t.check("LockBooking", id); err != nil {
		return nil, err
	}
	return t.getBooking(id)
}

func (t *memTx) bookingsWhere(keep func(models.Booking) bool) []models.Booking {
	out := []models.Booking{}
	for _, b := range t.data.bookings {
		if b.DeletedAt == nil && keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (t *memTx) ListBookingsByTicket(_ context.Context, ticketID uuid.UUID) ([]models.Booking, error) {
	defer t.lock()()
	out := t.bookingsWhere(func(b models.Booking) bool { return b.TicketID == ticketID })
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (t *memTx) LockActiveBookingsBySchedule(_ context.Context, scheduleID uuid.UUID) ([]models.Booking, error) {
	defer t.lock()()
	out := t.bookingsWhere(func(b models.Booking) bool {
		return b.ScheduleID == scheduleID && b.Status != models.BookingStatusCancelled
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (t *memTx) ListBookings(_ context.Context, f models.BookingFilter) ([]models.Booking, int64, error) {
	defer t.lock()()
	out := t.bookingsWhere(func(b models.Booking) bool {
		return (f.UserID == nil || b.UserID == *f.UserID) &&
			(f.ScheduleID == nil || b.ScheduleID == *f.ScheduleID) &&
			(f.Status == nil || b.Status == *f.Status)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	total := int64(len(out))
	page, limit := models.NormalizePage(f.Page, f.Limit)
	start := (page - 1) * limit
	if start > len(out) {
		start = len(out)
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (t *memTx) UpdateBookingState(_ context.Context, b *models.Booking, expectedVersion int) error {
	defer t.lock()()
	cur, ok := t.data.bookings[b.ID]
	if !ok || cur.Version != expectedVersion {
		return models.ConflictError{Resource: "booking", Msg: "was modified concurrently, reload and retry"}
	}
	b.Version = expectedVersion + 1
	b.UpdatedAt = time.Now()
	t.data.bookings[b.ID] = *b
	return nil
}

func (t *memTx) paymentOf(ticketID uuid.UUID) (models.Payment, bool) {
	for _, p := range t.data.payments {
		if p.TicketID == ticketID {
			return p, true
		}
	}
	return models.Payment{}, false
}

func (t *memTx) FindOrphanCandidates(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	defer t.lock()()
	out := t.bookingsWhere(func(b models.Booking) bool {
		p, ok := t.paymentOf(b.TicketID)
		return ok && b.Status == models.BookingStatusBooked && p.Status.Unsettled() && b.CreatedAt.Before(cutoff)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	ids := []uuid.UUID{}
	for i, b := range out {
		if i == limit {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (t *memTx) CompleteDepartedBookings(_ context.Context, now time.Time) (int64, error) {
	defer t.lock()()
	var n int64
	for id, b := range t.data.bookings {
		s := t.data.schedules[b.ScheduleID]
		p, ok := t.paymentOf(b.TicketID)
		if b.Status != models.BookingStatusBooked || !ok || p.Status != models.PaymentStatusCompleted || s.DepartureAt.After(now) {
			continue
		}
		at := now
		b.Status = models.BookingStatusCompleted
		b.CompletedAt = &at
		b.Version++
		t.data.bookings[id] = b
		n++
	}
	return n, nil
}

// payments

func (t *memTx) CreatePayment(_ context.Context, p *models.Payment) error {
	defer t.lock()()
	if _, exists := t.paymentOf(p.TicketID); exists {
		return models.ConflictError{Resource: "payment", Msg: "already exists"}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	t.data.payments[p.ID] = *p
	return nil
}

func (t *memTx) GetPaymentByTicket(_ context.Context, ticketID uuid.UUID) (*models.Payment, error) {
	defer t.lock()()
	p, ok := t.paymentOf(ticketID)
	if !ok {
		return nil, models.NotFoundError{Resource: "payment", ID: ticketID.String()}
	}
	return &p, nil
}

func (t *memTx) LockPaymentByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error) {
	return t.GetPaymentByTicket(ctx, ticketID)
}

func (t *memTx) UpdatePayment(_ context.Context, p *models.Payment) error {
	defer t.lock()()
	if _, ok := t.data.payments[p.ID]; !ok {
		return models.NotFoundError{Resource: "payment", ID: p.ID.String()}
	}
	t.data.payments[p.ID] = *p
	return nil
}

// audit

func (t *memTx) InsertAuditLog(_ context.Context, l *models.AuditLog) error {
	defer t.lock()()
	if err := t.check("InsertAuditLog", uuid.Nil); err != nil {
		return err
	}
	t.data.auditSeq++
	l.ID = t.data.auditSeq
	l.CreatedAt = time.Now()
	t.data.audit = append(t.data.audit, *l)
	return nil
}

func (t *memTx) ListAuditLogs(_ context.Context, f models.AuditLogFilter) ([]models.AuditLog, int64, error) {
	defer t.lock()()
	out := []models.AuditLog{}
	for i := len(t.data.audit) - 1; i >= 0; i-- {
		l := t.data.audit[i]
		if f.Action != "" && l.Action != f.Action {
			continue
		}
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != "" && (l.EntityID == nil || *l.EntityID != f.EntityID) {
			continue
		}
		if f.UserID != nil && (l.UserID == nil || *l.UserID != *f.UserID) {
			continue
		}
		out = append(out, l)
	}
	total := int64(len(out))
	page, limit := models.NormalizePage(f.Page, f.Limit)
	start := (page - 1) * limit
	if start > len(out) {
		start = len(out)
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

// helpers for assertions

func (d *memData) auditActions() []string {
	actions := make([]string, 0, len(d.audit))
	for _, l := range d.audit {
		actions = append(actions, l.Action)
	}
	return actions
}

func (d *memData) seatByNumber(scheduleID uuid.UUID, number string) (models.Seat, bool) {
	for _, s := range d.seats {
		if s.ScheduleID == scheduleID && strings.EqualFold(s.SeatNumber, number) {
			return s, true
		}
	}
	return models.Seat{}, false
}

func (d *memData) bookingsOfTicket(ticketID uuid.UUID) []models.Booking {
	var out []models.Booking
	for _, b := range d.bookings {
		if b.TicketID == ticketID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out
}

func (d *memData) paymentOfTicket(ticketID uuid.UUID) models.Payment {
	for _, p := range d.payments {
		if p.TicketID == ticketID {
			return p
		}
	}
	return models.Payment{}
}
