package models

// BookingStatus is the lifecycle state of a single passenger-seat booking
type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusBooked, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// PaymentStatus is the settlement state of a ticket's payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// Unsettled reports whether the payment still counts as a hold
func (s PaymentStatus) Unsettled() bool {
	return s == PaymentStatusPending || s == PaymentStatusFailed
}

// PaymentMethod identifies how a payment was made
type PaymentMethod string

const (
	PaymentMethodEsewa      PaymentMethod = "ESEWA"
	PaymentMethodKhalti     PaymentMethod = "KHALTI"
	PaymentMethodIPSConnect PaymentMethod = "IPS_CONNECT"
	PaymentMethodBank       PaymentMethod = "BANK"
	PaymentMethodCash       PaymentMethod = "CASH"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodEsewa, PaymentMethodKhalti, PaymentMethodIPSConnect,
		PaymentMethodBank, PaymentMethodCash:
		return true
	}
	return false
}

// Role is the authorization role carried by an authenticated user
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role has administrative privileges
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// SeatSide is the side of the aisle a seat sits on
type SeatSide string

const (
	SeatSideLeft  SeatSide = "LEFT"
	SeatSideRight SeatSide = "RIGHT"
)
