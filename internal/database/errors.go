package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/smarttransit/booking-engine/internal/models"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerialization       = "40001"
	pqDeadlock            = "40P01"
)

const activeSeatIndex = "bookings_active_seat"

// classify maps driver errors onto the domain error taxonomy
func classify(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFoundError{Resource: resource}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == activeSeatIndex {
				return models.ConflictError{Resource: "seat", Msg: "seat is already booked", Err: err}
			}
			return models.ConflictError{Resource: resource, Msg: "already exists", Err: err}
		case pqForeignKeyViolation:
			return models.ConflictError{Resource: resource, Msg: "still referenced by other records", Err: err}
		case pqSerialization, pqDeadlock:
			return models.ConflictError{Resource: resource, Msg: "concurrent update, retry", Err: err}
		}
	}
	return fmt.Errorf("%s query failed: %w", resource, err)
}

// notFound maps sql.ErrNoRows to a NotFoundError carrying the id
func notFound(err error, resource, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFoundError{Resource: resource, ID: id}
	}
	return classify(err, resource)
}

// staleWrite is returned when a version-checked update matched no row
func staleWrite(resource string) error {
	return models.ConflictError{Resource: resource, Msg: "was modified concurrently, reload and retry"}
}

// requireOneRow turns a zero-row update into a NotFoundError
func requireOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.NotFoundError{Resource: resource, ID: id}
	}
	return nil
}
