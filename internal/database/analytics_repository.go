package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-engine/internal/models"
)

// AnalyticsRepository runs read-only aggregations over committed state
type AnalyticsRepository struct {
	db sqlx.QueryerContext
}

func NewAnalyticsRepository(db sqlx.QueryerContext) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// revenue is attributed to the ticket creation time
const revenueBase = `
	FROM payments p
	JOIN tickets t ON t.id = p.ticket_id
	JOIN schedules s ON s.id = t.schedule_id
	JOIN routes r ON r.id = s.route_id
	WHERE p.status IN ('COMPLETED', 'REFUNDED')
	  AND t.created_at >= $1 AND t.created_at < $2`

// RevenueTrends aggregates settled payments by month, route or method
func (r *AnalyticsRepository) RevenueTrends(ctx context.Context, groupBy models.RevenueGroupBy, from, to time.Time) ([]models.RevenuePoint, error) {
	var key, label string
	switch groupBy {
	case models.RevenueByMonth:
		key = `TO_CHAR(DATE_TRUNC('month', t.created_at), 'YYYY-MM')`
		label = key
	case models.RevenueByRoute:
		key = `r.id::text`
		label = `MIN(r.name)`
	case models.RevenueByMethod:
		key = `COALESCE(p.method, 'UNKNOWN')`
		label = key
	default:
		return nil, fmt.Errorf("unsupported revenue grouping %q", groupBy)
	}

	query := fmt.Sprintf(`
		SELECT %s AS key, %s AS label,
			COALESCE(SUM(p.amount), 0) AS gross,
			COALESCE(SUM(p.refunded_amount), 0) AS refunded,
			COALESCE(SUM(p.amount - p.refunded_amount), 0) AS net,
			COUNT(*) AS tickets
		%s
		GROUP BY 1
		ORDER BY 1`, key, label, revenueBase)

	points := []models.RevenuePoint{}
	if err := sqlx.SelectContext(ctx, r.db, &points, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to query revenue trends: %w", err)
	}
	return points, nil
}

// SeatUtilization counts seats sold per bus over schedules departing in range
func (r *AnalyticsRepository) SeatUtilization(ctx context.Context, from, to time.Time) ([]models.BusUtilization, error) {
	rows := []models.BusUtilization{}
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT b.id AS bus_id, b.name AS bus_name,
			COUNT(DISTINCT s.id) AS schedules,
			COALESCE(SUM(seat_totals.total), 0) AS total_seats,
			COALESCE(SUM(seat_totals.booked), 0) AS booked_seats
		FROM buses b
		JOIN schedules s ON s.bus_id = b.id
		JOIN LATERAL (
			SELECT
				(SELECT COUNT(*) FROM seats st WHERE st.schedule_id = s.id) AS total,
				(SELECT COUNT(*) FROM bookings bk
				 WHERE bk.schedule_id = s.id AND bk.status <> 'CANCELLED' AND bk.deleted_at IS NULL) AS booked
		) seat_totals ON TRUE
		WHERE s.departure_at >= $1 AND s.departure_at < $2
		GROUP BY b.id, b.name
		ORDER BY b.name`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query seat utilization: %w", err)
	}
	return rows, nil
}

// CancellationStats summarizes bookings created in range
func (r *AnalyticsRepository) CancellationStats(ctx context.Context, from, to time.Time) (*models.CancellationStats, error) {
	var stats models.CancellationStats
	err := sqlx.GetContext(ctx, r.db, &stats, `
		SELECT
			COUNT(*) AS total_bookings,
			COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'CANCELLED' AND cancellation_reason = $3) AS orphan_released,
			COALESCE(SUM(cancellation_fee) FILTER (WHERE status = 'CANCELLED'), 0) AS fees_collected,
			COALESCE(SUM(refunded_amount) FILTER (WHERE status = 'CANCELLED'), 0) AS total_refunded
		FROM bookings
		WHERE deleted_at IS NULL AND created_at >= $1 AND created_at < $2`,
		from, to, models.OrphanReleaseReason)
	if err != nil {
		return nil, fmt.Errorf("failed to query cancellation stats: %w", err)
	}
	return &stats, nil
}

// HoldSummary counts how tickets created in range resolved their hold
func (r *AnalyticsRepository) HoldSummary(ctx context.Context, from, to time.Time) (*models.HoldAnalytics, error) {
	var h models.HoldAnalytics
	err := sqlx.GetContext(ctx, r.db, &h, `
		SELECT
			COUNT(*) AS tickets,
			COUNT(*) FILTER (WHERE p.completed_at IS NOT NULL) AS paid,
			COUNT(*) FILTER (WHERE p.completed_at IS NULL AND EXISTS (
				SELECT 1 FROM bookings b
				WHERE b.ticket_id = t.id AND b.cancellation_reason = $3)) AS orphaned,
			COUNT(*) FILTER (WHERE p.status IN ('PENDING', 'FAILED')) AS pending
		FROM tickets t
		JOIN payments p ON p.ticket_id = t.id
		WHERE t.created_at >= $1 AND t.created_at < $2`,
		from, to, models.OrphanReleaseReason)
	if err != nil {
		return nil, fmt.Errorf("failed to query hold summary: %w", err)
	}
	return &h, nil
}

// TimeToPayment returns seconds between ticket creation and payment completion
func (r *AnalyticsRepository) TimeToPayment(ctx context.Context, from, to time.Time) ([]float64, error) {
	seconds := []float64{}
	err := sqlx.SelectContext(ctx, r.db, &seconds, `
		SELECT EXTRACT(EPOCH FROM (p.completed_at - t.created_at))::float8
		FROM tickets t
		JOIN payments p ON p.ticket_id = t.id
		WHERE p.completed_at IS NOT NULL
		  AND t.created_at >= $1 AND t.created_at < $2`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query time to payment: %w", err)
	}
	return seconds, nil
}
