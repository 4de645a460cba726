package services

import (
	"context"
	"time"

	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/models"
)

const (
	defaultAnalyticsWindow = 30 * 24 * time.Hour
	maxAnalyticsWindow     = 366 * 24 * time.Hour
)

// AnalyticsReader is the read-only query surface analytics runs on
type AnalyticsReader interface {
	RevenueTrends(ctx context.Context, groupBy models.RevenueGroupBy, from, to time.Time) ([]models.RevenuePoint, error)
	SeatUtilization(ctx context.Context, from, to time.Time) ([]models.BusUtilization, error)
	CancellationStats(ctx context.Context, from, to time.Time) (*models.CancellationStats, error)
	HoldSummary(ctx context.Context, from, to time.Time) (*models.HoldAnalytics, error)
	TimeToPayment(ctx context.Context, from, to time.Time) ([]float64, error)
}

// holdBuckets are the time-to-payment bands, upper bound exclusive
var holdBuckets = []struct {
	label string
	upTo  time.Duration
}{
	{"<15m", 15 * time.Minute},
	{"15m-1h", time.Hour},
	{"1h-6h", 6 * time.Hour},
	{"6h-24h", 24 * time.Hour},
	{"24h-48h", 48 * time.Hour},
	{">48h", 0},
}

// AnalyticsService answers reporting queries over committed state
type AnalyticsService struct {
	reader AnalyticsReader
	now    Clock
}

func NewAnalyticsService(reader AnalyticsReader, now Clock) *AnalyticsService {
	return &AnalyticsService{reader: reader, now: now.orSystem()}
}

// ResolveRange applies the default window and validates the bounds.
// Either bound may be nil.
func (s *AnalyticsService) ResolveRange(from, to *time.Time) (models.DateRange, error) {
	var r models.DateRange
	switch {
	case from == nil && to == nil:
		r.To = s.now()
		r.From = r.To.Add(-defaultAnalyticsWindow)
	case from == nil:
		r.To = *to
		r.From = r.To.Add(-defaultAnalyticsWindow)
	case to == nil:
		r.From = *from
		r.To = s.now()
	default:
		r.From, r.To = *from, *to
	}

	if !r.From.Before(r.To) {
		return r, models.ValidationError{Field: "from", Msg: "must be before to"}
	}
	if r.To.Sub(r.From) > maxAnalyticsWindow {
		return r, models.ValidationError{Field: "to", Msg: "range may not exceed 366 days"}
	}
	return r, nil
}

func (s *AnalyticsService) RevenueTrends(ctx context.Context, actor models.Actor, r models.DateRange, groupBy models.RevenueGroupBy) ([]models.RevenuePoint, error) {
	if err := authz.Authorize(actor, authz.ViewAnalytics, authz.Resource{}); err != nil {
		return nil, err
	}
	if groupBy == "" {
		groupBy = models.RevenueByMonth
	}
	if !groupBy.Valid() {
		return nil, models.ValidationError{Field: "group_by", Msg: "must be month, route or method"}
	}
	points, err := s.reader.RevenueTrends(ctx, groupBy, r.From, r.To)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.RevenuePoint{}
	}
	return points, nil
}

func (s *AnalyticsService) SeatUtilization(ctx context.Context, actor models.Actor, r models.DateRange) ([]models.BusUtilization, error) {
	if err := authz.Authorize(actor, authz.ViewAnalytics, authz.Resource{}); err != nil {
		return nil, err
	}
	rows, err := s.reader.SeatUtilization(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.BusUtilization{}
	}
	for i := range rows {
		rows[i].OccupancyRate = ratio(rows[i].BookedSeats, rows[i].TotalSeats)
	}
	return rows, nil
}

func (s *AnalyticsService) CancellationStats(ctx context.Context, actor models.Actor, r models.DateRange) (*models.CancellationStats, error) {
	if err := authz.Authorize(actor, authz.ViewAnalytics, authz.Resource{}); err != nil {
		return nil, err
	}
	stats, err := s.reader.CancellationStats(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}
	stats.CancellationRate = ratio(stats.Cancelled, stats.TotalBookings)
	return stats, nil
}

func (s *AnalyticsService) HoldAnalytics(ctx context.Context, actor models.Actor, r models.DateRange) (*models.HoldAnalytics, error) {
	if err := authz.Authorize(actor, authz.ViewAnalytics, authz.Resource{}); err != nil {
		return nil, err
	}
	summary, err := s.reader.HoldSummary(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}
	seconds, err := s.reader.TimeToPayment(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}

	summary.OrphanRate = ratio(summary.Orphaned, summary.Tickets)
	summary.Buckets = bucketDurations(seconds)
	return summary, nil
}

func bucketDurations(seconds []float64) []models.HoldBucket {
	buckets := make([]models.HoldBucket, len(holdBuckets))
	for i, b := range holdBuckets {
		buckets[i].Label = b.label
	}
	for _, sec := range seconds {
		d := time.Duration(sec * float64(time.Second))
		i := len(holdBuckets) - 1
		for j, b := range holdBuckets[:len(holdBuckets)-1] {
			if d < b.upTo {
				i = j
				break
			}
		}
		buckets[i].Count++
	}
	return buckets
}

// ratio returns part/whole rounded to four decimals, 0 when whole is 0
func ratio(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	v := float64(part) / float64(whole)
	return float64(int64(v*10000+0.5)) / 10000
}
