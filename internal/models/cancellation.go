package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeeTier charges Percent of the paid amount plus Flat when at least
// MinHoursBefore hours remain until departure.
type FeeTier struct {
	MinHoursBefore float64 `json:"min_hours_before"`
	Percent        float64 `json:"percent"`
	Flat           float64 `json:"flat"`
}

// FeePolicy is an ordered set of cancellation fee tiers
type FeePolicy struct {
	tiers []FeeTier
}

// NewFeePolicy sorts tiers by descending threshold
func NewFeePolicy(tiers []FeeTier) FeePolicy {
	sorted := append([]FeeTier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinHoursBefore > sorted[j].MinHoursBefore
	})
	return FeePolicy{tiers: sorted}
}

// Fee computes the cancellation fee for a paid amount with the given time
// remaining until departure. The fee never exceeds the paid amount.
func (p FeePolicy) Fee(paid float64, untilDeparture time.Duration) float64 {
	if paid <= 0 {
		return 0
	}
	hours := untilDeparture.Hours()
	for _, t := range p.tiers {
		if hours >= t.MinHoursBefore {
			fee := paid*t.Percent/100 + t.Flat
			return RoundMoney(math.Min(fee, paid))
		}
	}
	return 0
}

// Refund is paid minus fee, floored at zero
func Refund(paid, fee float64) float64 {
	return RoundMoney(math.Max(0, paid-fee))
}

// RoundMoney rounds to two decimal places
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseFeeTiers parses "minHours:percent[:flat]" entries separated by commas,
// e.g. "72:0,24:10,0:25:50". An empty string yields no tiers.
func ParseFeeTiers(raw string) ([]FeeTier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var tiers []FeeTier
	seen := make(map[float64]bool)
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid fee tier %q", entry)
		}
		hours, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil || hours < 0 {
			return nil, fmt.Errorf("invalid fee tier hours %q", parts[0])
		}
		percent, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || percent < 0 || percent > 100 {
			return nil, fmt.Errorf("invalid fee tier percent %q", parts[1])
		}
		var flat float64
		if len(parts) == 3 {
			flat, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
			if err != nil || flat < 0 {
				return nil, fmt.Errorf("invalid fee tier flat amount %q", parts[2])
			}
		}
		if seen[hours] {
			return nil, fmt.Errorf("duplicate fee tier for %v hours", hours)
		}
		seen[hours] = true
		tiers = append(tiers, FeeTier{MinHoursBefore: hours, Percent: percent, Flat: flat})
	}
	return tiers, nil
}

// SweepResult summarizes one orphan sweep
type SweepResult struct {
	Scanned  int         `json:"scanned"`
	Released int         `json:"released"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Bookings []uuid.UUID `json:"released_booking_ids"`
}

// OrphanReleaseReason marks bookings cancelled by the orphan sweeper
const OrphanReleaseReason = "payment hold expired"
