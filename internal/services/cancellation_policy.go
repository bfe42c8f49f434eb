package services

import (
	"math"
	"time"

	"github.com/tourbooking/booking-backend/internal/config"
	"github.com/tourbooking/booking-backend/internal/models"
)

// FeeQuote is the cancellation fee for a booking at a point in time
type FeeQuote struct {
	// DaysUntil is nil when the tour date is unknown
	DaysUntil *int    `json:"days_until,omitempty"`
	Percent   float64 `json:"percent"`
	Fee       float64 `json:"fee"`
	Refund    float64 `json:"refund"`
}

// CancellationPolicy prices cancellations by whole days remaining before the tour.
// It has no side effects.
type CancellationPolicy struct {
	tiers              []config.FeeTier
	unknownDatePercent float64
	location           *time.Location
}

// NewCancellationPolicy creates a policy from tiers sorted by MinDays descending
func NewCancellationPolicy(cfg config.CancellationConfig, location *time.Location) *CancellationPolicy {
	if location == nil {
		location = time.UTC
	}
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = config.DefaultFeeTiers()
	}
	return &CancellationPolicy{
		tiers:              tiers,
		unknownDatePercent: cfg.UnknownDatePercent,
		location:           location,
	}
}

// Quote computes fee and refund for finalAmount. A nil tourDate charges the unknown-date percent.
func (p *CancellationPolicy) Quote(finalAmount float64, tourDate *time.Time, now time.Time) FeeQuote {
	if tourDate == nil {
		return newFeeQuote(finalAmount, p.unknownDatePercent, nil)
	}

	days := DaysUntil(*tourDate, now, p.location)
	return newFeeQuote(finalAmount, p.percentFor(days), &days)
}

func (p *CancellationPolicy) percentFor(days int) float64 {
	for _, tier := range p.tiers {
		if days >= tier.MinDays {
			return tier.Percent
		}
	}
	return 100
}

func newFeeQuote(finalAmount, percent float64, days *int) FeeQuote {
	fee := models.PercentOf(finalAmount, percent)
	if fee > finalAmount {
		fee = finalAmount
	}
	return FeeQuote{
		DaysUntil: days,
		Percent:   percent,
		Fee:       fee,
		Refund:    models.RoundMoney(finalAmount - fee),
	}
}

// DaysUntil counts whole calendar days from today (in location) to the tour date, floored at 0.
// The tour date is a calendar date; its own year, month and day are used.
func DaysUntil(tourDate, now time.Time, location *time.Location) int {
	if days := DaysUntilSigned(tourDate, now, location); days > 0 {
		return days
	}
	return 0
}

// DaysUntilSigned is DaysUntil without the floor; past dates are negative
func DaysUntilSigned(tourDate, now time.Time, location *time.Location) int {
	today := StartOfDay(now, location)
	ty, tm, td := tourDate.Date()
	tour := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	ny, nm, nd := today.Date()
	start := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)

	return int(math.Round(tour.Sub(start).Hours() / 24))
}

// StartOfDay returns midnight of now's calendar day in location
func StartOfDay(now time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	y, m, d := now.In(location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, location)
}
