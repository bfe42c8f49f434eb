package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// TOUR (read-only directory)
// ============================================================================

// Tour is a bookable product offered at a location
type Tour struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Location  string    `json:"location" db:"location"`
	Price     float64   `json:"price" db:"price"`
	Rating    float64   `json:"rating" db:"rating"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ============================================================================
// SCHEDULE STATUSES
// ============================================================================

// ScheduleStatus represents the lifecycle of a departure
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"
	ScheduleStatusFull      ScheduleStatus = "FULL"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

// Valid reports whether s is a known schedule status
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusFull, ScheduleStatusCancelled:
		return true
	}
	return false
}

// RemediationTier records the last low-occupancy action applied to a schedule
type RemediationTier string

const (
	RemediationNone       RemediationTier = "NONE"
	RemediationEarlyPromo RemediationTier = "PROMO_EARLY"
	RemediationLatePromo  RemediationTier = "PROMO_LATE"
	RemediationSurcharge  RemediationTier = "SURCHARGE"
	RemediationCancelled  RemediationTier = "CANCELLED"
)

// Valid reports whether t is a known remediation tier
func (t RemediationTier) Valid() bool {
	switch t {
	case RemediationNone, RemediationEarlyPromo, RemediationLatePromo, RemediationSurcharge, RemediationCancelled:
		return true
	}
	return false
}

// ============================================================================
// SCHEDULE (tour_schedules table)
// ============================================================================

// Schedule is one dated departure of a tour with its own seat capacity
type Schedule struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	TourID          uuid.UUID       `json:"tour_id" db:"tour_id"`
	TourDate        time.Time       `json:"tour_date" db:"tour_date"`
	StartTime       string          `json:"start_time" db:"start_time"`
	MaxSlots        int             `json:"max_slots" db:"max_slots"`
	BookedSlots     int             `json:"booked_slots" db:"booked_slots"`
	CurrentPrice    *float64        `json:"current_price,omitempty" db:"current_price"`
	DiscountPercent *float64        `json:"discount_percent,omitempty" db:"discount_percent"`
	Status          ScheduleStatus  `json:"status" db:"status"`
	RemediationTier RemediationTier `json:"remediation_tier" db:"remediation_tier"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// AvailableSlots returns the seats still free
func (s *Schedule) AvailableSlots() int {
	if s.BookedSlots >= s.MaxSlots {
		return 0
	}
	return s.MaxSlots - s.BookedSlots
}

// EffectivePrice returns the schedule's price override or the tour base price
func (s *Schedule) EffectivePrice(tourPrice float64) float64 {
	if s.CurrentPrice != nil {
		return *s.CurrentPrice
	}
	return tourPrice
}

// ScheduleAvailability is the response for an availability check
type ScheduleAvailability struct {
	ScheduleID     uuid.UUID      `json:"schedule_id"`
	Requested      int            `json:"requested"`
	Available      bool           `json:"available"`
	AvailableSlots int            `json:"available_slots"`
	Status         ScheduleStatus `json:"status"`
}
