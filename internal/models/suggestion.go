package models

import (
	"time"

	"github.com/google/uuid"
)

// SuggestionQuery filters tours for the suggestion ranker
type SuggestionQuery struct {
	Location      string
	PreferredDate *time.Time
	PartySize     *int
}

// SuggestionCandidate is an active tour joined with its nearest open schedule
type SuggestionCandidate struct {
	TourID       uuid.UUID `db:"tour_id"`
	Title        string    `db:"title"`
	Location     string    `db:"location"`
	Rating       float64   `db:"rating"`
	BasePrice    float64   `db:"base_price"`
	ScheduleID   uuid.UUID `db:"schedule_id"`
	TourDate     time.Time `db:"tour_date"`
	StartTime    string    `db:"start_time"`
	MaxSlots     int       `db:"max_slots"`
	BookedSlots  int       `db:"booked_slots"`
	CurrentPrice *float64  `db:"current_price"`
}

// Suggestion is one ranked tour/schedule pair
type Suggestion struct {
	TourID         uuid.UUID `json:"tour_id"`
	Title          string    `json:"title"`
	Location       string    `json:"location"`
	Rating         float64   `json:"rating"`
	ScheduleID     uuid.UUID `json:"schedule_id"`
	TourDate       time.Time `json:"tour_date"`
	StartTime      string    `json:"start_time"`
	AvailableSlots int       `json:"available_slots"`
	Price          float64   `json:"price"`
}
