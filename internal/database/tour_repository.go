package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tourbooking/booking-backend/internal/models"
)

// TourRepository reads the tour directory
type TourRepository struct {
	db *sqlx.DB
}

// NewTourRepository creates a new TourRepository
func NewTourRepository(db *sqlx.DB) *TourRepository {
	return &TourRepository{db: db}
}

// GetByID returns a tour, or nil if it does not exist
func (r *TourRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tour, error) {
	var tour models.Tour
	err := r.db.GetContext(ctx, &tour, `
		SELECT id, title, location, price, rating, is_active, created_at, updated_at
		FROM tours WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return &tour, nil
}

// ListSuggestionCandidates returns each active tour at location joined with its nearest
// SCHEDULED departure on or after from
func (r *TourRepository) ListSuggestionCandidates(ctx context.Context, location string, from time.Time) ([]models.SuggestionCandidate, error) {
	query := `
		SELECT DISTINCT ON (t.id)
			t.id AS tour_id, t.title, t.location, t.rating, t.price AS base_price,
			s.id AS schedule_id, s.tour_date, s.start_time, s.max_slots, s.booked_slots, s.current_price
		FROM tours t
		JOIN tour_schedules s ON s.tour_id = t.id
		WHERE t.is_active
		  AND LOWER(t.location) = LOWER($1)
		  AND s.status = 'SCHEDULED'
		  AND s.tour_date >= $2::date
		ORDER BY t.id, s.tour_date, s.start_time`

	var candidates []models.SuggestionCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, location, from.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to list suggestion candidates: %w", err)
	}
	return candidates, nil
}
