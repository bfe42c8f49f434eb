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

const scheduleColumns = `id, tour_id, tour_date, start_time, max_slots, booked_slots,
	current_price, discount_percent, status, remediation_tier, created_at, updated_at`

// ScheduleRepository owns the tour_schedules rows, including the seat counters
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// GetByID returns a schedule, or nil if it does not exist
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	query := `SELECT ` + scheduleColumns + ` FROM tour_schedules WHERE id = $1`

	err := r.db.GetContext(ctx, &schedule, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

// ============================================================================
// CAPACITY (sole writers of booked_slots)
// ============================================================================

// Reserve atomically adds count seats when the schedule is SCHEDULED, not in the past
// and has room, flipping it to FULL when the last seat goes.
// Returns nil when the guard rejected the update.
func (r *ScheduleRepository) Reserve(ctx context.Context, id uuid.UUID, count int, today time.Time) (*models.Schedule, error) {
	query := `
		UPDATE tour_schedules
		SET booked_slots = booked_slots + $2,
		    status = CASE WHEN booked_slots + $2 = max_slots THEN 'FULL' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'SCHEDULED'
		  AND booked_slots + $2 <= max_slots
		  AND tour_date >= $3::date
		RETURNING ` + scheduleColumns

	var schedule models.Schedule
	err := r.db.GetContext(ctx, &schedule, query, id, count, today.Format("2006-01-02"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reserve seats: %w", err)
	}
	return &schedule, nil
}

// Release atomically gives back count seats (floored at zero) and reopens a FULL schedule.
// CANCELLED schedules keep their status. Returns nil if the schedule does not exist.
func (r *ScheduleRepository) Release(ctx context.Context, id uuid.UUID, count int) (*models.Schedule, error) {
	query := `
		UPDATE tour_schedules
		SET booked_slots = GREATEST(booked_slots - $2, 0),
		    status = CASE WHEN status = 'FULL' THEN 'SCHEDULED' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + scheduleColumns

	var schedule models.Schedule
	err := r.db.GetContext(ctx, &schedule, query, id, count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to release seats: %w", err)
	}
	return &schedule, nil
}

// ============================================================================
// REMEDIATION
// ============================================================================

// ListForRemediation returns SCHEDULED departures dated within [from, to], plus schedules
// cancelled by remediation that still have active bookings left to unwind
func (r *ScheduleRepository) ListForRemediation(ctx context.Context, from, to time.Time) ([]*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM tour_schedules s
		WHERE s.tour_date BETWEEN $1::date AND $2::date
		  AND (
		    s.status = 'SCHEDULED'
		    OR (s.status = 'CANCELLED' AND s.remediation_tier = 'CANCELLED'
		        AND EXISTS (
		          SELECT 1 FROM tour_bookings b
		          WHERE b.schedule_id = s.id AND b.status IN ('PENDING', 'CONFIRMED')
		        ))
		  )
		ORDER BY s.tour_date, s.start_time`

	var schedules []*models.Schedule
	err := r.db.SelectContext(ctx, &schedules, query, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for remediation: %w", err)
	}
	return schedules, nil
}

// CancelForLowOccupancy marks the schedule CANCELLED by remediation.
// Returns false if it was already cancelled.
func (r *ScheduleRepository) CancelForLowOccupancy(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tour_schedules
		SET status = 'CANCELLED', remediation_tier = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND status <> 'CANCELLED'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel schedule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// ApplySurcharge raises the effective price by percent once per schedule and returns the new
// price, or nil when the surcharge (or a cancellation) was already applied
func (r *ScheduleRepository) ApplySurcharge(ctx context.Context, id uuid.UUID, percent float64) (*float64, error) {
	query := `
		UPDATE tour_schedules s
		SET current_price = ROUND(COALESCE(s.current_price, t.price) * (100 + $2::numeric) / 100, 2),
		    remediation_tier = 'SURCHARGE',
		    updated_at = NOW()
		FROM tours t
		WHERE s.id = $1
		  AND t.id = s.tour_id
		  AND s.status = 'SCHEDULED'
		  AND s.remediation_tier NOT IN ('SURCHARGE', 'CANCELLED')
		RETURNING s.current_price`

	var price float64
	err := r.db.GetContext(ctx, &price, query, id, percent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply surcharge: %w", err)
	}
	return &price, nil
}
