package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

// CapacityService allocates and releases schedule seats
type CapacityService struct {
	schedules ScheduleRepository
	location  *time.Location
	now       Clock
	logger    *logrus.Logger
}

// NewCapacityService creates a new CapacityService
func NewCapacityService(schedules ScheduleRepository, location *time.Location, logger *logrus.Logger) *CapacityService {
	if location == nil {
		location = time.UTC
	}
	return &CapacityService{
		schedules: schedules,
		location:  location,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the service clock
func (s *CapacityService) WithClock(clock Clock) *CapacityService {
	s.now = clock
	return s
}

// Reserve takes count seats on the schedule in one atomic check-and-increment.
// Fails with ErrCapacityExceeded unless the schedule is SCHEDULED, not in the past and has room.
func (s *CapacityService) Reserve(ctx context.Context, scheduleID uuid.UUID, count int) (*models.Schedule, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: participant count must be at least 1", models.ErrInvalidInput)
	}

	today := StartOfDay(s.now(), s.location)
	schedule, err := s.schedules.Reserve(ctx, scheduleID, count, today)
	if err != nil {
		return nil, err
	}
	if schedule != nil {
		s.logger.WithFields(logrus.Fields{
			"schedule_id":  scheduleID,
			"reserved":     count,
			"booked_slots": schedule.BookedSlots,
			"max_slots":    schedule.MaxSlots,
			"status":       schedule.Status,
		}).Debug("Seats reserved")
		return schedule, nil
	}

	// Guard rejected the update: tell missing apart from sold out
	current, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, models.ErrScheduleNotFound
	}
	return nil, fmt.Errorf("%w: requested %d, available %d (status %s)",
		models.ErrCapacityExceeded, count, current.AvailableSlots(), current.Status)
}

// Release gives back count seats; a FULL schedule reopens, a CANCELLED one stays cancelled
func (s *CapacityService) Release(ctx context.Context, scheduleID uuid.UUID, count int) error {
	if count < 1 {
		return nil
	}

	schedule, err := s.schedules.Release(ctx, scheduleID, count)
	if err != nil {
		return err
	}
	if schedule == nil {
		return models.ErrScheduleNotFound
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id":  scheduleID,
		"released":     count,
		"booked_slots": schedule.BookedSlots,
		"status":       schedule.Status,
	}).Debug("Seats released")
	return nil
}

// CheckAvailability reports whether count seats could be reserved right now
func (s *CapacityService) CheckAvailability(ctx context.Context, scheduleID uuid.UUID, count int) (bool, error) {
	availability, err := s.Availability(ctx, scheduleID, count)
	if err != nil {
		return false, err
	}
	return availability.Available, nil
}

// Availability returns the seat availability of a schedule for count participants
func (s *CapacityService) Availability(ctx context.Context, scheduleID uuid.UUID, count int) (*models.ScheduleAvailability, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1", models.ErrInvalidInput)
	}

	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, models.ErrScheduleNotFound
	}

	notPast := DaysUntilSigned(schedule.TourDate, s.now(), s.location) >= 0
	return &models.ScheduleAvailability{
		ScheduleID:     schedule.ID,
		Requested:      count,
		Available:      schedule.Status == models.ScheduleStatusScheduled && notPast && schedule.AvailableSlots() >= count,
		AvailableSlots: schedule.AvailableSlots(),
		Status:         schedule.Status,
	}, nil
}
