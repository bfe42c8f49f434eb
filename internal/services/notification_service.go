package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

// NotificationService writes notifications to the outbox in the background
type NotificationService struct {
	store  NotificationStore
	logger *logrus.Logger
	wg     sync.WaitGroup
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store NotificationStore, logger *logrus.Logger) *NotificationService {
	return &NotificationService{store: store, logger: logger}
}

// Notify queues a notification without blocking. Failures are logged only.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, payload models.Payload) {
	notification := &models.Notification{
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Outlives the request that triggered it
		if err := s.store.Insert(context.WithoutCancel(ctx), notification); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"kind":    kind,
			}).Warn("Failed to enqueue notification")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"notification_id": notification.ID,
			"user_id":         userID,
			"kind":            kind,
		}).Debug("Notification enqueued")
	}()
}

// Wait blocks until queued notifications have been written
func (s *NotificationService) Wait() {
	s.wg.Wait()
}
