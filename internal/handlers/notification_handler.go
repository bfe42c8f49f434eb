package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotificationReader lists a user's outbox entries
type NotificationReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

// NotificationHandler serves the caller's notifications
type NotificationHandler struct {
	notifications NotificationReader
	logger        *logrus.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications NotificationReader, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// ListNotifications handles GET /api/v1/notifications?limit=N
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "limit must be a positive whole number")
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	notifications, err := h.notifications.ListByUser(c.Request.Context(), userCtx.UserID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}
