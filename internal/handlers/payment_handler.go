package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

const defaultFailureReason = "payment declined"

// PaymentSettler applies payment collaborator outcomes to bookings
type PaymentSettler interface {
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*models.Booking, error)
	MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Booking, error)
}

// PaymentHandler receives payment collaborator callbacks
type PaymentHandler struct {
	payments PaymentSettler
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentSettler, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// Callback handles POST /api/v1/payments/callback
// @Summary Settle a payment intent
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.PaymentCallbackRequest true "Payment outcome"
// @Success 200 {object} models.Booking
// @Failure 401 {object} map[string]interface{} "Invalid signature"
// @Failure 409 {object} map[string]interface{} "Payment already settled differently"
// @Router /api/v1/payments/callback [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req models.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"payment_id": req.PaymentID,
		"status":     req.Status,
	})

	var (
		booking *models.Booking
		err     error
	)
	switch req.Status {
	case models.PaymentRecordPaid:
		booking, err = h.payments.ConfirmPayment(c.Request.Context(), req.PaymentID)
	case models.PaymentRecordFailed:
		reason := defaultFailureReason
		if req.Reason != nil && *req.Reason != "" {
			reason = *req.Reason
		}
		booking, err = h.payments.MarkPaymentFailed(c.Request.Context(), req.PaymentID, reason)
	default:
		badRequest(c, "status must be PAID or FAILED")
		return
	}
	if err != nil {
		log.WithError(err).Warn("Payment callback rejected")
		respondError(c, h.logger, err)
		return
	}

	log.WithField("booking_status", booking.Status).Info("Payment callback applied")
	c.JSON(http.StatusOK, booking)
}
