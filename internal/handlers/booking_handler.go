package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/middleware"
	"github.com/tourbooking/booking-backend/internal/models"
	"github.com/tourbooking/booking-backend/internal/services"
	"github.com/tourbooking/booking-backend/internal/utils"
)

// BookingManager is the booking lifecycle as seen by the HTTP layer
type BookingManager interface {
	CreateBooking(ctx context.Context, customerID uuid.UUID, req *models.CreateBookingRequest, device models.DeviceInfo) (*models.CreateBookingResponse, error)
	GetBooking(ctx context.Context, requesterID uuid.UUID, asAdmin bool, bookingID uuid.UUID) (*models.Booking, error)
	CancelBooking(ctx context.Context, customerID, bookingID uuid.UUID, reason *string) (*models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

// ReceiptRenderer renders downloadable booking receipts
type ReceiptRenderer interface {
	BookingReceipt(ctx context.Context, requesterID uuid.UUID, asAdmin bool, bookingID uuid.UUID) (*services.Receipt, error)
}

// BookingHandler handles tour booking requests
type BookingHandler struct {
	bookings BookingManager
	receipts ReceiptRenderer
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings BookingManager, receipts ReceiptRenderer, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		receipts: receipts,
		logger:   logger,
	}
}

// CreateBooking handles POST /api/v1/bookings
// @Summary Book seats on a tour departure
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.CreateBookingResponse
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 404 {object} map[string]interface{} "Tour or schedule not found"
// @Failure 409 {object} map[string]interface{} "Sold out"
// @Security BearerAuth
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	device := utils.ParseUserAgent(utils.GetUserAgent(c), utils.GetRealIP(c))
	resp, err := h.bookings.CreateBooking(c.Request.Context(), userCtx.UserID, &req, device)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), userCtx.UserID, userCtx.HasRole(middleware.RoleAdmin), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
// @Summary Cancel a booking and compute its cancellation fee
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.CancelBookingRequest false "Cancellation reason"
// @Success 200 {object} models.Booking
// @Failure 403 {object} map[string]interface{} "Not the booking owner"
// @Failure 409 {object} map[string]interface{} "Already cancelled or completed"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	// The body is optional
	var req models.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	booking, err := h.bookings.CancelBooking(c.Request.Context(), userCtx.UserID, id, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// DownloadReceipt handles GET /api/v1/bookings/:id/receipt
func (h *BookingHandler) DownloadReceipt(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.receipts.BookingReceipt(c.Request.Context(), userCtx.UserID, userCtx.HasRole(middleware.RoleAdmin), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.Filename))
	c.Data(http.StatusOK, "application/pdf", receipt.Content)
}

// CompleteBooking handles POST /api/v1/admin/bookings/:id/complete
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.CompleteBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithField("booking_id", id).Info("Booking marked completed")
	c.JSON(http.StatusOK, booking)
}
