package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

// VoucherEngine quotes and creates vouchers
type VoucherEngine interface {
	Quote(ctx context.Context, req *models.ValidateVoucherRequest) (*models.VoucherQuote, error)
	Create(ctx context.Context, voucher *models.Voucher) error
}

// VoucherHandler handles voucher requests
type VoucherHandler struct {
	vouchers VoucherEngine
	logger   *logrus.Logger
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(vouchers VoucherEngine, logger *logrus.Logger) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers, logger: logger}
}

// ValidateVoucher handles POST /api/v1/vouchers/validate
// @Summary Preview the discount a voucher gives on an amount
// @Tags Vouchers
// @Accept json
// @Produce json
// @Param request body models.ValidateVoucherRequest true "Voucher and amount"
// @Success 200 {object} models.VoucherQuote
// @Failure 422 {object} map[string]interface{} "Voucher cannot be used"
// @Security BearerAuth
// @Router /api/v1/vouchers/validate [post]
func (h *VoucherHandler) ValidateVoucher(c *gin.Context) {
	var req models.ValidateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	quote, err := h.vouchers.Quote(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// CreateVoucher handles POST /api/v1/admin/vouchers
func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	var voucher models.Voucher
	if err := c.ShouldBindJSON(&voucher); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.vouchers.Create(c.Request.Context(), &voucher); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, voucher)
}
