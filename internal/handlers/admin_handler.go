package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/services"
)

// manualScanTimeout bounds a remediation pass started over HTTP
const manualScanTimeout = 2 * time.Minute

// RemediationRunner triggers and reports low-occupancy remediation passes
type RemediationRunner interface {
	RunRemediationNow(ctx context.Context) services.ScanReport
	GetJobStatus() map[string]interface{}
}

// AdminHandler handles admin-related HTTP requests
type AdminHandler struct {
	remediation RemediationRunner
	logger      *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(remediation RemediationRunner, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		remediation: remediation,
		logger:      logger,
	}
}

// RunRemediation handles POST /api/v1/admin/remediation/run
// @Summary Run a low-occupancy remediation pass now
// @Tags Admin
// @Produce json
// @Success 200 {object} services.ScanReport
// @Security BearerAuth
// @Router /api/v1/admin/remediation/run [post]
func (h *AdminHandler) RunRemediation(c *gin.Context) {
	// The pass keeps going if the admin closes the connection
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), manualScanTimeout)
	defer cancel()

	if userID, exists := c.Get("user_id"); exists {
		h.logger.WithField("admin_id", userID).Info("Manual remediation pass requested")
	}

	report := h.remediation.RunRemediationNow(ctx)
	c.JSON(http.StatusOK, report)
}

// RemediationStatus handles GET /api/v1/admin/remediation/status
func (h *AdminHandler) RemediationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.remediation.GetJobStatus())
}
