package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/middleware"
	"github.com/tourbooking/booking-backend/internal/models"
)

// errorStatus maps a domain error to its HTTP status, error key and code
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found", "NOT_FOUND"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "forbidden", "FORBIDDEN"
	case errors.Is(err, models.ErrCapacityExceeded):
		return http.StatusConflict, "sold_out", "SOLD_OUT"
	case errors.Is(err, models.ErrAlreadyCancelled):
		return http.StatusConflict, "conflict", "ALREADY_CANCELLED"
	case errors.Is(err, models.ErrAlreadyCompleted):
		return http.StatusConflict, "conflict", "ALREADY_COMPLETED"
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "conflict", "INVALID_TRANSITION"
	case errors.Is(err, models.ErrVoucherInvalid):
		return http.StatusUnprocessableEntity, "voucher_invalid", "VOUCHER_INVALID"
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrScheduleMismatch):
		return http.StatusBadRequest, "invalid_request", "INVALID_INPUT"
	}
	return http.StatusInternalServerError, "internal_error", "INTERNAL_ERROR"
}

// respondError writes err in the standard error body. Server errors are logged and their
// details withheld from the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, key, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		message = "An internal error occurred. Please try again later."
	}

	c.JSON(status, gin.H{
		"error":   key,
		"message": message,
		"code":    code,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": message,
		"code":    "INVALID_INPUT",
	})
}

// pathUUID parses the named path parameter, answering 400 when it is not a UUID
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated user, answering 401 when the auth middleware did not run
func currentUser(c *gin.Context) (middleware.UserContext, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Authentication required",
			"code":    "MISSING_USER_CONTEXT",
		})
		return middleware.UserContext{}, false
	}
	return userCtx, true
}
