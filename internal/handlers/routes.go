package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tourbooking/booking-backend/internal/middleware"
)

// Handlers groups the handlers mounted under /api/v1
type Handlers struct {
	Bookings      *BookingHandler
	Payments      *PaymentHandler
	Vouchers      *VoucherHandler
	Tours         *TourHandler
	Notifications *NotificationHandler
	Admin         *AdminHandler
}

// Register mounts the API routes. auth guards everything except the payment callback,
// which is guarded by paymentSignature instead.
func (h *Handlers) Register(api *gin.RouterGroup, auth, paymentSignature gin.HandlerFunc) {
	// Payment collaborator callback (shared secret, no JWT)
	api.POST("/payments/callback", paymentSignature, h.Payments.Callback)

	protected := api.Group("")
	protected.Use(auth)
	{
		bookings := protected.Group("/bookings")
		{
			bookings.POST("", h.Bookings.CreateBooking)
			bookings.GET("/:id", h.Bookings.GetBooking)
			bookings.POST("/:id/cancel", h.Bookings.CancelBooking)
			bookings.GET("/:id/receipt", h.Bookings.DownloadReceipt)
		}

		protected.POST("/vouchers/validate", h.Vouchers.ValidateVoucher)
		protected.GET("/schedules/:id/availability", h.Tours.Availability)
		protected.GET("/tours/suggestions", h.Tours.Suggestions)
		protected.GET("/notifications", h.Notifications.ListNotifications)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.POST("/remediation/run", h.Admin.RunRemediation)
			admin.GET("/remediation/status", h.Admin.RemediationStatus)
			admin.POST("/bookings/:id/complete", h.Bookings.CompleteBooking)
			admin.POST("/vouchers", h.Vouchers.CreateVoucher)
		}
	}
}
