package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING STATUSES
// ============================================================================

// BookingStatus represents the lifecycle of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Valid reports whether s is a known booking status
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// IsActive reports whether the booking still holds seats
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed:
		return true
	case BookingStatusCancelled, BookingStatusCompleted:
		return false
	}
	return false
}

// ActiveBookingStatuses are the statuses that hold schedule capacity
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// PaymentStatus represents the payment state of a booking
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the customer intends to pay
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodEWallet      PaymentMethod = "E_WALLET"
	PaymentMethodCash         PaymentMethod = "CASH"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodEWallet, PaymentMethodCash:
		return true
	}
	return false
}

// DeviceInfo stores device metadata
type DeviceInfo map[string]interface{}

func (d DeviceInfo) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *DeviceInfo) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, d)
}

// ============================================================================
// BOOKING (tour_bookings table)
// ============================================================================

// Booking is a customer's reservation of seats on a schedule
type Booking struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	BookingCode      string     `json:"booking_code" db:"booking_code"`
	CustomerID       uuid.UUID  `json:"customer_id" db:"customer_id"`
	TourID           uuid.UUID  `json:"tour_id" db:"tour_id"`
	ScheduleID       uuid.UUID  `json:"schedule_id" db:"schedule_id"`
	ParticipantCount int        `json:"participant_count" db:"participant_count"`
	VoucherID        *uuid.UUID `json:"voucher_id,omitempty" db:"voucher_id"`

	// Contact
	ContactName     string  `json:"contact_name" db:"contact_name"`
	ContactPhone    string  `json:"contact_phone" db:"contact_phone"`
	ContactEmail    *string `json:"contact_email,omitempty" db:"contact_email"`
	SpecialRequests *string `json:"special_requests,omitempty" db:"special_requests"`

	// Money
	TotalAmount    float64 `json:"total_amount" db:"total_amount"`
	DiscountAmount float64 `json:"discount_amount" db:"discount_amount"`
	FinalAmount    float64 `json:"final_amount" db:"final_amount"`

	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	Status        BookingStatus `json:"status" db:"status"`

	// Cancellation (populated only on cancellation)
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationFee    *float64   `json:"cancellation_fee,omitempty" db:"cancellation_fee"`
	RefundAmount       *float64   `json:"refund_amount,omitempty" db:"refund_amount"`
	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`

	DeviceInfo DeviceInfo `json:"device_info,omitempty" db:"device_info"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Contact holds the booking contact person
type Contact struct {
	Name            string  `json:"name" binding:"required"`
	Phone           string  `json:"phone" binding:"required"`
	Email           *string `json:"email,omitempty"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

// Cancellation is the outcome recorded on a cancelled booking
type Cancellation struct {
	CancelledAt time.Time
	Fee         float64
	Refund      float64
	Reason      string
}

// ============================================================================
// REQUEST/RESPONSE DTOs
// ============================================================================

// CreateBookingRequest is the request body for POST /bookings
type CreateBookingRequest struct {
	TourID           uuid.UUID     `json:"tour_id" binding:"required"`
	ScheduleID       uuid.UUID     `json:"schedule_id" binding:"required"`
	ParticipantCount int           `json:"participant_count" binding:"required,min=1"`
	Contact          Contact       `json:"contact"`
	VoucherCode      *string       `json:"voucher_code,omitempty"`
	PaymentMethod    PaymentMethod `json:"payment_method" binding:"required"`
}

// CancelBookingRequest is the request body for POST /bookings/:id/cancel
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CreateBookingResponse is returned after a booking has been created
type CreateBookingResponse struct {
	Booking   *Booking  `json:"booking"`
	PaymentID uuid.UUID `json:"payment_id"`
	// VoucherError explains why a supplied voucher code was not applied
	VoucherError *string `json:"voucher_error,omitempty"`
}
