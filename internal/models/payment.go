package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecordStatus is the state of a payment intent
type PaymentRecordStatus string

const (
	PaymentRecordPending  PaymentRecordStatus = "PENDING"
	PaymentRecordPaid     PaymentRecordStatus = "PAID"
	PaymentRecordFailed   PaymentRecordStatus = "FAILED"
	PaymentRecordRefunded PaymentRecordStatus = "REFUNDED"
)

// Valid reports whether s is a known payment record status
func (s PaymentRecordStatus) Valid() bool {
	switch s {
	case PaymentRecordPending, PaymentRecordPaid, PaymentRecordFailed, PaymentRecordRefunded:
		return true
	}
	return false
}

// Payment is a payment intent recorded for a booking
type Payment struct {
	ID         uuid.UUID           `json:"id" db:"id"`
	BookingID  uuid.UUID           `json:"booking_id" db:"booking_id"`
	Amount     float64             `json:"amount" db:"amount"`
	Method     PaymentMethod       `json:"method" db:"method"`
	Status     PaymentRecordStatus `json:"status" db:"status"`
	Reason     *string             `json:"reason,omitempty" db:"reason"`
	PaidAt     *time.Time          `json:"paid_at,omitempty" db:"paid_at"`
	RefundedAt *time.Time          `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt  time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at" db:"updated_at"`
}

// PaymentCallbackRequest is sent by the payment collaborator when an intent settles
type PaymentCallbackRequest struct {
	PaymentID uuid.UUID           `json:"payment_id" binding:"required"`
	Status    PaymentRecordStatus `json:"status" binding:"required"`
	Reason    *string             `json:"reason,omitempty"`
}
