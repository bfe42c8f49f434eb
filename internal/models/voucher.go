package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType is how a voucher's value is interpreted
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

// Valid reports whether t is a known discount type
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

// Voucher is a discount code with a validity window and optional usage cap
type Voucher struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	Code          string       `json:"code" db:"code"`
	Description   *string      `json:"description,omitempty" db:"description"`
	DiscountType  DiscountType `json:"discount_type" db:"discount_type"`
	DiscountValue float64      `json:"discount_value" db:"discount_value"`
	MinPurchase   *float64     `json:"min_purchase,omitempty" db:"min_purchase"`
	MaxUsage      *int         `json:"max_usage,omitempty" db:"max_usage"`
	CurrentUsage  int          `json:"current_usage" db:"current_usage"`
	ValidFrom     time.Time    `json:"valid_from" db:"valid_from"`
	ValidUntil    time.Time    `json:"valid_until" db:"valid_until"`
	IsActive      bool         `json:"is_active" db:"is_active"`
	// ScheduleID restricts the voucher to one departure when set
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty" db:"schedule_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// IsExhausted reports whether the usage cap has been reached
func (v *Voucher) IsExhausted() bool {
	return v.MaxUsage != nil && v.CurrentUsage >= *v.MaxUsage
}

// ValidateVoucherRequest is the request body for POST /vouchers/validate
type ValidateVoucherRequest struct {
	Code       string     `json:"code" binding:"required"`
	Amount     float64    `json:"amount" binding:"required,gt=0"`
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`
}

// VoucherQuote is the outcome of validating and applying a voucher
type VoucherQuote struct {
	Voucher     *Voucher `json:"voucher"`
	Amount      float64  `json:"amount"`
	Discount    float64  `json:"discount"`
	FinalAmount float64  `json:"final_amount"`
}
