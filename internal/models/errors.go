package models

import "errors"

// kindError is a named error that also matches its family sentinel with errors.Is
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

func newKindError(msg string, kind error) error {
	return &kindError{msg: msg, kind: kind}
}

// Families
var (
	ErrNotFound       = errors.New("not found")
	ErrVoucherInvalid = errors.New("voucher invalid")
)

// Lookup failures
var (
	ErrTourNotFound     = newKindError("tour not found", ErrNotFound)
	ErrScheduleNotFound = newKindError("schedule not found", ErrNotFound)
	ErrBookingNotFound  = newKindError("booking not found", ErrNotFound)
	ErrPaymentNotFound  = newKindError("payment not found", ErrNotFound)
)

// Booking and capacity errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("booking does not belong to this customer")
	ErrScheduleMismatch  = errors.New("schedule does not belong to tour")
	ErrCapacityExceeded  = errors.New("not enough seats available")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrAlreadyCompleted  = errors.New("booking is already completed")
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

// Voucher errors
var (
	ErrVoucherNotFound      = newKindError("voucher not found", ErrVoucherInvalid)
	ErrVoucherInactive      = newKindError("voucher is inactive", ErrVoucherInvalid)
	ErrVoucherExpired       = newKindError("voucher is not valid at this time", ErrVoucherInvalid)
	ErrVoucherExhausted     = newKindError("voucher usage limit reached", ErrVoucherInvalid)
	ErrVoucherBelowMinimum  = newKindError("purchase amount is below the voucher minimum", ErrVoucherInvalid)
	ErrVoucherNotApplicable = newKindError("voucher does not apply to this schedule", ErrVoucherInvalid)
)
