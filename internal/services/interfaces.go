package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tourbooking/booking-backend/internal/models"
)

// Clock returns the current time; tests substitute a fixed clock
type Clock func() time.Time

// TourRepository reads the tour directory
type TourRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tour, error)
	ListSuggestionCandidates(ctx context.Context, location string, from time.Time) ([]models.SuggestionCandidate, error)
}

// ScheduleRepository owns schedule rows. Reserve and Release are the only writers of booked slots.
type ScheduleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	Reserve(ctx context.Context, id uuid.UUID, count int, today time.Time) (*models.Schedule, error)
	Release(ctx context.Context, id uuid.UUID, count int) (*models.Schedule, error)
	ListForRemediation(ctx context.Context, from, to time.Time) ([]*models.Schedule, error)
	CancelForLowOccupancy(ctx context.Context, id uuid.UUID) (bool, error)
	ApplySurcharge(ctx context.Context, id uuid.UUID, percent float64) (*float64, error)
}

// BookingRepository persists bookings and their guarded status transitions
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*models.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, c models.Cancellation) (bool, error)
	Abandon(ctx context.Context, booking *models.Booking, reason string, at time.Time) error
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)
	Complete(ctx context.Context, id uuid.UUID) (bool, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
}

// VoucherRepository stores vouchers
type VoucherRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	Create(ctx context.Context, voucher *models.Voucher) error
	IssueForSchedule(ctx context.Context, voucher *models.Voucher, tier models.RemediationTier) (bool, error)
}

// PaymentGateway is the payment collaborator's intent ledger
type PaymentGateway interface {
	CreateIntent(ctx context.Context, bookingID uuid.UUID, amount float64, method models.PaymentMethod) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	MarkPaid(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkRefunded(ctx context.Context, id uuid.UUID, reason string) error
	RefundClosedIntent(ctx context.Context, id uuid.UUID, reason string) error
	FindOpenIntent(ctx context.Context, bookingID uuid.UUID) (*uuid.UUID, error)
	FindPaid(ctx context.Context, bookingID uuid.UUID) (*uuid.UUID, error)
}

// NotificationStore is the outbox written by the notifier
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// Notifier sends fire-and-forget notifications; it never fails the caller
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, payload models.Payload)
}
