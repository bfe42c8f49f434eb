package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tourbooking/booking-backend/internal/models"
)

const bookingColumns = `id, booking_code, customer_id, tour_id, schedule_id, participant_count, voucher_id,
	contact_name, contact_phone, contact_email, special_requests,
	total_amount, discount_amount, final_amount, payment_method, payment_status, status,
	cancelled_at, cancellation_fee, refund_amount, cancellation_reason,
	device_info, created_at, updated_at`

// BookingRepository handles tour booking database operations
type BookingRepository struct {
	db         *sqlx.DB
	codePrefix string
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB, codePrefix string) *BookingRepository {
	if codePrefix == "" {
		codePrefix = "TB"
	}
	return &BookingRepository{db: db, codePrefix: codePrefix}
}

// GenerateBookingCode generates a unique human-readable booking code
// Format: TB-YYYYMMDD-XXXXXX (6 char hex)
func (r *BookingRepository) GenerateBookingCode(ctx context.Context, now time.Time) (string, error) {
	dateStr := now.Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 3)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		code := fmt.Sprintf("%s-%s-%s", r.codePrefix, dateStr, strings.ToUpper(hex.EncodeToString(randomBytes)))

		var count int
		err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tour_bookings WHERE booking_code = $1`, code)
		if err != nil {
			return "", fmt.Errorf("failed to check booking code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking code after 10 attempts")
}

// Create inserts a booking, redeeming its voucher in the same transaction.
// Returns models.ErrVoucherExhausted if the voucher ran out before this redemption.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	code, err := r.GenerateBookingCode(ctx, time.Now())
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Redeem voucher
	if booking.VoucherID != nil {
		if err := redeemVoucher(ctx, tx, *booking.VoucherID); err != nil {
			return err
		}
	}

	// 2. Insert booking
	query := `
		INSERT INTO tour_bookings (
			booking_code, customer_id, tour_id, schedule_id, participant_count, voucher_id,
			contact_name, contact_phone, contact_email, special_requests,
			total_amount, discount_amount, final_amount, payment_method, payment_status, status,
			device_info
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		) RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		code, booking.CustomerID, booking.TourID, booking.ScheduleID, booking.ParticipantCount, booking.VoucherID,
		booking.ContactName, booking.ContactPhone, booking.ContactEmail, booking.SpecialRequests,
		booking.TotalAmount, booking.DiscountAmount, booking.FinalAmount,
		booking.PaymentMethod, booking.PaymentStatus, booking.Status,
		booking.DeviceInfo,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.BookingCode = code
	return nil
}

// GetByID returns a booking, or nil if it does not exist
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM tour_bookings WHERE id = $1`

	err := r.db.GetContext(ctx, &booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListActiveBySchedule returns PENDING and CONFIRMED bookings on a schedule
func (r *BookingRepository) ListActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*models.Booking, error) {
	return r.ListBySchedule(ctx, scheduleID, models.ActiveBookingStatuses...)
}

// ListBySchedule returns the bookings on a schedule having one of statuses
func (r *BookingRepository) ListBySchedule(ctx context.Context, scheduleID uuid.UUID, statuses ...models.BookingStatus) ([]*models.Booking, error) {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}

	query := `
		SELECT ` + bookingColumns + `
		FROM tour_bookings
		WHERE schedule_id = $1 AND status = ANY($2)
		ORDER BY created_at`

	var bookings []*models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, scheduleID, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("failed to list bookings for schedule: %w", err)
	}
	return bookings, nil
}

// Cancel records the cancellation if the booking is still PENDING or CONFIRMED.
// Returns false when another request already moved it out of those states.
func (r *BookingRepository) Cancel(ctx context.Context, id uuid.UUID, c models.Cancellation) (bool, error) {
	query := `
		UPDATE tour_bookings
		SET status = 'CANCELLED',
		    cancelled_at = $2,
		    cancellation_fee = $3,
		    refund_amount = $4,
		    cancellation_reason = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'CONFIRMED')`

	return r.execTransition(ctx, "cancel booking", query, id, c.CancelledAt, c.Fee, c.Refund, nullableString(c.Reason))
}

// Abandon cancels a booking whose payment intent could not be created and gives back its
// voucher use. Fee is zero.
func (r *BookingRepository) Abandon(ctx context.Context, booking *models.Booking, reason string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tour_bookings
		SET status = 'CANCELLED', cancelled_at = $2, cancellation_fee = 0, refund_amount = final_amount,
		    cancellation_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`,
		booking.ID, at, reason)
	if err != nil {
		return fmt.Errorf("failed to abandon booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows > 0 && booking.VoucherID != nil {
		if err := unredeemVoucher(ctx, tx, *booking.VoucherID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit abandoned booking: %w", err)
	}
	return nil
}

// Confirm moves a PENDING booking to CONFIRMED and PAID
func (r *BookingRepository) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tour_bookings
		SET status = 'CONFIRMED', payment_status = 'PAID', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`
	return r.execTransition(ctx, "confirm booking", query, id)
}

// Complete moves a CONFIRMED booking to COMPLETED
func (r *BookingRepository) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tour_bookings
		SET status = 'COMPLETED', updated_at = NOW()
		WHERE id = $1 AND status = 'CONFIRMED'`
	return r.execTransition(ctx, "complete booking", query, id)
}

// SetPaymentStatus overwrites the booking's payment status
func (r *BookingRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tour_bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func (r *BookingRepository) execTransition(ctx context.Context, action, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", action, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
