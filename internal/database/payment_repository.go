package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tourbooking/booking-backend/internal/models"
)

const paymentColumns = `id, booking_id, amount, method, status, reason, paid_at, refunded_at, created_at, updated_at`

// PaymentRepository records payment intents and their outcomes
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateIntent records a PENDING payment for a booking
func (r *PaymentRepository) CreateIntent(ctx context.Context, bookingID uuid.UUID, amount float64, method models.PaymentMethod) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO payments (booking_id, amount, method, status)
		VALUES ($1, $2, $3, 'PENDING')
		RETURNING id`,
		bookingID, amount, method)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return id, nil
}

// GetByID returns a payment, or nil if it does not exist
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// MarkPaid settles a PENDING intent
func (r *PaymentRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE payments SET status = 'PAID', paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`
	return r.transition(ctx, id, models.PaymentRecordPaid, query, id)
}

// MarkFailed closes a PENDING intent as FAILED
func (r *PaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE payments SET status = 'FAILED', reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`
	return r.transition(ctx, id, models.PaymentRecordFailed, query, id, reason)
}

// MarkRefunded refunds a PAID payment
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE payments SET status = 'REFUNDED', reason = $2, refunded_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'PAID'`
	return r.transition(ctx, id, models.PaymentRecordRefunded, query, id, reason)
}

// RefundClosedIntent records money captured on an intent that was already closed as FAILED
// and refunds it in the same step
func (r *PaymentRepository) RefundClosedIntent(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE payments
		SET status = 'REFUNDED', reason = $2, paid_at = COALESCE(paid_at, NOW()), refunded_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'FAILED'`
	return r.transition(ctx, id, models.PaymentRecordRefunded, query, id, reason)
}

// FindOpenIntent returns the latest PENDING payment for a booking
func (r *PaymentRepository) FindOpenIntent(ctx context.Context, bookingID uuid.UUID) (*uuid.UUID, error) {
	return r.findByStatus(ctx, bookingID, models.PaymentRecordPending)
}

// FindPaid returns the latest PAID payment for a booking
func (r *PaymentRepository) FindPaid(ctx context.Context, bookingID uuid.UUID) (*uuid.UUID, error) {
	return r.findByStatus(ctx, bookingID, models.PaymentRecordPaid)
}

func (r *PaymentRepository) findByStatus(ctx context.Context, bookingID uuid.UUID, status models.PaymentRecordStatus) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `
		SELECT id FROM payments
		WHERE booking_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		bookingID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %s payment: %w", status, err)
	}
	return &id, nil
}

// transition runs a guarded status update. A payment already in the target status is
// treated as success so callbacks can be replayed.
func (r *PaymentRepository) transition(ctx context.Context, id uuid.UUID, target models.PaymentRecordStatus, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark payment %s: %w", target, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	payment, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if payment == nil {
		return models.ErrPaymentNotFound
	}
	if payment.Status == target {
		return nil
	}
	return fmt.Errorf("%w: payment is %s", models.ErrInvalidTransition, payment.Status)
}
