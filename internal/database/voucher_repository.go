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

const voucherColumns = `id, code, description, discount_type, discount_value, min_purchase,
	max_usage, current_usage, valid_from, valid_until, is_active, schedule_id, created_at`

// VoucherRepository handles voucher database operations
type VoucherRepository struct {
	db *sqlx.DB
}

// NewVoucherRepository creates a new VoucherRepository
func NewVoucherRepository(db *sqlx.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// GetByCode looks a voucher up case-insensitively, returning nil if absent
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE UPPER(code) = UPPER($1)`

	err := r.db.GetContext(ctx, &voucher, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return &voucher, nil
}

// Create inserts a voucher
func (r *VoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	return insertVoucher(ctx, r.db, voucher)
}

// IssueForSchedule records tier on the schedule and inserts the voucher in one transaction.
// Returns false without inserting when the schedule already reached tier (or a later one).
func (r *VoucherRepository) IssueForSchedule(ctx context.Context, voucher *models.Voucher, tier models.RemediationTier) (bool, error) {
	if voucher.ScheduleID == nil {
		return false, fmt.Errorf("schedule voucher requires a schedule id")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tour_schedules
		SET remediation_tier = $2, updated_at = NOW()
		WHERE id = $1
		  AND status = 'SCHEDULED'
		  AND remediation_tier <> $2
		  AND remediation_tier NOT IN ('SURCHARGE', 'CANCELLED')`,
		*voucher.ScheduleID, tier)
	if err != nil {
		return false, fmt.Errorf("failed to mark remediation tier: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if err := insertVoucher(ctx, tx, voucher); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit voucher issuance: %w", err)
	}
	return true, nil
}

// redeemVoucher consumes one use inside the booking transaction
func redeemVoucher(ctx context.Context, tx *sqlx.Tx, voucherID uuid.UUID) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE vouchers
		SET current_usage = current_usage + 1
		WHERE id = $1
		  AND is_active
		  AND (max_usage IS NULL OR current_usage < max_usage)`,
		voucherID)
	if err != nil {
		return fmt.Errorf("failed to redeem voucher: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrVoucherExhausted
	}
	return nil
}

// unredeemVoucher gives back one use of an abandoned redemption
func unredeemVoucher(ctx context.Context, tx *sqlx.Tx, voucherID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE vouchers SET current_usage = GREATEST(current_usage - 1, 0) WHERE id = $1`,
		voucherID)
	if err != nil {
		return fmt.Errorf("failed to revert voucher usage: %w", err)
	}
	return nil
}

func insertVoucher(ctx context.Context, q sqlx.QueryerContext, voucher *models.Voucher) error {
	query := `
		INSERT INTO vouchers (
			code, description, discount_type, discount_value, min_purchase,
			max_usage, current_usage, valid_from, valid_until, is_active, schedule_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := q.QueryRowxContext(ctx, query,
		voucher.Code, voucher.Description, voucher.DiscountType, voucher.DiscountValue, voucher.MinPurchase,
		voucher.MaxUsage, voucher.CurrentUsage, voucher.ValidFrom, voucher.ValidUntil, voucher.IsActive, voucher.ScheduleID,
	).Scan(&voucher.ID, &voucher.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}
