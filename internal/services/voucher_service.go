package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

// VoucherService validates, prices and issues discount codes
type VoucherService struct {
	vouchers VoucherRepository
	now      Clock
	logger   *logrus.Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(vouchers VoucherRepository, logger *logrus.Logger) *VoucherService {
	return &VoucherService{
		vouchers: vouchers,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the service clock
func (s *VoucherService) WithClock(clock Clock) *VoucherService {
	s.now = clock
	return s
}

// Validate checks code against purchaseAmount at now. All failures wrap models.ErrVoucherInvalid.
// A voucher scoped to a schedule only applies when scheduleID matches.
func (s *VoucherService) Validate(ctx context.Context, code string, purchaseAmount float64, now time.Time, scheduleID *uuid.UUID) (*models.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.ErrVoucherNotFound
	}

	voucher, err := s.vouchers.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if voucher == nil {
		return nil, models.ErrVoucherNotFound
	}

	if err := CheckVoucher(voucher, purchaseAmount, now, scheduleID); err != nil {
		return nil, err
	}
	return voucher, nil
}

// CheckVoucher applies the validation rules to an already loaded voucher
func CheckVoucher(voucher *models.Voucher, purchaseAmount float64, now time.Time, scheduleID *uuid.UUID) error {
	if !voucher.IsActive {
		return models.ErrVoucherInactive
	}
	if now.Before(voucher.ValidFrom) || !now.Before(voucher.ValidUntil) {
		return models.ErrVoucherExpired
	}
	if voucher.IsExhausted() {
		return models.ErrVoucherExhausted
	}
	if voucher.MinPurchase != nil && purchaseAmount < *voucher.MinPurchase {
		return models.ErrVoucherBelowMinimum
	}
	if voucher.ScheduleID != nil && (scheduleID == nil || *voucher.ScheduleID != *scheduleID) {
		return models.ErrVoucherNotApplicable
	}
	return nil
}

// ApplyDiscount returns the discount of voucher on amount, never more than amount
func ApplyDiscount(voucher *models.Voucher, amount float64) float64 {
	if amount <= 0 {
		return 0
	}

	var discount float64
	switch voucher.DiscountType {
	case models.DiscountTypePercentage:
		discount = models.PercentOf(amount, voucher.DiscountValue)
	case models.DiscountTypeFixed:
		discount = models.RoundMoney(voucher.DiscountValue)
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > amount {
		return amount
	}
	return discount
}

// Quote validates a voucher for an explicit pre-flight check; voucher errors are returned to the caller
func (s *VoucherService) Quote(ctx context.Context, req *models.ValidateVoucherRequest) (*models.VoucherQuote, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	}

	voucher, err := s.Validate(ctx, req.Code, req.Amount, s.now(), req.ScheduleID)
	if err != nil {
		return nil, err
	}

	discount := ApplyDiscount(voucher, req.Amount)
	return &models.VoucherQuote{
		Voucher:     voucher,
		Amount:      req.Amount,
		Discount:    discount,
		FinalAmount: models.RoundMoney(req.Amount - discount),
	}, nil
}

// Create stores an admin-issued voucher
func (s *VoucherService) Create(ctx context.Context, voucher *models.Voucher) error {
	if err := validateVoucherDefinition(voucher); err != nil {
		return err
	}
	voucher.Code = strings.ToUpper(strings.TrimSpace(voucher.Code))
	voucher.CurrentUsage = 0

	if err := s.vouchers.Create(ctx, voucher); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"voucher_id": voucher.ID,
		"code":       voucher.Code,
	}).Info("Voucher created")
	return nil
}

// IssueForSchedule creates a remediation voucher once per schedule tier.
// Returns false when the tier was already applied.
func (s *VoucherService) IssueForSchedule(ctx context.Context, voucher *models.Voucher, tier models.RemediationTier) (bool, error) {
	if err := validateVoucherDefinition(voucher); err != nil {
		return false, err
	}
	return s.vouchers.IssueForSchedule(ctx, voucher, tier)
}

func validateVoucherDefinition(v *models.Voucher) error {
	switch {
	case strings.TrimSpace(v.Code) == "":
		return fmt.Errorf("%w: voucher code is required", models.ErrInvalidInput)
	case !v.DiscountType.Valid():
		return fmt.Errorf("%w: unknown discount type %q", models.ErrInvalidInput, v.DiscountType)
	case v.DiscountValue <= 0:
		return fmt.Errorf("%w: discount value must be positive", models.ErrInvalidInput)
	case v.DiscountType == models.DiscountTypePercentage && v.DiscountValue > 100:
		return fmt.Errorf("%w: percentage discount cannot exceed 100", models.ErrInvalidInput)
	case !v.ValidUntil.After(v.ValidFrom):
		return fmt.Errorf("%w: valid_until must be after valid_from", models.ErrInvalidInput)
	case v.MaxUsage != nil && *v.MaxUsage < 1:
		return fmt.Errorf("%w: max usage must be at least 1", models.ErrInvalidInput)
	}
	return nil
}
