package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
	"github.com/tourbooking/booking-backend/pkg/validator"
)

const (
	reasonIntentFailed    = "payment intent creation failed"
	reasonBookingCanceled = "booking cancelled"
	reasonLatePayment     = "payment received for cancelled booking"
)

// BookingService drives bookings through PENDING -> CONFIRMED -> COMPLETED, or to CANCELLED
type BookingService struct {
	tours     TourRepository
	schedules ScheduleRepository
	bookings  BookingRepository
	payments  PaymentGateway
	capacity  *CapacityService
	vouchers  *VoucherService
	policy    *CancellationPolicy
	notifier  Notifier
	phones    *validator.PhoneValidator

	maxParticipants int
	now             Clock
	logger          *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	tours TourRepository,
	schedules ScheduleRepository,
	bookings BookingRepository,
	payments PaymentGateway,
	capacity *CapacityService,
	vouchers *VoucherService,
	policy *CancellationPolicy,
	notifier Notifier,
	maxParticipants int,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		tours:           tours,
		schedules:       schedules,
		bookings:        bookings,
		payments:        payments,
		capacity:        capacity,
		vouchers:        vouchers,
		policy:          policy,
		notifier:        notifier,
		phones:          validator.NewPhoneValidator(),
		maxParticipants: maxParticipants,
		now:             time.Now,
		logger:          logger,
	}
}

// WithClock replaces the service clock
func (s *BookingService) WithClock(clock Clock) *BookingService {
	s.now = clock
	return s
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking reserves seats, prices the booking, applies an optional voucher, persists the
// booking as PENDING/UNPAID and opens a payment intent for the final amount.
// Seats reserved here are released again if any later step fails, unless the booking row
// could not be abandoned and still holds them.
func (s *BookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, req *models.CreateBookingRequest, device models.DeviceInfo) (*models.CreateBookingResponse, error) {
	phone, err := s.validateCreateRequest(req)
	if err != nil {
		return nil, err
	}

	tour, err := s.tours.GetByID(ctx, req.TourID)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, models.ErrTourNotFound
	}

	schedule, err := s.schedules.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, models.ErrScheduleNotFound
	}
	if schedule.TourID != tour.ID {
		return nil, models.ErrScheduleMismatch
	}

	reserved, err := s.capacity.Reserve(ctx, schedule.ID, req.ParticipantCount)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if relErr := s.capacity.Release(context.WithoutCancel(ctx), schedule.ID, req.ParticipantCount); relErr != nil {
			s.logger.WithError(relErr).WithFields(logrus.Fields{
				"schedule_id": schedule.ID,
				"seats":       req.ParticipantCount,
			}).Error("Failed to release seats after booking failure")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"schedule_id": schedule.ID,
			"seats":       req.ParticipantCount,
		}).Warn("Released seats after booking failure")
	}()

	now := s.now()
	total := models.RoundMoney(reserved.EffectivePrice(tour.Price) * float64(req.ParticipantCount))

	var voucherError *string
	var voucher *models.Voucher
	if req.VoucherCode != nil && strings.TrimSpace(*req.VoucherCode) != "" {
		voucher, err = s.vouchers.Validate(ctx, *req.VoucherCode, total, now, &schedule.ID)
		if err != nil {
			if !errors.Is(err, models.ErrVoucherInvalid) {
				return nil, err
			}
			voucherError = s.voucherSkipped(*req.VoucherCode, err)
			voucher = nil
		}
	}

	booking := &models.Booking{
		CustomerID:       customerID,
		TourID:           tour.ID,
		ScheduleID:       schedule.ID,
		ParticipantCount: req.ParticipantCount,
		ContactName:      strings.TrimSpace(req.Contact.Name),
		ContactPhone:     phone,
		ContactEmail:     req.Contact.Email,
		SpecialRequests:  req.Contact.SpecialRequests,
		TotalAmount:      total,
		FinalAmount:      total,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    models.PaymentStatusUnpaid,
		Status:           models.BookingStatusPending,
		DeviceInfo:       device,
	}
	if voucher != nil {
		discount := ApplyDiscount(voucher, total)
		booking.VoucherID = &voucher.ID
		booking.DiscountAmount = discount
		booking.FinalAmount = finalAmount(total, discount)
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if booking.VoucherID == nil || !errors.Is(err, models.ErrVoucherExhausted) {
			return nil, err
		}

		// Voucher ran out between validation and redemption
		voucherError = s.voucherSkipped(*req.VoucherCode, err)
		booking.VoucherID = nil
		booking.DiscountAmount = 0
		booking.FinalAmount = total
		if err := s.bookings.Create(ctx, booking); err != nil {
			return nil, err
		}
	}

	paymentID, err := s.payments.CreateIntent(ctx, booking.ID, booking.FinalAmount, booking.PaymentMethod)
	if err != nil {
		if abErr := s.bookings.Abandon(context.WithoutCancel(ctx), booking, reasonIntentFailed, now); abErr != nil {
			// Booking row is still PENDING and owns its seats; a later cancel releases them
			committed = true
			s.logger.WithError(abErr).WithFields(logrus.Fields{
				"booking_id":  booking.ID,
				"schedule_id": schedule.ID,
				"seats":       booking.ParticipantCount,
			}).Error("Failed to abandon booking; seats stay held by the pending booking")
		}
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	committed = true

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"customer_id":  customerID,
		"schedule_id":  schedule.ID,
		"seats":        booking.ParticipantCount,
		"total":        booking.TotalAmount,
		"discount":     booking.DiscountAmount,
		"final":        booking.FinalAmount,
		"payment_id":   paymentID,
	}).Info("Booking created")

	s.notifier.Notify(ctx, customerID, models.NotificationBookingCreated, models.Payload{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"tour_title":   tour.Title,
		"tour_date":    reserved.TourDate.Format("2006-01-02"),
		"final_amount": booking.FinalAmount,
	})

	return &models.CreateBookingResponse{
		Booking:      booking,
		PaymentID:    paymentID,
		VoucherError: voucherError,
	}, nil
}

func (s *BookingService) validateCreateRequest(req *models.CreateBookingRequest) (string, error) {
	if req.ParticipantCount < 1 {
		return "", fmt.Errorf("%w: participant count must be at least 1", models.ErrInvalidInput)
	}
	if s.maxParticipants > 0 && req.ParticipantCount > s.maxParticipants {
		return "", fmt.Errorf("%w: participant count cannot exceed %d", models.ErrInvalidInput, s.maxParticipants)
	}
	if strings.TrimSpace(req.Contact.Name) == "" {
		return "", fmt.Errorf("%w: contact name is required", models.ErrInvalidInput)
	}
	if !req.PaymentMethod.Valid() {
		return "", fmt.Errorf("%w: unsupported payment method %q", models.ErrInvalidInput, req.PaymentMethod)
	}

	phone, err := s.phones.Validate(req.Contact.Phone)
	if err != nil {
		return "", fmt.Errorf("%w: contact phone: %v", models.ErrInvalidInput, err)
	}
	return phone, nil
}

// voucherSkipped logs a rejected voucher and returns the message shown to the customer
func (s *BookingService) voucherSkipped(code string, err error) *string {
	s.logger.WithError(err).WithField("voucher_code", code).Info("Voucher not applied, booking continues without discount")
	msg := err.Error()
	return &msg
}

func finalAmount(total, discount float64) float64 {
	final := models.RoundMoney(total - discount)
	if final < 0 {
		return 0
	}
	return final
}

// ============================================================================
// CANCEL
// ============================================================================

// CancelBooking cancels a customer's own booking, charging the fee for the days left
// before the tour and refunding the rest of any payment
func (s *BookingService) CancelBooking(ctx context.Context, customerID, bookingID uuid.UUID, reason *string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.CustomerID != customerID {
		return nil, models.ErrForbidden
	}

	text := ""
	if reason != nil {
		text = strings.TrimSpace(*reason)
	}
	return s.cancel(ctx, booking, text, false, models.NotificationBookingCancelled)
}

// CancelBySystem cancels a booking on the operator's behalf. No fee is charged.
func (s *BookingService) CancelBySystem(ctx context.Context, bookingID uuid.UUID, reason string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	return s.cancel(ctx, booking, reason, true, models.NotificationTourCancelled)
}

func (s *BookingService) cancel(ctx context.Context, booking *models.Booking, reason string, waiveFee bool, kind models.NotificationKind) (*models.Booking, error) {
	if err := cancellableStatus(booking.Status); err != nil {
		return nil, err
	}

	now := s.now()
	quote := FeeQuote{Refund: booking.FinalAmount}
	var tourDate *time.Time
	schedule, err := s.schedules.GetByID(ctx, booking.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule != nil {
		date := schedule.TourDate
		tourDate = &date
	}
	if !waiveFee {
		quote = s.policy.Quote(booking.FinalAmount, tourDate, now)
	}

	cancellation := models.Cancellation{
		CancelledAt: now,
		Fee:         quote.Fee,
		Refund:      quote.Refund,
		Reason:      reason,
	}
	ok, err := s.bookings.Cancel(ctx, booking.ID, cancellation)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another transition
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, models.ErrBookingNotFound
		}
		if err := cancellableStatus(current.Status); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: booking is %s", models.ErrInvalidTransition, current.Status)
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &now
	booking.CancellationFee = &quote.Fee
	booking.RefundAmount = &quote.Refund
	if reason != "" {
		booking.CancellationReason = &reason
	}

	// The booking is cancelled from here on; later failures are logged, not returned
	s.settlePayments(ctx, booking, reason)

	if err := s.capacity.Release(context.WithoutCancel(ctx), booking.ScheduleID, booking.ParticipantCount); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":  booking.ID,
			"schedule_id": booking.ScheduleID,
			"seats":       booking.ParticipantCount,
		}).Error("Failed to release seats of cancelled booking")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"customer_id": booking.CustomerID,
		"fee":         quote.Fee,
		"refund":      quote.Refund,
		"waived":      waiveFee,
		"reason":      reason,
	}).Info("Booking cancelled")

	payload := models.Payload{
		"booking_id":    booking.ID,
		"booking_code":  booking.BookingCode,
		"fee":           quote.Fee,
		"refund_amount": quote.Refund,
		"reason":        reason,
	}
	if tourDate != nil {
		payload["tour_date"] = tourDate.Format("2006-01-02")
	}
	s.notifier.Notify(ctx, booking.CustomerID, kind, payload)

	return booking, nil
}

// settlePayments refunds a settled payment and closes any open intent of a cancelled booking
func (s *BookingService) settlePayments(ctx context.Context, booking *models.Booking, reason string) {
	log := s.logger.WithField("booking_id", booking.ID)
	refundReason := reason
	if refundReason == "" {
		refundReason = reasonBookingCanceled
	}

	paidID, err := s.payments.FindPaid(ctx, booking.ID)
	if err != nil {
		log.WithError(err).Error("Failed to look up paid payment")
	} else if paidID != nil {
		if err := s.payments.MarkRefunded(ctx, *paidID, refundReason); err != nil {
			log.WithError(err).WithField("payment_id", *paidID).Error("Failed to refund payment")
		} else if err := s.bookings.SetPaymentStatus(ctx, booking.ID, models.PaymentStatusRefunded); err != nil {
			log.WithError(err).Error("Failed to mark booking refunded")
		} else {
			booking.PaymentStatus = models.PaymentStatusRefunded
		}
	}

	openID, err := s.payments.FindOpenIntent(ctx, booking.ID)
	if err != nil {
		log.WithError(err).Error("Failed to look up open payment intent")
		return
	}
	if openID != nil {
		if err := s.payments.MarkFailed(ctx, *openID, reasonBookingCanceled); err != nil {
			log.WithError(err).WithField("payment_id", *openID).Error("Failed to close open payment intent")
		}
	}
}

func cancellableStatus(status models.BookingStatus) error {
	switch status {
	case models.BookingStatusCancelled:
		return models.ErrAlreadyCancelled
	case models.BookingStatusCompleted:
		return models.ErrAlreadyCompleted
	}
	return nil
}

// ============================================================================
// PAYMENT SIGNALS
// ============================================================================

// ConfirmPayment settles a payment intent and confirms its PENDING booking.
// Money arriving for a booking that was cancelled meanwhile is refunded at once.
func (s *BookingService) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*models.Booking, error) {
	payment, booking, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if booking.Status == models.BookingStatusCancelled && payment.Status != models.PaymentRecordPending {
		return s.settleAfterCancel(ctx, booking, payment)
	}

	if err := s.payments.MarkPaid(ctx, payment.ID); err != nil {
		return nil, err
	}

	ok, err := s.bookings.Confirm(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, models.ErrBookingNotFound
		}
		if current.Status == models.BookingStatusCancelled {
			s.refundLatePayment(ctx, current, payment.ID)
		}
		return current, nil
	}

	booking.Status = models.BookingStatusConfirmed
	booking.PaymentStatus = models.PaymentStatusPaid

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": payment.ID,
		"amount":     payment.Amount,
	}).Info("Booking confirmed")

	s.notifier.Notify(ctx, booking.CustomerID, models.NotificationBookingConfirmed, models.Payload{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"amount":       payment.Amount,
	})
	return booking, nil
}

// settleAfterCancel handles a PAID signal whose intent was already closed by the cancellation
func (s *BookingService) settleAfterCancel(ctx context.Context, booking *models.Booking, payment *models.Payment) (*models.Booking, error) {
	switch payment.Status {
	case models.PaymentRecordFailed:
		if err := s.payments.RefundClosedIntent(ctx, payment.ID, reasonLatePayment); err != nil {
			return nil, err
		}
		if err := s.bookings.SetPaymentStatus(ctx, booking.ID, models.PaymentStatusRefunded); err != nil {
			return nil, err
		}
		booking.PaymentStatus = models.PaymentStatusRefunded
		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"payment_id": payment.ID,
			"amount":     payment.Amount,
		}).Warn("Refunded payment captured after cancellation")
	case models.PaymentRecordPaid:
		s.refundLatePayment(ctx, booking, payment.ID)
	}
	return booking, nil
}

func (s *BookingService) refundLatePayment(ctx context.Context, booking *models.Booking, paymentID uuid.UUID) {
	log := s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": paymentID,
	})
	if err := s.payments.MarkRefunded(ctx, paymentID, reasonLatePayment); err != nil {
		log.WithError(err).Error("Failed to refund payment for cancelled booking")
		return
	}
	if err := s.bookings.SetPaymentStatus(ctx, booking.ID, models.PaymentStatusRefunded); err != nil {
		log.WithError(err).Error("Failed to mark booking refunded")
		return
	}
	booking.PaymentStatus = models.PaymentStatusRefunded
	log.Warn("Refunded payment received after cancellation")
}

// MarkPaymentFailed records a failed payment. The booking stays PENDING so the customer can retry.
func (s *BookingService) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Booking, error) {
	payment, booking, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if err := s.payments.MarkFailed(ctx, payment.ID, reason); err != nil {
		return nil, err
	}

	if booking.Status == models.BookingStatusPending {
		if err := s.bookings.SetPaymentStatus(ctx, booking.ID, models.PaymentStatusFailed); err != nil {
			return nil, err
		}
		booking.PaymentStatus = models.PaymentStatusFailed
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": payment.ID,
		"reason":     reason,
	}).Warn("Payment failed")
	return booking, nil
}

func (s *BookingService) loadPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, *models.Booking, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, models.ErrPaymentNotFound
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking == nil {
		return nil, nil, models.ErrBookingNotFound
	}
	return payment, booking, nil
}

// ============================================================================
// COMPLETE / READ
// ============================================================================

// CompleteBooking moves a CONFIRMED booking to COMPLETED after departure
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: cannot complete a %s booking", models.ErrInvalidTransition, booking.Status)
	}

	ok, err := s.bookings.Complete(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking changed status concurrently", models.ErrInvalidTransition)
	}

	booking.Status = models.BookingStatusCompleted
	s.logger.WithField("booking_id", booking.ID).Info("Booking completed")
	return booking, nil
}

// GetBooking returns a booking to its owner, or to anyone when asAdmin is set
func (s *BookingService) GetBooking(ctx context.Context, requesterID uuid.UUID, asAdmin bool, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if !asAdmin && booking.CustomerID != requesterID {
		return nil, models.ErrForbidden
	}
	return booking, nil
}

// ListActiveBySchedule returns the PENDING and CONFIRMED bookings of a schedule
func (s *BookingService) ListActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*models.Booking, error) {
	return s.bookings.ListActiveBySchedule(ctx, scheduleID)
}
