package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/config"
	"github.com/tourbooking/booking-backend/internal/models"
)

// LowOccupancyReason is recorded on bookings cancelled by remediation
const LowOccupancyReason = "tour cancelled due to low occupancy"

type remediationAction int

const (
	actionSkipped remediationAction = iota
	actionEarlyPromo
	actionLatePromo
	actionSurcharge
	actionCancel
	actionAlreadyApplied
)

// ScanReport counts what one remediation pass did
type ScanReport struct {
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Scanned        int       `json:"scanned"`
	Skipped        int       `json:"skipped"`
	EarlyPromos    int       `json:"early_promos"`
	LatePromos     int       `json:"late_promos"`
	Surcharges     int       `json:"surcharges"`
	Cancellations  int       `json:"cancellations"`
	AlreadyApplied int       `json:"already_applied"`
	Failed         int       `json:"failed"`
}

func (r *ScanReport) record(action remediationAction) {
	switch action {
	case actionSkipped:
		r.Skipped++
	case actionEarlyPromo:
		r.EarlyPromos++
	case actionLatePromo:
		r.LatePromos++
	case actionSurcharge:
		r.Surcharges++
	case actionCancel:
		r.Cancellations++
	case actionAlreadyApplied:
		r.AlreadyApplied++
	}
}

// RemediationService promotes, surcharges or cancels under-booked departures close to their date
type RemediationService struct {
	schedules   ScheduleRepository
	tours       TourRepository
	bookings    *BookingService
	vouchers    *VoucherService
	suggestions *SuggestionService
	notifier    Notifier

	cfg      config.RemediationConfig
	location *time.Location
	logger   *logrus.Logger

	mu         sync.Mutex
	lastReport *ScanReport
}

// NewRemediationService creates a new RemediationService
func NewRemediationService(
	schedules ScheduleRepository,
	tours TourRepository,
	bookings *BookingService,
	vouchers *VoucherService,
	suggestions *SuggestionService,
	notifier Notifier,
	cfg config.RemediationConfig,
	location *time.Location,
	logger *logrus.Logger,
) *RemediationService {
	if location == nil {
		location = time.UTC
	}
	return &RemediationService{
		schedules:   schedules,
		tours:       tours,
		bookings:    bookings,
		vouchers:    vouchers,
		suggestions: suggestions,
		notifier:    notifier,
		cfg:         cfg,
		location:    location,
		logger:      logger,
	}
}

// RunRemediationScan processes every under-booked departure in the window once.
// A failing schedule is logged and counted; the scan carries on with the rest.
// Passes are serialized and repeating one is a no-op.
func (s *RemediationService) RunRemediationScan(ctx context.Context, now time.Time) ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := ScanReport{StartedAt: now}
	today := StartOfDay(now, s.location)
	to := today.AddDate(0, 0, s.cfg.WindowDays)

	schedules, err := s.schedules.ListForRemediation(ctx, today, to)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load schedules for remediation")
		report.Failed++
		report.FinishedAt = time.Now()
		s.lastReport = &report
		return report
	}

	for _, schedule := range schedules {
		report.Scanned++

		action, err := s.remediate(ctx, schedule, now)
		if err != nil {
			report.Failed++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"schedule_id":  schedule.ID,
				"tour_date":    schedule.TourDate.Format("2006-01-02"),
				"booked_slots": schedule.BookedSlots,
				"max_slots":    schedule.MaxSlots,
			}).Error("Remediation failed for schedule")
			continue
		}
		report.record(action)
	}

	report.FinishedAt = time.Now()
	s.lastReport = &report

	s.logger.WithFields(logrus.Fields{
		"scanned":         report.Scanned,
		"skipped":         report.Skipped,
		"early_promos":    report.EarlyPromos,
		"late_promos":     report.LatePromos,
		"surcharges":      report.Surcharges,
		"cancellations":   report.Cancellations,
		"already_applied": report.AlreadyApplied,
		"failed":          report.Failed,
	}).Info("Remediation scan finished")
	return report
}

// LastReport returns the result of the most recent pass, or nil before the first one
func (s *RemediationService) LastReport() *ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	return &report
}

func (s *RemediationService) remediate(ctx context.Context, schedule *models.Schedule, now time.Time) (remediationAction, error) {
	// Cancelled by an earlier pass with bookings left over
	if schedule.Status == models.ScheduleStatusCancelled {
		return actionAlreadyApplied, s.cancelBookings(ctx, schedule)
	}

	if schedule.BookedSlots >= floorRatio(schedule.MaxSlots, s.cfg.MinOccupancyRatio) {
		return actionSkipped, nil
	}

	tour, err := s.tours.GetByID(ctx, schedule.TourID)
	if err != nil {
		return actionSkipped, err
	}
	if tour == nil {
		return actionSkipped, models.ErrTourNotFound
	}

	days := DaysUntil(schedule.TourDate, now, s.location)
	switch {
	case days >= s.cfg.EarlyPromoMinDays:
		return s.promote(ctx, schedule, tour, models.RemediationEarlyPromo, s.cfg.EarlyDiscountPercent, now)
	case days >= s.cfg.LatePromoMinDays:
		return s.promote(ctx, schedule, tour, models.RemediationLatePromo, s.cfg.LateDiscountPercent, now)
	case schedule.BookedSlots < floorRatio(schedule.MaxSlots, s.cfg.CancelOccupancyRatio):
		return s.cancelSchedule(ctx, schedule)
	default:
		return s.surcharge(ctx, schedule, tour)
	}
}

// floorRatio is floor(n * ratio) tolerant of binary representation error
func floorRatio(n int, ratio float64) int {
	return int(math.Floor(float64(n)*ratio + 1e-9))
}

// ============================================================================
// PROMOTIONS
// ============================================================================

func (s *RemediationService) promote(ctx context.Context, schedule *models.Schedule, tour *models.Tour, tier models.RemediationTier, percent float64, now time.Time) (remediationAction, error) {
	price := schedule.EffectivePrice(tour.Price)
	maxUsage := s.cfg.VoucherMaxUsage
	description := fmt.Sprintf("%s%% off %s on %s", formatPercent(percent), tour.Title, schedule.TourDate.Format("2006-01-02"))

	voucher := &models.Voucher{
		Code:          PromoCode(percent, schedule),
		Description:   &description,
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: percent,
		MinPurchase:   &price,
		MaxUsage:      &maxUsage,
		ValidFrom:     now,
		ValidUntil:    s.endOfTourDay(schedule.TourDate),
		IsActive:      true,
		ScheduleID:    &schedule.ID,
	}

	issued, err := s.vouchers.IssueForSchedule(ctx, voucher, tier)
	if err != nil {
		return actionSkipped, err
	}
	if !issued {
		return actionAlreadyApplied, nil
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id":  schedule.ID,
		"tier":         tier,
		"voucher_code": voucher.Code,
		"percent":      percent,
	}).Info("Promotion voucher issued")

	bookings, err := s.bookings.ListActiveBySchedule(ctx, schedule.ID)
	if err != nil {
		// Voucher is out; only the notifications are lost
		s.logger.WithError(err).WithField("schedule_id", schedule.ID).Warn("Failed to load bookings for promotion notice")
		return promoAction(tier), nil
	}

	if tier == models.RemediationEarlyPromo {
		for _, b := range bookings {
			if b.Status != models.BookingStatusConfirmed {
				continue
			}
			s.notifier.Notify(ctx, b.CustomerID, models.NotificationPromoOffer, models.Payload{
				"booking_id":   b.ID,
				"tour_title":   tour.Title,
				"tour_date":    schedule.TourDate.Format("2006-01-02"),
				"voucher_code": voucher.Code,
				"percent":      percent,
				"valid_until":  voucher.ValidUntil,
			})
		}
		return actionEarlyPromo, nil
	}

	alternatives := s.alternativesFor(ctx, tour, now)
	for _, b := range bookings {
		s.notifier.Notify(ctx, b.CustomerID, models.NotificationAlternativeTours, models.Payload{
			"booking_id":   b.ID,
			"tour_title":   tour.Title,
			"tour_date":    schedule.TourDate.Format("2006-01-02"),
			"voucher_code": voucher.Code,
			"percent":      percent,
			"suggestions":  fitting(alternatives, b.ParticipantCount),
		})
	}
	return actionLatePromo, nil
}

func promoAction(tier models.RemediationTier) remediationAction {
	if tier == models.RemediationEarlyPromo {
		return actionEarlyPromo
	}
	return actionLatePromo
}

// PromoCode is the voucher code issued to a schedule: the discount and the whole schedule id,
// e.g. PROMO20-6BA7B8109DAD11D180B400C04FD430C8
func PromoCode(percent float64, schedule *models.Schedule) string {
	return fmt.Sprintf("PROMO%s-%s", formatPercent(percent), strings.ToUpper(strings.ReplaceAll(schedule.ID.String(), "-", "")))
}

func formatPercent(percent float64) string {
	return strconv.FormatFloat(percent, 'f', -1, 64)
}

func (s *RemediationService) endOfTourDay(tourDate time.Time) time.Time {
	y, m, d := tourDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location).AddDate(0, 0, 1)
}

// alternativesFor suggests other tours at the same location
func (s *RemediationService) alternativesFor(ctx context.Context, tour *models.Tour, now time.Time) []models.Suggestion {
	if s.suggestions == nil {
		return nil
	}
	from := StartOfDay(now, s.location)
	suggestions, err := s.suggestions.SuggestTours(ctx, models.SuggestionQuery{
		Location:      tour.Location,
		PreferredDate: &from,
	})
	if err != nil {
		s.logger.WithError(err).WithField("location", tour.Location).Warn("Failed to load alternative tours")
		return nil
	}

	alternatives := make([]models.Suggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if suggestion.TourID != tour.ID {
			alternatives = append(alternatives, suggestion)
		}
	}
	return alternatives
}

func fitting(suggestions []models.Suggestion, partySize int) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if suggestion.AvailableSlots >= partySize {
			out = append(out, suggestion)
		}
	}
	return out
}

// ============================================================================
// URGENT TIER
// ============================================================================

func (s *RemediationService) surcharge(ctx context.Context, schedule *models.Schedule, tour *models.Tour) (remediationAction, error) {
	newPrice, err := s.schedules.ApplySurcharge(ctx, schedule.ID, s.cfg.SurchargePercent)
	if err != nil {
		return actionSkipped, err
	}
	if newPrice == nil {
		return actionAlreadyApplied, nil
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": schedule.ID,
		"old_price":   schedule.EffectivePrice(tour.Price),
		"new_price":   *newPrice,
		"percent":     s.cfg.SurchargePercent,
	}).Info("Surcharge applied")

	bookings, err := s.bookings.ListActiveBySchedule(ctx, schedule.ID)
	if err != nil {
		s.logger.WithError(err).WithField("schedule_id", schedule.ID).Warn("Failed to load bookings for surcharge notice")
		return actionSurcharge, nil
	}
	for _, b := range bookings {
		s.notifier.Notify(ctx, b.CustomerID, models.NotificationPriceSurcharge, models.Payload{
			"booking_id": b.ID,
			"tour_title": tour.Title,
			"tour_date":  schedule.TourDate.Format("2006-01-02"),
			"new_price":  *newPrice,
			"percent":    s.cfg.SurchargePercent,
		})
	}
	return actionSurcharge, nil
}

func (s *RemediationService) cancelSchedule(ctx context.Context, schedule *models.Schedule) (remediationAction, error) {
	cancelled, err := s.schedules.CancelForLowOccupancy(ctx, schedule.ID)
	if err != nil {
		return actionSkipped, err
	}
	if !cancelled {
		return actionAlreadyApplied, nil
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id":  schedule.ID,
		"booked_slots": schedule.BookedSlots,
		"max_slots":    schedule.MaxSlots,
	}).Warn("Schedule cancelled for low occupancy")

	return actionCancel, s.cancelBookings(ctx, schedule)
}

// cancelBookings cancels and refunds every active booking of a cancelled schedule
func (s *RemediationService) cancelBookings(ctx context.Context, schedule *models.Schedule) error {
	bookings, err := s.bookings.ListActiveBySchedule(ctx, schedule.ID)
	if err != nil {
		return err
	}

	var errs []error
	for _, b := range bookings {
		_, err := s.bookings.CancelBySystem(ctx, b.ID, LowOccupancyReason)
		if err != nil && !errors.Is(err, models.ErrAlreadyCancelled) && !errors.Is(err, models.ErrAlreadyCompleted) {
			errs = append(errs, fmt.Errorf("booking %s: %w", b.ID, err))
		}
	}
	return errors.Join(errs...)
}
