package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/config"
	"github.com/tourbooking/booking-backend/internal/models"
)

// memDB is an in-memory store whose conditional updates are atomic under one mutex,
// mirroring the guarded UPDATE statements of the Postgres repositories
type memDB struct {
	mu        sync.Mutex
	tours     map[uuid.UUID]*models.Tour
	schedules map[uuid.UUID]*models.Schedule
	bookings  map[uuid.UUID]*models.Booking
	vouchers  map[uuid.UUID]*models.Voucher
	payments  map[uuid.UUID]*models.Payment
	seq       int
	order     map[uuid.UUID]int

	failCreateIntent  error
	failAbandon       error
	failBookingCreate error
	failVoucherLookup error
	failTourLookup    map[uuid.UUID]error
	failCancelBooking map[uuid.UUID]error
}

func newMemDB() *memDB {
	return &memDB{
		tours:             make(map[uuid.UUID]*models.Tour),
		schedules:         make(map[uuid.UUID]*models.Schedule),
		bookings:          make(map[uuid.UUID]*models.Booking),
		vouchers:          make(map[uuid.UUID]*models.Voucher),
		payments:          make(map[uuid.UUID]*models.Payment),
		order:             make(map[uuid.UUID]int),
		failTourLookup:    make(map[uuid.UUID]error),
		failCancelBooking: make(map[uuid.UUID]error),
	}
}

func (m *memDB) addTour(t *models.Tour) *models.Tour {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.IsActive = true
	m.tours[t.ID] = t
	return t
}

func (m *memDB) addSchedule(s *models.Schedule) *models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.ScheduleStatusScheduled
	}
	if s.RemediationTier == "" {
		s.RemediationTier = models.RemediationNone
	}
	if s.StartTime == "" {
		s.StartTime = "08:00:00"
	}
	m.schedules[s.ID] = s
	return s
}

func (m *memDB) addVoucher(v *models.Voucher) *models.Voucher {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	m.vouchers[v.ID] = v
	return v
}

func (m *memDB) schedule(id uuid.UUID) models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

func (m *memDB) booking(id uuid.UUID) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bookings[id]
}

func (m *memDB) payment(id uuid.UUID) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.payments[id]
}

func (m *memDB) voucherByCode(code string) *models.Voucher {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if strings.EqualFold(v.Code, code) {
			copied := *v
			return &copied
		}
	}
	return nil
}

func (m *memDB) countVouchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vouchers)
}

func (m *memDB) countBookings(status models.BookingStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.Status == status {
			n++
		}
	}
	return n
}

func (m *memDB) paymentsFor(bookingID uuid.UUID) []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	return out
}

func (m *memDB) nextSeq() int {
	m.seq++
	return m.seq
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ============================================================================
// TOURS
// ============================================================================

type fakeTours struct{ db *memDB }

func (f fakeTours) GetByID(ctx context.Context, id uuid.UUID) (*models.Tour, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.db.failTourLookup[id]; err != nil {
		return nil, err
	}
	t, ok := f.db.tours[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f fakeTours) ListSuggestionCandidates(ctx context.Context, location string, from time.Time) ([]models.SuggestionCandidate, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	var out []models.SuggestionCandidate
	for _, t := range f.db.tours {
		if !t.IsActive || !strings.EqualFold(t.Location, location) {
			continue
		}
		var nearest *models.Schedule
		for _, s := range f.db.schedules {
			if s.TourID != t.ID || s.Status != models.ScheduleStatusScheduled || dateKey(s.TourDate) < dateKey(from) {
				continue
			}
			if nearest == nil || s.TourDate.Before(nearest.TourDate) {
				nearest = s
			}
		}
		if nearest == nil {
			continue
		}
		out = append(out, models.SuggestionCandidate{
			TourID:       t.ID,
			Title:        t.Title,
			Location:     t.Location,
			Rating:       t.Rating,
			BasePrice:    t.Price,
			ScheduleID:   nearest.ID,
			TourDate:     nearest.TourDate,
			StartTime:    nearest.StartTime,
			MaxSlots:     nearest.MaxSlots,
			BookedSlots:  nearest.BookedSlots,
			CurrentPrice: nearest.CurrentPrice,
		})
	}
	return out, nil
}

// ============================================================================
// SCHEDULES
// ============================================================================

type fakeSchedules struct{ db *memDB }

func (f fakeSchedules) GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.schedules[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f fakeSchedules) Reserve(ctx context.Context, id uuid.UUID, count int, today time.Time) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.schedules[id]
	if !ok || s.Status != models.ScheduleStatusScheduled || dateKey(s.TourDate) < dateKey(today) || s.MaxSlots-s.BookedSlots < count {
		return nil, nil
	}
	s.BookedSlots += count
	if s.BookedSlots == s.MaxSlots {
		s.Status = models.ScheduleStatusFull
	}
	copied := *s
	return &copied, nil
}

func (f fakeSchedules) Release(ctx context.Context, id uuid.UUID, count int) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.schedules[id]
	if !ok {
		return nil, nil
	}
	s.BookedSlots -= count
	if s.BookedSlots < 0 {
		s.BookedSlots = 0
	}
	if s.Status == models.ScheduleStatusFull {
		s.Status = models.ScheduleStatusScheduled
	}
	copied := *s
	return &copied, nil
}

func (f fakeSchedules) ListForRemediation(ctx context.Context, from, to time.Time) ([]*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	var out []*models.Schedule
	for _, s := range f.db.schedules {
		key := dateKey(s.TourDate)
		if key < dateKey(from) || key > dateKey(to) {
			continue
		}
		include := s.Status == models.ScheduleStatusScheduled
		if s.Status == models.ScheduleStatusCancelled && s.RemediationTier == models.RemediationCancelled {
			for _, b := range f.db.bookings {
				if b.ScheduleID == s.ID && b.Status.IsActive() {
					include = true
					break
				}
			}
		}
		if include {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TourDate.Before(out[j].TourDate) })
	return out, nil
}

func (f fakeSchedules) CancelForLowOccupancy(ctx context.Context, id uuid.UUID) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.schedules[id]
	if !ok || s.Status == models.ScheduleStatusCancelled {
		return false, nil
	}
	s.Status = models.ScheduleStatusCancelled
	s.RemediationTier = models.RemediationCancelled
	return true, nil
}

func (f fakeSchedules) ApplySurcharge(ctx context.Context, id uuid.UUID, percent float64) (*float64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.schedules[id]
	if !ok || s.Status != models.ScheduleStatusScheduled ||
		s.RemediationTier == models.RemediationSurcharge || s.RemediationTier == models.RemediationCancelled {
		return nil, nil
	}
	price := models.RoundMoney(s.EffectivePrice(f.db.tours[s.TourID].Price) * (100 + percent) / 100)
	s.CurrentPrice = &price
	s.RemediationTier = models.RemediationSurcharge
	return &price, nil
}

// ============================================================================
// BOOKINGS
// ============================================================================

type fakeBookings struct{ db *memDB }

func (f fakeBookings) Create(ctx context.Context, booking *models.Booking) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failBookingCreate != nil {
		return f.db.failBookingCreate
	}

	if booking.VoucherID != nil {
		v, ok := f.db.vouchers[*booking.VoucherID]
		if !ok || !v.IsActive || v.IsExhausted() {
			return models.ErrVoucherExhausted
		}
		v.CurrentUsage++
	}

	seq := f.db.nextSeq()
	booking.ID = uuid.New()
	booking.BookingCode = fmt.Sprintf("TB-20260301-%06d", seq)
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	f.db.bookings[booking.ID] = &copied
	f.db.order[booking.ID] = seq
	return nil
}

func (f fakeBookings) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (f fakeBookings) ListActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*models.Booking
	for _, b := range f.db.bookings {
		if b.ScheduleID == scheduleID && b.Status.IsActive() {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return f.db.order[out[i].ID] < f.db.order[out[j].ID] })
	return out, nil
}

func (f fakeBookings) Cancel(ctx context.Context, id uuid.UUID, c models.Cancellation) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.db.failCancelBooking[id]; err != nil {
		return false, err
	}
	b, ok := f.db.bookings[id]
	if !ok || !b.Status.IsActive() {
		return false, nil
	}
	b.Status = models.BookingStatusCancelled
	at, fee, refund := c.CancelledAt, c.Fee, c.Refund
	b.CancelledAt = &at
	b.CancellationFee = &fee
	b.RefundAmount = &refund
	if c.Reason != "" {
		reason := c.Reason
		b.CancellationReason = &reason
	}
	return true, nil
}

func (f fakeBookings) Abandon(ctx context.Context, booking *models.Booking, reason string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failAbandon != nil {
		return f.db.failAbandon
	}
	b, ok := f.db.bookings[booking.ID]
	if !ok || b.Status != models.BookingStatusPending {
		return nil
	}
	fee, refund := 0.0, b.FinalAmount
	b.Status = models.BookingStatusCancelled
	b.CancelledAt = &at
	b.CancellationFee = &fee
	b.RefundAmount = &refund
	b.CancellationReason = &reason
	if b.VoucherID != nil {
		if v, ok := f.db.vouchers[*b.VoucherID]; ok && v.CurrentUsage > 0 {
			v.CurrentUsage--
		}
	}
	return nil
}

func (f fakeBookings) transition(id uuid.UUID, from, to models.BookingStatus, payment models.PaymentStatus) bool {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || b.Status != from {
		return false
	}
	b.Status = to
	if payment != "" {
		b.PaymentStatus = payment
	}
	return true
}

func (f fakeBookings) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.transition(id, models.BookingStatusPending, models.BookingStatusConfirmed, models.PaymentStatusPaid), nil
}

func (f fakeBookings) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.transition(id, models.BookingStatusConfirmed, models.BookingStatusCompleted, ""), nil
}

func (f fakeBookings) SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if b, ok := f.db.bookings[id]; ok {
		b.PaymentStatus = status
	}
	return nil
}

// ============================================================================
// VOUCHERS
// ============================================================================

type fakeVouchers struct{ db *memDB }

func (f fakeVouchers) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	if f.db.failVoucherLookup != nil {
		return nil, f.db.failVoucherLookup
	}
	return f.db.voucherByCode(code), nil
}

func (f fakeVouchers) Create(ctx context.Context, voucher *models.Voucher) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.insert(voucher)
}

func (f fakeVouchers) insert(voucher *models.Voucher) error {
	for _, v := range f.db.vouchers {
		if strings.EqualFold(v.Code, voucher.Code) {
			return fmt.Errorf("failed to create voucher: duplicate code %s", voucher.Code)
		}
	}
	voucher.ID = uuid.New()
	copied := *voucher
	f.db.vouchers[voucher.ID] = &copied
	return nil
}

func (f fakeVouchers) IssueForSchedule(ctx context.Context, voucher *models.Voucher, tier models.RemediationTier) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.schedules[*voucher.ScheduleID]
	if !ok || s.Status != models.ScheduleStatusScheduled || s.RemediationTier == tier ||
		s.RemediationTier == models.RemediationSurcharge || s.RemediationTier == models.RemediationCancelled {
		return false, nil
	}
	if err := f.insert(voucher); err != nil {
		return false, err
	}
	s.RemediationTier = tier
	return true, nil
}

// ============================================================================
// PAYMENTS
// ============================================================================

type fakePayments struct{ db *memDB }

func (f fakePayments) CreateIntent(ctx context.Context, bookingID uuid.UUID, amount float64, method models.PaymentMethod) (uuid.UUID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failCreateIntent != nil {
		return uuid.Nil, f.db.failCreateIntent
	}
	p := &models.Payment{
		ID:        uuid.New(),
		BookingID: bookingID,
		Amount:    amount,
		Method:    method,
		Status:    models.PaymentRecordPending,
		CreatedAt: time.Now(),
	}
	f.db.payments[p.ID] = p
	return p.ID, nil
}

func (f fakePayments) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.payments[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f fakePayments) transition(id uuid.UUID, from, to models.PaymentRecordStatus, reason string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.payments[id]
	if !ok {
		return models.ErrPaymentNotFound
	}
	if p.Status == to {
		return nil
	}
	if p.Status != from {
		return fmt.Errorf("%w: payment is %s", models.ErrInvalidTransition, p.Status)
	}
	p.Status = to
	if reason != "" {
		p.Reason = &reason
	}
	return nil
}

func (f fakePayments) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return f.transition(id, models.PaymentRecordPending, models.PaymentRecordPaid, "")
}

func (f fakePayments) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return f.transition(id, models.PaymentRecordPending, models.PaymentRecordFailed, reason)
}

func (f fakePayments) MarkRefunded(ctx context.Context, id uuid.UUID, reason string) error {
	return f.transition(id, models.PaymentRecordPaid, models.PaymentRecordRefunded, reason)
}

func (f fakePayments) RefundClosedIntent(ctx context.Context, id uuid.UUID, reason string) error {
	return f.transition(id, models.PaymentRecordFailed, models.PaymentRecordRefunded, reason)
}

func (f fakePayments) find(bookingID uuid.UUID, status models.PaymentRecordStatus) *uuid.UUID {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, p := range f.db.payments {
		if p.BookingID == bookingID && p.Status == status {
			id := p.ID
			return &id
		}
	}
	return nil
}

func (f fakePayments) FindOpenIntent(ctx context.Context, bookingID uuid.UUID) (*uuid.UUID, error) {
	return f.find(bookingID, models.PaymentRecordPending), nil
}

func (f fakePayments) FindPaid(ctx context.Context, bookingID uuid.UUID) (*uuid.UUID, error) {
	return f.find(bookingID, models.PaymentRecordPaid), nil
}

// ============================================================================
// NOTIFIER
// ============================================================================

type sentNotification struct {
	UserID  uuid.UUID
	Kind    models.NotificationKind
	Payload models.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, payload models.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
}

func (n *recordingNotifier) byKind(kind models.NotificationKind) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// ============================================================================
// ENVIRONMENT
// ============================================================================

// testNow is 10:00 on 2026-03-01 in UTC
var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db          *memDB
	notifier    *recordingNotifier
	capacity    *CapacityService
	vouchers    *VoucherService
	policy      *CancellationPolicy
	bookings    *BookingService
	suggestions *SuggestionService
	remediation *RemediationService
	clock       *time.Time
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEnv() *testEnv {
	db := newMemDB()
	notifier := &recordingNotifier{}
	logger := testLogger()

	now := testNow
	env := &testEnv{db: db, notifier: notifier, clock: &now}
	clock := func() time.Time { return *env.clock }

	env.capacity = NewCapacityService(fakeSchedules{db}, time.UTC, logger).WithClock(clock)
	env.vouchers = NewVoucherService(fakeVouchers{db}, logger).WithClock(clock)
	env.policy = NewCancellationPolicy(config.CancellationConfig{
		Tiers:              config.DefaultFeeTiers(),
		UnknownDatePercent: 100,
	}, time.UTC)
	env.bookings = NewBookingService(
		fakeTours{db}, fakeSchedules{db}, fakeBookings{db}, fakePayments{db},
		env.capacity, env.vouchers, env.policy, notifier, 50, logger,
	).WithClock(clock)
	env.suggestions = NewSuggestionService(fakeTours{db}, time.UTC, logger).WithClock(clock)
	env.remediation = NewRemediationService(
		fakeSchedules{db}, fakeTours{db}, env.bookings, env.vouchers, env.suggestions, notifier,
		config.DefaultRemediationConfig(), time.UTC, logger,
	)
	return env
}

// daysFromNow returns the calendar date n days after testNow
func daysFromNow(n int) time.Time {
	y, m, d := testNow.AddDate(0, 0, n).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedSchedule adds a tour priced at price and a schedule n days out
func (e *testEnv) seedSchedule(price float64, maxSlots, booked, days int) (*models.Tour, *models.Schedule) {
	tour := e.db.addTour(&models.Tour{Title: "Ha Long Bay Cruise", Location: "Quang Ninh", Price: price, Rating: 4.5})
	schedule := e.db.addSchedule(&models.Schedule{
		TourID:      tour.ID,
		TourDate:    daysFromNow(days),
		MaxSlots:    maxSlots,
		BookedSlots: booked,
	})
	return tour, schedule
}

func bookingRequest(tour *models.Tour, schedule *models.Schedule, count int) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		TourID:           tour.ID,
		ScheduleID:       schedule.ID,
		ParticipantCount: count,
		Contact: models.Contact{
			Name:  "Nguyen Van An",
			Phone: "0912345678",
		},
		PaymentMethod: models.PaymentMethodCard,
	}
}
