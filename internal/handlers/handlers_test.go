package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/tourbooking/booking-backend/internal/middleware"
	"github.com/tourbooking/booking-backend/internal/models"
	"github.com/tourbooking/booking-backend/internal/services"
	"github.com/tourbooking/booking-backend/pkg/jwt"
)

const (
	testJWTSecret     = "test-secret"
	testPaymentSecret = "test-payment-secret"
)

type stubBookings struct {
	createResp *models.CreateBookingResponse
	booking    *models.Booking
	err        error

	gotCustomer uuid.UUID
	gotRequest  *models.CreateBookingRequest
	gotDevice   models.DeviceInfo
	gotReason   *string
	gotAdmin    bool
	gotPayment  uuid.UUID
	gotFailure  string
}

func (s *stubBookings) CreateBooking(ctx context.Context, customerID uuid.UUID, req *models.CreateBookingRequest, device models.DeviceInfo) (*models.CreateBookingResponse, error) {
	s.gotCustomer, s.gotRequest, s.gotDevice = customerID, req, device
	return s.createResp, s.err
}

func (s *stubBookings) GetBooking(ctx context.Context, requesterID uuid.UUID, asAdmin bool, bookingID uuid.UUID) (*models.Booking, error) {
	s.gotCustomer, s.gotAdmin = requesterID, asAdmin
	return s.booking, s.err
}

func (s *stubBookings) CancelBooking(ctx context.Context, customerID, bookingID uuid.UUID, reason *string) (*models.Booking, error) {
	s.gotCustomer, s.gotReason = customerID, reason
	return s.booking, s.err
}

func (s *stubBookings) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubBookings) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*models.Booking, error) {
	s.gotPayment = paymentID
	return s.booking, s.err
}

func (s *stubBookings) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Booking, error) {
	s.gotPayment, s.gotFailure = paymentID, reason
	return s.booking, s.err
}

type stubReceipts struct {
	receipt *services.Receipt
	err     error
}

func (s *stubReceipts) BookingReceipt(ctx context.Context, requesterID uuid.UUID, asAdmin bool, bookingID uuid.UUID) (*services.Receipt, error) {
	return s.receipt, s.err
}

type stubVouchers struct {
	quote   *models.VoucherQuote
	err     error
	created *models.Voucher
}

func (s *stubVouchers) Quote(ctx context.Context, req *models.ValidateVoucherRequest) (*models.VoucherQuote, error) {
	return s.quote, s.err
}

func (s *stubVouchers) Create(ctx context.Context, voucher *models.Voucher) error {
	s.created = voucher
	return s.err
}

type stubTours struct {
	availability *models.ScheduleAvailability
	suggestions  []models.Suggestion
	err          error

	gotCount int
	gotQuery models.SuggestionQuery
}

func (s *stubTours) Availability(ctx context.Context, scheduleID uuid.UUID, count int) (*models.ScheduleAvailability, error) {
	s.gotCount = count
	return s.availability, s.err
}

func (s *stubTours) SuggestTours(ctx context.Context, query models.SuggestionQuery) ([]models.Suggestion, error) {
	s.gotQuery = query
	return s.suggestions, s.err
}

type stubNotifications struct {
	rows     []models.Notification
	gotLimit int
}

func (s *stubNotifications) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	s.gotLimit = limit
	return s.rows, nil
}

type stubRemediation struct {
	runs int
}

func (s *stubRemediation) RunRemediationNow(ctx context.Context) services.ScanReport {
	s.runs++
	return services.ScanReport{Scanned: 3, EarlyPromos: 1}
}

func (s *stubRemediation) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{"running": true, "job_count": 2}
}

// testServer wires every handler behind the real middleware chain
type testServer struct {
	router        *gin.Engine
	jwt           *jwt.Service
	bookings      *stubBookings
	receipts      *stubReceipts
	vouchers      *stubVouchers
	tours         *stubTours
	notifications *stubNotifications
	remediation   *stubRemediation
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := &testServer{
		router:        gin.New(),
		jwt:           jwt.NewService(testJWTSecret),
		bookings:      &stubBookings{},
		receipts:      &stubReceipts{},
		vouchers:      &stubVouchers{},
		tours:         &stubTours{},
		notifications: &stubNotifications{},
		remediation:   &stubRemediation{},
	}

	h := &Handlers{
		Bookings:      NewBookingHandler(s.bookings, s.receipts, logger),
		Payments:      NewPaymentHandler(s.bookings, logger),
		Vouchers:      NewVoucherHandler(s.vouchers, logger),
		Tours:         NewTourHandler(s.tours, s.tours, time.UTC, logger),
		Notifications: NewNotificationHandler(s.notifications, logger),
		Admin:         NewAdminHandler(s.remediation, logger),
	}
	h.Register(s.router.Group("/api/v1"),
		middleware.AuthMiddleware(s.jwt, logger),
		middleware.RequirePaymentSignature(testPaymentSecret))

	return s
}

func (s *testServer) token(t *testing.T, userID uuid.UUID, roles ...string) string {
	t.Helper()
	token, err := s.jwt.GenerateAccessToken(userID, "0912345678", roles, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request; token may be empty for unauthenticated calls
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
