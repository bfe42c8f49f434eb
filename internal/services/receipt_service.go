package services

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"
	"github.com/tourbooking/booking-backend/internal/models"
)

// Receipt is a rendered booking receipt
type Receipt struct {
	Filename string
	Content  []byte
}

// ReceiptService renders PDF receipts for bookings
type ReceiptService struct {
	bookings  *BookingService
	tours     TourRepository
	schedules ScheduleRepository
	now       Clock
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(bookings *BookingService, tours TourRepository, schedules ScheduleRepository) *ReceiptService {
	return &ReceiptService{
		bookings:  bookings,
		tours:     tours,
		schedules: schedules,
		now:       bookings.now,
	}
}

// BookingReceipt renders the receipt of a booking the requester may read
func (s *ReceiptService) BookingReceipt(ctx context.Context, requesterID uuid.UUID, asAdmin bool, bookingID uuid.UUID) (*Receipt, error) {
	booking, err := s.bookings.GetBooking(ctx, requesterID, asAdmin, bookingID)
	if err != nil {
		return nil, err
	}

	tour, err := s.tours.GetByID(ctx, booking.TourID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.schedules.GetByID(ctx, booking.ScheduleID)
	if err != nil {
		return nil, err
	}

	content, err := s.render(booking, tour, schedule)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Filename: fmt.Sprintf("receipt_%s.pdf", safeFilenamePart(booking.BookingCode)),
		Content:  content,
	}, nil
}

func (s *ReceiptService) render(b *models.Booking, tour *models.Tour, schedule *models.Schedule) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		pdf.Cell(0, 7, tr(fmt.Sprintf("%-16s: %s", label, value)))
		pdf.Ln(7)
	}

	line("Booking code", b.BookingCode)
	line("Issued", s.now().Format("2006-01-02 15:04"))
	line("Status", string(b.Status))
	line("Payment", fmt.Sprintf("%s (%s)", b.PaymentStatus, b.PaymentMethod))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Tour")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	if tour != nil {
		line("Title", tour.Title)
		line("Location", tour.Location)
	}
	if schedule != nil {
		line("Date", fmt.Sprintf("%s %s", schedule.TourDate.Format("2006-01-02"), timeHM(schedule.StartTime)))
	}
	line("Participants", fmt.Sprintf("%d", b.ParticipantCount))
	line("Contact", fmt.Sprintf("%s, %s", b.ContactName, b.ContactPhone))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Amount")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	line("Total", formatVND(b.TotalAmount))
	if b.DiscountAmount > 0 {
		line("Discount", "-"+formatVND(b.DiscountAmount))
	}
	pdf.SetFont("Helvetica", "B", 12)
	line("Final", formatVND(b.FinalAmount))

	if b.Status == models.BookingStatusCancelled {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 12)
		if b.CancellationFee != nil {
			line("Cancel fee", formatVND(*b.CancellationFee))
		}
		if b.RefundAmount != nil {
			line("Refund", formatVND(*b.RefundAmount))
		}
		if b.CancellationReason != nil {
			pdf.MultiCell(0, 6, tr("Reason: "+*b.CancellationReason), "", "", false)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please present this receipt and the booking code at check-in.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func timeHM(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 5 {
		return v[:5]
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return replacer.Replace(s)
}

// formatVND renders whole dong with dot thousands separators, e.g. "1.250.000 VND"
func formatVND(amount float64) string {
	v := int64(math.Round(amount))
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var out []byte
	n := len(s)
	for i := 0; i < n; i++ {
		out = append(out, s[i])
		pos := n - i - 1
		if pos > 0 && pos%3 == 0 {
			out = append(out, '.')
		}
	}
	return sign + string(out) + " VND"
}
