package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

// AvailabilityChecker reports free seats on a schedule
type AvailabilityChecker interface {
	Availability(ctx context.Context, scheduleID uuid.UUID, count int) (*models.ScheduleAvailability, error)
}

// TourSuggester ranks alternative tours
type TourSuggester interface {
	SuggestTours(ctx context.Context, query models.SuggestionQuery) ([]models.Suggestion, error)
}

// TourHandler handles schedule availability and tour suggestion requests
type TourHandler struct {
	capacity    AvailabilityChecker
	suggestions TourSuggester
	location    *time.Location
	logger      *logrus.Logger
}

// NewTourHandler creates a new TourHandler. Dates in query strings are read in location.
func NewTourHandler(capacity AvailabilityChecker, suggestions TourSuggester, location *time.Location, logger *logrus.Logger) *TourHandler {
	return &TourHandler{
		capacity:    capacity,
		suggestions: suggestions,
		location:    location,
		logger:      logger,
	}
}

// Availability handles GET /api/v1/schedules/:id/availability?count=N
func (h *TourHandler) Availability(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	count := 1
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "count must be a whole number")
			return
		}
		count = n
	}

	availability, err := h.capacity.Availability(c.Request.Context(), id, count)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}

// Suggestions handles GET /api/v1/tours/suggestions?location=&date=YYYY-MM-DD&party_size=
// @Summary Suggest open tours at a location
// @Tags Tours
// @Produce json
// @Param location query string true "Tour location"
// @Param date query string false "Earliest tour date (YYYY-MM-DD)"
// @Param party_size query int false "Seats needed"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/tours/suggestions [get]
func (h *TourHandler) Suggestions(c *gin.Context) {
	query := models.SuggestionQuery{Location: c.Query("location")}

	if raw := c.Query("date"); raw != "" {
		date, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			badRequest(c, "date must be formatted YYYY-MM-DD")
			return
		}
		query.PreferredDate = &date
	}

	if raw := c.Query("party_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "party_size must be a whole number")
			return
		}
		query.PartySize = &n
	}

	suggestions, err := h.suggestions.SuggestTours(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}
