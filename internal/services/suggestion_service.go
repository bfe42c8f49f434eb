package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/models"
)

// MaxSuggestions caps the ranked suggestion list
const MaxSuggestions = 10

// SuggestionService ranks tours at a location by their nearest open departure
type SuggestionService struct {
	tours    TourRepository
	location *time.Location
	now      Clock
	logger   *logrus.Logger
}

// NewSuggestionService creates a new SuggestionService
func NewSuggestionService(tours TourRepository, location *time.Location, logger *logrus.Logger) *SuggestionService {
	if location == nil {
		location = time.UTC
	}
	return &SuggestionService{
		tours:    tours,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the service clock
func (s *SuggestionService) WithClock(clock Clock) *SuggestionService {
	s.now = clock
	return s
}

// SuggestTours returns up to MaxSuggestions tour/schedule pairs for the query.
// The preferred date defaults to today.
func (s *SuggestionService) SuggestTours(ctx context.Context, query models.SuggestionQuery) ([]models.Suggestion, error) {
	location := strings.TrimSpace(query.Location)
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", models.ErrInvalidInput)
	}
	if query.PartySize != nil && *query.PartySize < 1 {
		return nil, fmt.Errorf("%w: party size must be at least 1", models.ErrInvalidInput)
	}

	from := StartOfDay(s.now(), s.location)
	if query.PreferredDate != nil {
		from = *query.PreferredDate
	}

	candidates, err := s.tours.ListSuggestionCandidates(ctx, location, from)
	if err != nil {
		return nil, err
	}

	suggestions := RankSuggestions(candidates, query.PartySize)

	s.logger.WithFields(logrus.Fields{
		"location":    location,
		"from":        from.Format("2006-01-02"),
		"candidates":  len(candidates),
		"suggestions": len(suggestions),
	}).Debug("Tour suggestions ranked")
	return suggestions, nil
}

// RankSuggestions drops candidates without room for partySize and orders the rest by
// rating desc, available seats desc, then nearest date
func RankSuggestions(candidates []models.SuggestionCandidate, partySize *int) []models.Suggestion {
	suggestions := make([]models.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		available := c.MaxSlots - c.BookedSlots
		if available < 0 {
			available = 0
		}
		if partySize != nil && available < *partySize {
			continue
		}

		price := c.BasePrice
		if c.CurrentPrice != nil {
			price = *c.CurrentPrice
		}

		suggestions = append(suggestions, models.Suggestion{
			TourID:         c.TourID,
			Title:          c.Title,
			Location:       c.Location,
			Rating:         c.Rating,
			ScheduleID:     c.ScheduleID,
			TourDate:       c.TourDate,
			StartTime:      c.StartTime,
			AvailableSlots: available,
			Price:          price,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.AvailableSlots != b.AvailableSlots {
			return a.AvailableSlots > b.AvailableSlots
		}
		if !a.TourDate.Equal(b.TourDate) {
			return a.TourDate.Before(b.TourDate)
		}
		return a.StartTime < b.StartTime
	})

	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}
