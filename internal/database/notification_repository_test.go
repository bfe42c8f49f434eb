package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbooking/booking-backend/internal/models"
)

func TestNotificationRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	id := uuid.New()
	createdAt := time.Now()

	n := &models.Notification{
		UserID:  uuid.New(),
		Kind:    models.NotificationPromoOffer,
		Payload: models.Payload{"voucher_code": "PROMO20-1A2B3C4D5E6F40718293A4B5C6D7E8F9"},
	}

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(n.UserID, string(models.NotificationPromoOffer), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), createdAt))

	require.NoError(t, repo.Insert(context.Background(), n))
	assert.Equal(t, id, n.ID)
	assert.Equal(t, createdAt, n.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	userID := uuid.New()

	t.Run("Newest First", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "user_id", "kind", "payload", "created_at"}).
			AddRow(uuid.New().String(), userID.String(), "TOUR_CANCELLED", []byte(`{"refund_amount":500000}`), time.Now()).
			AddRow(uuid.New().String(), userID.String(), "BOOKING_CREATED", []byte(`{}`), time.Now().Add(-time.Hour))
		mock.ExpectQuery(`SELECT .+ FROM notifications WHERE user_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
			WithArgs(userID, 20).
			WillReturnRows(rows)

		got, err := repo.ListByUser(context.Background(), userID, 20)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, models.NotificationTourCancelled, got[0].Kind)
		assert.Equal(t, float64(500000), got[0].Payload["refund_amount"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Query Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM notifications`).
			WithArgs(userID, 5).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.ListByUser(context.Background(), userID, 5)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
