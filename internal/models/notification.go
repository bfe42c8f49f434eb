package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NotificationKind selects the message template used by the delivery transport
type NotificationKind string

const (
	NotificationBookingCreated   NotificationKind = "BOOKING_CREATED"
	NotificationBookingConfirmed NotificationKind = "BOOKING_CONFIRMED"
	NotificationBookingCancelled NotificationKind = "BOOKING_CANCELLED"
	NotificationPromoOffer       NotificationKind = "PROMO_OFFER"
	NotificationAlternativeTours NotificationKind = "ALTERNATIVE_TOURS"
	NotificationPriceSurcharge   NotificationKind = "PRICE_SURCHARGE"
	NotificationTourCancelled    NotificationKind = "TOUR_CANCELLED"
)

// Payload is a JSON object stored in a JSONB column
type Payload map[string]interface{}

func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, p)
}

// Notification is an outbox row picked up by the delivery transport
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	Payload   Payload          `json:"payload" db:"payload"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
