package payloads

import (
	"time"

	"github.com/google/uuid"
)

// CheckInCreatedEvent is emitted after a check-in is committed.
type CheckInCreatedEvent struct {
	CheckInID  uuid.UUID `json:"checkin_id"`
	UserID     uuid.UUID `json:"user_id"`
	StoreID    int64     `json:"store_id"`
	Brand      string    `json:"brand"`
	Country    string    `json:"country"`
	DistanceKm float64   `json:"distance_km"`
	HasPhoto   bool      `json:"has_photo"`
	HasComment bool      `json:"has_comment"`
	OccurredAt time.Time `json:"occurred_at"`
}
