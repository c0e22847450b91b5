package checkins

import (
	"time"

	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/internal/stores"
)

type CheckInDTO struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	StoreID   int64            `json:"store_id"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Comment   *string          `json:"comment,omitempty"`
	PhotoURL  *string          `json:"photo_url,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Store     *stores.StoreDTO `json:"store,omitempty"`
}

type StatsDTO struct {
	VisitedCount int64 `json:"visited_count"`
	TotalStores  int64 `json:"total_stores"`
	Percentage   int   `json:"percentage"`
}

type VisitedDTO struct {
	StoreID int64 `json:"store_id"`
	Visited bool  `json:"visited"`
}

func FromCheckIn(c CheckIn) CheckInDTO {
	return CheckInDTO{
		ID:        c.ID,
		UserID:    c.UserID,
		StoreID:   c.StoreID,
		Latitude:  c.Location.Lat,
		Longitude: c.Location.Lng,
		Comment:   c.Comment,
		PhotoURL:  c.PhotoURL,
		CreatedAt: c.CreatedAt,
	}
}

// FromHistory keeps the newest-first order of the input.
func FromHistory(in []CheckInWithStore) []CheckInDTO {
	out := make([]CheckInDTO, 0, len(in))
	for _, row := range in {
		dto := FromCheckIn(row.CheckIn)
		if row.Store != nil {
			store := stores.FromStore(*row.Store)
			dto.Store = &store
		}
		out = append(out, dto)
	}
	return out
}

func FromStats(s Stats) StatsDTO {
	return StatsDTO{
		VisitedCount: s.VisitedCount,
		TotalStores:  s.TotalStores,
		Percentage:   s.Percentage,
	}
}
