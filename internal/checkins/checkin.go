package checkins

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/internal/stores"
	"github.com/storetrail/storetrail-backend/pkg/geo"
)

// AdmissionThresholdKm is the maximum distance between the claimed position
// and the store for a check-in to be accepted.
const AdmissionThresholdKm = 0.5

// CheckIn is one recorded visit. It is never mutated after creation.
type CheckIn struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StoreID   int64
	Location  geo.Coordinate
	Comment   *string
	PhotoURL  *string
	CreatedAt time.Time
}

// CheckInWithStore pairs a visit with its catalog entry. Store is nil when the
// entry no longer resolves.
type CheckInWithStore struct {
	CheckIn
	Store *stores.Store
}

type Stats struct {
	VisitedCount int64
	TotalStores  int64
	Percentage   int
}

// ComputeStats derives the visit percentage, which is 0 for an empty catalog.
func ComputeStats(visited, total int64) Stats {
	stats := Stats{VisitedCount: visited, TotalStores: total}
	if total > 0 {
		stats.Percentage = int(math.Round(float64(visited) / float64(total) * 100))
	}
	return stats
}
