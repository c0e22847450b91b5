package stores

import (
	"time"

	"github.com/storetrail/storetrail-backend/pkg/geo"
)

// Store is an immutable catalog entry.
type Store struct {
	ID        int64
	Brand     string
	StoreName string
	Country   string
	State     *string
	Address   *string
	Location  geo.Coordinate
	CreatedAt time.Time
}

// StoreWithDistance is a Store annotated with its distance from a query point.
type StoreWithDistance struct {
	Store
	DistanceKm float64
}
