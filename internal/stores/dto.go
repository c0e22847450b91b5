package stores

import "time"

// StoreDTO is the API view of a catalog entry. DistanceKm is only set for proximity results.
type StoreDTO struct {
	ID         int64     `json:"id"`
	Brand      string    `json:"brand"`
	StoreName  string    `json:"store_name"`
	Country    string    `json:"country"`
	State      *string   `json:"state,omitempty"`
	Address    *string   `json:"address,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	DistanceKm *float64  `json:"distance_km,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NearbyDTO wraps a proximity search. Filtered is false when no position was
// supplied and the full catalog is returned instead.
type NearbyDTO struct {
	Filtered bool       `json:"filtered"`
	RadiusKm *float64   `json:"radius_km,omitempty"`
	Stores   []StoreDTO `json:"stores"`
}

// FromStore maps a catalog entry into its API view.
func FromStore(s Store) StoreDTO {
	return StoreDTO{
		ID:        s.ID,
		Brand:     s.Brand,
		StoreName: s.StoreName,
		Country:   s.Country,
		State:     s.State,
		Address:   s.Address,
		Latitude:  s.Location.Lat,
		Longitude: s.Location.Lng,
		CreatedAt: s.CreatedAt,
	}
}

// FromStores maps a catalog slice, never returning nil.
func FromStores(in []Store) []StoreDTO {
	out := make([]StoreDTO, 0, len(in))
	for _, s := range in {
		out = append(out, FromStore(s))
	}
	return out
}

// FromNearby maps proximity results, keeping their distance order.
func FromNearby(in []StoreWithDistance) []StoreDTO {
	out := make([]StoreDTO, 0, len(in))
	for _, s := range in {
		dto := FromStore(s.Store)
		distance := s.DistanceKm
		dto.DistanceKm = &distance
		out = append(out, dto)
	}
	return out
}
