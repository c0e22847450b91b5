package stores

import (
	"sort"

	"github.com/storetrail/storetrail-backend/pkg/geo"
)

// DefaultRadiusKm applies when the caller does not pick a search radius.
const DefaultRadiusKm = 50.0

// Nearby annotates every catalog store with its distance from center, keeps the
// ones within radiusKm and returns them closest first. Ties keep catalog order.
func Nearby(center geo.Coordinate, radiusKm float64, catalog []Store) []StoreWithDistance {
	out := make([]StoreWithDistance, 0, len(catalog))
	for _, store := range catalog {
		d := geo.Distance(center, store.Location)
		if d <= radiusKm {
			out = append(out, StoreWithDistance{Store: store, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}
