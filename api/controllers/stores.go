package controllers

import (
	"net/http"

	"github.com/storetrail/storetrail-backend/api/responses"
	"github.com/storetrail/storetrail-backend/api/validators"
	"github.com/storetrail/storetrail-backend/internal/stores"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/geo"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

// StoresList returns the whole catalog. A catalog failure degrades to an empty
// list so browsing never hard-fails.
func StoresList(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		responses.WriteSuccess(w, stores.FromStores(catalogOrEmpty(r, svc, logg, "stores.list.degraded")))
	}
}

// catalogOrEmpty logs a catalog failure under event and yields no stores.
func catalogOrEmpty(r *http.Request, svc stores.Service, logg *logger.Logger, event string) []stores.Store {
	catalog, err := svc.List(r.Context())
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), event)
		}
		return nil
	}
	return catalog
}

// StoresNearby filters by distance when lat and lng are both supplied and
// otherwise returns the full catalog with filtered=false.
func StoresNearby(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		lat, err := validators.ParseQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, err := validators.ParseQueryFloat(r, "radius_km")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if lat == nil && lng == nil {
			catalog := catalogOrEmpty(r, svc, logg, "stores.nearby.degraded")
			responses.WriteSuccess(w, stores.NearbyDTO{Filtered: false, Stores: stores.FromStores(catalog)})
			return
		}
		if lat == nil || lng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be supplied together"))
			return
		}

		found, err := svc.FindNearby(r.Context(), geo.Coordinate{Lat: *lat, Lng: *lng}, radius)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		effective := stores.DefaultRadiusKm
		if radius != nil {
			effective = *radius
		}
		responses.WriteSuccess(w, stores.NearbyDTO{
			Filtered: true,
			RadiusKm: &effective,
			Stores:   stores.FromNearby(found),
		})
	}
}

func StoreGet(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stores.FromStore(*store))
	}
}

type createStoreRequest struct {
	Brand     string   `json:"brand" validate:"required,notblank,max=120"`
	StoreName string   `json:"store_name" validate:"required,notblank,max=200"`
	Country   string   `json:"country" validate:"required,notblank,max=80"`
	State     *string  `json:"state" validate:"omitempty,max=80"`
	Address   *string  `json:"address" validate:"omitempty,max=300"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (r createStoreRequest) toInput() stores.CreateStoreInput {
	return stores.CreateStoreInput{
		Brand:     validators.CleanText(r.Brand, 120),
		StoreName: validators.CleanText(r.StoreName, 200),
		Country:   validators.CleanText(r.Country, 80),
		State:     r.State,
		Address:   r.Address,
		Location:  geo.Coordinate{Lat: *r.Latitude, Lng: *r.Longitude},
	}
}

// AdminStoreCreate adds a catalog entry.
func AdminStoreCreate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		var payload createStoreRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithStoreID(r.Context(), created.ID), "store.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stores.FromStore(*created))
	}
}
