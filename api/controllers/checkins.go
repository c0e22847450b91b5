package controllers

import (
	"net/http"

	"github.com/storetrail/storetrail-backend/api/middleware"
	"github.com/storetrail/storetrail-backend/api/responses"
	"github.com/storetrail/storetrail-backend/api/validators"
	"github.com/storetrail/storetrail-backend/internal/checkins"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

// Coordinates are range-checked by the service once the store resolves, so an
// unknown store reports not found before a bad position. StoreID only has to
// be present; zero or negative ids are left to the catalog to reject.
type createCheckInRequest struct {
	StoreID     *int64   `json:"store_id" validate:"required"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Comment     *string  `json:"comment" validate:"omitempty,max=1000"`
	PhotoBase64 *string  `json:"photo_base64"`
}

func (r createCheckInRequest) toInput() checkins.CreateInput {
	return checkins.CreateInput{
		StoreID:     *r.StoreID,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Comment:     r.Comment,
		PhotoBase64: r.PhotoBase64,
	}
}

func CheckInCreate(svc checkins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkin service unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createCheckInRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithStoreID(ctx, *payload.StoreID)
		}

		record, err := svc.Create(ctx, userID, payload.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "checkin_id", record.ID.String()), "checkin.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkins.FromCheckIn(*record))
	}
}

// CheckInsMine lists the caller's visits, newest first.
func CheckInsMine(svc checkins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkin service unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		history, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, checkins.FromHistory(history))
	}
}

func CheckInStats(svc checkins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkin service unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		stats, err := svc.Stats(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, checkins.FromStats(*stats))
	}
}

func CheckInVisited(svc checkins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkin service unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		storeID, err := validators.ParsePathID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visited, err := svc.HasVisited(r.Context(), userID, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, checkins.VisitedDTO{StoreID: storeID, Visited: visited})
	}
}
