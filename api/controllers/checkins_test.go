package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storetrail/storetrail-backend/internal/checkins"
	"github.com/storetrail/storetrail-backend/internal/stores"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/geo"
)

type stubCheckInService struct {
	created    *checkins.CheckIn
	createErr  error
	gotUser    uuid.UUID
	gotInput   checkins.CreateInput
	history    []checkins.CheckInWithStore
	stats      *checkins.Stats
	visited    bool
	gotStoreID int64
	err        error
}

func (s *stubCheckInService) Create(ctx context.Context, userID uuid.UUID, input checkins.CreateInput) (*checkins.CheckIn, error) {
	s.gotUser = userID
	s.gotInput = input
	return s.created, s.createErr
}

func (s *stubCheckInService) ListMine(ctx context.Context, userID uuid.UUID) ([]checkins.CheckInWithStore, error) {
	s.gotUser = userID
	return s.history, s.err
}

func (s *stubCheckInService) Stats(ctx context.Context, userID uuid.UUID) (*checkins.Stats, error) {
	s.gotUser = userID
	return s.stats, s.err
}

func (s *stubCheckInService) HasVisited(ctx context.Context, userID uuid.UUID, storeID int64) (bool, error) {
	s.gotUser = userID
	s.gotStoreID = storeID
	return s.visited, s.err
}

func TestCheckInCreate(t *testing.T) {
	userID := uuid.New()
	record := &checkins.CheckIn{
		ID:        uuid.New(),
		UserID:    userID,
		StoreID:   5,
		Location:  geo.Coordinate{Lat: 52.52, Lng: 13.405},
		CreatedAt: time.Now().UTC(),
	}
	svc := &stubCheckInService{created: record}

	body := `{"store_id":5,"latitude":52.52,"longitude":13.405,"comment":"busy"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewBufferString(body)), userID)
	rec := httptest.NewRecorder()
	CheckInCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, userID, svc.gotUser)
	require.Equal(t, int64(5), svc.gotInput.StoreID)
	require.NotNil(t, svc.gotInput.Latitude)
	require.Equal(t, 52.52, *svc.gotInput.Latitude)
	require.NotNil(t, svc.gotInput.Comment)
	require.Equal(t, "busy", *svc.gotInput.Comment)
	require.Nil(t, svc.gotInput.PhotoBase64)

	var out checkins.CheckInDTO
	decodeData(t, rec, &out)
	require.Equal(t, record.ID, out.ID)
	require.Equal(t, 13.405, out.Longitude)
}

func TestCheckInCreateOutOfRange(t *testing.T) {
	details := map[string]any{"distance_km": 0.51, "threshold_km": 0.5}
	svc := &stubCheckInService{
		createErr: pkgerrors.New(pkgerrors.CodeOutOfRange, "You must be within 0.5km of the store to check in. Current distance: 0.51km").WithDetails(details),
	}

	body := `{"store_id":5,"latitude":52.52,"longitude":13.405}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewBufferString(body)), uuid.New())
	rec := httptest.NewRecorder()
	CheckInCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	apiErr := decodeError(t, rec)
	require.Equal(t, string(pkgerrors.CodeOutOfRange), apiErr.Code)
	require.Contains(t, apiErr.Message, "Current distance: 0.51km")
	got, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 0.51, got["distance_km"])
	require.Equal(t, 0.5, got["threshold_km"])
}

func TestCheckInCreateUnknownStoreIDsAreNotFound(t *testing.T) {
	for _, id := range []string{"0", "-3"} {
		t.Run(id, func(t *testing.T) {
			svc := &stubCheckInService{createErr: pkgerrors.New(pkgerrors.CodeNotFound, "store not found")}

			body := `{"store_id":` + id + `,"latitude":1,"longitude":1}`
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewBufferString(body)), uuid.New())
			rec := httptest.NewRecorder()
			CheckInCreate(svc, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusNotFound, rec.Code)
			require.Equal(t, string(pkgerrors.CodeNotFound), decodeError(t, rec).Code)
			require.NotEqual(t, uuid.Nil, svc.gotUser)
		})
	}
}

func TestCheckInCreateRequiresUser(t *testing.T) {
	svc := &stubCheckInService{}

	body := `{"store_id":5,"latitude":1,"longitude":1}`
	rec := httptest.NewRecorder()
	CheckInCreate(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, uuid.Nil, svc.gotUser)
}

func TestCheckInCreateRejectsBadBody(t *testing.T) {
	cases := map[string]string{
		"missing store": `{"latitude":1,"longitude":1}`,
		"unknown field": `{"store_id":1,"latitude":1,"longitude":1,"extra":true}`,
		"malformed":     `{"store_id":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCheckInService{}
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewBufferString(body)), uuid.New())
			rec := httptest.NewRecorder()
			CheckInCreate(svc, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, uuid.Nil, svc.gotUser)
		})
	}
}

func TestCheckInsMine(t *testing.T) {
	userID := uuid.New()
	store := stores.Store{ID: 2, Brand: "Rewe", StoreName: "Rewe City", Country: "DE"}
	svc := &stubCheckInService{history: []checkins.CheckInWithStore{
		{CheckIn: checkins.CheckIn{ID: uuid.New(), UserID: userID, StoreID: 2}, Store: &store},
		{CheckIn: checkins.CheckIn{ID: uuid.New(), UserID: userID, StoreID: 99}},
	}}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/checkins/me", nil), userID)
	rec := httptest.NewRecorder()
	CheckInsMine(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []checkins.CheckInDTO
	decodeData(t, rec, &out)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Store)
	require.Equal(t, "Rewe City", out[0].Store.StoreName)
	require.Nil(t, out[1].Store)
}

func TestCheckInsMineEmptyIsArray(t *testing.T) {
	svc := &stubCheckInService{history: []checkins.CheckInWithStore{}}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/checkins/me", nil), uuid.New())
	rec := httptest.NewRecorder()
	CheckInsMine(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestCheckInStats(t *testing.T) {
	stats := checkins.ComputeStats(2, 3)
	svc := &stubCheckInService{stats: &stats}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/checkins/me/stats", nil), uuid.New())
	rec := httptest.NewRecorder()
	CheckInStats(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"visited_count":2,"total_stores":3,"percentage":67}}`, rec.Body.String())
}

func TestCheckInStatsDependencyFailure(t *testing.T) {
	svc := &stubCheckInService{err: pkgerrors.New(pkgerrors.CodeDependency, "count stores")}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/checkins/me/stats", nil), uuid.New())
	rec := httptest.NewRecorder()
	CheckInStats(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckInVisited(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckInService{visited: true}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/checkins/visited/12", nil), userID)
	req = withPathParam(req, "storeId", "12")
	rec := httptest.NewRecorder()
	CheckInVisited(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(12), svc.gotStoreID)
	require.Equal(t, userID, svc.gotUser)
	require.JSONEq(t, `{"data":{"store_id":12,"visited":true}}`, rec.Body.String())
}

func TestCheckInVisitedRejectsBadStoreID(t *testing.T) {
	svc := &stubCheckInService{}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/checkins/visited/abc", nil), uuid.New())
	req = withPathParam(req, "storeId", "abc")
	rec := httptest.NewRecorder()
	CheckInVisited(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.gotStoreID)
}
