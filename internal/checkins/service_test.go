package checkins

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storetrail/storetrail-backend/internal/stores"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/geo"
	"github.com/storetrail/storetrail-backend/pkg/metrics"
	"github.com/storetrail/storetrail-backend/pkg/outbox"
	"github.com/storetrail/storetrail-backend/pkg/outbox/payloads"
)

// kmPerDegree is the meridian arc length of one degree at EarthRadiusKm.
const kmPerDegree = 111.19492664

var iwilei = stores.Store{
	ID:        1,
	Brand:     "ECO TOWN HAWAII",
	StoreName: "Iwilei Store",
	Country:   "USA",
	Location:  geo.Coordinate{Lat: 21.3099, Lng: -157.8581},
}

type stubCatalog struct {
	stores []stores.Store
	err    error
	total  int64
}

func (s *stubCatalog) Get(ctx context.Context, id int64) (*stores.Store, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.stores {
		if s.stores[i].ID == id {
			store := s.stores[i]
			return &store, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
}

func (s *stubCatalog) Count(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.total, nil
}

type stubRepo struct {
	inserted  []CheckIn
	insertErr error
	history   []CheckInWithStore
	distinct  int64
	exists    bool
	err       error
}

func (r *stubRepo) Insert(ctx context.Context, tx *gorm.DB, record CheckIn) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, record)
	return nil
}

func (r *stubRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]CheckInWithStore, error) {
	return r.history, r.err
}

func (r *stubRepo) CountDistinctStoresByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.distinct, r.err
}

func (r *stubRepo) ExistsForUserAndStore(ctx context.Context, userID uuid.UUID, storeID int64) (bool, error) {
	return r.exists, r.err
}

type stubTx struct {
	calls int
}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type upload struct {
	object      string
	data        []byte
	contentType string
}

type stubPhotos struct {
	uploads []upload
	err     error
}

func (s *stubPhotos) Upload(ctx context.Context, object string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads = append(s.uploads, upload{object: object, data: data, contentType: contentType})
	return "https://storage.example.com/photos/" + object, nil
}

type recordedVisits struct {
	outcomes  []string
	distances []float64
}

func (r *recordedVisits) RecordAttempt(outcome string) { r.outcomes = append(r.outcomes, outcome) }
func (r *recordedVisits) ObserveDistance(km float64) { r.distances = append(r.distances, km) }

type fixture struct {
	catalog *stubCatalog
	repo    *stubRepo
	tx      *stubTx
	outbox  *stubOutbox
	photos  *stubPhotos
	visits  *recordedVisits
	svc     Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: &stubCatalog{stores: []stores.Store{iwilei}, total: 23},
		repo:    &stubRepo{},
		tx:      &stubTx{},
		outbox:  &stubOutbox{},
		photos:  &stubPhotos{},
		visits:  &recordedVisits{},
		now:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Catalog:       f.catalog,
		Repo:          f.repo,
		Tx:            f.tx,
		Outbox:        f.outbox,
		Photos:        f.photos,
		Metrics:       f.visits,
		MaxPhotoBytes: 1024,
		Now:           func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func at(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

// northOf returns a position km kilometers due north of the store.
func northOf(store stores.Store, km float64) (*float64, *float64) {
	return at(store.Location.Lat+km/kmPerDegree, store.Location.Lng)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error %v", err)
	return typed
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{Catalog: &stubCatalog{}, Repo: &stubRepo{}, Tx: &stubTx{}})
	assert.Error(t, err)
}

func TestCreateAtExactStoreCoordinates(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)

	record, err := f.svc.Create(context.Background(), userID, CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, int64(1), record.StoreID)
	assert.Equal(t, f.now, record.CreatedAt)
	assert.Nil(t, record.PhotoURL)
	assert.Nil(t, record.Comment)

	require.Len(t, f.repo.inserted, 1)
	assert.Equal(t, record.ID, f.repo.inserted[0].ID)

	require.Len(t, f.outbox.events, 1)
	event := f.outbox.events[0]
	assert.Equal(t, enums.EventCheckInCreated, event.EventType)
	assert.Equal(t, enums.AggregateCheckIn, event.AggregateType)
	assert.Equal(t, record.ID, event.AggregateID)
	data, ok := event.Data.(payloads.CheckInCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "ECO TOWN HAWAII", data.Brand)
	assert.Zero(t, data.DistanceKm)
	assert.False(t, data.HasPhoto)

	assert.Equal(t, []string{metrics.OutcomeAccepted}, f.visits.outcomes)
	assert.Equal(t, 1, f.tx.calls)
}

func TestCreateThresholdBoundary(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	lat, lng := northOf(iwilei, 0.49)
	_, err := f.svc.Create(context.Background(), userID, CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
	require.NoError(t, err)

	lat, lng = northOf(iwilei, 0.51)
	_, err = f.svc.Create(context.Background(), userID, CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
	typed := requireCode(t, err, pkgerrors.CodeOutOfRange)
	assert.Contains(t, typed.Message(), "Current distance: 0.51km")

	assert.Len(t, f.repo.inserted, 1)
	assert.Equal(t, []string{metrics.OutcomeAccepted, metrics.OutcomeOutOfRange}, f.visits.outcomes)
	require.Len(t, f.visits.distances, 2)
	assert.InDelta(t, 0.49, f.visits.distances[0], 1e-6)
}

func TestCreateFarAwayReportsDistance(t *testing.T) {
	f := newFixture(t)
	lat, lng := at(0, 0)
	photo := "data:image/jpeg;base64,/9j/4A=="

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng, PhotoBase64: &photo})
	typed := requireCode(t, err, pkgerrors.CodeOutOfRange)

	assert.True(t, strings.HasPrefix(typed.Message(), "You must be within 0.5km of the store to check in."), typed.Message())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, AdmissionThresholdKm, details["threshold_km"])
	distance, ok := details["distance_km"].(float64)
	require.True(t, ok)
	assert.Greater(t, distance, 10000.0)

	assert.Empty(t, f.photos.uploads)
	assert.Empty(t, f.repo.inserted)
	assert.Empty(t, f.outbox.events)
	assert.Zero(t, f.tx.calls)
}

func TestCreateUnknownStoreWinsOverMissingLocation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 999})
	requireCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, []string{metrics.OutcomeNotFound}, f.visits.outcomes)
	assert.Empty(t, f.visits.distances)
}

func TestCreateCatalogFailurePassesThrough(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = pkgerrors.New(pkgerrors.CodeDependency, "catalog unavailable")
	lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
	requireCode(t, err, pkgerrors.CodeDependency)
	assert.Equal(t, []string{metrics.OutcomeError}, f.visits.outcomes)
}

func TestCreateRejectsMissingOrInvalidLocation(t *testing.T) {
	lat := 21.3
	badLat := 91.0
	badLng := -181.0

	cases := []struct {
		name  string
		input CreateInput
	}{
		{name: "missing both", input: CreateInput{StoreID: 1}},
		{name: "missing longitude", input: CreateInput{StoreID: 1, Latitude: &lat}},
		{name: "latitude out of range", input: CreateInput{StoreID: 1, Latitude: &badLat, Longitude: &iwilei.Location.Lng}},
		{name: "longitude out of range", input: CreateInput{StoreID: 1, Latitude: &lat, Longitude: &badLng}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), uuid.New(), tc.input)
			requireCode(t, err, pkgerrors.CodeValidation)
			assert.Empty(t, f.repo.inserted)
			assert.Equal(t, []string{metrics.OutcomeInvalid}, f.visits.outcomes)
		})
	}
}

func TestCreateWithPhotoAndComment(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	lat, lng := northOf(iwilei, 0.1)
	photo := "data:image/jpeg;base64,/9j/4A=="
	comment := "  found a vintage jacket  "

	record, err := f.svc.Create(context.Background(), userID, CreateInput{
		StoreID:     1,
		Latitude:    lat,
		Longitude:   lng,
		Comment:     &comment,
		PhotoBase64: &photo,
	})
	require.NoError(t, err)

	require.Len(t, f.photos.uploads, 1)
	up := f.photos.uploads[0]
	assert.True(t, strings.HasPrefix(up.object, "checkins/"+userID.String()+"/"), up.object)
	assert.True(t, strings.HasSuffix(up.object, ".jpg"), up.object)
	assert.Equal(t, "image/jpeg", up.contentType)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, up.data)

	require.NotNil(t, record.PhotoURL)
	assert.Equal(t, "https://storage.example.com/photos/"+up.object, *record.PhotoURL)
	require.NotNil(t, record.Comment)
	assert.Equal(t, "found a vintage jacket", *record.Comment)

	require.Len(t, f.outbox.events, 1)
	data := f.outbox.events[0].Data.(payloads.CheckInCreatedEvent)
	assert.True(t, data.HasPhoto)
	assert.True(t, data.HasComment)
}

func TestCreateBlankCommentAndPhotoAreIgnored(t *testing.T) {
	f := newFixture(t)
	lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)
	blank := "   "

	record, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng, Comment: &blank, PhotoBase64: &blank})
	require.NoError(t, err)
	assert.Nil(t, record.Comment)
	assert.Nil(t, record.PhotoURL)
	assert.Empty(t, f.photos.uploads)
}

func TestCreateUploadFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.photos.err = errors.New("bucket unavailable")
	lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)
	photo := "/9j/4A=="

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng, PhotoBase64: &photo})
	requireCode(t, err, pkgerrors.CodePhotoUpload)

	assert.Empty(t, f.repo.inserted)
	assert.Empty(t, f.outbox.events)
	assert.Zero(t, f.tx.calls)
	assert.Equal(t, []string{metrics.OutcomePhotoFailed}, f.visits.outcomes)
}

func TestCreateInvalidPhotoSkipsUpload(t *testing.T) {
	f := newFixture(t)
	lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)
	photo := "data:image/jpeg;base64,not*base64"

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng, PhotoBase64: &photo})
	typed := requireCode(t, err, pkgerrors.CodeValidation)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "photo_base64")

	assert.Empty(t, f.photos.uploads)
	assert.Empty(t, f.repo.inserted)
	assert.Equal(t, []string{metrics.OutcomeInvalid}, f.visits.outcomes)
}

func TestCreateWithoutPhotoStorage(t *testing.T) {
	f := newFixture(t)
	svc, err := NewService(ServiceParams{Catalog: f.catalog, Repo: f.repo, Tx: f.tx, Outbox: f.outbox})
	require.NoError(t, err)
	lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)
	photo := "/9j/4A=="

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng, PhotoBase64: &photo})
	requireCode(t, err, pkgerrors.CodePhotoUpload)
	assert.Empty(t, f.repo.inserted)
}

func TestCreateTransactionFailures(t *testing.T) {
	t.Run("insert", func(t *testing.T) {
		f := newFixture(t)
		f.repo.insertErr = errors.New("connection reset")
		lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)

		_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
		requireCode(t, err, pkgerrors.CodeDependency)
		assert.Empty(t, f.outbox.events)
		assert.Equal(t, []string{metrics.OutcomeError}, f.visits.outcomes)
	})

	t.Run("outbox", func(t *testing.T) {
		f := newFixture(t)
		f.outbox.err = errors.New("outbox write failed")
		lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)

		_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
		requireCode(t, err, pkgerrors.CodeDependency)
	})
}

func TestCreateAllowsRepeatVisits(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	lat, lng := at(iwilei.Location.Lat, iwilei.Location.Lng)

	first, err := f.svc.Create(context.Background(), userID, CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), userID, CreateInput{StoreID: 1, Latitude: lat, Longitude: lng})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, f.repo.inserted, 2)
	assert.Len(t, f.outbox.events, 2)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.repo.distinct = 2
	f.catalog.total = 3

	stats, err := f.svc.Stats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, Stats{VisitedCount: 2, TotalStores: 3, Percentage: 67}, *stats)

	f.repo.err = errors.New("db down")
	_, err = f.svc.Stats(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestStatsEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	f.catalog.total = 0

	stats, err := f.svc.Stats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, stats.Percentage)
}

func TestListMineAndHasVisited(t *testing.T) {
	f := newFixture(t)
	f.repo.history = []CheckInWithStore{{CheckIn: CheckIn{ID: uuid.New(), StoreID: 1}, Store: &iwilei}}
	f.repo.exists = true

	history, err := f.svc.ListMine(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, history, 1)

	visited, err := f.svc.HasVisited(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	assert.True(t, visited)

	f.repo.err = errors.New("db down")
	_, err = f.svc.ListMine(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeDependency)
	_, err = f.svc.HasVisited(context.Background(), uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeDependency)
}
