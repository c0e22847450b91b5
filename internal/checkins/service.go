package checkins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storetrail/storetrail-backend/internal/stores"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/geo"
	"github.com/storetrail/storetrail-backend/pkg/metrics"
	"github.com/storetrail/storetrail-backend/pkg/outbox"
	"github.com/storetrail/storetrail-backend/pkg/outbox/payloads"
)

type catalog interface {
	Get(ctx context.Context, id int64) (*stores.Store, error)
	Count(ctx context.Context) (int64, error)
}

type checkInRepository interface {
	Insert(ctx context.Context, tx *gorm.DB, record CheckIn) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]CheckInWithStore, error)
	CountDistinctStoresByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ExistsForUserAndStore(ctx context.Context, userID uuid.UUID, storeID int64) (bool, error)
}

// PhotoStore uploads an object and returns its public URL.
type PhotoStore interface {
	Upload(ctx context.Context, object string, data []byte, contentType string) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type visitRecorder interface {
	RecordAttempt(outcome string)
	ObserveDistance(km float64)
}

// Service implements check-in admission and the per-user visit views.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CheckIn, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]CheckInWithStore, error)
	Stats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	HasVisited(ctx context.Context, userID uuid.UUID, storeID int64) (bool, error)
}

// CreateInput is a check-in attempt. Coordinates are pointers so a missing
// position can be told apart from (0,0).
type CreateInput struct {
	StoreID     int64
	Latitude    *float64
	Longitude   *float64
	Comment     *string
	PhotoBase64 *string
}

type ServiceParams struct {
	Catalog       catalog
	Repo          checkInRepository
	Tx            txRunner
	Outbox        outboxPublisher
	Photos        PhotoStore
	Metrics       visitRecorder
	MaxPhotoBytes int
	Now           func() time.Time
}

type service struct {
	catalog       catalog
	repo          checkInRepository
	tx            txRunner
	outbox        outboxPublisher
	photos        PhotoStore
	metrics       visitRecorder
	maxPhotoBytes int
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("store catalog required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("checkin repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	var recorder visitRecorder = metrics.NewVisits(nil)
	if params.Metrics != nil {
		recorder = params.Metrics
	}
	return &service{
		catalog:       params.Catalog,
		repo:          params.Repo,
		tx:            params.Tx,
		outbox:        params.Outbox,
		photos:        params.Photos,
		metrics:       recorder,
		maxPhotoBytes: params.MaxPhotoBytes,
		now:           now,
	}, nil
}

// Create runs the admission rule: the store must exist, the claimed position
// must be valid and within AdmissionThresholdKm, and only then is the photo
// uploaded and the record persisted.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CheckIn, error) {
	store, err := s.catalog.Get(ctx, input.StoreID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.metrics.RecordAttempt(metrics.OutcomeNotFound)
		} else {
			s.metrics.RecordAttempt(metrics.OutcomeError)
		}
		return nil, err
	}

	claimed, err := claimedPosition(input)
	if err != nil {
		s.metrics.RecordAttempt(metrics.OutcomeInvalid)
		return nil, err
	}

	distance := geo.Distance(claimed, store.Location)
	s.metrics.ObserveDistance(distance)
	if distance > AdmissionThresholdKm {
		s.metrics.RecordAttempt(metrics.OutcomeOutOfRange)
		return nil, outOfRange(distance)
	}

	record := CheckIn{
		ID:        uuid.New(),
		UserID:    userID,
		StoreID:   store.ID,
		Location:  claimed,
		Comment:   trimmedOrNil(input.Comment),
		CreatedAt: s.now().UTC(),
	}

	if input.PhotoBase64 != nil && strings.TrimSpace(*input.PhotoBase64) != "" {
		url, err := s.uploadPhoto(ctx, userID, *input.PhotoBase64)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				s.metrics.RecordAttempt(metrics.OutcomeInvalid)
			} else {
				s.metrics.RecordAttempt(metrics.OutcomePhotoFailed)
			}
			return nil, err
		}
		record.PhotoURL = &url
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, record); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckInCreated,
			AggregateType: enums.AggregateCheckIn,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			OccurredAt:    record.CreatedAt,
			Data: payloads.CheckInCreatedEvent{
				CheckInID:  record.ID,
				UserID:     userID,
				StoreID:    store.ID,
				Brand:      store.Brand,
				Country:    store.Country,
				DistanceKm: distance,
				HasPhoto:   record.PhotoURL != nil,
				HasComment: record.Comment != nil,
				OccurredAt: record.CreatedAt,
			},
		})
	})
	if err != nil {
		s.metrics.RecordAttempt(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save check-in")
	}

	s.metrics.RecordAttempt(metrics.OutcomeAccepted)
	return &record, nil
}

func (s *service) uploadPhoto(ctx context.Context, userID uuid.UUID, payload string) (string, error) {
	data, err := decodePhoto(payload, s.maxPhotoBytes)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photo").
			WithDetails(map[string]string{"photo_base64": err.Error()})
	}
	if s.photos == nil {
		return "", pkgerrors.New(pkgerrors.CodePhotoUpload, "photo storage not configured")
	}
	url, err := s.photos.Upload(ctx, photoKey(userID, uuid.New()), data, photoContentType)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodePhotoUpload, err, "photo upload failed")
	}
	return url, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]CheckInWithStore, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list check-ins")
	}
	return rows, nil
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	visited, err := s.repo.CountDistinctStoresByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count visited stores")
	}
	total, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(visited, total)
	return &stats, nil
}

func (s *service) HasVisited(ctx context.Context, userID uuid.UUID, storeID int64) (bool, error) {
	visited, err := s.repo.ExistsForUserAndStore(ctx, userID, storeID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup visit")
	}
	return visited, nil
}

func claimedPosition(input CreateInput) (geo.Coordinate, error) {
	details := map[string]string{}
	if input.Latitude == nil {
		details["latitude"] = "is required"
	}
	if input.Longitude == nil {
		details["longitude"] = "is required"
	}
	if len(details) > 0 {
		return geo.Coordinate{}, pkgerrors.New(pkgerrors.CodeValidation, "location is required").WithDetails(details)
	}
	claimed := geo.Coordinate{Lat: *input.Latitude, Lng: *input.Longitude}
	if err := claimed.Validate(); err != nil {
		return geo.Coordinate{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return claimed, nil
}

func outOfRange(distance float64) error {
	msg := fmt.Sprintf("You must be within %gkm of the store to check in. Current distance: %.2fkm", AdmissionThresholdKm, distance)
	return pkgerrors.New(pkgerrors.CodeOutOfRange, msg).WithDetails(map[string]any{
		"distance_km":  distance,
		"threshold_km": AdmissionThresholdKm,
	})
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
