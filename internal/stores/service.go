package stores

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/geo"
)

type storeRepository interface {
	ListAll(ctx context.Context) ([]Store, error)
	FindByID(ctx context.Context, id int64) (*Store, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, store Store) (*Store, error)
}

type nearbyRecorder interface {
	ObserveNearbyResults(count int)
}

// Service exposes catalog browsing and proximity search.
type Service interface {
	List(ctx context.Context) ([]Store, error)
	Get(ctx context.Context, id int64) (*Store, error)
	FindNearby(ctx context.Context, center geo.Coordinate, radiusKm *float64) ([]StoreWithDistance, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, input CreateStoreInput) (*Store, error)
}

type service struct {
	repo    storeRepository
	metrics nearbyRecorder
}

// NewService builds the catalog service. metrics may be nil.
func NewService(repo storeRepository, metrics nearbyRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo, metrics: metrics}, nil
}

// CreateStoreInput carries an administrator supplied catalog entry.
type CreateStoreInput struct {
	Brand     string
	StoreName string
	Country   string
	State     *string
	Address   *string
	Location  geo.Coordinate
}

func (s *service) List(ctx context.Context) ([]Store, error) {
	catalog, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	return catalog, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Store, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

// FindNearby filters the catalog to stores within radiusKm of center, closest first.
// A nil radius uses DefaultRadiusKm; zero keeps only stores at center.
func (s *service) FindNearby(ctx context.Context, center geo.Coordinate, radiusKm *float64) ([]StoreWithDistance, error) {
	radius := DefaultRadiusKm
	if radiusKm != nil {
		radius = *radiusKm
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "radius must not be negative").
			WithDetails(map[string]any{"radius_km": radius})
	}
	if err := center.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	catalog, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	found := Nearby(center, radius, catalog)
	if s.metrics != nil {
		s.metrics.ObserveNearbyResults(len(found))
	}
	return found, nil
}

func (s *service) Count(ctx context.Context) (int64, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stores")
	}
	return total, nil
}

func (s *service) Create(ctx context.Context, input CreateStoreInput) (*Store, error) {
	brand := strings.TrimSpace(input.Brand)
	name := strings.TrimSpace(input.StoreName)
	country := strings.TrimSpace(input.Country)

	details := map[string]string{}
	if brand == "" {
		details["brand"] = "is required"
	}
	if name == "" {
		details["store_name"] = "is required"
	}
	if country == "" {
		details["country"] = "is required"
	}
	if err := input.Location.Validate(); err != nil {
		details["location"] = err.Error()
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid store").WithDetails(details)
	}

	created, err := s.repo.Create(ctx, Store{
		Brand:     brand,
		StoreName: name,
		Country:   country,
		State:     trimmedOrNil(input.State),
		Address:   trimmedOrNil(input.Address),
		Location:  input.Location,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
	}
	return created, nil
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
