package stores

import (
	"context"
	"errors"
	"math"
	"testing"

	"gorm.io/gorm"

	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/geo"
)

type stubStoreRepo struct {
	catalog   []Store
	err       error
	created   *Store
	countResp int64
}

func (s *stubStoreRepo) ListAll(ctx context.Context) ([]Store, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.catalog, nil
}

func (s *stubStoreRepo) FindByID(ctx context.Context, id int64) (*Store, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.catalog {
		if s.catalog[i].ID == id {
			store := s.catalog[i]
			return &store, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubStoreRepo) Count(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.countResp, nil
}

func (s *stubStoreRepo) Create(ctx context.Context, store Store) (*Store, error) {
	if s.err != nil {
		return nil, s.err
	}
	store.ID = int64(len(s.catalog) + 1)
	s.created = &store
	return &store, nil
}

type recordedNearby struct {
	counts []int
}

func (r *recordedNearby) ObserveNearbyResults(count int) {
	r.counts = append(r.counts, count)
}

func mustService(t *testing.T, repo storeRepository, rec nearbyRecorder) Service {
	t.Helper()
	svc, err := NewService(repo, rec)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatal("expected error creating service without repo")
	}
}

func TestServiceGet(t *testing.T) {
	svc := mustService(t, &stubStoreRepo{catalog: hawaiiCatalog()}, nil)

	store, err := svc.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if store.StoreName != "SELECT ALA MOANA CENTER STORE" {
		t.Fatalf("unexpected store %q", store.StoreName)
	}

	_, err = svc.Get(context.Background(), 404)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceGetDependencyError(t *testing.T) {
	svc := mustService(t, &stubStoreRepo{err: errors.New("connection refused")}, nil)
	_, err := svc.Get(context.Background(), 1)
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestServiceFindNearbyDefaultsRadius(t *testing.T) {
	rec := &recordedNearby{}
	svc := mustService(t, &stubStoreRepo{catalog: hawaiiCatalog()}, rec)

	got, err := svc.FindNearby(context.Background(), geo.Coordinate{Lat: 33.73, Lng: -117.89}, nil)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 california stores within 50km, got %d", len(got))
	}
	if got[0].DistanceKm > got[1].DistanceKm {
		t.Fatalf("results not sorted: %v then %v", got[0].DistanceKm, got[1].DistanceKm)
	}
	if len(rec.counts) != 1 || rec.counts[0] != 2 {
		t.Fatalf("expected nearby metric of 2, got %v", rec.counts)
	}
}

func TestServiceFindNearbyCustomRadius(t *testing.T) {
	svc := mustService(t, &stubStoreRepo{catalog: hawaiiCatalog()}, nil)
	radius := 1.0
	got, err := svc.FindNearby(context.Background(), geo.Coordinate{Lat: 21.3099, Lng: -157.8581}, &radius)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only Iwilei within 1km, got %+v", got)
	}
}

func TestServiceFindNearbyZeroRadiusKeepsExactMatches(t *testing.T) {
	svc := mustService(t, &stubStoreRepo{catalog: hawaiiCatalog()}, nil)
	zero := 0.0

	got, err := svc.FindNearby(context.Background(), geo.Coordinate{Lat: 21.3099, Lng: -157.8581}, &zero)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 || got[0].DistanceKm != 0 {
		t.Fatalf("expected only Iwilei at distance 0, got %+v", got)
	}

	got, err = svc.FindNearby(context.Background(), geo.Coordinate{Lat: 0, Lng: 0}, &zero)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no stores at the origin, got %+v", got)
	}
}

func TestServiceFindNearbyRejectsBadInput(t *testing.T) {
	svc := mustService(t, &stubStoreRepo{catalog: hawaiiCatalog()}, nil)

	negative := -0.5
	_, err := svc.FindNearby(context.Background(), geo.Coordinate{}, &negative)
	assertCode(t, err, pkgerrors.CodeValidation)

	nan := math.NaN()
	_, err = svc.FindNearby(context.Background(), geo.Coordinate{}, &nan)
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.FindNearby(context.Background(), geo.Coordinate{Lat: 120}, nil)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceListWrapsRepositoryFailure(t *testing.T) {
	svc := mustService(t, &stubStoreRepo{err: errors.New("db down")}, nil)
	_, err := svc.List(context.Background())
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestServiceCreateValidates(t *testing.T) {
	repo := &stubStoreRepo{}
	svc := mustService(t, repo, nil)

	_, err := svc.Create(context.Background(), CreateStoreInput{Brand: " ", Location: geo.Coordinate{Lat: 91}})
	assertCode(t, err, pkgerrors.CodeValidation)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", pkgerrors.As(err).Details())
	}
	for _, field := range []string{"brand", "store_name", "country", "location"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details %v", field, details)
		}
	}
	if repo.created != nil {
		t.Fatal("repository should not be called for invalid input")
	}
}

func TestServiceCreateTrimsInput(t *testing.T) {
	repo := &stubStoreRepo{}
	svc := mustService(t, repo, nil)
	blank := "  "

	created, err := svc.Create(context.Background(), CreateStoreInput{
		Brand:     " HARDOFF TAIWAN ",
		StoreName: "桃園中壢店",
		Country:   "Taiwan",
		State:     &blank,
		Location:  geo.Coordinate{Lat: 24.9604, Lng: 121.2191},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Brand != "HARDOFF TAIWAN" {
		t.Fatalf("expected trimmed brand, got %q", created.Brand)
	}
	if created.State != nil {
		t.Fatalf("expected blank state to be dropped")
	}
}
