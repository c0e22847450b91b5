package stores

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/geo"
)

// coordinatePlaces matches the numeric(10,7) column scale.
const coordinatePlaces = 7

// Repository reads and seeds the store catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to catalog operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListAll returns the whole catalog ordered by id.
func (r *Repository) ListAll(ctx context.Context) ([]Store, error) {
	var rows []models.Store
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Store, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// FindByID returns gorm.ErrRecordNotFound when the id is unknown.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Store, error) {
	var row models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	store := FromModel(&row)
	return &store, nil
}

// Count returns the catalog size.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Store{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Create inserts a new catalog entry and returns it with its assigned id.
func (r *Repository) Create(ctx context.Context, store Store) (*Store, error) {
	row := fromDomain(store)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert store: %w", err)
	}
	created := FromModel(&row)
	return &created, nil
}

// FromModel converts a persisted row, turning decimal coordinates into floats.
func FromModel(m *models.Store) Store {
	return Store{
		ID:        m.ID,
		Brand:     m.Brand,
		StoreName: m.StoreName,
		Country:   m.Country,
		State:     m.State,
		Address:   m.Address,
		Location: geo.Coordinate{
			Lat: m.Latitude.InexactFloat64(),
			Lng: m.Longitude.InexactFloat64(),
		},
		CreatedAt: m.CreatedAt,
	}
}

func fromDomain(s Store) models.Store {
	return models.Store{
		ID:        s.ID,
		Brand:     s.Brand,
		StoreName: s.StoreName,
		Country:   s.Country,
		State:     s.State,
		Address:   s.Address,
		Latitude:  decimal.NewFromFloat(s.Location.Lat).Round(coordinatePlaces),
		Longitude: decimal.NewFromFloat(s.Location.Lng).Round(coordinatePlaces),
	}
}
