package checkins

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storetrail/storetrail-backend/internal/stores"
	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/geo"
)

const coordinatePlaces = 7

// Repository persists check-ins.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes the record inside tx.
func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, record CheckIn) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	row := models.CheckIn{
		ID:        record.ID,
		UserID:    record.UserID,
		StoreID:   record.StoreID,
		PhotoURL:  record.PhotoURL,
		Comment:   record.Comment,
		Latitude:  decimal.NewFromFloat(record.Location.Lat).Round(coordinatePlaces),
		Longitude: decimal.NewFromFloat(record.Location.Lng).Round(coordinatePlaces),
		CreatedAt: record.CreatedAt,
	}
	return tx.WithContext(ctx).Create(&row).Error
}

// ListByUser returns the user's visits newest first, each with its store when it still exists.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]CheckInWithStore, error) {
	var rows []models.CheckIn
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []CheckInWithStore{}, nil
	}

	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.StoreID]; ok {
			continue
		}
		seen[row.StoreID] = struct{}{}
		ids = append(ids, row.StoreID)
	}

	var storeRows []models.Store
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&storeRows).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]*stores.Store, len(storeRows))
	for i := range storeRows {
		s := stores.FromModel(&storeRows[i])
		byID[s.ID] = &s
	}

	out := make([]CheckInWithStore, 0, len(rows))
	for i := range rows {
		out = append(out, CheckInWithStore{
			CheckIn: fromModel(&rows[i]),
			Store:   byID[rows[i].StoreID],
		})
	}
	return out, nil
}

// CountDistinctStoresByUser counts each visited store once.
func (r *Repository) CountDistinctStoresByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CheckIn{}).
		Where("user_id = ?", userID).
		Distinct("store_id").
		Count(&count).Error
	return count, err
}

func (r *Repository) ExistsForUserAndStore(ctx context.Context, userID uuid.UUID, storeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CheckIn{}).
		Where("user_id = ? AND store_id = ?", userID, storeID).
		Count(&count).Error
	return count > 0, err
}

func fromModel(m *models.CheckIn) CheckIn {
	return CheckIn{
		ID:      m.ID,
		UserID:  m.UserID,
		StoreID: m.StoreID,
		Location: geo.Coordinate{
			Lat: m.Latitude.InexactFloat64(),
			Lng: m.Longitude.InexactFloat64(),
		},
		Comment:   m.Comment,
		PhotoURL:  m.PhotoURL,
		CreatedAt: m.CreatedAt,
	}
}
