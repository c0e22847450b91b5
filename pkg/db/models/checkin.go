package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckIn is an append-only visit record.
type CheckIn struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	StoreID   int64           `gorm:"column:store_id;not null"`
	PhotoURL  *string         `gorm:"column:photo_url"`
	Comment   *string         `gorm:"column:comment"`
	Latitude  decimal.Decimal `gorm:"column:latitude;type:numeric(10,7);not null"`
	Longitude decimal.Decimal `gorm:"column:longitude;type:numeric(10,7);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (CheckIn) TableName() string { return "checkins" }
