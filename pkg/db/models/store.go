package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store is a catalog location. Coordinates are stored as numeric(10,7).
type Store struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Brand     string          `gorm:"column:brand;not null"`
	StoreName string          `gorm:"column:store_name;not null"`
	Country   string          `gorm:"column:country;not null"`
	State     *string         `gorm:"column:state"`
	Address   *string         `gorm:"column:address"`
	Latitude  decimal.Decimal `gorm:"column:latitude;type:numeric(10,7);not null"`
	Longitude decimal.Decimal `gorm:"column:longitude;type:numeric(10,7);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime;default:CURRENT_TIMESTAMP"`
}

func (Store) TableName() string { return "stores" }
