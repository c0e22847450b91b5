package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/pkg/enums"
)

// User is an identity issued by the external sign-in provider, keyed by OpenID.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OpenID       string         `gorm:"column:open_id;not null;uniqueIndex"`
	Name         *string        `gorm:"column:name"`
	Email        *string        `gorm:"column:email"`
	LoginMethod  *string        `gorm:"column:login_method"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:'user'"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	LastSignedIn time.Time      `gorm:"column:last_signed_in;not null"`
}

func (User) TableName() string { return "users" }
