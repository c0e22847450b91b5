package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/enums"
)

// UserDTO is the profile returned by auth endpoints.
type UserDTO struct {
	ID           uuid.UUID      `json:"id"`
	OpenID       string         `json:"open_id"`
	Name         *string        `json:"name,omitempty"`
	Email        *string        `json:"email,omitempty"`
	LoginMethod  *string        `json:"login_method,omitempty"`
	Role         enums.UserRole `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	LastSignedIn time.Time      `json:"last_signed_in"`
}

// FromModel maps a persisted user into its API view.
func FromModel(m *models.User) *UserDTO {
	if m == nil {
		return nil
	}
	return &UserDTO{
		ID:           m.ID,
		OpenID:       m.OpenID,
		Name:         m.Name,
		Email:        m.Email,
		LoginMethod:  m.LoginMethod,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt,
		LastSignedIn: m.LastSignedIn,
	}
}
