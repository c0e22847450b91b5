package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/enums"
)

// Repository exposes user persistence keyed by the identity provider's open id.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertParams describes a sign-in. Nil fields are left untouched on an existing row.
type UpsertParams struct {
	OpenID       string
	Name         *string
	Email        *string
	LoginMethod  *string
	Role         *enums.UserRole
	LastSignedIn time.Time
}

// Upsert inserts the user or refreshes the supplied fields, then returns the stored row.
func (r *Repository) Upsert(ctx context.Context, params UpsertParams) (*models.User, error) {
	if params.OpenID == "" {
		return nil, fmt.Errorf("open id is required")
	}
	signedIn := params.LastSignedIn
	if signedIn.IsZero() {
		signedIn = time.Now().UTC()
	}

	row := models.User{
		ID:           uuid.New(),
		OpenID:       params.OpenID,
		Name:         params.Name,
		Email:        params.Email,
		LoginMethod:  params.LoginMethod,
		Role:         enums.UserRoleUser,
		LastSignedIn: signedIn,
	}
	updates := []string{"last_signed_in", "updated_at"}
	if params.Name != nil {
		updates = append(updates, "name")
	}
	if params.Email != nil {
		updates = append(updates, "email")
	}
	if params.LoginMethod != nil {
		updates = append(updates, "login_method")
	}
	if params.Role != nil {
		row.Role = *params.Role
		updates = append(updates, "role")
	}

	conn := r.db.WithContext(ctx)
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "open_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&row).Error; err != nil {
		return nil, err
	}
	return r.FindByOpenID(ctx, params.OpenID)
}

// FindByOpenID retrieves the user matching the provider identity.
func (r *Repository) FindByOpenID(ctx context.Context, openID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("open_id = ?", openID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
